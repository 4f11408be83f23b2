// Package reconcile mapea una identidad externa verificada a exactamente un
// usuario local, creándolo o re-vinculándolo cuando hace falta.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/codepulse/internal/chat"
	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/identity"
	"github.com/dropDatabas3/codepulse/internal/metrics"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
)

// Reconciler resuelve ExternalID → User.
type Reconciler struct {
	users  repository.UserRepository
	source identity.Source
	chat   chat.Syncer

	// sf colapsa primeros logins concurrentes del mismo ExternalID en este proceso;
	// entre procesos lo resuelve el insert-if-absent del store
	sf singleflight.Group
}

// New crea el reconciler. chat nil = chat.NoopSyncer.
func New(users repository.UserRepository, source identity.Source, syncer chat.Syncer) *Reconciler {
	if syncer == nil {
		syncer = chat.NoopSyncer{}
	}
	return &Reconciler{users: users, source: source, chat: syncer}
}

type result struct {
	user *repository.User
	err  error
}

// Reconcile retorna el usuario local de externalID.
//
// Si el push al chat falla retorna el usuario y un *SyncPropagationError.
// El trabajo corre desacoplado de la cancelación de ctx: si el caller se va,
// recibe ctx.Err() y el resultado se descarta sin dejar escrituras a medias.
func (r *Reconciler) Reconcile(ctx context.Context, externalID string) (*repository.User, error) {
	if externalID == "" {
		return nil, repository.ErrInvalidInput
	}

	ch := r.sf.DoChan(externalID, func() (v any, _ error) {
		// singleflight re-lanza los panics en otra goroutine cuando hay
		// callers de DoChan: se convierten en error acá o tiran el proceso
		defer func() {
			if rec := recover(); rec != nil {
				metrics.ReconcileTotal.WithLabelValues("panic").Inc()
				logger.From(ctx).Error("reconcile panic",
					logger.Op("reconcile"),
					logger.ExternalID(externalID),
					logger.Any("panic", rec),
					logger.Stack(),
				)
				v = result{err: fmt.Errorf("reconcile: panic: %v", rec)}
			}
		}()
		u, err := r.reconcile(context.WithoutCancel(ctx), externalID)
		return result{user: u, err: err}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		out := res.Val.(result)
		return out.user, out.err
	}
}

func (r *Reconciler) reconcile(ctx context.Context, externalID string) (*repository.User, error) {
	log := logger.From(ctx).With(logger.Op("reconcile"), logger.ExternalID(externalID))

	// 1. fast path
	u, err := r.users.GetByExternalID(ctx, externalID)
	if err == nil {
		metrics.ReconcileTotal.WithLabelValues("existing").Inc()
		return u, nil
	}
	if !repository.IsNotFound(err) {
		metrics.ReconcileTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}

	// 2. perfil canónico, sin reintentos
	p, err := r.source.GetProfile(ctx, externalID)
	if err != nil || p == nil {
		metrics.ReconcileTotal.WithLabelValues("upstream_error").Inc()
		notFound := p == nil && (err == nil || errors.Is(err, identity.ErrProfileNotFound))
		log.Warn("profile lookup failed", logger.Bool("not_found", notFound), logger.Err(err))
		return nil, &UpstreamLookupError{ExternalID: externalID, NotFound: notFound, Err: err}
	}

	// 3-4. persistir
	u, outcome, err := r.bind(ctx, externalID, p)
	if err != nil {
		var cre *ConflictRepairError
		if errors.As(err, &cre) {
			metrics.ReconcileTotal.WithLabelValues("conflict").Inc()
			log.Warn("rebind rejected", logger.String("bound_to", cre.BoundTo), logger.String("reason", cre.Reason))
		} else {
			metrics.ReconcileTotal.WithLabelValues("store_error").Inc()
			log.Error("persist user failed", logger.Err(err))
		}
		return nil, err
	}
	metrics.ReconcileTotal.WithLabelValues(outcome).Inc()
	log.Info("user reconciled", logger.UserID(u.ID), logger.String("outcome", outcome))

	// 5. chat, no transaccional con el store
	if err := r.chat.UpsertParticipant(ctx, chat.Participant{ID: u.ExternalID, Name: u.Name, Image: u.ProfileImage}); err != nil {
		metrics.ChatSyncFailures.Inc()
		log.Warn("chat sync failed", logger.Event("chat_sync_failed"), logger.UserID(u.ID), logger.Err(err))
		return u, &SyncPropagationError{ExternalID: externalID, UserID: u.ID, Err: err}
	}
	return u, nil
}

// bind crea o re-vincula el registro. outcome: created, existing, rebound.
func (r *Reconciler) bind(ctx context.Context, externalID string, p *identity.Profile) (*repository.User, string, error) {
	name := p.DisplayName()
	email, hasEmail := p.PrimaryEmail()
	if hasEmail && email.Address == "" {
		hasEmail = false
	}

	in := repository.CreateUserInput{
		ExternalID:   externalID,
		Name:         name,
		ProfileImage: p.ImageURL,
	}

	if !hasEmail {
		u, created, err := r.users.CreateIfAbsent(ctx, in)
		if err != nil {
			return nil, "", err
		}
		return u, createdOutcome(created), nil
	}
	in.Email = email.Address

	// dos intentos: un ErrConflict indica que otro writer tocó el email entre
	// nuestra lectura y nuestra escritura
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := r.users.GetByEmail(ctx, email.Address)
		switch {
		case repository.IsNotFound(err):
			u, created, err := r.users.CreateIfAbsent(ctx, in)
			if err == nil {
				return u, createdOutcome(created), nil
			}
			if !repository.IsConflict(err) {
				return nil, "", err
			}

		case err != nil:
			return nil, "", err

		case existing.ExternalID == externalID:
			return existing, "existing", nil

		default:
			if !email.Verified {
				return nil, "", &ConflictRepairError{
					ExternalID: externalID,
					Email:      email.Address,
					BoundTo:    existing.ExternalID,
					Reason:     "email not verified by provider",
				}
			}
			prev := existing.ExternalID
			u, err := r.users.Update(ctx, existing.ID, repository.UpdateUserInput{
				ExternalID:   &externalID,
				Name:         &name,
				ProfileImage: &p.ImageURL,
				IfExternalID: &prev,
			})
			if err == nil {
				logger.From(ctx).Info("user rebound",
					logger.Op("reconcile.rebind"),
					logger.UserID(u.ID),
					logger.Email(email.Address),
					logger.String("previous_external_id", prev),
					logger.ExternalID(externalID),
				)
				return u, "rebound", nil
			}
			if !repository.IsConflict(err) {
				return nil, "", err
			}
			// compare-and-set perdido: quizás otro request ya vinculó este externalID
			if won, gerr := r.users.GetByExternalID(ctx, externalID); gerr == nil {
				return won, "existing", nil
			} else if !repository.IsNotFound(gerr) {
				return nil, "", gerr
			}
		}
	}

	return nil, "", &ConflictRepairError{
		ExternalID: externalID,
		Email:      email.Address,
		Reason:     "concurrent writers on the same email",
		Err:        fmt.Errorf("%w after retry", repository.ErrConflict),
	}
}

func createdOutcome(created bool) string {
	if created {
		return "created"
	}
	return "existing"
}
