// Package chat propaga la identidad de los usuarios al servicio de chat.
package chat

import (
	"context"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"

	"github.com/dropDatabas3/codepulse/internal/observability/logger"
)

// DefaultTimeout tope por llamada al servicio de chat.
const DefaultTimeout = 5 * time.Second

// Participant identidad visible en el chat. ID es el id del provider.
type Participant struct {
	ID    string
	Name  string
	Image string
}

// Syncer crea o actualiza participantes. Idempotente por ID.
type Syncer interface {
	UpsertParticipant(ctx context.Context, p Participant) error
}

// StreamSyncer implementa Syncer sobre Stream Chat.
type StreamSyncer struct {
	client  *stream.Client
	timeout time.Duration
}

// NewStreamSyncer crea el cliente. timeout 0 = DefaultTimeout.
func NewStreamSyncer(apiKey, apiSecret string, timeout time.Duration) (*StreamSyncer, error) {
	c, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("chat: stream client: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &StreamSyncer{client: c, timeout: timeout}, nil
}

func (s *StreamSyncer) UpsertParticipant(ctx context.Context, p Participant) error {
	if p.ID == "" {
		return fmt.Errorf("chat: participant id is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.UpsertUser(ctx, &stream.User{ID: p.ID, Name: p.Name, Image: p.Image}); err != nil {
		return fmt.Errorf("chat: upsert %s: %w", p.ID, err)
	}
	return nil
}

// NoopSyncer se usa cuando no hay credenciales de Stream configuradas.
type NoopSyncer struct{}

func (NoopSyncer) UpsertParticipant(ctx context.Context, p Participant) error {
	logger.From(ctx).Debug("chat sync disabled", logger.Op("chat.upsert"), logger.ExternalID(p.ID))
	return nil
}
