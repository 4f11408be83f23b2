package reconcile

import (
	"fmt"

	"github.com/dropDatabas3/codepulse/internal/observability/logger"
)

// UpstreamLookupError el identity provider falló o no devolvió perfil.
// No hubo escrituras.
type UpstreamLookupError struct {
	ExternalID string
	// NotFound el provider respondió que el id no existe.
	NotFound bool
	Err      error
}

func (e *UpstreamLookupError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("reconcile: profile %s not found upstream", e.ExternalID)
	}
	return fmt.Sprintf("reconcile: profile lookup for %s failed: %v", e.ExternalID, e.Err)
}

func (e *UpstreamLookupError) Unwrap() error { return e.Err }

// ConflictRepairError existe un registro con el mismo email bajo otro binding
// y no se puede re-vincular de forma segura.
type ConflictRepairError struct {
	ExternalID string
	Email      string
	// BoundTo ExternalID actual del registro en conflicto ("" = sin binding).
	BoundTo string
	Reason  string
	Err     error
}

func (e *ConflictRepairError) Error() string {
	return fmt.Sprintf("reconcile: cannot rebind %s to %s (bound to %q): %s", logger.MaskEmail(e.Email), e.ExternalID, e.BoundTo, e.Reason)
}

func (e *ConflictRepairError) Unwrap() error { return e.Err }

// SyncPropagationError el usuario quedó persistido pero el push al chat falló.
// Se retorna junto al usuario: no es fatal para el request.
type SyncPropagationError struct {
	ExternalID string
	UserID     string
	Err        error
}

func (e *SyncPropagationError) Error() string {
	return fmt.Sprintf("reconcile: chat sync for %s failed: %v", e.ExternalID, e.Err)
}

func (e *SyncPropagationError) Unwrap() error { return e.Err }
