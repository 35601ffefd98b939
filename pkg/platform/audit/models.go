package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the auditable reconciliation events.
const (
	ActionCheckin          = "transaction.checkin"
	ActionTransition       = "transaction.transition"
	ActionContainerSaved   = "container.saved"
	ActionIncidentReported = "incident.reported"
	ActionIncidentResolved = "incident.resolved"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID            uuid.UUID
	Timestamp     time.Time
	TransactionID int64
	ContainerID   int64
	IncidentID    int64
	Action        string
	// ActorID is the user who performed the action.
	ActorID int64
	// FromState/ToState carry lifecycle or incident status moves.
	FromState string
	ToState   string
	Detail    string
	// RequestID is the correlation id from the HTTP request context.
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTransaction(ctx context.Context, transactionID int64) ([]Event, error)
}
