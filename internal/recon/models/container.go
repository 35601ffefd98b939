package models

import (
	"time"

	"github.com/shopspring/decimal"

	dErrors "countroom/pkg/domain-errors"
)

// ContainerKind distinguishes the two physical container levels.
type ContainerKind string

const (
	KindBag      ContainerKind = "bag"
	KindEnvelope ContainerKind = "envelope"
)

// EnvelopeKind is the envelope sub-kind; empty for bags.
type EnvelopeKind string

const (
	EnvelopeCash     EnvelopeKind = "cash"
	EnvelopeDocument EnvelopeKind = "document"
	EnvelopeCheck    EnvelopeKind = "check"
)

// ContainerStatus tracks one container through the counting desk.
type ContainerStatus string

const (
	ContainerPending   ContainerStatus = "pending"
	ContainerInProcess ContainerStatus = "in_process"
	ContainerCounted   ContainerStatus = "counted"
	ContainerCancelled ContainerStatus = "cancelled"
)

// Container is one physical unit (bag or envelope) of a shipment.
//
// Structural invariants, enforced before any write:
//   - a bag has no parent (ParentID == 0)
//   - an envelope has a parent bag (ParentID != 0) and a valid sub-kind
//   - Code is unique within the owning transaction
//
// CountedValue equals the sum of the container's own value-detail amounts
// plus the counted values of its direct children; it is null until the
// container is first saved.
type Container struct {
	ID            int64               `json:"id"`
	TransactionID int64               `json:"transaction_id"`
	ParentID      int64               `json:"parent_id,omitempty"`
	Kind          ContainerKind       `json:"kind"`
	EnvelopeKind  EnvelopeKind        `json:"envelope_kind,omitempty"`
	Code          string              `json:"code"`
	DeclaredValue decimal.NullDecimal `json:"declared_value,omitempty"`
	CountedValue  decimal.NullDecimal `json:"counted_value,omitempty"`
	Status        ContainerStatus     `json:"status"`

	ProcessedBy int64      `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// ClientCashierName identifies the client-site cashier who sealed an
	// envelope sourced from a client location.
	ClientCashierName string `json:"client_cashier_name,omitempty"`

	Details   []ValueDetail `json:"details,omitempty"`
	Children  []*Container  `json:"children,omitempty"`
	Incidents []*Incident   `json:"incidents,omitempty"`

	Version int64 `json:"-"`
}

// ValidateStructure enforces the bag/envelope parent rules.
func (c *Container) ValidateStructure() error {
	switch c.Kind {
	case KindBag:
		if c.ParentID != 0 {
			return dErrors.New(dErrors.CodeStructuralViolation, "a bag must not have a parent container")
		}
	case KindEnvelope:
		if c.ParentID == 0 {
			return dErrors.New(dErrors.CodeStructuralViolation, "an envelope requires a parent container")
		}
		switch c.EnvelopeKind {
		case EnvelopeCash, EnvelopeDocument, EnvelopeCheck:
		default:
			return dErrors.Newf(dErrors.CodeStructuralViolation, "invalid envelope sub-kind %q", c.EnvelopeKind)
		}
	default:
		return dErrors.Newf(dErrors.CodeStructuralViolation, "invalid container kind %q", c.Kind)
	}
	if c.TransactionID == 0 {
		return dErrors.New(dErrors.CodeValidation, "container requires an owning transaction")
	}
	if c.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "container code is required")
	}
	return nil
}

// MarkCounted advances a pending or in-process container to counted and
// stamps the processing audit fields. Counted and cancelled containers are
// left untouched; a re-save of an already counted container only refreshes
// its value-detail set.
func (c *Container) MarkCounted(userID int64, now time.Time) {
	if c.Status == ContainerPending || c.Status == ContainerInProcess {
		c.Status = ContainerCounted
		c.ProcessedBy = userID
		at := now
		c.ProcessedAt = &at
	}
}

// OwnDetailTotal sums the calculated amounts of the container's direct lines.
func (c *Container) OwnDetailTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range c.Details {
		total = total.Add(d.Amount)
	}
	return total
}
