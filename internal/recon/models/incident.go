package models

import (
	"time"

	"github.com/shopspring/decimal"

	dErrors "countroom/pkg/domain-errors"
)

// IncidentStatus tracks a discrepancy record through review.
type IncidentStatus string

const (
	IncidentReported    IncidentStatus = "reported"
	IncidentUnderReview IncidentStatus = "under_review"
	IncidentAdjusted    IncidentStatus = "adjusted"
	IncidentClosed      IncidentStatus = "closed"
)

// IsResolved reports whether the status is a terminal resolution.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentAdjusted || s == IncidentClosed
}

// ContributesToDifference reports whether incidents in this status flow
// their affected amount into the transaction's net difference.
// Reported and under-review incidents are informational only.
func (s IncidentStatus) ContributesToDifference() bool {
	return s.IsResolved()
}

// ScopeLevel identifies the attachment level of an incident.
type ScopeLevel string

const (
	ScopeTransaction ScopeLevel = "transaction"
	ScopeContainer   ScopeLevel = "container"
	ScopeValueDetail ScopeLevel = "value_detail"
)

// Scope is the tagged attachment of an incident: the most specific level it
// references. Scoped-sum queries group by this value so an incident attached
// at multiple levels is counted exactly once.
type Scope struct {
	Level ScopeLevel
	ID    int64
}

// Incident records a discrepancy between declared and counted amounts.
//
// An incident may reference a transaction, a container and a value-detail
// line simultaneously for traceability; at least one reference is required.
// Only adjusted or closed incidents contribute AffectedAmount (signed) to
// the transaction's net difference. Incidents are never deleted.
type Incident struct {
	ID int64 `json:"id"`

	TransactionID int64 `json:"transaction_id,omitempty"`
	ContainerID   int64 `json:"container_id,omitempty"`
	ValueDetailID int64 `json:"value_detail_id,omitempty"`

	TypeCode string `json:"type_code"`
	TypeID   int64  `json:"type_id"`
	Category string `json:"category"`

	AffectedAmount decimal.Decimal `json:"affected_amount"`
	DenominationID int64           `json:"denomination_id,omitempty"`
	Quantity       int64           `json:"quantity,omitempty"`

	Description string `json:"description"`

	ReportedBy int64     `json:"reported_by"`
	ReportedAt time.Time `json:"reported_at"`

	Status IncidentStatus `json:"status"`

	ResolvedBy int64      `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Validate checks the at-least-one-reference rule.
func (i *Incident) Validate() error {
	if i.TransactionID == 0 && i.ContainerID == 0 && i.ValueDetailID == 0 {
		return dErrors.New(dErrors.CodeValidation,
			"incident requires at least one of transaction, container or value-detail reference")
	}
	if i.TypeCode == "" {
		return dErrors.New(dErrors.CodeValidation, "incident type code is required")
	}
	return nil
}

// MostSpecificScope returns the attachment scope used for sum queries:
// value-detail over container over transaction.
func (i *Incident) MostSpecificScope() Scope {
	switch {
	case i.ValueDetailID != 0:
		return Scope{Level: ScopeValueDetail, ID: i.ValueDetailID}
	case i.ContainerID != 0:
		return Scope{Level: ScopeContainer, ID: i.ContainerID}
	default:
		return Scope{Level: ScopeTransaction, ID: i.TransactionID}
	}
}

// CanResolve checks whether the incident may move to the given status.
// Only adjusted and closed are legal resolution targets, and only reported
// or under-review incidents may be resolved.
func (i *Incident) CanResolve(target IncidentStatus) error {
	if !target.IsResolved() {
		return dErrors.Newf(dErrors.CodeValidation, "%q is not a resolution status", target)
	}
	if i.Status.IsResolved() {
		return dErrors.New(dErrors.CodeInvalidState, "incident already resolved")
	}
	return nil
}

// ApplyResolution transitions the incident to the resolved status and stamps
// the reviewer. Call CanResolve first.
func (i *Incident) ApplyResolution(target IncidentStatus, reviewerID int64, now time.Time) {
	i.Status = target
	i.ResolvedBy = reviewerID
	at := now
	i.ResolvedAt = &at
}
