package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
	"countroom/pkg/platform/audit"
	"countroom/pkg/platform/sentinel"
	"countroom/pkg/requestcontext"
)

// RegisterIncidentInput records a discrepancy against a transaction, a
// container and/or a single value-detail line.
type RegisterIncidentInput struct {
	TransactionID  int64           `json:"transaction_id,omitempty"`
	ContainerID    int64           `json:"container_id,omitempty"`
	ValueDetailID  int64           `json:"value_detail_id,omitempty"`
	TypeCode       string          `json:"type_code"`
	AffectedAmount decimal.Decimal `json:"affected_amount"`
	DenominationID int64           `json:"denomination_id,omitempty"`
	Quantity       int64           `json:"quantity,omitempty"`
	Description    string          `json:"description"`
}

// RegisterIncident validates the attachment references, resolves the
// incident type against the catalog and persists the incident as reported.
// The attachment chain is normalized on the way in: a value-detail reference
// fixes the container, a container reference fixes the transaction, so every
// stored incident can be queried by transaction.
func (s *Service) RegisterIncident(ctx context.Context, input RegisterIncidentInput, reporterID int64) (*models.Incident, error) {
	inc := &models.Incident{
		TransactionID:  input.TransactionID,
		ContainerID:    input.ContainerID,
		ValueDetailID:  input.ValueDetailID,
		TypeCode:       input.TypeCode,
		AffectedAmount: input.AffectedAmount,
		DenominationID: input.DenominationID,
		Quantity:       input.Quantity,
		Description:    input.Description,
		ReportedBy:     reporterID,
		ReportedAt:     requestcontext.Now(ctx),
		Status:         models.IncidentReported,
	}
	if err := inc.Validate(); err != nil {
		return nil, err
	}
	if err := s.normalizeAttachment(ctx, inc); err != nil {
		return nil, err
	}

	t, err := s.loadTransaction(ctx, inc.TransactionID)
	if err != nil {
		return nil, err
	}
	if t.State.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeFinalState,
			"transaction %d is %s; incidents can no longer be registered", t.ID, t.State)
	}

	typ, err := s.catalog.ResolveIncidentType(ctx, inc.TypeCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeUnknownReference, "unknown incident type %q", inc.TypeCode)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve incident type")
	}
	inc.TypeID = typ.ID
	inc.Category = string(typ.Category)

	if inc.DenominationID != 0 {
		if _, err := s.catalog.ResolveDenomination(ctx, inc.DenominationID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeUnknownReference, "unknown denomination %d", inc.DenominationID)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve denomination")
		}
	}

	if err := s.incidents.Create(ctx, inc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create incident")
	}

	if s.metrics != nil {
		s.metrics.IncidentsRegistered.Inc()
	}
	s.emit(ctx, audit.Event{
		TransactionID: inc.TransactionID,
		ContainerID:   inc.ContainerID,
		IncidentID:    inc.ID,
		Action:        audit.ActionIncidentReported,
		ActorID:       reporterID,
		ToState:       string(inc.Status),
		Detail:        inc.TypeCode,
		RequestID:     requestcontext.RequestID(ctx),
	})

	return inc, nil
}

// normalizeAttachment walks the reference chain upward and fills in the
// implied links, rejecting references that contradict each other.
func (s *Service) normalizeAttachment(ctx context.Context, inc *models.Incident) error {
	if inc.ValueDetailID != 0 {
		d, err := s.containers.FindDetail(ctx, inc.ValueDetailID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "value detail %d not found", inc.ValueDetailID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load value detail")
		}
		if inc.ContainerID != 0 && inc.ContainerID != d.ContainerID {
			return dErrors.Newf(dErrors.CodeValidation,
				"value detail %d does not belong to container %d", inc.ValueDetailID, inc.ContainerID)
		}
		inc.ContainerID = d.ContainerID
	}

	if inc.ContainerID != 0 {
		c, err := s.containers.FindByID(ctx, inc.ContainerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "container %d not found", inc.ContainerID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container")
		}
		if inc.TransactionID != 0 && inc.TransactionID != c.TransactionID {
			return dErrors.Newf(dErrors.CodeValidation,
				"container %d does not belong to transaction %d", inc.ContainerID, inc.TransactionID)
		}
		inc.TransactionID = c.TransactionID
	}

	return nil
}

// ResolveIncident moves a reported or under-review incident to adjusted or
// closed and folds its effect into the transaction totals. Resolving a
// missing or already-resolved incident is a no-op returning false, so
// retried requests are harmless.
func (s *Service) ResolveIncident(ctx context.Context, incidentID int64, target models.IncidentStatus, reviewerID int64) (bool, error) {
	if !target.IsResolved() {
		return false, dErrors.Newf(dErrors.CodeValidation,
			"%q is not a resolution status; use %q or %q", target, models.IncidentAdjusted, models.IncidentClosed)
	}

	inc, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load incident")
	}
	if inc.Status.IsResolved() {
		return false, nil
	}

	t, err := s.loadTransaction(ctx, inc.TransactionID)
	if err != nil {
		return false, err
	}
	if t.State.IsTerminal() {
		return false, dErrors.Newf(dErrors.CodeFinalState,
			"transaction %d is %s; incident effects are frozen", t.ID, t.State)
	}

	from := inc.Status
	inc.ApplyResolution(target, reviewerID, requestcontext.Now(ctx))
	if err := s.incidents.Update(ctx, inc); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update incident")
	}

	if err := s.recalcLoaded(ctx, t); err != nil {
		return false, err
	}

	if s.metrics != nil {
		s.metrics.IncrementIncidentResolved(string(target))
	}
	s.emit(ctx, audit.Event{
		TransactionID: inc.TransactionID,
		ContainerID:   inc.ContainerID,
		IncidentID:    inc.ID,
		Action:        audit.ActionIncidentResolved,
		ActorID:       reviewerID,
		FromState:     string(from),
		ToState:       string(target),
		RequestID:     requestcontext.RequestID(ctx),
	})

	return true, nil
}

// approvedEffectForTransaction sums the affected amounts of resolved
// incidents across the whole transaction. Each incident is one row, so it
// contributes exactly once regardless of how many levels it references.
func (s *Service) approvedEffectForTransaction(ctx context.Context, transactionID int64) (decimal.Decimal, error) {
	incidents, err := s.incidents.ListByTransaction(ctx, transactionID)
	if err != nil {
		return decimal.Decimal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load incidents")
	}
	effect := decimal.Zero
	for _, inc := range incidents {
		if inc.Status.ContributesToDifference() {
			effect = effect.Add(inc.AffectedAmount)
		}
	}
	return effect, nil
}

// SumApprovedEffect returns the resolved-incident effect for a whole
// transaction.
func (s *Service) SumApprovedEffect(ctx context.Context, transactionID int64) (decimal.Decimal, error) {
	if _, err := s.loadTransaction(ctx, transactionID); err != nil {
		return decimal.Decimal{}, err
	}
	return s.approvedEffectForTransaction(ctx, transactionID)
}

// SumApprovedEffectForContainer returns the resolved-incident effect scoped
// to one container and, transitively, its children. Scoping uses each
// incident's most specific attachment only, so an incident referencing both
// a container and one of its value-detail lines is counted exactly once.
func (s *Service) SumApprovedEffectForContainer(ctx context.Context, containerID int64) (decimal.Decimal, error) {
	root, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return decimal.Decimal{}, dErrors.Newf(dErrors.CodeNotFound, "container %d not found", containerID)
		}
		return decimal.Decimal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container")
	}

	all, err := s.containers.ListByTransaction(ctx, root.TransactionID)
	if err != nil {
		return decimal.Decimal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container tree")
	}

	// Arena walk: collect the subtree's container ids, then the detail ids
	// they own.
	inScope := map[int64]bool{containerID: true}
	for changed := true; changed; {
		changed = false
		for _, c := range all {
			if !inScope[c.ID] && inScope[c.ParentID] {
				inScope[c.ID] = true
				changed = true
			}
		}
	}
	detailContainer := make(map[int64]int64)
	for _, c := range all {
		for _, d := range c.Details {
			detailContainer[d.ID] = c.ID
		}
	}

	incidents, err := s.incidents.ListByTransaction(ctx, root.TransactionID)
	if err != nil {
		return decimal.Decimal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load incidents")
	}

	effect := decimal.Zero
	for _, inc := range incidents {
		if !inc.Status.ContributesToDifference() {
			continue
		}
		scope := inc.MostSpecificScope()
		switch scope.Level {
		case models.ScopeContainer:
			if inScope[scope.ID] {
				effect = effect.Add(inc.AffectedAmount)
			}
		case models.ScopeValueDetail:
			// Line replacement on a later save retires the referenced
			// detail id; the recorded container keeps the incident scoped.
			owner, ok := detailContainer[scope.ID]
			if !ok {
				owner = inc.ContainerID
			}
			if inScope[owner] {
				effect = effect.Add(inc.AffectedAmount)
			}
		}
	}
	return effect, nil
}
