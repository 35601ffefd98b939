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

// LineInput is one submitted value-detail line. For cash lines the unit
// value comes from the denomination catalog; for checks and documents the
// face value is taken from the instrument itself.
type LineInput struct {
	Type             models.ValueType `json:"type"`
	DenominationID   int64            `json:"denomination_id,omitempty"`
	Quantity         int64            `json:"quantity"`
	BundleCount      int64            `json:"bundle_count,omitempty"`
	LooseCount       int64            `json:"loose_count,omitempty"`
	FaceValue        decimal.Decimal  `json:"face_value,omitempty"`
	HighDenomination bool             `json:"high_denomination,omitempty"`
	QualityID        int64            `json:"quality_id,omitempty"`
	BankEntityID     int64            `json:"bank_entity_id,omitempty"`
	AccountNumber    string           `json:"account_number,omitempty"`
	InstrumentNumber string           `json:"instrument_number,omitempty"`
}

// SaveContainerInput upserts a container together with its full line set.
// ID zero creates a new container; a non-zero ID updates an existing one.
type SaveContainerInput struct {
	ID                int64                `json:"id,omitempty"`
	TransactionID     int64                `json:"transaction_id"`
	ParentID          int64                `json:"parent_id,omitempty"`
	Kind              models.ContainerKind `json:"kind"`
	EnvelopeKind      models.EnvelopeKind  `json:"envelope_kind,omitempty"`
	Code              string               `json:"code"`
	DeclaredValue     *decimal.Decimal     `json:"declared_value,omitempty"`
	ClientCashierName string               `json:"client_cashier_name,omitempty"`
	UserID            int64                `json:"user_id"`
	Lines             []LineInput          `json:"lines"`
}

// SaveContainer upserts a container and atomically replaces its value-detail
// lines, then rolls the new counted value up through the container's
// ancestors and the owning transaction. Each save fully supersedes the prior
// line set, which keeps re-running the rollup idempotent.
//
// Saves are only accepted while the owning transaction is in a counting
// state; that guard is what prevents stray writes after review has started.
func (s *Service) SaveContainer(ctx context.Context, input SaveContainerInput) (*models.Container, error) {
	t, err := s.loadTransaction(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if !t.State.IsCounting() {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"container saves require a counting state; transaction %d is %s", t.ID, t.State)
	}

	c, prevParentID, err := s.upsertTarget(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateStructure(); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, c); err != nil {
		return nil, err
	}

	details, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	siblings, err := s.containers.ListByTransaction(ctx, t.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container tree")
	}

	counted := sumAmounts(details)
	for _, child := range siblings {
		if child.ParentID == c.ID && c.ID != 0 && child.CountedValue.Valid {
			counted = counted.Add(child.CountedValue.Decimal)
		}
	}
	c.CountedValue = decimal.NewNullDecimal(counted)
	c.MarkCounted(input.UserID, requestcontext.Now(ctx))

	if err := s.containers.SaveWithDetails(ctx, c, details); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict,
				"container code %q is already used in transaction %d", c.Code, t.ID)
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "container %d not found", c.ID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save container")
	}

	if err := s.rollupAncestors(ctx, t.ID, c.ParentID); err != nil {
		return nil, err
	}
	// A re-parented container leaves its old chain with a stale rollup.
	if prevParentID != 0 && prevParentID != c.ParentID {
		if err := s.rollupAncestors(ctx, t.ID, prevParentID); err != nil {
			return nil, err
		}
	}
	if err := s.recalcLoaded(ctx, t); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ContainerSaves.Inc()
	}
	s.emit(ctx, audit.Event{
		TransactionID: t.ID,
		ContainerID:   c.ID,
		Action:        audit.ActionContainerSaved,
		ActorID:       input.UserID,
		Detail:        c.Code,
		RequestID:     requestcontext.RequestID(ctx),
	})

	return c, nil
}

// upsertTarget materializes the container being saved: a fresh pending node
// for ID zero, otherwise the stored node with its mutable fields updated.
// The second return is the stored parent id before the overwrite, so a
// re-parented container's old chain can be rolled up as well.
func (s *Service) upsertTarget(ctx context.Context, input SaveContainerInput) (*models.Container, int64, error) {
	declared := decimal.NullDecimal{}
	if input.DeclaredValue != nil {
		declared = decimal.NewNullDecimal(*input.DeclaredValue)
	}

	if input.ID == 0 {
		return &models.Container{
			TransactionID:     input.TransactionID,
			ParentID:          input.ParentID,
			Kind:              input.Kind,
			EnvelopeKind:      input.EnvelopeKind,
			Code:              input.Code,
			DeclaredValue:     declared,
			Status:            models.ContainerPending,
			ClientCashierName: input.ClientCashierName,
		}, 0, nil
	}

	c, err := s.containers.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, 0, dErrors.Newf(dErrors.CodeNotFound, "container %d not found", input.ID)
		}
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container")
	}
	if c.TransactionID != input.TransactionID {
		return nil, 0, dErrors.Newf(dErrors.CodeValidation,
			"container %d belongs to transaction %d", c.ID, c.TransactionID)
	}
	if c.Status == models.ContainerCancelled {
		return nil, 0, dErrors.Newf(dErrors.CodeInvalidState, "container %d is cancelled", c.ID)
	}

	prevParentID := c.ParentID
	c.ParentID = input.ParentID
	c.Kind = input.Kind
	c.EnvelopeKind = input.EnvelopeKind
	c.Code = input.Code
	if input.DeclaredValue != nil {
		c.DeclaredValue = declared
	}
	c.ClientCashierName = input.ClientCashierName
	return c, prevParentID, nil
}

// checkParent verifies the referenced parent exists in the same transaction
// and is not the container itself.
func (s *Service) checkParent(ctx context.Context, c *models.Container) error {
	if c.ParentID == 0 {
		return nil
	}
	if c.ParentID == c.ID {
		return dErrors.New(dErrors.CodeStructuralViolation, "a container cannot be its own parent")
	}
	parent, err := s.containers.FindByID(ctx, c.ParentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "parent container %d not found", c.ParentID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent container")
	}
	if parent.TransactionID != c.TransactionID {
		return dErrors.Newf(dErrors.CodeStructuralViolation,
			"parent container %d belongs to a different transaction", c.ParentID)
	}
	return nil
}

// buildLines validates each submitted line and re-derives its amount
// server-side; client-submitted totals are never trusted.
func (s *Service) buildLines(ctx context.Context, lines []LineInput) ([]models.ValueDetail, error) {
	details := make([]models.ValueDetail, 0, len(lines))
	for _, line := range lines {
		d := models.ValueDetail{
			Type:             line.Type,
			DenominationID:   line.DenominationID,
			Quantity:         line.Quantity,
			BundleCount:      line.BundleCount,
			LooseCount:       line.LooseCount,
			HighDenomination: line.HighDenomination,
			QualityID:        line.QualityID,
			BankEntityID:     line.BankEntityID,
			AccountNumber:    line.AccountNumber,
			InstrumentNumber: line.InstrumentNumber,
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}

		unit := line.FaceValue
		if d.IsCash() {
			face, err := s.catalog.ResolveDenomination(ctx, d.DenominationID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil, dErrors.Newf(dErrors.CodeUnknownReference,
						"unknown denomination %d", d.DenominationID)
				}
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve denomination")
			}
			unit = face
		} else if unit.IsNegative() {
			return nil, dErrors.New(dErrors.CodeValidation, "face value must not be negative")
		}

		if d.QualityID != 0 {
			if _, err := s.catalog.ResolveQuality(ctx, d.QualityID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil, dErrors.Newf(dErrors.CodeUnknownReference, "unknown quality %d", d.QualityID)
				}
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve quality")
			}
		}

		d.ComputeAmount(unit)
		details = append(details, d)
	}
	return details, nil
}

// rollupAncestors recomputes counted values up the parent chain after a
// child save. The walk is bottom-up over fresh reads, so re-running it is
// side-effect-free.
func (s *Service) rollupAncestors(ctx context.Context, transactionID, parentID int64) error {
	for parentID != 0 {
		all, err := s.containers.ListByTransaction(ctx, transactionID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container tree")
		}
		byID := make(map[int64]*models.Container, len(all))
		for _, c := range all {
			byID[c.ID] = c
		}
		node, ok := byID[parentID]
		if !ok {
			return dErrors.Newf(dErrors.CodeNotFound, "parent container %d not found", parentID)
		}

		total := node.OwnDetailTotal()
		for _, c := range all {
			if c.ParentID == node.ID && c.CountedValue.Valid {
				total = total.Add(c.CountedValue.Decimal)
			}
		}
		if err := s.containers.UpdateCountedValue(ctx, node.ID, total); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update rolled-up counted value")
		}
		parentID = node.ParentID
	}
	return nil
}

// SumDetailsByType returns the container's line amounts summed per value type.
func (s *Service) SumDetailsByType(ctx context.Context, containerID int64) (map[models.ValueType]decimal.Decimal, error) {
	c, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "container %d not found", containerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container")
	}
	sums := make(map[models.ValueType]decimal.Decimal)
	for _, d := range c.Details {
		sums[d.Type] = sums[d.Type].Add(d.Amount)
	}
	return sums, nil
}

func sumAmounts(details []models.ValueDetail) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.Amount)
	}
	return total
}
