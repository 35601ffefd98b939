package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
)

// IncidentView decorates an incident with resolved display names.
type IncidentView struct {
	*models.Incident
	ReportedByName string `json:"reported_by_name"`
	ResolvedByName string `json:"resolved_by_name,omitempty"`
}

// ReviewView is the read-only aggregate a reviewer sees: the container tree,
// the incident list and the recomputed totals. Nothing here is persisted.
type ReviewView struct {
	Transaction      *models.Transaction `json:"transaction"`
	RegisteredByName string              `json:"registered_by_name"`
	ReviewedByName   string              `json:"reviewed_by_name,omitempty"`

	Containers []*models.Container `json:"containers"`
	Incidents  []*IncidentView     `json:"incidents"`

	TotalCountedValue decimal.Decimal `json:"total_counted_value"`
	ApprovedEffect    decimal.Decimal `json:"approved_incident_effect"`
	ValueDifference   decimal.Decimal `json:"value_difference"`
}

// PrepareReview assembles the review summary for a transaction. The totals
// shown are re-derived from the loaded state rather than read back from the
// transaction row, so the reviewer always sees figures consistent with the
// tree on screen.
func (s *Service) PrepareReview(ctx context.Context, transactionID int64) (*ReviewView, error) {
	t, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var (
		containers []*models.Container
		incidents  []*models.Incident
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		containers, err = s.containers.ListByTransaction(gctx, t.ID)
		return err
	})
	g.Go(func() error {
		var err error
		incidents, err = s.incidents.ListByTransaction(gctx, t.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assemble review")
	}

	roots := buildTree(containers, incidents)

	counted := decimal.Zero
	for _, root := range roots {
		if root.CountedValue.Valid {
			counted = counted.Add(root.CountedValue.Decimal)
		}
	}
	effect := decimal.Zero
	views := make([]*IncidentView, 0, len(incidents))
	for _, inc := range incidents {
		if inc.Status.ContributesToDifference() {
			effect = effect.Add(inc.AffectedAmount)
		}
		view := &IncidentView{
			Incident:       inc,
			ReportedByName: s.identity.DisplayName(ctx, inc.ReportedBy),
		}
		if inc.ResolvedBy != 0 {
			view.ResolvedByName = s.identity.DisplayName(ctx, inc.ResolvedBy)
		}
		views = append(views, view)
	}

	view := &ReviewView{
		Transaction:       t,
		RegisteredByName:  s.identity.DisplayName(ctx, t.RegisteredBy),
		Containers:        roots,
		Incidents:         views,
		TotalCountedValue: counted,
		ApprovedEffect:    effect,
		ValueDifference:   counted.Add(effect).Sub(t.TotalDeclaredValue),
	}
	if t.ReviewedBy != 0 {
		view.ReviewedByName = s.identity.DisplayName(ctx, t.ReviewedBy)
	}
	return view, nil
}

// buildTree links the flat container list into parent/child form and
// attaches incidents to their containers. The arena is keyed by id, so the
// assembly is a single pass plus a sort per level.
func buildTree(containers []*models.Container, incidents []*models.Incident) []*models.Container {
	byID := make(map[int64]*models.Container, len(containers))
	for _, c := range containers {
		c.Children = nil
		c.Incidents = nil
		byID[c.ID] = c
	}

	var roots []*models.Container
	for _, c := range containers {
		if parent, ok := byID[c.ParentID]; ok && c.ParentID != 0 {
			parent.Children = append(parent.Children, c)
			continue
		}
		roots = append(roots, c)
	}
	for _, c := range containers {
		sort.Slice(c.Children, func(i, j int) bool { return c.Children[i].ID < c.Children[j].ID })
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })

	for _, inc := range incidents {
		if c, ok := byID[inc.ContainerID]; ok && inc.ContainerID != 0 {
			c.Incidents = append(c.Incidents, inc)
		}
	}
	return roots
}
