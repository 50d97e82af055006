package services

import (
	"context"
	"fmt"

	"financas/internal/core"
)

const recentCount = 5

// Dashboard is everything the main page shows, derived from scratch on
// each call.
type Dashboard struct {
	Summary      core.Summary
	Months       []core.MonthBucket
	Recent       []core.Transaction
	Groups       core.GroupIndex
	Transactions []core.Transaction
}

func (s *LedgerService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	ts, err := s.reader.ListTransactions(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list transactions: %w", err)
	}
	groups, err := s.reader.ListGroups(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list groups: %w", err)
	}
	return BuildDashboard(ts, groups), nil
}

// BuildDashboard derives the dashboard from one snapshot of each
// collection.
func BuildDashboard(ts []core.Transaction, groups []core.Group) Dashboard {
	sorted := core.SortByDateDescending(ts)
	return Dashboard{
		Summary:      core.Summarize(ts),
		Months:       core.GroupByMonth(ts),
		Recent:       core.Recent(ts, recentCount),
		Groups:       core.NewGroupIndex(groups),
		Transactions: sorted,
	}
}

// Report builds a filtered report for one tipo, or both when tipo is empty.
func (s *LedgerService) Report(ctx context.Context, userID string, tipo core.Kind, f core.ReportFilter) (core.Report, error) {
	if tipo != "" && !tipo.Valid() {
		return core.Report{}, core.ErrInvalidKind
	}
	ts, err := s.reader.ListTransactions(ctx, userID)
	if err != nil {
		return core.Report{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.BuildReport(ts, tipo, f, s.now()), nil
}

// Transactions lists a user's transactions newest first, narrowed by f.
func (s *LedgerService) Transactions(ctx context.Context, userID string, f core.ReportFilter) ([]core.Transaction, error) {
	ts, err := s.reader.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.SortByDateDescending(core.Filter(ts, f.Predicate(s.now()))), nil
}

// Groups lists groups, optionally only those of tipo.
func (s *LedgerService) Groups(ctx context.Context, userID string, tipo core.Kind) ([]core.Group, error) {
	gs, err := s.reader.ListGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tipo == "" {
		return gs, nil
	}
	return core.GroupsByKind(gs, tipo), nil
}

func (s *LedgerService) Descriptions(ctx context.Context, userID string, tipo core.Kind) ([]core.PredefinedDescription, error) {
	ds, err := s.reader.ListDescriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tipo == "" {
		return ds, nil
	}
	return core.DescriptionsByKind(ds, tipo), nil
}
