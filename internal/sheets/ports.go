package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// LedgerWriter replaces the whole content of a tab with rows.
	// Implementations create the tab when it does not exist yet.
	LedgerWriter interface {
		WriteLedger(ctx context.Context, tab string, rows [][]any) error
	}
)
