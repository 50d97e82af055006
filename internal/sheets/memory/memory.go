package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	ports "financas/internal/sheets"
)

// Store keeps ledger tabs in memory. It backs the sync worker when no
// spreadsheet is configured.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

var _ ports.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// WriteLedger replaces the tab content with a copy of rows.
func (s *Store) WriteLedger(_ context.Context, tab string, rows [][]any) error {
	if strings.TrimSpace(tab) == "" {
		return errors.New("empty tab name")
	}
	cp := make([][]any, len(rows))
	for i, row := range rows {
		cp[i] = append([]any(nil), row...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = cp
	s.writes++
	return nil
}

// Tab returns the rows last written to tab.
func (s *Store) Tab(tab string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[tab]
	return rows, ok
}

// Tabs lists the tab names in sorted order.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tabs))
	for name := range s.tabs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Writes counts successful WriteLedger calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
