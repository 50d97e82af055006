package core

import (
	"strings"
	"time"
)

// All is the sentinel that disables the group and name-prefix filters.
const All = "all"

const (
	PeriodAll       PeriodMode = "all"
	PeriodDay       PeriodMode = "day"
	PeriodWeek      PeriodMode = "week"
	PeriodMonth     PeriodMode = "month"
	PeriodYear      PeriodMode = "year"
	PeriodMonthYear PeriodMode = "month-year"
)

type (
	PeriodMode string

	// Period selects a date range. Month and Year are only read for
	// PeriodMonthYear.
	Period struct {
		Mode  PeriodMode
		Month time.Month
		Year  int
	}

	// Predicate decides whether a transaction is kept.
	Predicate func(Transaction) bool

	ReportFilter struct {
		Term       string
		Period     Period
		GroupID    string
		NamePrefix string
	}

	Report struct {
		Tipo  Kind
		Items []Transaction
		Total Money
	}
)

func ParsePeriod(mode string, month, year int) (Period, error) {
	p := Period{Mode: PeriodMode(strings.ToLower(strings.TrimSpace(mode)))}
	switch p.Mode {
	case "":
		p.Mode = PeriodAll
	case PeriodAll, PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
	case PeriodMonthYear:
		if month < 1 || month > 12 || year < 1 {
			return Period{}, ErrInvalidPeriod
		}
		p.Month, p.Year = time.Month(month), year
	default:
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// Contains reports whether t falls in the period. Relative modes use the
// period enclosing now, in now's location. Weeks start on Monday.
func (p Period) Contains(t, now time.Time) bool {
	if p.Mode == PeriodAll || p.Mode == "" {
		return true
	}
	if t.IsZero() {
		return false
	}
	t = t.In(now.Location())
	switch p.Mode {
	case PeriodDay:
		return sameDay(t, now)
	case PeriodWeek:
		return sameDay(startOfWeek(t), startOfWeek(now))
	case PeriodMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	case PeriodYear:
		return t.Year() == now.Year()
	case PeriodMonthYear:
		return t.Year() == p.Year && t.Month() == p.Month
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// Filter returns the transactions matching keep, in input order. The input
// slice is never modified.
func Filter(ts []Transaction, keep Predicate) []Transaction {
	out := make([]Transaction, 0, len(ts))
	for _, t := range ts {
		if keep == nil || keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// MatchText keeps descriptions containing term, ignoring case. A blank term
// keeps everything.
func MatchText(term string) Predicate {
	needle := strings.ToLower(strings.TrimSpace(term))
	return func(t Transaction) bool {
		return needle == "" || strings.Contains(strings.ToLower(t.Descricao), needle)
	}
}

func MatchPeriod(p Period, now time.Time) Predicate {
	return func(t Transaction) bool { return p.Contains(t.Data, now) }
}

func MatchGroup(groupID string) Predicate {
	return func(t Transaction) bool { return groupID == All || t.GroupID == groupID }
}

func MatchNamePrefix(prefix string) Predicate {
	return func(t Transaction) bool { return prefix == All || strings.HasPrefix(t.Descricao, prefix) }
}

func MatchKind(tipo Kind) Predicate {
	return func(t Transaction) bool { return tipo == "" || t.Tipo == tipo }
}

// And combines predicates; the result keeps what all of them keep.
func And(ps ...Predicate) Predicate {
	return func(t Transaction) bool {
		for _, p := range ps {
			if p != nil && !p(t) {
				return false
			}
		}
		return true
	}
}

func FilterByText(ts []Transaction, term string) []Transaction {
	return Filter(ts, MatchText(term))
}

func FilterByPeriod(ts []Transaction, p Period, now time.Time) []Transaction {
	return Filter(ts, MatchPeriod(p, now))
}

func FilterByGroup(ts []Transaction, groupID string) []Transaction {
	return Filter(ts, MatchGroup(groupID))
}

func FilterByNamePrefix(ts []Transaction, prefix string) []Transaction {
	return Filter(ts, MatchNamePrefix(prefix))
}

// Predicate folds the filter into one predicate. Empty group and prefix
// values behave like All.
func (f ReportFilter) Predicate(now time.Time) Predicate {
	ps := []Predicate{MatchPeriod(f.Period, now), MatchText(f.Term)}
	if f.GroupID != "" {
		ps = append(ps, MatchGroup(f.GroupID))
	}
	if f.NamePrefix != "" {
		ps = append(ps, MatchNamePrefix(f.NamePrefix))
	}
	return And(ps...)
}

// BuildReport narrows ts to one tipo (or both when tipo is empty) and the
// filter, newest first, with the total of what remains.
func BuildReport(ts []Transaction, tipo Kind, f ReportFilter, now time.Time) Report {
	items := SortByDateDescending(Filter(ts, And(MatchKind(tipo), f.Predicate(now))))
	return Report{Tipo: tipo, Items: items, Total: Total(items)}
}
