package core

import (
	"fmt"
	"sort"
	"time"
)

var monthAbbrev = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

type (
	// MonthKey identifies a calendar year-month.
	MonthKey struct {
		Year  int
		Month time.Month
	}

	MonthBucket struct {
		Key           MonthKey
		TotalReceitas Money
		TotalDespesas Money
		Saldo         Money
		Transactions  []Transaction
	}

	Summary struct {
		Balance          Money
		TotalReceitas    Money // settled only
		TotalDespesas    Money // settled only
		PendingReceitas  Money
		PendingDespesas  Money
		TransactionCount int
	}
)

func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// String returns the yyyy-MM form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label returns the short pt-BR chart label, e.g. "jan/24".
func (k MonthKey) Label() string {
	if k.Month < time.January || k.Month > time.December {
		return k.String()
	}
	return fmt.Sprintf("%s/%02d", monthAbbrev[k.Month-1], k.Year%100)
}

func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

func sortTime(t Transaction) int64 {
	if !t.HasDate() {
		return 0
	}
	return t.Data.UnixNano()
}

// SortByDateDescending returns a new slice ordered by Data, newest first.
// Undated transactions sort as the Unix epoch. Equal dates keep input order.
func SortByDateDescending(ts []Transaction) []Transaction {
	out := make([]Transaction, len(ts))
	copy(out, ts)
	sort.SliceStable(out, func(i, j int) bool {
		return sortTime(out[i]) > sortTime(out[j])
	})
	return out
}

// ComputeBalance sums settled transactions, receitas positive and despesas
// negative. Pending transactions do not count.
func ComputeBalance(ts []Transaction) Money {
	var bal Money
	for _, t := range ts {
		if t.Settled() {
			bal = bal.Add(t.Signed())
		}
	}
	return bal
}

// GroupByMonth buckets settled, dated transactions by calendar month, most
// recent month first. Members keep their relative input order.
func GroupByMonth(ts []Transaction) []MonthBucket {
	index := make(map[MonthKey]int)
	var buckets []MonthBucket
	for _, t := range ts {
		if !t.Settled() || !t.HasDate() {
			continue
		}
		key := MonthKeyOf(t.Data)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, MonthBucket{Key: key})
		}
		b := &buckets[i]
		switch t.Tipo {
		case Receita:
			b.TotalReceitas = b.TotalReceitas.Add(t.Valor)
		case Despesa:
			b.TotalDespesas = b.TotalDespesas.Add(t.Valor)
		}
		b.Saldo = b.TotalReceitas.Sub(b.TotalDespesas)
		b.Transactions = append(b.Transactions, t)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[j].Key.Before(buckets[i].Key)
	})
	return buckets
}

// Summarize computes the dashboard totals in one pass.
func Summarize(ts []Transaction) Summary {
	s := Summary{TransactionCount: len(ts)}
	for _, t := range ts {
		switch {
		case t.Settled() && t.Tipo == Receita:
			s.TotalReceitas = s.TotalReceitas.Add(t.Valor)
		case t.Settled() && t.Tipo == Despesa:
			s.TotalDespesas = s.TotalDespesas.Add(t.Valor)
		case t.Tipo == Receita:
			s.PendingReceitas = s.PendingReceitas.Add(t.Valor)
		case t.Tipo == Despesa:
			s.PendingDespesas = s.PendingDespesas.Add(t.Valor)
		}
	}
	s.Balance = s.TotalReceitas.Sub(s.TotalDespesas)
	return s
}

// Recent returns the n most recent transactions.
func Recent(ts []Transaction, n int) []Transaction {
	sorted := SortByDateDescending(ts)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Total sums valor regardless of status or tipo. Reports use it over lists
// already narrowed to one tipo.
func Total(ts []Transaction) Money {
	var m Money
	for _, t := range ts {
		m = m.Add(t.Valor)
	}
	return m
}
