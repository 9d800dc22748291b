package core

import "time"

// Summary aggregates the active records matching a filter.
type Summary struct {
	TotalAmount   float64
	TotalCount    int
	AverageAmount float64 // rounded to two decimals, 0 when TotalCount is 0
}

// NewSummary derives the average without ever dividing by zero.
func NewSummary(total float64, count int) Summary {
	s := Summary{TotalAmount: total, TotalCount: count}
	if count > 0 {
		s.AverageAmount = Round2(total / float64(count))
	}
	return s
}

// Pagination describes one page of a filtered listing.
type Pagination struct {
	CurrentPage int
	PageSize    int
	TotalPages  int
	TotalCount  int
	HasNext     bool
	HasPrev     bool
}

// NewPagination computes page metadata for total matching records.
func NewPagination(page, pageSize, total int) Pagination {
	p := Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalCount:  total,
		HasPrev:     page > 1,
	}
	if pageSize > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
		p.HasNext = page < p.TotalPages
	}
	return p
}

// Stats counts records by lifecycle state, legacy records included as active.
type Stats struct {
	Total   int
	Active  int
	Deleted int
}

// Report is the exportable view of the ledger.
type Report struct {
	GeneratedAt time.Time
	Expenses    []Expense
	Totals      []PersonTotal
	GrandTotal  float64
}

// PersonTotals sums each roster member's share over expenses. Every member
// gets an entry, zero when they took part in nothing; participants outside
// the roster are ignored. The result follows roster order.
func PersonTotals(roster []string, expenses []Expense) []PersonTotal {
	idx := make(map[string]int, len(roster))
	out := make([]PersonTotal, len(roster))
	for i, name := range roster {
		idx[name] = i
		out[i] = PersonTotal{Name: name}
	}
	for _, e := range expenses {
		for _, p := range e.Participants {
			if i, ok := idx[p]; ok {
				out[i].TotalAmount += e.ShareAmount
			}
		}
	}
	return out
}

// NewReport assembles the export view; GrandTotal is the sum of the
// per-person totals.
func NewReport(at time.Time, roster []string, expenses []Expense) Report {
	r := Report{
		GeneratedAt: at,
		Expenses:    expenses,
		Totals:      PersonTotals(roster, expenses),
	}
	for _, t := range r.Totals {
		r.GrandTotal += t.TotalAmount
	}
	return r
}
