package sheets

import (
	"strconv"
	"strings"

	"tripspese/internal/core"
)

// Tab names used by every export.
const (
	ExpensesTab = "Expenses"
	TotalsTab   = "Spends Per Person"
)

var (
	ExpenseHeader = []string{"Sr. No", "Expense Type", "Amount", "Split Between", "Split Amount", "Note", "Date"}
	TotalsHeader  = []string{"Name", "Total Amount"}
)

// TotalRowLabel marks the closing row of the per-person tab.
const TotalRowLabel = "TOTAL"

// ExpenseRows renders the expenses tab, header included, in report order.
func ExpenseRows(r core.Report) [][]string {
	rows := make([][]string, 0, len(r.Expenses)+1)
	rows = append(rows, ExpenseHeader)
	for i, e := range r.Expenses {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Category,
			core.FormatAmount(e.Amount),
			strings.Join(e.Participants, ", "),
			core.FormatAmount(e.ShareAmount),
			e.Note,
			e.FormattedDate(),
		})
	}
	return rows
}

// TotalsRows renders the per-person tab followed by the TOTAL row.
func TotalsRows(r core.Report) [][]string {
	rows := make([][]string, 0, len(r.Totals)+2)
	rows = append(rows, TotalsHeader)
	for _, t := range r.Totals {
		rows = append(rows, []string{t.Name, core.FormatAmount(t.TotalAmount)})
	}
	return append(rows, []string{TotalRowLabel, core.FormatAmount(r.GrandTotal)})
}
