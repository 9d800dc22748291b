package sheets

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"tripspese/internal/core"
)

// WriteCSV streams r as one CSV document: the expenses table, a blank
// line, then the per-person table.
func WriteCSV(w io.Writer, r core.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(neutralize(ExpenseRows(r))); err != nil {
		return fmt.Errorf("write expense rows: %w", err)
	}
	if err := cw.Write([]string{}); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	if err := cw.WriteAll(neutralize(TotalsRows(r))); err != nil {
		return fmt.Errorf("write totals rows: %w", err)
	}
	return nil
}

// formulaPrefixes start a formula when a spreadsheet app opens the file.
const formulaPrefixes = "=+-@\t\r"

// neutralize quotes cells that a spreadsheet would evaluate, in place.
// Rendered amounts are never negative, so numbers pass through untouched.
func neutralize(rows [][]string) [][]string {
	for _, row := range rows {
		for i, cell := range row {
			if cell != "" && strings.ContainsRune(formulaPrefixes, rune(cell[0])) {
				row[i] = "'" + cell
			}
		}
	}
	return rows
}
