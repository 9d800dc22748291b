package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	ports "tripspese/internal/sheets"

	"tripspese/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client rewrites the two export tabs of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	totalsSheet   string
}

var _ ports.ReportWriter = (*Client)(nil)

// Credentials selects the service account used to reach the Sheets API.
// Inline JSON wins over a file path.
type Credentials struct {
	JSON string
	File string
}

// NewClient wraps svc. Empty tab names fall back to the default tabs.
func NewClient(svc *gsheet.Service, spreadsheetID, expensesSheet, totalsSheet string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if expensesSheet == "" {
		expensesSheet = ports.ExpensesTab
	}
	if totalsSheet == "" {
		totalsSheet = ports.TotalsTab
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		expensesSheet: expensesSheet,
		totalsSheet:   totalsSheet,
	}, nil
}

// NewService initializes a Sheets service using service account credentials.
func NewService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	var auth goption.ClientOption
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		auth = goption.WithCredentialsJSON([]byte(creds.JSON))
	case strings.TrimSpace(creds.File) != "":
		slog.InfoContext(ctx, "Using service account credentials file", "path", creds.File)
		auth = goption.WithCredentialsFile(creds.File)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	svc, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// WriteReport clears both tabs and writes the fresh report in one batch.
func (c *Client) WriteReport(ctx context.Context, r core.Report) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearReq := &gsheet.BatchClearValuesRequest{
		Ranges: []string{quoteSheet(c.expensesSheet), quoteSheet(c.totalsSheet)},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear report tabs: %w", err)
	}

	update := &gsheet.BatchUpdateValuesRequest{
		// RAW keeps notes such as "=1+1" from turning into formulas.
		ValueInputOption: "RAW",
		Data: []*gsheet.ValueRange{
			{Range: quoteSheet(c.expensesSheet) + "!A1", Values: toValues(ports.ExpenseRows(r))},
			{Range: quoteSheet(c.totalsSheet) + "!A1", Values: toValues(ports.TotalsRows(r))},
		},
	}
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, update).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update report tabs: %w", err)
	}

	slog.InfoContext(ctx, "Wrote report to spreadsheet",
		"expenses", len(r.Expenses),
		"updated_cells", resp.TotalUpdatedCells)
	return nil
}

// quoteSheet renders a tab name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// toValues converts rendered rows to cell values, sending numbers as
// numbers so the sheet can sum them.
func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		out[i] = cells
	}
	return out
}

func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
