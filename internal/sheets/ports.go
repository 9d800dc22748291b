package sheets

import (
	"context"

	"tripspese/internal/core"
)

// ReportWriter replaces the exported copy of the ledger with r. Writers
// always rewrite the whole report, so repeating a write is harmless.
type ReportWriter interface {
	WriteReport(ctx context.Context, r core.Report) error
}
