// Package memory keeps the last exported report in process. The worker
// falls back to it when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"tripspese/internal/core"
	ports "tripspese/internal/sheets"
)

var _ ports.ReportWriter = (*Writer)(nil)

type Writer struct {
	mu     sync.Mutex
	last   core.Report
	writes int
	err    error
}

func New() *Writer {
	return &Writer{}
}

// FailWith makes every following write return err. Pass nil to recover.
func (w *Writer) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

func (w *Writer) WriteReport(_ context.Context, r core.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.last = r
	w.writes++
	return nil
}

// Last returns the most recent report and how many writes succeeded.
func (w *Writer) Last() (core.Report, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.writes
}
