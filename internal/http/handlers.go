package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tripspese/internal/log"
	"tripspese/internal/sheets"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready only while the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"store": "not_configured"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"store": "failed"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"store": "ok"},
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		Categories: s.catalog.Categories(),
		Roster:     s.catalog.Roster(),
		SelectAll:  s.catalog.SelectAll(),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r, s.maxBodyBytes)
	if err := p.Parse(); err != nil {
		if isBodyTooLarge(err) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := s.ledger.Create(r.Context(), expenseInput(p))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, expenseEnvelope{
		Message: "Expense created successfully",
		Expense: newExpenseResponse(e),
	})
}

// handleDeleteExpense soft-deletes the expense named in the path, or in the
// expenseId body field on the legacy route.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r, s.maxBodyBytes)
	if err := p.Parse(); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		id = p.Get("expenseId", "id")
	}

	e, err := s.ledger.SoftDelete(r.Context(), id, deleteSecret(r, p))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseEnvelope{
		Message: "Expense deleted successfully",
		Expense: newExpenseResponse(e),
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	req, err := ParseListRequest(r.URL.Query(), s.defaultPageSize)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	res, err := s.queries.List(r.Context(), req)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(res))
}

func (s *Server) handlePerPersonTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.queries.PerPersonTotals(r.Context())
	if err != nil {
		writeError(w, r, log.OpTotals, err)
		return
	}
	writeJSON(w, http.StatusOK, newPerPersonResponse(totals))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.queries.Stats(r.Context())
	if err != nil {
		writeError(w, r, log.OpStats, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalExpenses:   st.Total,
		ActiveExpenses:  st.Active,
		DeletedExpenses: st.Deleted,
	})
}

// handleExportCSV renders the report into memory first so a failure can
// still be answered with a proper status.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.queries.Report(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := sheets.WriteCSV(&buf, report); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
