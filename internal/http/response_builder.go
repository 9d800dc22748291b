package http

import (
	"encoding/json"
	"net/http"
	"time"

	"tripspese/internal/core"
	"tripspese/internal/services"
)

// Wire shapes. Field names follow the JSON the web client already reads.
type (
	expenseResponse struct {
		ID            string    `json:"id"`
		ExpenseType   string    `json:"expenseType"`
		SplitBetween  []string  `json:"splitBetween"`
		Note          string    `json:"note"`
		Amount        float64   `json:"amount"`
		SplitAmount   float64   `json:"splitAmount"`
		CreatedBy     string    `json:"createdBy"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
		IsDeleted     bool      `json:"isDeleted"`
		FormattedDate string    `json:"formattedDate"`
	}

	paginationResponse struct {
		CurrentPage   int  `json:"currentPage"`
		PageSize      int  `json:"pageSize"`
		TotalPages    int  `json:"totalPages"`
		TotalExpenses int  `json:"totalExpenses"`
		HasNext       bool `json:"hasNext"`
		HasPrev       bool `json:"hasPrev"`
	}

	summaryResponse struct {
		TotalAmount   float64 `json:"totalAmount"`
		TotalExpenses int     `json:"totalExpenses"`
		AverageAmount float64 `json:"averageAmount"`
	}

	listResponse struct {
		Expenses   []expenseResponse  `json:"expenses"`
		Pagination paginationResponse `json:"pagination"`
		Summary    summaryResponse    `json:"summary"`
	}

	expenseEnvelope struct {
		Message string          `json:"message"`
		Expense expenseResponse `json:"expense"`
	}

	personTotalResponse struct {
		Name        string  `json:"name"`
		TotalAmount float64 `json:"totalAmount"`
	}

	perPersonResponse struct {
		Totals     []personTotalResponse `json:"totals"`
		GrandTotal float64               `json:"grandTotal"`
	}

	statsResponse struct {
		TotalExpenses   int `json:"totalExpenses"`
		ActiveExpenses  int `json:"activeExpenses"`
		DeletedExpenses int `json:"deletedExpenses"`
	}

	catalogResponse struct {
		Categories []string `json:"categories"`
		Roster     []string `json:"roster"`
		SelectAll  string   `json:"selectAll"`
	}

	errorResponse struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors,omitempty"`
	}
)

func newExpenseResponse(e core.Expense) expenseResponse {
	participants := e.Participants
	if participants == nil {
		participants = []string{}
	}
	return expenseResponse{
		ID:            e.ID,
		ExpenseType:   e.Category,
		SplitBetween:  participants,
		Note:          e.Note,
		Amount:        e.Amount,
		SplitAmount:   e.ShareAmount,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		IsDeleted:     !e.Active,
		FormattedDate: e.FormattedDate(),
	}
}

func newListResponse(res services.ListResult) listResponse {
	out := listResponse{
		Expenses: make([]expenseResponse, 0, len(res.Expenses)),
		Pagination: paginationResponse{
			CurrentPage:   res.Pagination.CurrentPage,
			PageSize:      res.Pagination.PageSize,
			TotalPages:    res.Pagination.TotalPages,
			TotalExpenses: res.Pagination.TotalCount,
			HasNext:       res.Pagination.HasNext,
			HasPrev:       res.Pagination.HasPrev,
		},
		Summary: summaryResponse{
			TotalAmount:   res.Summary.TotalAmount,
			TotalExpenses: res.Summary.TotalCount,
			AverageAmount: res.Summary.AverageAmount,
		},
	}
	for _, e := range res.Expenses {
		out.Expenses = append(out.Expenses, newExpenseResponse(e))
	}
	return out
}

func newPerPersonResponse(totals []core.PersonTotal) perPersonResponse {
	out := perPersonResponse{Totals: make([]personTotalResponse, 0, len(totals))}
	for _, t := range totals {
		out.Totals = append(out.Totals, personTotalResponse{Name: t.Name, TotalAmount: t.TotalAmount})
		out.GrandTotal += t.TotalAmount
	}
	return out
}

// writeJSON sends v with the given status. Encoding errors after the header
// is written cannot be reported to the client.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
