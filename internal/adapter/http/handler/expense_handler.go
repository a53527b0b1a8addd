package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/expensor/approvals/internal/adapter/http/dto"
	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

// TransitionService applies decisions to expenses.
type TransitionService interface {
	Transition(ctx context.Context, input usecase.TransitionInput) (*usecase.TransitionResult, error)
}

// ExpenseService serves expense views.
type ExpenseService interface {
	GetExpense(ctx context.Context, expenseID string) (*domain.ExpenseView, error)
	ListExpenses(ctx context.Context, input usecase.ListExpensesInput) ([]*domain.ExpenseView, error)
}

// ExpenseHandler handles expense-related HTTP requests.
type ExpenseHandler struct {
	transitions TransitionService
	expenses    ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(transitions TransitionService, expenses ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{transitions: transitions, expenses: expenses}
}

// Transition approves or declines a pending expense. A failed notification
// still yields 200; the body says so.
func (h *ExpenseHandler) Transition(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "expenseId")

	var req dto.TransitionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(expenseID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status", "status must be Approved or Declined")
		return
	}

	result, err := h.transitions.Transition(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to update expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransitionFromResult(result))
}

// Get returns the expense named by ?id=, or a page of expenses when no id
// is given.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.list(w, r)
		return
	}

	view, err := h.expenses.GetExpense(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpenseFromDomain(view))
}

func (h *ExpenseHandler) list(w http.ResponseWriter, r *http.Request) {
	views, err := h.expenses.ListExpenses(r.Context(), usecase.ListExpensesInput{
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list expenses", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpensesFromDomain(views))
}
