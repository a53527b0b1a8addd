package dto

import (
	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

// TransitionRequest is the body of PUT /expenses/{expenseId}.
type TransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransitionRequest) ToUseCaseInput(expenseID string) (usecase.TransitionInput, error) {
	decision, err := domain.DecisionFromStatus(r.Status)
	if err != nil {
		return usecase.TransitionInput{}, err
	}
	return usecase.TransitionInput{
		ExpenseID: expenseID,
		Decision:  decision,
		Reason:    r.Reason,
	}, nil
}
