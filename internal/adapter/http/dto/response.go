package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

// ItemDetailResponse is one receipt line.
type ItemDetailResponse struct {
	Item   string      `json:"item"`
	Amount json.Number `json:"amount"`
}

// ExpenseResponse is an entry merged with its employee. Money is rendered
// as a plain JSON number.
type ExpenseResponse struct {
	ExpenseID       string               `json:"expenseId"`
	EmployeeID      string               `json:"employeeId"`
	DepartmentID    string               `json:"departmentId,omitempty"`
	ExpenseType     string               `json:"expenseType,omitempty"`
	Description     string               `json:"description,omitempty"`
	Vendor          string               `json:"vendor,omitempty"`
	Date            string               `json:"date,omitempty"`
	BillNumber      string               `json:"bill_number,omitempty"`
	ReceiptImage    string               `json:"receiptImage,omitempty"`
	AISummary       string               `json:"aiSummary,omitempty"`
	Categories      []string             `json:"categories,omitempty"`
	ItemDetails     []ItemDetailResponse `json:"item_details,omitempty"`
	Amount          json.Number          `json:"amount"`
	FraudScore      json.Number          `json:"fraudScore"`
	IsAnomaly       bool                 `json:"isAnomaly"`
	Status          domain.Status        `json:"status"`
	ApprovedBy      *string              `json:"approvedBy,omitempty"`
	ApprovalDate    *time.Time           `json:"approvalDate,omitempty"`
	RejectionReason string               `json:"rejectionReason"`
	CreatedAt       *time.Time           `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time           `json:"updatedAt,omitempty"`
}

// ExpenseFromDomain converts a domain view to response.
func ExpenseFromDomain(v *domain.ExpenseView) *ExpenseResponse {
	resp := &ExpenseResponse{
		ExpenseID:       v.ExpenseID,
		EmployeeID:      v.EmployeeID,
		DepartmentID:    v.DepartmentID,
		ExpenseType:     v.ExpenseType,
		Description:     v.Description,
		Vendor:          v.Vendor,
		Date:            v.Date,
		BillNumber:      v.BillNumber,
		ReceiptImage:    v.ReceiptImage,
		AISummary:       v.AISummary,
		Categories:      v.Categories,
		Amount:          number(v.Amount),
		FraudScore:      number(v.FraudScore),
		IsAnomaly:       v.IsAnomaly,
		Status:          v.Status,
		ApprovedBy:      v.ApprovedBy,
		ApprovalDate:    v.ApprovalDate,
		RejectionReason: v.RejectionReason,
		CreatedAt:       timePtr(v.CreatedAt),
		UpdatedAt:       timePtr(v.UpdatedAt),
	}
	for _, it := range v.ItemDetails {
		resp.ItemDetails = append(resp.ItemDetails, ItemDetailResponse{Item: it.Name, Amount: number(it.Price)})
	}
	return resp
}

// ExpensesFromDomain converts domain views to responses.
func ExpensesFromDomain(views []*domain.ExpenseView) []*ExpenseResponse {
	result := make([]*ExpenseResponse, len(views))
	for i, v := range views {
		result[i] = ExpenseFromDomain(v)
	}
	return result
}

// TransitionResponse is returned once a decision is committed.
type TransitionResponse struct {
	Success      bool          `json:"success"`
	ExpenseID    string        `json:"expenseId"`
	Status       domain.Status `json:"status"`
	Notified     bool          `json:"notified"`
	NotifyStatus string        `json:"notifyStatus"`
	NotifyError  string        `json:"notifyError,omitempty"`
}

// TransitionFromResult converts a use case result to response.
func TransitionFromResult(r *usecase.TransitionResult) *TransitionResponse {
	return &TransitionResponse{
		Success:      r.Success,
		ExpenseID:    r.ExpenseID,
		Status:       r.Status,
		Notified:     r.Notified,
		NotifyStatus: string(r.NotifyStatus),
		NotifyError:  r.NotifyError,
	}
}

// NotificationResponse is an undelivered notification.
type NotificationResponse struct {
	ID            string     `json:"id"`
	ExpenseID     string     `json:"expenseId"`
	Decision      string     `json:"decision"`
	Reason        string     `json:"reason"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"lastError,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
}

// NotificationsFromDomain converts outbox events to responses.
func NotificationsFromDomain(events []*domain.NotificationEvent) []*NotificationResponse {
	result := make([]*NotificationResponse, len(events))
	for i, e := range events {
		result[i] = &NotificationResponse{
			ID:            e.ID,
			ExpenseID:     e.ExpenseID,
			Decision:      string(e.Decision),
			Reason:        e.Reason,
			Attempts:      e.Attempts,
			LastError:     e.LastError,
			CreatedAt:     e.CreatedAt,
			LastAttemptAt: e.LastAttemptAt,
		}
	}
	return result
}

// ReplayResponse summarizes a replay pass.
type ReplayResponse struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
