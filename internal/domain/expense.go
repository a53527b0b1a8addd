package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an expense entry.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusDeclined Status = "Declined"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Decision is a manager's verdict on a pending expense.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// Default reasons forwarded to the notification service.
const (
	DefaultApproveReason = "Approved - all documentation correct"
	DefaultDeclineReason = "Rejected - insufficient documentation"
)

// IsValid reports whether d is a known decision.
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionDecline
}

// TargetStatus returns the status an entry moves to under d.
func (d Decision) TargetStatus() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusDeclined
}

// NotifyAction is the path segment the notification service expects.
func (d Decision) NotifyAction() string {
	if d == DecisionApprove {
		return "approve"
	}
	return "reject"
}

// DecisionFromStatus maps a requested target status onto a decision.
// Only terminal statuses are accepted; case is ignored.
func DecisionFromStatus(status string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return DecisionApprove, nil
	case "declined":
		return DecisionDecline, nil
	}
	return "", ErrInvalidDecision
}

// ItemDetail is one line item from a receipt.
type ItemDetail struct {
	Name  string
	Price decimal.Decimal
}

// ExpenseEntry is a single reimbursement claim nested under an employee.
type ExpenseEntry struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovalDate    *time.Time
	ApprovedBy      *string
	ExpenseID       string
	ExpenseType     string
	Description     string
	Vendor          string
	Date            string
	BillNumber      string
	ReceiptImage    string
	AISummary       string
	RejectionReason string
	Status          Status
	Categories      []string
	ItemDetails     []ItemDetail
	Amount          decimal.Decimal
	FraudScore      decimal.Decimal
	IsAnomaly       bool
}

// Clone returns a deep copy of e.
func (e *ExpenseEntry) Clone() *ExpenseEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.ApprovalDate != nil {
		t := *e.ApprovalDate
		c.ApprovalDate = &t
	}
	if e.ApprovedBy != nil {
		s := *e.ApprovedBy
		c.ApprovedBy = &s
	}
	if e.Categories != nil {
		c.Categories = append([]string(nil), e.Categories...)
	}
	if e.ItemDetails != nil {
		c.ItemDetails = append([]ItemDetail(nil), e.ItemDetails...)
	}
	return &c
}

// Apply overwrites the transition fields of e with u.
func (e *ExpenseEntry) Apply(u TransitionUpdate) {
	e.Status = u.Status
	e.ApprovalDate = &u.ApprovalDate
	e.UpdatedAt = u.UpdatedAt
	e.RejectionReason = u.RejectionReason
	if u.ApprovedBy != nil {
		by := *u.ApprovedBy
		e.ApprovedBy = &by
	} else {
		e.ApprovedBy = nil
	}
}

// KeepDecision copies the transition fields of prev into e when prev has
// already left Pending. Imports use it so a decided entry stays decided.
func (e *ExpenseEntry) KeepDecision(prev *ExpenseEntry) {
	if prev == nil || prev.Status == StatusPending {
		return
	}
	p := prev.Clone()
	e.Status = p.Status
	e.ApprovedBy = p.ApprovedBy
	e.ApprovalDate = p.ApprovalDate
	e.RejectionReason = p.RejectionReason
	e.UpdatedAt = p.UpdatedAt
}

// CheckInvariants verifies the field combinations allowed for each status.
func (e *ExpenseEntry) CheckInvariants() error {
	if strings.TrimSpace(e.ExpenseID) == "" {
		return ErrInvalidExpenseID
	}
	if !e.Status.IsValid() {
		return ErrInvalidStatus
	}
	switch e.Status {
	case StatusPending:
		if e.ApprovedBy != nil || e.ApprovalDate != nil || e.RejectionReason != "" {
			return ErrInconsistentEntry
		}
	case StatusApproved:
		if e.ApprovedBy == nil || e.ApprovalDate == nil || e.RejectionReason != "" {
			return ErrInconsistentEntry
		}
	case StatusDeclined:
		if e.ApprovedBy != nil || e.ApprovalDate == nil || e.RejectionReason == "" {
			return ErrInconsistentEntry
		}
	}
	return nil
}

// ExpenseRecord is an employee's collection of expense entries.
type ExpenseRecord struct {
	EmployeeID   string
	DepartmentID string
	Expenses     []ExpenseEntry
}

// ExpenseView is an entry merged with the identity of its owner.
type ExpenseView struct {
	EmployeeID   string
	DepartmentID string
	ExpenseEntry
}

// TransitionUpdate is the field set written by a successful transition.
type TransitionUpdate struct {
	ApprovalDate    time.Time
	UpdatedAt       time.Time
	ApprovedBy      *string
	Status          Status
	RejectionReason string
}

// NewTransitionUpdate builds the update for decision taken by actorID at now.
// The stored rejection reason is empty for approvals.
func NewTransitionUpdate(decision Decision, actorID, reason string, now time.Time) TransitionUpdate {
	now = now.UTC()
	u := TransitionUpdate{
		Status:       decision.TargetStatus(),
		ApprovalDate: now,
		UpdatedAt:    now,
	}
	if decision == DecisionApprove {
		by := actorID
		u.ApprovedBy = &by
	} else {
		u.RejectionReason = strings.TrimSpace(reason)
	}
	return u
}

// AnomalyThreshold is the fraud score above which an entry is flagged.
var AnomalyThreshold = decimal.NewFromFloat(0.7)

// IsAnomalous reports whether score exceeds AnomalyThreshold.
func IsAnomalous(score decimal.Decimal) bool {
	return score.GreaterThan(AnomalyThreshold)
}
