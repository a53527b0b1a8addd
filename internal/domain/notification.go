package domain

import "time"

// Notification is one message sent to the downstream notification service.
type Notification struct {
	ID        string
	ExpenseID string
	Decision  Decision
	Reason    string
}

// NotificationReason returns the reason to forward for a decision.
func NotificationReason(decision Decision, reason string) string {
	if reason != "" {
		return reason
	}
	if decision == DecisionApprove {
		return DefaultApproveReason
	}
	return DefaultDeclineReason
}

// NotificationEvent is an undelivered notification kept for replay.
type NotificationEvent struct {
	CreatedAt     time.Time
	LastAttemptAt *time.Time
	DeliveredAt   *time.Time
	ID            string
	ExpenseID     string
	Decision      Decision
	Reason        string
	LastError     string
	Attempts      int
}

// Notification returns the message the event should redeliver.
func (e *NotificationEvent) Notification() Notification {
	return Notification{
		ID:        e.ID,
		ExpenseID: e.ExpenseID,
		Decision:  e.Decision,
		Reason:    e.Reason,
	}
}

// Delivered reports whether the event has been acknowledged.
func (e *NotificationEvent) Delivered() bool {
	return e.DeliveredAt != nil
}
