package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func pendingEntry() ExpenseEntry {
	return ExpenseEntry{
		ExpenseID:  "exp-1",
		Status:     StatusPending,
		Amount:     decimal.RequireFromString("150.00"),
		Categories: []string{"travel"},
	}
}

func TestDecisionFromStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Decision
		wantErr bool
	}{
		{"Approved", DecisionApprove, false},
		{"approved", DecisionApprove, false},
		{"Declined", DecisionDecline, false},
		{"Rejected", "", true},
		{"Pending", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := DecisionFromStatus(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDecision) {
				t.Fatalf("DecisionFromStatus(%q): expected ErrInvalidDecision, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("DecisionFromStatus(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestDecision_Mappings(t *testing.T) {
	t.Parallel()

	if DecisionApprove.TargetStatus() != StatusApproved || DecisionApprove.NotifyAction() != "approve" {
		t.Fatal("approve should map to Approved and the approve endpoint")
	}
	if DecisionDecline.TargetStatus() != StatusDeclined || DecisionDecline.NotifyAction() != "reject" {
		t.Fatal("decline should map to Declined and the reject endpoint")
	}
}

func TestNewTransitionUpdate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	t.Run("approve", func(t *testing.T) {
		u := NewTransitionUpdate(DecisionApprove, "manager-7", "looks fine", now)
		if u.Status != StatusApproved {
			t.Fatalf("expected Approved, got %s", u.Status)
		}
		if u.ApprovedBy == nil || *u.ApprovedBy != "manager-7" {
			t.Fatalf("expected approvedBy manager-7, got %v", u.ApprovedBy)
		}
		if u.RejectionReason != "" {
			t.Fatalf("expected empty rejection reason, got %q", u.RejectionReason)
		}
		if !u.ApprovalDate.Equal(now) || !u.UpdatedAt.Equal(now) || u.ApprovalDate.Location() != time.UTC {
			t.Fatalf("expected timestamps equal to now in UTC, got %v / %v", u.ApprovalDate, u.UpdatedAt)
		}
	})

	t.Run("decline", func(t *testing.T) {
		u := NewTransitionUpdate(DecisionDecline, "manager-7", "  duplicate receipt ", now)
		if u.Status != StatusDeclined {
			t.Fatalf("expected Declined, got %s", u.Status)
		}
		if u.ApprovedBy != nil {
			t.Fatalf("expected no approver on decline, got %v", *u.ApprovedBy)
		}
		if u.RejectionReason != "duplicate receipt" {
			t.Fatalf("expected trimmed reason, got %q", u.RejectionReason)
		}
	})
}

func TestExpenseEntry_ApplyAndInvariants(t *testing.T) {
	t.Parallel()

	now := time.Now()

	entry := pendingEntry()
	if err := entry.CheckInvariants(); err != nil {
		t.Fatalf("pending entry should be consistent: %v", err)
	}

	entry.Apply(NewTransitionUpdate(DecisionApprove, "mgr", "", now))
	if err := entry.CheckInvariants(); err != nil {
		t.Fatalf("approved entry should be consistent: %v", err)
	}

	declined := pendingEntry()
	declined.Apply(NewTransitionUpdate(DecisionDecline, "mgr", "insufficient docs", now))
	if err := declined.CheckInvariants(); err != nil {
		t.Fatalf("declined entry should be consistent: %v", err)
	}
	if declined.RejectionReason != "insufficient docs" {
		t.Fatalf("expected rejection reason to be stored, got %q", declined.RejectionReason)
	}

	broken := pendingEntry()
	broken.Status = StatusDeclined
	if err := broken.CheckInvariants(); !errors.Is(err, ErrInconsistentEntry) {
		t.Fatalf("expected ErrInconsistentEntry, got %v", err)
	}
}

func TestExpenseEntry_CloneIsDeep(t *testing.T) {
	t.Parallel()

	entry := pendingEntry()
	entry.Apply(NewTransitionUpdate(DecisionApprove, "mgr", "", time.Now()))
	entry.ItemDetails = []ItemDetail{{Name: "Taxi", Price: decimal.NewFromInt(20)}}

	clone := entry.Clone()
	*clone.ApprovedBy = "someone-else"
	clone.Categories[0] = "meals"
	clone.ItemDetails[0].Name = "Bus"

	if *entry.ApprovedBy != "mgr" || entry.Categories[0] != "travel" || entry.ItemDetails[0].Name != "Taxi" {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestExpenseEntry_KeepDecision(t *testing.T) {
	t.Parallel()

	decided := pendingEntry()
	decided.Apply(NewTransitionUpdate(DecisionDecline, "mgr", "missing receipt", time.Now()))

	incoming := pendingEntry()
	incoming.Description = "updated"
	incoming.KeepDecision(&decided)

	if incoming.Status != StatusDeclined || incoming.RejectionReason != "missing receipt" || incoming.ApprovalDate == nil {
		t.Fatalf("decision was not carried forward: %+v", incoming)
	}
	if incoming.Description != "updated" {
		t.Fatalf("descriptive fields should come from the import, got %q", incoming.Description)
	}

	fresh := pendingEntry()
	fresh.Amount = decimal.NewFromInt(7)
	still := pendingEntry()
	fresh.KeepDecision(&still)
	if fresh.Status != StatusPending || !fresh.Amount.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("a pending predecessor should not change the import: %+v", fresh)
	}
}

func TestIsAnomalous(t *testing.T) {
	t.Parallel()

	if IsAnomalous(decimal.RequireFromString("0.7")) {
		t.Fatal("0.7 is not above the threshold")
	}
	if !IsAnomalous(decimal.RequireFromString("0.71")) {
		t.Fatal("0.71 should be flagged")
	}
}

func TestNotificationReason(t *testing.T) {
	t.Parallel()

	if got := NotificationReason(DecisionApprove, ""); got != DefaultApproveReason {
		t.Fatalf("expected default approve reason, got %q", got)
	}
	if got := NotificationReason(DecisionDecline, "duplicate receipt"); got != "duplicate receipt" {
		t.Fatalf("expected caller reason, got %q", got)
	}
}
