package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

var (
	_ usecase.ExpenseStore       = (*ExpenseStore)(nil)
	_ usecase.ExpenseReader      = (*ExpenseStore)(nil)
	_ usecase.RecordWriter       = (*ExpenseStore)(nil)
	_ usecase.NotificationOutbox = (*Outbox)(nil)
)

func TestEntryDocumentDecodesLegacyShapes(t *testing.T) {
	approved := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	doc := entryDocument{
		ExpenseID:  "exp-1",
		Amount:     primitive.D{{Key: "$numberDouble", Value: "42.5"}},
		FraudScore: "0.82",
		Status:     "Approved",
		ItemDetails: []itemDocument{
			{Name: "Hotel", Price: primitive.M{"$numberInt": "120"}},
		},
		ApprovedBy:   strPtr("mgr-1"),
		ApprovalDate: primitive.NewDateTimeFromTime(approved),
		CreatedAt:    "2024-02-28T09:30:00Z",
	}

	e, err := doc.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Amount.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("amount: got %s", e.Amount)
	}
	if !e.FraudScore.Equal(decimal.RequireFromString("0.82")) {
		t.Fatalf("fraud score: got %s", e.FraudScore)
	}
	if !e.ItemDetails[0].Price.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("item price: got %s", e.ItemDetails[0].Price)
	}
	if e.ApprovalDate == nil || !e.ApprovalDate.Equal(approved) {
		t.Fatalf("approval date: got %v", e.ApprovalDate)
	}
	if e.CreatedAt.Year() != 2024 || e.CreatedAt.Month() != time.February {
		t.Fatalf("created at: got %v", e.CreatedAt)
	}
	if err := e.CheckInvariants(); err != nil {
		t.Fatalf("decoded entry violates invariants: %v", err)
	}
}

func TestEntryDocumentDecimal128(t *testing.T) {
	d, err := primitive.ParseDecimal128("150.00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc := entryDocument{ExpenseID: "exp-2", Amount: d}

	e, err := doc.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("amount: got %s", e.Amount)
	}
	if e.Status != domain.StatusPending {
		t.Fatalf("missing status should default to Pending, got %q", e.Status)
	}
}

func TestEntryDocumentRejectsGarbageAmount(t *testing.T) {
	doc := entryDocument{ExpenseID: "exp-3", Amount: "lots"}
	if _, err := doc.toDomain(); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestEntryDocumentRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	entry := domain.ExpenseEntry{
		ExpenseID:   "exp-4",
		Amount:      decimal.RequireFromString("99.95"),
		FraudScore:  decimal.RequireFromString("0.1"),
		Status:      domain.StatusPending,
		ItemDetails: []domain.ItemDetail{{Name: "Taxi", Price: decimal.RequireFromString("29.5")}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	raw, err := bson.Marshal(toEntryDocument(&entry))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc entryDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if !got.Amount.Equal(entry.Amount) || !got.ItemDetails[0].Price.Equal(entry.ItemDetails[0].Price) {
		t.Fatalf("amounts changed: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created at: got %v", got.CreatedAt)
	}
}

func TestTransitionUpdateDoc(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	approve := transitionUpdateDoc(domain.NewTransitionUpdate(domain.DecisionApprove, "mgr-1", "", now))
	if len(approve) != 1 || approve[0].Key != "$set" {
		t.Fatalf("approve should only $set, got %v", approve)
	}

	decline := transitionUpdateDoc(domain.NewTransitionUpdate(domain.DecisionDecline, "mgr-1", " wrong ", now))
	if len(decline) != 2 || decline[1].Key != "$unset" {
		t.Fatalf("decline should $set and $unset approvedBy, got %v", decline)
	}
	set := decline[0].Value.(bson.D)
	for _, e := range set {
		if e.Key == "expenses.$.rejectionReason" && e.Value != "wrong" {
			t.Fatalf("reason should be trimmed, got %q", e.Value)
		}
		if e.Key == "expenses.$.approvedBy" {
			t.Fatalf("decline must not set approvedBy")
		}
	}
}

func TestDescriptiveSetLeavesDecisionAlone(t *testing.T) {
	approvedBy := "mgr-1"
	doc := toEntryDocument(&domain.ExpenseEntry{
		ExpenseID:   "exp-5",
		Description: "hotel",
		Status:      domain.StatusApproved,
		ApprovedBy:  &approvedBy,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	set := descriptiveSet(doc)
	keys := make(map[string]any, len(set))
	for _, e := range set {
		keys[e.Key] = e.Value
	}
	for _, owned := range []string{"status", "approvedBy", "approvalDate", "rejectionReason", "updatedAt"} {
		if _, ok := keys["expenses.$."+owned]; ok {
			t.Fatalf("import must not overwrite %s", owned)
		}
	}
	if keys["expenses.$.description"] != "hotel" {
		t.Fatalf("description should be updated, got %v", keys["expenses.$.description"])
	}
	if _, ok := keys["expenses.$.createdAt"]; !ok {
		t.Fatalf("createdAt should be set when present")
	}
}

func TestOwnedPendingEntryFilter(t *testing.T) {
	f := ownedPendingEntryFilter("emp-1", "exp-1")
	if len(f) != 2 || f[0].Key != "employeeId" || f[0].Value != "emp-1" || f[1].Key != "expenses" {
		t.Fatalf("unexpected filter %v", f)
	}
}

func TestBsonTimeWrapped(t *testing.T) {
	got, ok := bsonTime(primitive.D{{Key: "$date", Value: "2024-01-01T00:00:00Z"}})
	if !ok || got.Year() != 2024 {
		t.Fatalf("expected wrapped date to decode, got %v %v", got, ok)
	}
	if _, ok := bsonTime(42); ok {
		t.Fatalf("int should not decode as time")
	}
}

func strPtr(s string) *string { return &s }
