package mongodb

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/expensor/approvals/internal/domain"
)

// entryDocument mirrors an embedded expense. Numeric and time fields are
// decoded loosely because older documents store them as strings or
// Extended-JSON wrappers.
type entryDocument struct {
	ExpenseID       string         `bson:"expenseId"`
	ExpenseType     string         `bson:"expenseType,omitempty"`
	Description     string         `bson:"description,omitempty"`
	Vendor          string         `bson:"vendor,omitempty"`
	Date            string         `bson:"date,omitempty"`
	BillNumber      string         `bson:"bill_number,omitempty"`
	ReceiptImage    string         `bson:"receiptImage,omitempty"`
	AISummary       string         `bson:"aiSummary,omitempty"`
	Categories      []string       `bson:"categories,omitempty"`
	ItemDetails     []itemDocument `bson:"item_details,omitempty"`
	Amount          any            `bson:"amount"`
	FraudScore      any            `bson:"fraudScore,omitempty"`
	IsAnomaly       bool           `bson:"isAnomaly"`
	Status          string         `bson:"status"`
	ApprovedBy      *string        `bson:"approvedBy,omitempty"`
	ApprovalDate    any            `bson:"approvalDate,omitempty"`
	RejectionReason string         `bson:"rejectionReason,omitempty"`
	CreatedAt       any            `bson:"createdAt,omitempty"`
	UpdatedAt       any            `bson:"updatedAt,omitempty"`
}

type itemDocument struct {
	Name  string `bson:"item"`
	Price any    `bson:"amount"`
}

// viewDocument is an entry merged with its owner's fields.
type viewDocument struct {
	EmployeeID   string        `bson:"employeeId"`
	DepartmentID string        `bson:"departmentId"`
	Expense      entryDocument `bson:",inline"`
}

func toEntryDocument(e *domain.ExpenseEntry) entryDocument {
	doc := entryDocument{
		ExpenseID:       e.ExpenseID,
		ExpenseType:     e.ExpenseType,
		Description:     e.Description,
		Vendor:          e.Vendor,
		Date:            e.Date,
		BillNumber:      e.BillNumber,
		ReceiptImage:    e.ReceiptImage,
		AISummary:       e.AISummary,
		Categories:      e.Categories,
		Amount:          toDecimal128(e.Amount.String()),
		FraudScore:      toDecimal128(e.FraudScore.String()),
		IsAnomaly:       e.IsAnomaly,
		Status:          string(e.Status),
		ApprovedBy:      e.ApprovedBy,
		RejectionReason: e.RejectionReason,
	}
	for _, it := range e.ItemDetails {
		doc.ItemDetails = append(doc.ItemDetails, itemDocument{Name: it.Name, Price: toDecimal128(it.Price.String())})
	}
	if e.ApprovalDate != nil {
		doc.ApprovalDate = e.ApprovalDate.UTC()
	}
	if !e.CreatedAt.IsZero() {
		doc.CreatedAt = e.CreatedAt.UTC()
	}
	if !e.UpdatedAt.IsZero() {
		doc.UpdatedAt = e.UpdatedAt.UTC()
	}
	return doc
}

func toDecimal128(s string) any {
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		return s
	}
	return d
}

func (d *entryDocument) toDomain() (*domain.ExpenseEntry, error) {
	amount, err := domain.NormalizeNumeric(bsonNumeric(d.Amount))
	if err != nil {
		return nil, fmt.Errorf("expense %s amount: %w", d.ExpenseID, err)
	}
	score, err := domain.NormalizeNumeric(bsonNumeric(d.FraudScore))
	if err != nil {
		return nil, fmt.Errorf("expense %s fraudScore: %w", d.ExpenseID, err)
	}

	e := &domain.ExpenseEntry{
		ExpenseID:       d.ExpenseID,
		ExpenseType:     d.ExpenseType,
		Description:     d.Description,
		Vendor:          d.Vendor,
		Date:            d.Date,
		BillNumber:      d.BillNumber,
		ReceiptImage:    d.ReceiptImage,
		AISummary:       d.AISummary,
		Categories:      d.Categories,
		Amount:          amount,
		FraudScore:      score,
		IsAnomaly:       d.IsAnomaly,
		Status:          domain.Status(d.Status),
		ApprovedBy:      d.ApprovedBy,
		RejectionReason: d.RejectionReason,
	}
	if e.Status == "" {
		e.Status = domain.StatusPending
	}

	for _, it := range d.ItemDetails {
		price, err := domain.NormalizeNumeric(bsonNumeric(it.Price))
		if err != nil {
			return nil, fmt.Errorf("expense %s item %q: %w", d.ExpenseID, it.Name, err)
		}
		e.ItemDetails = append(e.ItemDetails, domain.ItemDetail{Name: it.Name, Price: price})
	}

	if t, ok := bsonTime(d.ApprovalDate); ok {
		e.ApprovalDate = &t
	}
	if t, ok := bsonTime(d.CreatedAt); ok {
		e.CreatedAt = t
	}
	if t, ok := bsonTime(d.UpdatedAt); ok {
		e.UpdatedAt = t
	}

	return e, nil
}

func (v *viewDocument) toDomain() (*domain.ExpenseView, error) {
	entry, err := v.Expense.toDomain()
	if err != nil {
		return nil, err
	}
	return &domain.ExpenseView{
		EmployeeID:   v.EmployeeID,
		DepartmentID: v.DepartmentID,
		ExpenseEntry: *entry,
	}, nil
}

// bsonNumeric unwraps driver-specific values into shapes NormalizeNumeric
// understands.
func bsonNumeric(v any) any {
	switch n := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(n))
		for _, e := range n {
			m[e.Key] = e.Value
		}
		return m
	case primitive.M:
		return map[string]any(n)
	case primitive.Decimal128:
		return n.String()
	}
	return v
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// bsonTime accepts BSON dates and the string formats older writers used.
func bsonTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC(), true
	case time.Time:
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range legacyTimeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	case primitive.D, primitive.M:
		// {"$date": ...} wrappers survive only in hand-imported data.
		m, _ := bsonNumeric(t).(map[string]any)
		if inner, ok := m["$date"]; ok {
			return bsonTime(inner)
		}
	}
	return time.Time{}, false
}

// transitionUpdateDoc builds the positional update for a matched entry.
func transitionUpdateDoc(u domain.TransitionUpdate) bson.D {
	set := bson.D{
		{Key: "expenses.$.status", Value: string(u.Status)},
		{Key: "expenses.$.approvalDate", Value: u.ApprovalDate},
		{Key: "expenses.$.updatedAt", Value: u.UpdatedAt},
		{Key: "expenses.$.rejectionReason", Value: u.RejectionReason},
	}
	if u.ApprovedBy != nil {
		set = append(set, bson.E{Key: "expenses.$.approvedBy", Value: *u.ApprovedBy})
		return bson.D{{Key: "$set", Value: set}}
	}
	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$unset", Value: bson.D{{Key: "expenses.$.approvedBy", Value: ""}}},
	}
}

// ownedPendingEntryFilter matches employeeID's document while the entry is
// still Pending.
func ownedPendingEntryFilter(employeeID, expenseID string) bson.D {
	return append(bson.D{{Key: "employeeId", Value: employeeID}}, pendingEntryFilter(expenseID)...)
}

// descriptiveSet updates everything on a matched entry except the fields a
// transition owns.
func descriptiveSet(doc entryDocument) bson.D {
	set := bson.D{
		{Key: "expenses.$.expenseType", Value: doc.ExpenseType},
		{Key: "expenses.$.description", Value: doc.Description},
		{Key: "expenses.$.vendor", Value: doc.Vendor},
		{Key: "expenses.$.date", Value: doc.Date},
		{Key: "expenses.$.bill_number", Value: doc.BillNumber},
		{Key: "expenses.$.receiptImage", Value: doc.ReceiptImage},
		{Key: "expenses.$.aiSummary", Value: doc.AISummary},
		{Key: "expenses.$.categories", Value: doc.Categories},
		{Key: "expenses.$.item_details", Value: doc.ItemDetails},
		{Key: "expenses.$.amount", Value: doc.Amount},
		{Key: "expenses.$.fraudScore", Value: doc.FraudScore},
		{Key: "expenses.$.isAnomaly", Value: doc.IsAnomaly},
	}
	if doc.CreatedAt != nil {
		set = append(set, bson.E{Key: "expenses.$.createdAt", Value: doc.CreatedAt})
	}
	return set
}

// pendingEntryFilter matches the document whose entry is still Pending.
func pendingEntryFilter(expenseID string) bson.D {
	return bson.D{{Key: "expenses", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
		{Key: "expenseId", Value: expenseID},
		{Key: "status", Value: string(domain.StatusPending)},
	}}}}}
}
