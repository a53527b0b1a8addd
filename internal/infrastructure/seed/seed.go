package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/expensor/approvals/internal/domain"
)

//go:embed sample.yaml
var sample []byte

// Sample returns an example seed file.
func Sample() []byte {
	return bytes.Clone(sample)
}

type file struct {
	Employees []employee `yaml:"employees"`
}

type employee struct {
	EmployeeID   string    `yaml:"employeeId"`
	DepartmentID string    `yaml:"departmentId"`
	Expenses     []expense `yaml:"expenses"`
}

type expense struct {
	ExpenseID       string     `yaml:"expenseId"`
	ExpenseType     string     `yaml:"expenseType"`
	Description     string     `yaml:"description"`
	Vendor          string     `yaml:"vendor"`
	Date            string     `yaml:"date"`
	BillNumber      string     `yaml:"bill_number"`
	ReceiptImage    string     `yaml:"receiptImage"`
	AISummary       string     `yaml:"aiSummary"`
	Categories      []string   `yaml:"categories"`
	ItemDetails     []item     `yaml:"item_details"`
	Amount          any        `yaml:"amount"`
	FraudScore      any        `yaml:"fraudScore"`
	IsAnomaly       *bool      `yaml:"isAnomaly"`
	Status          string     `yaml:"status"`
	ApprovedBy      string     `yaml:"approvedBy"`
	ApprovalDate    *time.Time `yaml:"approvalDate"`
	RejectionReason string     `yaml:"rejectionReason"`
	CreatedAt       *time.Time `yaml:"createdAt"`
}

type item struct {
	Name  string `yaml:"item"`
	Price any    `yaml:"amount"`
}

// Loader turns seed files into expense records.
type Loader struct {
	newID func() string
	now   func() time.Time
}

// NewLoader creates a Loader. newID fills in missing expense ids.
func NewLoader(newID func() string, now func() time.Time) *Loader {
	if now == nil {
		now = time.Now
	}
	return &Loader{newID: newID, now: now}
}

// LoadFile reads and parses the seed file at path.
func (l *Loader) LoadFile(path string) ([]*domain.ExpenseRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return l.Parse(raw)
}

// Parse decodes seed YAML. Amounts may be plain numbers, numeric strings
// or Extended-JSON wrappers.
func (l *Loader) Parse(raw []byte) ([]*domain.ExpenseRecord, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode seed: %v", domain.ErrValidation, err)
	}

	now := l.now().UTC()
	records := make([]*domain.ExpenseRecord, 0, len(f.Employees))
	for _, emp := range f.Employees {
		if strings.TrimSpace(emp.EmployeeID) == "" {
			return nil, fmt.Errorf("%w: employeeId is required", domain.ErrValidation)
		}
		rec := &domain.ExpenseRecord{
			EmployeeID:   emp.EmployeeID,
			DepartmentID: emp.DepartmentID,
		}
		for i := range emp.Expenses {
			entry, err := l.entry(&emp.Expenses[i], now)
			if err != nil {
				return nil, fmt.Errorf("employee %s: %w", emp.EmployeeID, err)
			}
			rec.Expenses = append(rec.Expenses, *entry)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (l *Loader) entry(e *expense, now time.Time) (*domain.ExpenseEntry, error) {
	id := e.ExpenseID
	if id == "" && l.newID != nil {
		id = l.newID()
	}
	if err := domain.ValidateExpenseID(id); err != nil {
		return nil, err
	}

	amount, err := domain.NormalizeNumeric(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("expense %s amount: %w", id, err)
	}
	score, err := domain.NormalizeNumeric(e.FraudScore)
	if err != nil {
		return nil, fmt.Errorf("expense %s fraudScore: %w", id, err)
	}

	status := domain.StatusPending
	if e.Status != "" {
		status = domain.Status(e.Status)
	}

	entry := &domain.ExpenseEntry{
		ExpenseID:       id,
		ExpenseType:     e.ExpenseType,
		Description:     e.Description,
		Vendor:          e.Vendor,
		Date:            e.Date,
		BillNumber:      e.BillNumber,
		ReceiptImage:    e.ReceiptImage,
		AISummary:       e.AISummary,
		Categories:      e.Categories,
		Amount:          amount,
		FraudScore:      score,
		IsAnomaly:       domain.IsAnomalous(score),
		Status:          status,
		RejectionReason: e.RejectionReason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if e.IsAnomaly != nil {
		entry.IsAnomaly = *e.IsAnomaly
	}
	if e.ApprovedBy != "" {
		approver := e.ApprovedBy
		entry.ApprovedBy = &approver
	}
	if e.ApprovalDate != nil {
		t := e.ApprovalDate.UTC()
		entry.ApprovalDate = &t
	}
	if e.CreatedAt != nil {
		entry.CreatedAt = e.CreatedAt.UTC()
		entry.UpdatedAt = entry.CreatedAt
	}

	for _, it := range e.ItemDetails {
		price, err := domain.NormalizeNumeric(it.Price)
		if err != nil {
			return nil, fmt.Errorf("expense %s item %q: %w", id, it.Name, err)
		}
		entry.ItemDetails = append(entry.ItemDetails, domain.ItemDetail{Name: it.Name, Price: price})
	}

	if err := entry.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("expense %s: %w", id, err)
	}
	return entry, nil
}
