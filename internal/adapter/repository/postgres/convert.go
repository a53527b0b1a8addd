package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/expensor/approvals/internal/domain"
)

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timeToPgTimestamptz(*t)
}

func pgTimestamptzToPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

func stringPtrToPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func pgTextToPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// itemDetailJSON is the jsonb shape of a receipt line item.
type itemDetailJSON struct {
	Name  string          `json:"item"`
	Price json.RawMessage `json:"amount"`
}

func encodeItemDetails(items []domain.ItemDetail) ([]byte, error) {
	out := make([]itemDetailJSON, 0, len(items))
	for _, it := range items {
		out = append(out, itemDetailJSON{Name: it.Name, Price: json.RawMessage(it.Price.String())})
	}
	return json.Marshal(out)
}

func decodeItemDetails(raw []byte) ([]domain.ItemDetail, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []itemDetailJSON
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode item_details: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	items := make([]domain.ItemDetail, 0, len(rows))
	for _, r := range rows {
		price, err := domain.DecodeNumericJSON(r.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.ItemDetail{Name: r.Name, Price: price})
	}
	return items, nil
}
