package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Extended-JSON wrappers a numeric value may arrive in.
var numericWrapperKeys = []string{"$numberDouble", "$numberDecimal", "$numberInt", "$numberLong"}

// NormalizeNumeric converts any numeric representation found in stored or
// submitted data into a decimal. A nil value is treated as zero.
func NormalizeNumeric(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, nil
		}
		return *n, nil
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint32:
		return decimal.NewFromInt(int64(n)), nil
	case uint64:
		if n > math.MaxInt64 {
			return decimal.Zero, fmt.Errorf("%w: %d overflows", ErrInvalidNumeric, n)
		}
		return decimal.NewFromInt(int64(n)), nil
	case json.Number:
		return fromString(n.String())
	case string:
		return fromString(n)
	case map[string]any:
		return fromWrapper(n)
	case map[string]string:
		m := make(map[string]any, len(n))
		for k, s := range n {
			m[k] = s
		}
		return fromWrapper(m)
	case fmt.Stringer:
		return fromString(n.String())
	}
	return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidNumeric, v)
}

// DecodeNumericJSON normalizes a raw JSON value such as 42.5, "42.5" or
// {"$numberDouble":"42.5"}.
func DecodeNumericJSON(raw []byte) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidNumeric, err)
	}
	return NormalizeNumeric(v)
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidNumeric, f)
	}
	return decimal.NewFromFloat(f), nil
}

func fromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumeric, s)
	}
	return d, nil
}

func fromWrapper(m map[string]any) (decimal.Decimal, error) {
	for _, key := range numericWrapperKeys {
		if inner, ok := m[key]; ok {
			return NormalizeNumeric(inner)
		}
	}
	return decimal.Zero, fmt.Errorf("%w: unrecognized wrapper", ErrInvalidNumeric)
}
