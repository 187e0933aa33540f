package readers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
	"github.com/ashgrove-systems/mto-gateway/internal/upstream"
)

// decode helpers. Required fields are decoded totally: a missing or
// malformed required field surfaces upstream_query_error rather than a zero
// value silently standing in, per spec.md's "decoding must be total" rule.
// The fields that default instead are aux_prop_id (0 when absent, see OQ-2
// in DESIGN.md), the optional strings read with fieldOptionalString (""
// when absent), the BOM material_type (0 when absent or malformed), and
// bill_type (standard unless the upstream value is "subcontract").

func fieldString(r upstream.Record, name string) (string, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string: %v", name, v)
	}
	return s, nil
}

func fieldOptionalString(r upstream.Record, name string) string {
	v, ok := r[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func fieldDecimal(r upstream.Record, name string) (decimal.Decimal, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing field %q", name)
	}
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q is not numeric: %w", name, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has unsupported type %T", name, v)
	}
}

// fieldAuxPropID defaults to 0 when absent, per OQ-2.
func fieldAuxPropID(r upstream.Record, name string) (int64, error) {
	v, ok := r[name]
	if !ok || v == nil || v == "" {
		return 0, nil
	}
	switch t := v.(type) {
	case string:
		var n int64
		if _, err := fmt.Sscanf(t, "%d", &n); err != nil {
			return 0, fmt.Errorf("field %q is not an integer: %w", name, err)
		}
		return n, nil
	case float64:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("field %q has unsupported type %T", name, v)
	}
}

func fieldDate(r upstream.Record, name string) (time.Time, error) {
	s, err := fieldString(r, name)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range []string{"2006-01-02", "20060102", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("field %q is not a recognized date: %q", name, s)
}

// decodeErr wraps a per-record decode failure into the kind C1/C2 surface
// per spec.md §9 ("a typed decode error surfaced as upstream_query_error").
func decodeErr(formID string, err error) error {
	return gwerrors.Wrap(gwerrors.KindUpstreamQueryError, "failed to decode record from "+formID, err)
}
