// Package convert translates between wire representations and storage representations.
package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// DateLayout is the calendar date format used for date answers.
const DateLayout = "2006-01-02"

// StoreValue chooses the single storage column of a raw value from the field type.
// Values that do not parse for their type are kept as text so nothing submitted is lost.
func StoreValue(ft model.FieldType, rv model.RawValue) model.StoredValue {
	sv := model.StoredValue{FieldID: rv.FieldID}
	raw := rv.Value
	if rv.IsOther {
		sv.Other = &raw
		return sv
	}
	switch ft {
	case model.FieldNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			sv.Number = &n
			return sv
		}
	case model.FieldDate:
		if d, err := time.Parse(DateLayout, strings.TrimSpace(raw)); err == nil {
			sv.Date = &d
			return sv
		}
	}
	sv.Text = &raw
	return sv
}

// RenderValue resolves a stored value by first match: text, number, date, other.
func RenderValue(text *string, number *float64, date *time.Time, other *string) string {
	switch {
	case text != nil:
		return *text
	case number != nil:
		return strconv.FormatFloat(*number, 'f', -1, 64)
	case date != nil:
		return date.Format(DateLayout)
	case other != nil:
		return *other
	default:
		return ""
	}
}

// SyncTime formats a watermark the way clients persist it (UTC, millisecond precision).
func SyncTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseWatermark parses an optional client watermark. Empty input means a full sync.
func ParseWatermark(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("%w: watermark must be RFC3339, got %q", errs.ErrInvalidArgument, s)
	}
	return &t, nil
}

// ParseDate parses an optional YYYY-MM-DD day. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", errs.ErrInvalidArgument, s)
	}
	return &d, nil
}

// ParseID parses a positive numeric identifier.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", errs.ErrInvalidArgument, s)
	}
	return id, nil
}
