package types

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp wraps time.Time with tolerant, timezone-aware JSON decoding.
// Servers in the wild emit RFC3339 with or without fractional seconds and
// occasionally omit the zone designator entirely; Timestamp accepts all of
// these, preserving the original offset when one is present and assuming
// UTC otherwise. It marshals as RFC3339 with nanosecond precision.
type Timestamp struct {
	time.Time
}

// timestampLayouts are tried in order when decoding. Layouts without a zone
// are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewTimestamp builds a Timestamp from a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp decodes a timestamp string using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "Z07") {
			// Layout carries no zone designator: reparse in UTC so the wall
			// clock reading is kept instead of the process-local zone.
			t, err = time.ParseInLocation(layout, s, time.UTC)
			if err != nil {
				continue
			}
		}
		return Timestamp{Time: t}, nil
	}
	return Timestamp{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler. Null and empty strings decode
// to the zero Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed.Time
	return nil
}

// MarshalJSON implements json.Marshaler using RFC3339 with nanosecond
// precision. The zero Timestamp marshals as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}
