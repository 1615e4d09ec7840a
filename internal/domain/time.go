package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Time is the wire representation of timestamps exchanged with the gateway.
// It accepts both RFC3339 strings and the upstream integer array form
// [year, month, day, hour, minute, second, nanoseconds] and always marshals
// back to RFC3339.
type Time struct {
	time.Time
}

// NewTime wraps a time.Time.
func NewTime(t time.Time) Time { return Time{Time: t} }

// Now returns the current instant as a wire Time.
func Now() Time { return Time{Time: time.Now()} }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := parseTimeString(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	var parts []int64
	if err := json.Unmarshal(data, &parts); err == nil {
		parsed, err := timeFromArray(parts)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	return fmt.Errorf("unsupported time encoding: %s", string(data))
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// IsZero reports whether the wrapped time is the zero instant.
func (t Time) IsZero() bool { return t.Time.IsZero() }

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// timeFromArray converts the array form used by the gateway. The seventh
// element, when present, carries nanoseconds.
func timeFromArray(parts []int64) (time.Time, error) {
	if len(parts) < 6 {
		return time.Time{}, fmt.Errorf("timestamp array needs at least 6 elements, got %d", len(parts))
	}
	nanos := int64(0)
	if len(parts) > 6 {
		nanos = parts[6]
	}
	return time.Date(
		int(parts[0]), time.Month(parts[1]), int(parts[2]),
		int(parts[3]), int(parts[4]), int(parts[5]),
		int(nanos), time.UTC,
	), nil
}
