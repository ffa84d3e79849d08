package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// deadlineInput accepts an RFC3339 timestamp or a bare YYYY-MM-DD date.
// A bare date means the last second of that day in UTC. JSON null clears.
type deadlineInput struct {
	value *time.Time
}

func (d *deadlineInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("deadline must be a string: %w", err)
	}
	t, err := parseDeadline(raw)
	if err != nil {
		return err
	}
	d.value = t
	return nil
}

func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	day, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("deadline %q is neither RFC3339 nor YYYY-MM-DD", raw)
	}
	end := day.Add(24*time.Hour - time.Second)
	return &end, nil
}
