package store

import "time"

// sqliteTimeLayout matches the format SQLite's datetime('now') default
// produces: "YYYY-MM-DD HH:MM:SS".
const sqliteTimeLayout = "2006-01-02 15:04:05"

// parseTime parses a timestamp stored via datetime('now'), falling
// back to RFC3339 for values stored in that format.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// parseTimePtr is parseTime for nullable columns.
func parseTimePtr(ns *string) *time.Time {
	if ns == nil || *ns == "" {
		return nil
	}
	t := parseTime(*ns)
	return &t
}
