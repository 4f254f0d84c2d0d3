// Package timefmt carries the date layout used for human-facing output.
// A Layout is an immutable value passed to whatever renders it, so two
// renderers can format the same report differently without racing over
// shared state.
package timefmt

import "time"

// Layout is a Go reference-time layout string.
type Layout string

const (
	// DateTime is the default layout for report output.
	DateTime Layout = "2006-01-02 15:04:05"
	// Date formats day-resolution values such as archive filenames.
	Date Layout = "2006-01-02"
)

// Format renders t in UTC using the layout. The zero time renders as
// an empty string rather than the epoch.
func (l Layout) Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(string(l))
}

// Parse interprets s using the layout, in UTC.
func (l Layout) Parse(s string) (time.Time, error) {
	return time.ParseInLocation(string(l), s, time.UTC)
}
