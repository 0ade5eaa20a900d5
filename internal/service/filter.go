// Package service implements the queries and the load/export pipeline over
// a materialized backup.
package service

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// DateField selects which conversation timestamp a date range applies to.
type DateField string

// Date fields.
const (
	DateFieldUpdate DateField = "update"
	DateFieldCreate DateField = "create"
)

// ParseDateField resolves a field name; "" means DateFieldUpdate.
func ParseDateField(s string) (DateField, error) {
	switch f := DateField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return DateFieldUpdate, nil
	case DateFieldUpdate, DateFieldCreate:
		return f, nil
	}
	return "", fmt.Errorf("unknown date field %q: want update or create", s)
}

// DateLayout is the accepted calendar date format.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// startIn returns the first instant of d in loc.
func (d Date) startIn(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD date. The empty string is the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From     Date
	To       Date
	Field    DateField      // "" means DateFieldUpdate
	Location *time.Location // nil means time.Local
}

// ParseDateRange builds a range from two optional YYYY-MM-DD strings.
func ParseDateRange(from, to string, field DateField, loc *time.Location) (DateRange, error) {
	f, err := ParseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{From: f, To: t, Field: field, Location: loc}
	if !f.IsZero() && !t.IsZero() && f.startIn(time.UTC).After(t.startIn(time.UTC)) {
		return DateRange{}, fmt.Errorf("%w: range start %s is after end %s", ErrInvalidDate, f, t)
	}
	return r, nil
}

// IsZero reports whether the range has no bounds.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether c's selected timestamp falls inside the range.
// Conversations without that timestamp never match a bounded range.
func (r DateRange) Contains(c *models.Conversation) bool {
	if r.IsZero() {
		return true
	}
	ts := c.UpdatedAt
	if r.Field == DateFieldCreate {
		ts = c.CreatedAt
	}
	if ts.IsZero() {
		return false
	}

	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	if !r.From.IsZero() && ts.Before(r.From.startIn(loc)) {
		return false
	}
	if !r.To.IsZero() && !ts.Before(r.To.startIn(loc).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// FilterByAssistant keeps conversations whose assistant display name
// contains name, ignoring case. An empty name keeps everything.
func FilterByAssistant(b *models.Backup, name string) *models.Backup {
	name = strings.TrimSpace(name)
	if name == "" {
		return b.WithConversations(b.Conversations)
	}

	fold := cases.Fold()
	needle := fold.String(name)
	return keep(b, func(c *models.Conversation) bool {
		return strings.Contains(fold.String(b.AssistantName(c.AssistantID)), needle)
	})
}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}

// FilterByDateRange keeps conversations inside r.
func FilterByDateRange(b *models.Backup, r DateRange) *models.Backup {
	if r.IsZero() {
		return b.WithConversations(b.Conversations)
	}
	return keep(b, r.Contains)
}

// FilterOptions combines the conversation filters. Zero values are no-ops.
type FilterOptions struct {
	Assistant string
	Range     DateRange
}

// Filter applies every set filter; a conversation must pass all of them.
func Filter(b *models.Backup, opts FilterOptions) *models.Backup {
	return FilterByDateRange(FilterByAssistant(b, opts.Assistant), opts.Range)
}

// keep returns a Backup holding the conversations pred accepts, in order.
func keep(b *models.Backup, pred func(*models.Conversation) bool) *models.Backup {
	out := make([]models.Conversation, 0, len(b.Conversations))
	for i := range b.Conversations {
		if pred(&b.Conversations[i]) {
			out = append(out, b.Conversations[i])
		}
	}
	return b.WithConversations(out)
}
