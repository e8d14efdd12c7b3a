// Package jpcal classifies ISO dates into the 8 weekday buckets used by the
// demand-slot reports: Monday through Sunday plus a synthetic holiday bucket
// that takes priority over the calendar weekday.
package jpcal

import (
	"time"
)

// Bucket is one of the 8 weekday buckets.
type Bucket int

const (
	Monday Bucket = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
	Holiday
)

var bucketNames = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun", "holiday"}

func (b Bucket) String() string {
	if b < Monday || b > Holiday {
		return "unknown"
	}
	return bucketNames[b]
}

// Buckets returns all 8 buckets in report order.
func Buckets() []Bucket {
	return []Bucket{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday, Holiday}
}

// fixedHolidays are the fixed-date Japanese national holidays (month, day).
// Movable holidays (happy-Monday holidays, equinoxes, substitute holidays)
// have no closed form and must be injected via New.
var fixedHolidays = map[[2]int]struct{}{
	{1, 1}:   {}, // New Year's Day
	{2, 11}:  {}, // National Foundation Day
	{2, 23}:  {}, // Emperor's Birthday
	{4, 29}:  {}, // Showa Day
	{5, 3}:   {}, // Constitution Memorial Day
	{5, 4}:   {}, // Greenery Day
	{5, 5}:   {}, // Children's Day
	{8, 11}:  {}, // Mountain Day
	{11, 3}:  {}, // Culture Day
	{11, 23}: {}, // Labor Thanksgiving Day
}

// Calendar maps dates to buckets. The zero value is not usable; construct
// with New.
type Calendar struct {
	extra map[string]struct{} // injected holiday dates, ISO yyyy-mm-dd
}

// New creates a Calendar. extraHolidays are ISO dates classified as
// holidays in addition to the built-in fixed-date set.
func New(extraHolidays ...string) *Calendar {
	extra := make(map[string]struct{}, len(extraHolidays))
	for _, d := range extraHolidays {
		extra[d] = struct{}{}
	}
	return &Calendar{extra: extra}
}

// IsHoliday reports whether t falls on a holiday. The year-end/new-year
// closure period (Dec 29 - Jan 3) counts as holiday regardless of weekday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	m, d := int(t.Month()), t.Day()
	if m == 12 && d >= 29 {
		return true
	}
	if m == 1 && d <= 3 {
		return true
	}
	if _, ok := fixedHolidays[[2]int{m, d}]; ok {
		return true
	}
	_, ok := c.extra[t.Format("2006-01-02")]
	return ok
}

// BucketFor classifies an ISO date. The holiday bucket wins over the
// calendar weekday.
func (c *Calendar) BucketFor(dateISO string) (Bucket, error) {
	t, err := time.Parse("2006-01-02", dateISO)
	if err != nil {
		return Monday, err
	}
	if c.IsHoliday(t) {
		return Holiday, nil
	}
	switch t.Weekday() {
	case time.Monday:
		return Monday, nil
	case time.Tuesday:
		return Tuesday, nil
	case time.Wednesday:
		return Wednesday, nil
	case time.Thursday:
		return Thursday, nil
	case time.Friday:
		return Friday, nil
	case time.Saturday:
		return Saturday, nil
	default:
		return Sunday, nil
	}
}
