// Package filters maps the dashboard filter selection to and from URL query strings.
package filters

import (
	"net/url"
	"strings"
)

// Query keys, in canonical order.
const (
	KeyTime     = "time"
	KeyCategory = "category"
	KeyStatus   = "status"
)

// All is the default value of every field; it is never written to a URL.
const All = "all"

// TimeRange narrows results to a relative window.
type TimeRange string

// Category narrows results to a business line.
type Category string

// Status narrows results to an order lifecycle state.
type Status string

const (
	TimeAll   TimeRange = All
	TimeToday TimeRange = "today"
	TimeWeek  TimeRange = "week"
	TimeMonth TimeRange = "month"
)

const (
	CategoryAll       Category = All
	CategorySales     Category = "sales"
	CategoryMarketing Category = "marketing"
	CategorySupport   Category = "support"
)

const (
	StatusAll       Status = All
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var (
	timeRanges = []TimeRange{TimeAll, TimeToday, TimeWeek, TimeMonth}
	categories = []Category{CategoryAll, CategorySales, CategoryMarketing, CategorySupport}
	statuses   = []Status{StatusAll, StatusActive, StatusPending, StatusCompleted}
)

// Set is the canonical filter selection. It is a comparable value type, so two
// sets are equal exactly when all three fields match.
type Set struct {
	Time     TimeRange
	Category Category
	Status   Status
}

// Default returns the {all, all, all} selection.
func Default() Set {
	return Set{Time: TimeAll, Category: CategoryAll, Status: StatusAll}
}

// TimeRanges lists the accepted time values, All first.
func TimeRanges() []TimeRange { return append([]TimeRange(nil), timeRanges...) }

// Categories lists the accepted category values, All first.
func Categories() []Category { return append([]Category(nil), categories...) }

// Statuses lists the accepted status values, All first.
func Statuses() []Status { return append([]Status(nil), statuses...) }

// ParseTime returns the matching range or TimeAll for anything unrecognised.
func ParseTime(raw string) TimeRange {
	v := TimeRange(normalize(raw))
	for _, candidate := range timeRanges {
		if v == candidate {
			return v
		}
	}
	return TimeAll
}

// ParseCategory returns the matching category or CategoryAll.
func ParseCategory(raw string) Category {
	v := Category(normalize(raw))
	for _, candidate := range categories {
		if v == candidate {
			return v
		}
	}
	return CategoryAll
}

// ParseStatus returns the matching status or StatusAll.
func ParseStatus(raw string) Status {
	v := Status(normalize(raw))
	for _, candidate := range statuses {
		if v == candidate {
			return v
		}
	}
	return StatusAll
}

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// FromValues resolves a Set from parsed query values. Missing or unknown
// values fall back to All for that field only.
func FromValues(values url.Values) Set {
	return Set{
		Time:     ParseTime(values.Get(KeyTime)),
		Category: ParseCategory(values.Get(KeyCategory)),
		Status:   ParseStatus(values.Get(KeyStatus)),
	}
}

// Decode resolves a Set from a raw query string. Malformed queries decode to
// whatever pairs could be parsed; the result is always canonical.
func Decode(rawQuery string) Set {
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return FromValues(values)
}

// Encode renders the minimal query string for s: fields equal to All are
// omitted and keys appear as time, category, status.
func Encode(s Set) string {
	parts := make([]string, 0, 3)
	if s.Time != TimeAll && s.Time != "" {
		parts = append(parts, KeyTime+"="+url.QueryEscape(string(s.Time)))
	}
	if s.Category != CategoryAll && s.Category != "" {
		parts = append(parts, KeyCategory+"="+url.QueryEscape(string(s.Category)))
	}
	if s.Status != StatusAll && s.Status != "" {
		parts = append(parts, KeyStatus+"="+url.QueryEscape(string(s.Status)))
	}
	return strings.Join(parts, "&")
}

// With returns a copy of s with one field replaced. Unknown values reset that
// field to All; unknown field names leave s unchanged.
func (s Set) With(field, value string) Set {
	switch normalize(field) {
	case KeyTime:
		s.Time = ParseTime(value)
	case KeyCategory:
		s.Category = ParseCategory(value)
	case KeyStatus:
		s.Status = ParseStatus(value)
	}
	return s
}

// Get returns the string value of the named field, or "" for unknown names.
func (s Set) Get(field string) string {
	switch normalize(field) {
	case KeyTime:
		return string(s.Time)
	case KeyCategory:
		return string(s.Category)
	case KeyStatus:
		return string(s.Status)
	}
	return ""
}

// String returns the canonical query, so sets log the same way they appear in URLs.
func (s Set) String() string {
	if q := Encode(s); q != "" {
		return q
	}
	return "all"
}

// Canonical re-parses every field, turning zero or unknown values into All.
func (s Set) Canonical() Set {
	return Set{
		Time:     ParseTime(string(s.Time)),
		Category: ParseCategory(string(s.Category)),
		Status:   ParseStatus(string(s.Status)),
	}
}

// IsDefault reports whether every field is All.
func (s Set) IsDefault() bool {
	return s == Default()
}

// UpdateQuery decodes rawQuery, replaces one field and re-encodes. It is the
// only place that writes filter keys back into a URL.
func UpdateQuery(rawQuery, field, value string) string {
	return Encode(Decode(rawQuery).With(field, value))
}

// IsCanonical reports whether rawQuery is already the minimal encoding of the
// set it decodes to.
func IsCanonical(rawQuery string) bool {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	return rawQuery == Encode(Decode(rawQuery))
}

// AllSets enumerates every combination in codec order.
func AllSets() []Set {
	sets := make([]Set, 0, len(timeRanges)*len(categories)*len(statuses))
	for _, t := range timeRanges {
		for _, c := range categories {
			for _, st := range statuses {
				sets = append(sets, Set{Time: t, Category: c, Status: st})
			}
		}
	}
	return sets
}
