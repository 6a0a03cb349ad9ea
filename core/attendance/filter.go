package attendance

import (
	"net/url"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

const monthLayout = "2006-01"

type (
	// QueryFilter holds the raw, user submitted, filter values.
	QueryFilter struct {
		ClassroomID string `query:"classroom_id"`
		StudentID   string `query:"student_id"`
		Subject     string `query:"subject"`
		From        string `query:"from"`
		To          string `query:"to"`
		Month       string `query:"month"` // YYYY-MM, shorthand for the whole month
	}

	// Filter is a normalized QueryFilter. Zero values mean "no constraint"; From & To are inclusive.
	Filter struct {
		ClassroomID string `json:"classroom_id,omitempty"`
		StudentID   string `json:"student_id,omitempty"`
		Subject     string `json:"subject,omitempty"`
		From        Date   `json:"from"`
		To          Date   `json:"to"`
	}
)

// Normalize validates the raw values and builds the Filter they describe.
func (qf QueryFilter) Normalize() (Filter, error) {
	f := Filter{
		ClassroomID: core.CleanString(qf.ClassroomID),
		StudentID:   core.CleanString(qf.StudentID),
		Subject:     core.CleanString(qf.Subject),
	}

	from, to, month := core.CleanString(qf.From), core.CleanString(qf.To), core.CleanString(qf.Month)
	if month != "" {
		if from != "" || to != "" {
			return Filter{}, NewInvalidFilterError("month cannot be combined with from/to")
		}
		t, err := time.Parse(monthLayout, month)
		if err != nil {
			return Filter{}, NewInvalidDateError("month", month)
		}
		f.From = DateOf(t)
		f.To = f.From.AddMonths(1).AddDays(-1)
		return f, nil
	}

	var err error
	if from != "" {
		if f.From, err = ParseDate(from); err != nil {
			return Filter{}, NewInvalidDateError("from", from)
		}
	}
	if to != "" {
		if f.To, err = ParseDate(to); err != nil {
			return Filter{}, NewInvalidDateError("to", to)
		}
	}
	if err = f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate checks the invariants of a Filter built outside of QueryFilter.Normalize.
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return NewInvalidRangeError(f.From, f.To)
	}
	return nil
}

func (f Filter) IsUnbounded() bool {
	return f.ClassroomID == "" && f.StudentID == "" && f.Subject == "" && f.From.IsZero() && f.To.IsZero()
}

// Matches reports whether r satisfies every constraint of the filter.
func (f Filter) Matches(r Record) bool {
	if f.ClassroomID != "" && r.ClassroomID != f.ClassroomID {
		return false
	}
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.Subject != "" && r.Subject != f.Subject {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return true
}

// Key is the canonical cache key of the query `op` over this filter.
// Two filters share a key only if every normalized field is equal.
func (f Filter) Key(op string, policy LatePolicy) string {
	v := make(url.Values, 6)
	v.Set("classroom", f.ClassroomID)
	v.Set("student", f.StudentID)
	v.Set("subject", f.Subject)
	v.Set("from", f.From.String())
	v.Set("to", f.To.String())
	v.Set("late", policy.String())
	return op + "?" + v.Encode()
}
