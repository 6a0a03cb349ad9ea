package attendance

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// LatePolicy decides how late days weigh on the attendance percentage.
// Late days always count in total_days.
type LatePolicy int

const (
	// LateDistinct keeps late days out of the percentage numerator.
	LateDistinct LatePolicy = iota
	// LateAsPresent counts late days as attended.
	LateAsPresent
)

func ParseLatePolicy(s string) (LatePolicy, error) {
	switch core.CleanString(s, true /* lower */) {
	case core.LatePolicyDistinct, "":
		return LateDistinct, nil
	case core.LatePolicyPresent:
		return LateAsPresent, nil
	}
	return LateDistinct, errors.Errorf("unknown late policy %q", s)
}

func (p LatePolicy) String() string {
	if p == LateAsPresent {
		return core.LatePolicyPresent
	}
	return core.LatePolicyDistinct
}

// Dedupe resolves the records sharing the same (student, classroom, subject, date):
// the most recently updated one wins, ties go to the last one in iteration order.
// It returns the kept records, in first-seen order, and the number of dropped ones.
func Dedupe(records []Record) ([]Record, int) {
	kept := make([]Record, 0, len(records))
	index := make(map[recordKey]int, len(records))
	for _, r := range records {
		k := r.key()
		i, seen := index[k]
		if !seen {
			index[k] = len(kept)
			kept = append(kept, r)
			continue
		}
		if !r.UpdatedAt.Before(kept[i].UpdatedAt) {
			kept[i] = r
		}
	}
	return kept, len(records) - len(kept)
}

// Summarize aggregates the records into one Summary per student, sorted by student ID.
// Duplicates are resolved with Dedupe first.
func Summarize(records []Record, policy LatePolicy) []Summary {
	deduped, _ := Dedupe(records)
	return summarize(deduped, policy, "")
}

// summarize expects deduped records. `subject` is set on every Summary of a subject breakdown.
func summarize(records []Record, policy LatePolicy, subject string) []Summary {
	byStudent := make(map[string]*Summary)
	for _, r := range records {
		sum, ok := byStudent[r.StudentID]
		if !ok {
			sum = &Summary{StudentID: r.StudentID, Subject: subject}
			byStudent[r.StudentID] = sum
		}
		switch r.Status {
		case StatusPresent:
			sum.PresentDays++
		case StatusAbsent:
			sum.AbsentDays++
		case StatusLate:
			sum.LateDays++
		}
	}

	summaries := make([]Summary, 0, len(byStudent))
	for _, sum := range byStudent {
		sum.TotalDays = sum.PresentDays + sum.AbsentDays + sum.LateDays
		sum.AttendancePercent = percent(attended(sum.PresentDays, sum.LateDays, policy), sum.TotalDays)
		summaries = append(summaries, *sum)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].StudentID < summaries[j].StudentID })
	return summaries
}

// totals sums up every record, regardless of the student.
func totals(records []Record, policy LatePolicy) Totals {
	var t Totals
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			t.PresentDays++
		case StatusAbsent:
			t.AbsentDays++
		case StatusLate:
			t.LateDays++
		}
	}
	t.TotalDays = t.PresentDays + t.AbsentDays + t.LateDays
	t.AttendancePercent = percent(attended(t.PresentDays, t.LateDays, policy), t.TotalDays)
	return t
}

func attended(present, late int, policy LatePolicy) int {
	if policy == LateAsPresent {
		return present + late
	}
	return present
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
