package attendance

import (
	"math"
	"sort"
)

// TopN returns the n best attendances: highest percentage first,
// then most present days, then student ID. The input is left untouched.
func TopN(summaries []Summary, n int) []Summary {
	if n <= 0 {
		return []Summary{}
	}
	ranked := make([]Summary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.AttendancePercent != b.AttendancePercent {
			return a.AttendancePercent > b.AttendancePercent
		}
		if a.PresentDays != b.PresentDays {
			return a.PresentDays > b.PresentDays
		}
		return a.StudentID < b.StudentID
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Defaulters returns the students whose percentage is strictly below threshold,
// worst first: lowest percentage, then fewest present days, then student ID.
func Defaulters(summaries []Summary, threshold float64) ([]Summary, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	defaulters := make([]Summary, 0)
	for _, s := range summaries {
		if s.AttendancePercent < threshold {
			defaulters = append(defaulters, s)
		}
	}
	sort.SliceStable(defaulters, func(i, j int) bool {
		a, b := defaulters[i], defaulters[j]
		if a.AttendancePercent != b.AttendancePercent {
			return a.AttendancePercent < b.AttendancePercent
		}
		if a.PresentDays != b.PresentDays {
			return a.PresentDays < b.PresentDays
		}
		return a.StudentID < b.StudentID
	})
	return defaulters, nil
}

func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return NewInvalidThresholdError(threshold)
	}
	return nil
}
