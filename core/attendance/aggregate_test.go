package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(student, classroom, subject string, day int, status Status, updatedAt ...time.Time) Record {
	r := Record{
		ID:          student + "-" + classroom + "-" + subject,
		StudentID:   student,
		ClassroomID: classroom,
		Subject:     subject,
		Date:        NewDate(2024, time.January, day),
		Status:      status,
	}
	if len(updatedAt) > 0 {
		r.UpdatedAt = updatedAt[0]
	}
	return r
}

func TestParseLatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    LatePolicy
		wantErr bool
	}{
		{in: "", want: LateDistinct},
		{in: "distinct", want: LateDistinct},
		{in: " Present ", want: LateAsPresent},
		{in: "absent", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLatePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "present", LateAsPresent.String())
	assert.Equal(t, "distinct", LateDistinct.String())
}

func TestSummarize(t *testing.T) {
	records := []Record{
		rec("s2", "c1", "", 1, StatusPresent),
		rec("s1", "c1", "", 1, StatusPresent),
		rec("s1", "c1", "", 2, StatusLate),
		rec("s1", "c1", "", 3, StatusAbsent),
		rec("s1", "c1", "", 4, StatusPresent),
		rec("s2", "c1", "", 2, StatusAbsent),
	}

	tests := []struct {
		name   string
		policy LatePolicy
		want   []Summary
	}{
		{
			name:   "late distinct",
			policy: LateDistinct,
			want: []Summary{
				{StudentID: "s1", PresentDays: 2, AbsentDays: 1, LateDays: 1, TotalDays: 4, AttendancePercent: 50},
				{StudentID: "s2", PresentDays: 1, AbsentDays: 1, TotalDays: 2, AttendancePercent: 50},
			},
		},
		{
			name:   "late as present",
			policy: LateAsPresent,
			want: []Summary{
				{StudentID: "s1", PresentDays: 2, AbsentDays: 1, LateDays: 1, TotalDays: 4, AttendancePercent: 75},
				{StudentID: "s2", PresentDays: 1, AbsentDays: 1, TotalDays: 2, AttendancePercent: 50},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(records, tt.policy))
		})
	}
}

func TestSummarize_edgeCases(t *testing.T) {
	t.Run("no records", func(t *testing.T) {
		sums := Summarize(nil, LateDistinct)
		assert.NotNil(t, sums)
		assert.Empty(t, sums)
	})

	t.Run("all absent", func(t *testing.T) {
		sums := Summarize([]Record{rec("s1", "c1", "", 1, StatusAbsent), rec("s1", "c1", "", 2, StatusAbsent)}, LateDistinct)
		require.Len(t, sums, 1)
		assert.Equal(t, 0.0, sums[0].AttendancePercent)
		assert.Equal(t, 2, sums[0].TotalDays)
	})

	t.Run("subjects merged", func(t *testing.T) {
		sums := Summarize([]Record{
			rec("s1", "c1", "math", 1, StatusPresent),
			rec("s1", "c1", "art", 1, StatusAbsent),
			rec("s1", "c2", "", 1, StatusPresent),
		}, LateDistinct)
		require.Len(t, sums, 1)
		assert.Equal(t, 3, sums[0].TotalDays)
		assert.InDelta(t, 66.666, sums[0].AttendancePercent, 0.001)
	})

	t.Run("totals are consistent", func(t *testing.T) {
		for _, s := range Summarize([]Record{
			rec("s1", "c1", "", 1, StatusPresent),
			rec("s1", "c1", "", 2, StatusLate),
			rec("s2", "c1", "", 1, StatusAbsent),
		}, LateAsPresent) {
			assert.Equal(t, s.TotalDays, s.PresentDays+s.AbsentDays+s.LateDays)
			assert.GreaterOrEqual(t, s.AttendancePercent, 0.0)
			assert.LessOrEqual(t, s.AttendancePercent, 100.0)
		}
	})
}

func TestDedupe(t *testing.T) {
	t0 := time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	older := rec("s1", "c1", "", 1, StatusAbsent, t0)
	newer := rec("s1", "c1", "", 1, StatusPresent, t1)
	other := rec("s2", "c1", "", 1, StatusLate, t0)

	tests := []struct {
		name        string
		records     []Record
		want        []Status
		wantDropped int
	}{
		{name: "no duplicates", records: []Record{older, other}, want: []Status{StatusAbsent, StatusLate}},
		{name: "newest wins (last)", records: []Record{older, other, newer}, want: []Status{StatusPresent, StatusLate}, wantDropped: 1},
		{name: "newest wins (first)", records: []Record{newer, other, older}, want: []Status{StatusPresent, StatusLate}, wantDropped: 1},
		{
			name:        "tie goes to the last one",
			records:     []Record{older, rec("s1", "c1", "", 1, StatusLate, t0)},
			want:        []Status{StatusLate},
			wantDropped: 1,
		},
		{
			name:    "different subjects are distinct",
			records: []Record{rec("s1", "c1", "math", 1, StatusAbsent, t0), rec("s1", "c1", "art", 1, StatusPresent, t0)},
			want:    []Status{StatusAbsent, StatusPresent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped := Dedupe(tt.records)
			assert.Equal(t, tt.wantDropped, dropped)
			statuses := make([]Status, 0, len(got))
			for _, r := range got {
				statuses = append(statuses, r.Status)
			}
			assert.Equal(t, tt.want, statuses)
		})
	}
}

func TestSummarize_duplicates(t *testing.T) {
	t0 := time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)
	sums := Summarize([]Record{
		rec("s1", "c1", "", 1, StatusAbsent, t0),
		rec("s1", "c1", "", 1, StatusPresent, t0.Add(time.Minute)),
	}, LateDistinct)
	require.Len(t, sums, 1)
	assert.Equal(t, Summary{StudentID: "s1", PresentDays: 1, TotalDays: 1, AttendancePercent: 100}, sums[0])
}

func TestTotals(t *testing.T) {
	records := []Record{
		rec("s1", "c1", "", 1, StatusPresent),
		rec("s2", "c1", "", 1, StatusLate),
		rec("s3", "c1", "", 1, StatusAbsent),
		rec("s4", "c1", "", 1, StatusPresent),
	}
	assert.Equal(t, Totals{PresentDays: 2, AbsentDays: 1, LateDays: 1, TotalDays: 4, AttendancePercent: 50}, totals(records, LateDistinct))
	assert.Equal(t, Totals{PresentDays: 2, AbsentDays: 1, LateDays: 1, TotalDays: 4, AttendancePercent: 75}, totals(records, LateAsPresent))
	assert.Equal(t, Totals{}, totals(nil, LateDistinct))
}
