package scheduler

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/audit"
	"github.com/trezcool/mahudhurio/testutil"
)

type notifierMock struct {
	filter     attendance.Filter
	threshold  float64
	recipients []mail.Address
	defaulters []attendance.Summary
	err        error
}

func (n *notifierMock) NotifyDefaulters(_ context.Context, filter attendance.Filter, threshold float64, recipients []mail.Address) ([]attendance.Summary, error) {
	n.filter, n.threshold, n.recipients = filter, threshold, recipients
	return n.defaulters, n.err
}

type recorderMock struct {
	mu      sync.Mutex
	entries []audit.NewEntry
}

func (r *recorderMock) Record(_ context.Context, ne audit.NewEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, ne)
	r.mu.Unlock()
}

func mockNow(t *testing.T, now time.Time) {
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })
}

func TestNew(t *testing.T) {
	logger := testutil.NewLogger()

	tests := []struct {
		name        string
		spec        string
		recipients  string
		wantEnabled bool
		wantErr     bool
	}{
		{name: "disabled", spec: "", recipients: "head@school.test"},
		{name: "no recipients", spec: "@daily"},
		{name: "enabled", spec: "0 7 * * MON", recipients: "head@school.test", wantEnabled: true},
		{name: "bad spec", spec: "every day", recipients: "head@school.test", wantErr: true},
		{name: "bad recipients", spec: "@daily", recipients: "head", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.NewConfig()
			conf.Attendance.NotifyCron = tt.spec
			conf.Attendance.NotifyRecipients = tt.recipients

			s, err := New(new(notifierMock), new(recorderMock), logger, conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, s.Enabled())
			if tt.wantEnabled {
				assert.Len(t, s.cron.Entries(), 1)
			} else {
				assert.Empty(t, s.cron.Entries())
			}
		})
	}
}

func TestScheduler_Window(t *testing.T) {
	mockNow(t, time.Date(2024, time.March, 10, 23, 30, 0, 0, time.UTC))
	conf := testutil.NewConfig()

	conf.Attendance.NotifyWindowDays = 7
	s, err := New(new(notifierMock), new(recorderMock), testutil.NewLogger(), conf)
	require.NoError(t, err)
	w := s.Window()
	assert.Equal(t, "2024-03-04", w.From.String())
	assert.Equal(t, "2024-03-10", w.To.String())

	s.windowDays = 1
	w = s.Window()
	assert.Equal(t, "2024-03-10", w.From.String())
	assert.Equal(t, "2024-03-10", w.To.String())
}

func TestScheduler_NotifyDefaulters(t *testing.T) {
	mockNow(t, time.Date(2024, time.January, 31, 7, 0, 0, 0, time.UTC))
	conf := testutil.NewConfig()
	conf.Attendance.NotifyCron = "@daily"
	conf.Attendance.NotifyRecipients = "Head <head@school.test>"
	conf.Attendance.DefaulterThreshold = 80

	notifier := &notifierMock{defaulters: []attendance.Summary{{StudentID: "s2"}, {StudentID: "s7"}}}
	recorder := new(recorderMock)
	s, err := New(notifier, recorder, testutil.NewLogger(), conf)
	require.NoError(t, err)

	got, err := s.NotifyDefaulters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.defaulters, got)
	assert.Equal(t, "2024-01-02", notifier.filter.From.String())
	assert.Equal(t, "2024-01-31", notifier.filter.To.String())
	assert.Equal(t, 80.0, notifier.threshold)
	assert.Equal(t, []mail.Address{{Name: "Head", Address: "head@school.test"}}, notifier.recipients)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, audit.EventDefaultersNotified, entry.EventType)
	assert.Equal(t, "2 defaulter(s) from 2024-01-02 to 2024-01-31", entry.Description)
	assert.Equal(t, []string{"s2", "s7"}, entry.Meta["defaulters"])
	assert.Equal(t, 1, entry.Meta["recipients"])

	t.Run("failure", func(t *testing.T) {
		notifier.err = errors.New("db down")
		logger := testutil.NewLogger()
		s.logger = logger

		s.run()
		assert.Len(t, recorder.entries, 1)
		assert.Len(t, logger.Entries("error"), 1)
	})
}

func TestScheduler_StartStop(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Attendance.NotifyCron = "@hourly"
	conf.Attendance.NotifyRecipients = "head@school.test"
	logger := testutil.NewLogger()

	s, err := New(new(notifierMock), new(recorderMock), logger, conf)
	require.NoError(t, err)
	s.Start()
	assert.Len(t, logger.Entries("info"), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
