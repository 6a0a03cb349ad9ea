package scheduler

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/audit"
)

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type (
	// Notifier sends the defaulters of a period to the recipients.
	Notifier interface {
		NotifyDefaulters(ctx context.Context, filter attendance.Filter, threshold float64, recipients []mail.Address) ([]attendance.Summary, error)
	}

	// Recorder records app events.
	Recorder interface {
		Record(ctx context.Context, ne audit.NewEntry)
	}

	Scheduler struct {
		cron       *cron.Cron
		notifier   Notifier
		recorder   Recorder
		logger     core.Logger
		spec       string
		windowDays int
		threshold  float64
		recipients []mail.Address
		timeout    time.Duration
	}
)

// New returns a Scheduler running the defaulters notice on conf.Attendance.NotifyCron.
// It schedules nothing when the cron spec is empty or there are no recipients.
func New(notifier Notifier, recorder Recorder, logger core.Logger, conf *core.Config) (*Scheduler, error) {
	vala.BeginValidation().Validate(
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(recorder, "recorder"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	recipients, err := conf.Attendance.Recipients()
	if err != nil {
		return nil, errors.Wrap(err, "parsing notify recipients")
	}

	s := &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		notifier:   notifier,
		recorder:   recorder,
		logger:     logger,
		spec:       conf.Attendance.NotifyCron,
		windowDays: conf.Attendance.NotifyWindowDays,
		threshold:  conf.Attendance.DefaulterThreshold,
		recipients: recipients,
		timeout:    conf.Server.QueryTimeout,
	}
	if !s.Enabled() {
		return s, nil
	}

	if _, err = s.cron.AddFunc(s.spec, s.run); err != nil {
		return nil, errors.Wrapf(err, "scheduling defaulters notice %q", s.spec)
	}
	return s, nil
}

func (s *Scheduler) Enabled() bool {
	return s.spec != "" && len(s.recipients) > 0
}

func (s *Scheduler) Start() {
	if s.Enabled() {
		s.logger.Info(fmt.Sprintf("defaulters notice scheduled: %q", s.spec))
	}
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to complete, or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.NotifyDefaulters(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("scheduled defaulters notice: %v", err), err)
	}
}

// Window returns the filter covering the last windowDays days, today included.
func (s *Scheduler) Window() attendance.Filter {
	to := attendance.DateOf(nowFunc())
	return attendance.Filter{
		From: to.AddDays(1 - s.windowDays),
		To:   to,
	}
}

// NotifyDefaulters sends the defaulters of the current window then records the notice.
func (s *Scheduler) NotifyDefaulters(ctx context.Context) ([]attendance.Summary, error) {
	filter := s.Window()
	defaulters, err := s.notifier.NotifyDefaulters(ctx, filter, s.threshold, s.recipients)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(defaulters))
	for _, d := range defaulters {
		ids = append(ids, d.StudentID)
	}
	s.recorder.Record(ctx, audit.NewEntry{
		EventType:   audit.EventDefaultersNotified,
		Description: fmt.Sprintf("%d defaulter(s) %s", len(defaulters), attendance.Period(filter)),
		Meta: map[string]interface{}{
			"from":       filter.From.String(),
			"to":         filter.To.String(),
			"threshold":  s.threshold,
			"defaulters": ids,
			"recipients": len(s.recipients),
		},
	})
	return defaulters, nil
}
