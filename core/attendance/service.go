package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// query operations, as reported to the Observer and used in cache keys
const (
	OpSummaries        = "summaries"
	OpSubjectBreakdown = "subject_breakdown"
	OpLeaderboard      = "leaderboard"
	OpDefaulters       = "defaulters"
	OpReport           = "report"
)

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type (
	Repository interface {
		// QueryRecords returns the records matching filter, as one consistent snapshot, in store order.
		QueryRecords(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Record, error)
		GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (Record, error)
		// UpsertRecords inserts the records or updates the ones sharing their (student, classroom, subject, date).
		// IDs and creation dates of the updated records are preserved.
		UpsertRecords(ctx context.Context, records []Record, exec ...core.DBExecutor) error
		UpdateRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		DeleteRecord(ctx context.Context, id string, exec ...core.DBExecutor) (Record, error)
	}

	Service struct {
		repo             Repository
		cache            Cache
		observer         Observer
		mailSvc          core.EmailService
		logger           core.Logger
		policy           LatePolicy
		defaultThreshold float64
	}
)

// NewService returns the attendance Service. cache & observer are optional.
func NewService(repo Repository, cache Cache, observer Observer, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	policy, err := ParseLatePolicy(conf.Attendance.LatePolicy)
	if err != nil {
		panic(err)
	}
	if cache == nil {
		cache = NopCache{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		repo:             repo,
		cache:            cache,
		observer:         observer,
		mailSvc:          mailSvc,
		logger:           logger,
		policy:           policy,
		defaultThreshold: conf.Attendance.DefaulterThreshold,
	}
}

func (svc *Service) LatePolicy() LatePolicy    { return svc.policy }
func (svc *Service) DefaultThreshold() float64 { return svc.defaultThreshold }

// ComputeStudentSummaries returns one Summary per student with matching records, sorted by student ID.
// With no subject in filter, all subjects are merged.
func (svc *Service) ComputeStudentSummaries(ctx context.Context, filter Filter) (sums []Summary, err error) {
	start := time.Now()
	defer func() { svc.observer.ObserveQuery(OpSummaries, time.Since(start), err) }()

	if err = filter.Validate(); err != nil {
		return nil, err
	}
	return svc.summaries(ctx, OpSummaries, filter, "")
}

// ComputeSubjectBreakdown is ComputeStudentSummaries restricted to one subject of one classroom.
func (svc *Service) ComputeSubjectBreakdown(ctx context.Context, filter Filter) (sums []Summary, err error) {
	start := time.Now()
	defer func() { svc.observer.ObserveQuery(OpSubjectBreakdown, time.Since(start), err) }()

	if filter.ClassroomID == "" || filter.Subject == "" {
		return nil, NewInvalidFilterError("subject breakdown requires both classroom_id and subject")
	}
	if err = filter.Validate(); err != nil {
		return nil, err
	}
	return svc.summaries(ctx, OpSubjectBreakdown, filter, filter.Subject)
}

// ComputeLeaderboard returns the top n summaries, see TopN.
func (svc *Service) ComputeLeaderboard(ctx context.Context, filter Filter, n int) (board []Summary, err error) {
	start := time.Now()
	defer func() { svc.observer.ObserveQuery(OpLeaderboard, time.Since(start), err) }()

	if n < 0 {
		return nil, NewInvalidFilterError(fmt.Sprintf("invalid leaderboard size %d: must be >= 0", n))
	}
	if err = filter.Validate(); err != nil {
		return nil, err
	}
	sums, err := svc.summaries(ctx, OpSummaries, filter, "")
	if err != nil {
		return nil, err
	}
	return TopN(sums, n), nil
}

// ComputeDefaulters returns the summaries below threshold, see Defaulters.
func (svc *Service) ComputeDefaulters(ctx context.Context, filter Filter, threshold float64) (defaulters []Summary, err error) {
	start := time.Now()
	defer func() { svc.observer.ObserveQuery(OpDefaulters, time.Since(start), err) }()

	if err = ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err = filter.Validate(); err != nil {
		return nil, err
	}
	sums, err := svc.summaries(ctx, OpSummaries, filter, "")
	if err != nil {
		return nil, err
	}
	return Defaulters(sums, threshold)
}

// ComputeReport returns the totals and the details of the matching records, sorted by date.
func (svc *Service) ComputeReport(ctx context.Context, filter Filter) (report Report, err error) {
	start := time.Now()
	defer func() { svc.observer.ObserveQuery(OpReport, time.Since(start), err) }()

	if err = filter.Validate(); err != nil {
		return Report{}, err
	}
	records, err := svc.queryRecords(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.Subject < b.Subject
	})
	return Report{
		Filter:  filter,
		Totals:  totals(records, svc.policy),
		Details: records,
	}, nil
}

func (svc *Service) summaries(ctx context.Context, op string, filter Filter, subject string) ([]Summary, error) {
	key, cacheable := svc.cacheKey(ctx, op, filter)
	if cacheable {
		if sums, ok := svc.cacheGet(ctx, key); ok {
			return sums, nil
		}
	}

	records, err := svc.queryRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	sums := summarize(records, svc.policy, subject)

	if cacheable {
		if err = svc.cache.Set(ctx, key, filter.ClassroomID, sums); err != nil {
			svc.logger.Warn(fmt.Sprintf("caching attendance summaries: %v", err), err)
		}
	}
	return sums, nil
}

// cacheKey is filter's key at the generation read before querying the records:
// a write landing during the query bumps the generation, so its stale result is never read back.
func (svc *Service) cacheKey(ctx context.Context, op string, filter Filter) (string, bool) {
	gen, err := svc.cache.Generation(ctx, filter.ClassroomID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading attendance cache generation: %v", err), err)
		svc.observer.ObserveCacheLookup(false)
		return "", false
	}
	return fmt.Sprintf("%s|gen=%d", filter.Key(op, svc.policy), gen), true
}

// queryRecords reads the matching records and resolves duplicates.
func (svc *Service) queryRecords(ctx context.Context, filter Filter) ([]Record, error) {
	if filter.IsUnbounded() {
		svc.logger.Debug("unbounded attendance query: reading every record")
	}
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, dataSourceErr(ctx, err)
	}
	records, dups := Dedupe(records)
	if dups > 0 {
		svc.logger.Warn(
			fmt.Sprintf("resolved %d duplicate attendance record(s)", dups),
			map[string]interface{}{"filter": filter, "duplicates": dups},
		)
	}
	return records, nil
}

func (svc *Service) cacheGet(ctx context.Context, key string) ([]Summary, bool) {
	sums, ok, err := svc.cache.Get(ctx, key)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cached attendance summaries: %v", err), err)
		ok = false
	}
	svc.observer.ObserveCacheLookup(ok)
	return sums, ok
}

func (svc *Service) invalidate(ctx context.Context, classroomIDs ...string) {
	if err := svc.cache.Invalidate(ctx, classroomIDs...); err != nil {
		svc.logger.Error(fmt.Sprintf("invalidating cached attendance summaries: %v", err), err)
	}
}

// Records

// MarkAttendance saves a validated MarkRequest (see MarkRequest.Validate).
// Records sharing the same key within the request collapse into the last one.
// It returns the number of records written.
func (svc *Service) MarkAttendance(ctx context.Context, req MarkRequest, markedBy string) (int, error) {
	now := nowFunc()
	records := make([]Record, 0, len(req.Records))
	index := make(map[recordKey]int, len(req.Records))
	for i, nr := range req.Records {
		rec, err := nr.toRecord(markedBy, now)
		if err != nil {
			return 0, errors.Wrapf(err, "records[%d]", i)
		}
		rec.ID = uuid.New().String()
		if j, ok := index[rec.key()]; ok {
			rec.ID = records[j].ID
			records[j] = rec
			continue
		}
		index[rec.key()] = len(records)
		records = append(records, rec)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := svc.repo.UpsertRecords(ctx, records); err != nil {
		return 0, dataSourceErr(ctx, err)
	}
	svc.invalidate(ctx, classroomIDs(records)...)
	return len(records), nil
}

func (svc *Service) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, dataSourceErr(ctx, err)
	}
	return records, nil
}

func (svc *Service) GetRecord(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrRecordNotFound
	}
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, dataSourceErr(ctx, err)
	}
	return rec, nil
}

// UpdateRecord changes the status and, when set, the remarks of a record.
func (svc *Service) UpdateRecord(ctx context.Context, id string, ru RecordUpdate, markedBy string) (Record, error) {
	rec, err := svc.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	status, err := ParseStatus(ru.Status)
	if err != nil {
		return Record{}, core.NewFieldError("status", err)
	}
	rec.Status = status
	if ru.Remarks != nil {
		rec.Remarks = *ru.Remarks
	}
	if markedBy != "" {
		rec.MarkedBy = markedBy
	}
	rec.UpdatedAt = nowFunc()

	rec, err = svc.repo.UpdateRecord(ctx, rec)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, dataSourceErr(ctx, err)
	}
	svc.invalidate(ctx, rec.ClassroomID)
	return rec, nil
}

func (svc *Service) DeleteRecord(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrRecordNotFound
	}
	rec, err := svc.repo.DeleteRecord(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, dataSourceErr(ctx, err)
	}
	svc.invalidate(ctx, rec.ClassroomID)
	return rec, nil
}

// dataSourceErr maps a store failure to a data_source Error, flagged as timeout past the ctx deadline.
func dataSourceErr(ctx context.Context, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return NewDataSourceError(err, timeout)
}

func classroomIDs(records []Record) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.ClassroomID]; !ok {
			seen[r.ClassroomID] = struct{}{}
			ids = append(ids, r.ClassroomID)
		}
	}
	sort.Strings(ids)
	return ids
}
