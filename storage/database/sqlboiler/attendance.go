package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

const (
	attendanceTable = "attendance_records"
	upsertBatchSize = 1000
)

var attendanceColumns = struct {
	ID          string
	StudentID   string
	ClassroomID string
	Subject     string
	Date        string
	Status      string
	MarkedBy    string
	Remarks     string
	CreatedAt   string
	UpdatedAt   string
}{
	ID:          "id",
	StudentID:   "student_id",
	ClassroomID: "classroom_id",
	Subject:     "subject",
	Date:        "date",
	Status:      "status",
	MarkedBy:    "marked_by",
	Remarks:     "remarks",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

var (
	attendanceAllColumns = []string{
		attendanceColumns.ID, attendanceColumns.StudentID, attendanceColumns.ClassroomID, attendanceColumns.Subject,
		attendanceColumns.Date, attendanceColumns.Status, attendanceColumns.MarkedBy, attendanceColumns.Remarks,
		attendanceColumns.CreatedAt, attendanceColumns.UpdatedAt,
	}
	attendanceKeyColumns = []string{
		attendanceColumns.StudentID, attendanceColumns.ClassroomID, attendanceColumns.Subject, attendanceColumns.Date,
	}
	attendanceUpdateColumns = []string{
		attendanceColumns.Status, attendanceColumns.MarkedBy, attendanceColumns.Remarks, attendanceColumns.UpdatedAt,
	}
)

// attendanceRow is an attendance_records row
type attendanceRow struct {
	ID          string          `boil:"id"`
	StudentID   string          `boil:"student_id"`
	ClassroomID string          `boil:"classroom_id"`
	Subject     string          `boil:"subject"`
	Date        attendance.Date `boil:"date"`
	Status      string          `boil:"status"`
	MarkedBy    null.String     `boil:"marked_by"`
	Remarks     null.String     `boil:"remarks"`
	CreatedAt   time.Time       `boil:"created_at"`
	UpdatedAt   time.Time       `boil:"updated_at"`
}

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{exec: exec}
}

func (repo attendanceRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo attendanceRepository) boil(rec attendance.Record) attendanceRow {
	return attendanceRow{
		ID:          rec.ID,
		StudentID:   rec.StudentID,
		ClassroomID: rec.ClassroomID,
		Subject:     rec.Subject,
		Date:        rec.Date,
		Status:      string(rec.Status),
		MarkedBy:    null.NewString(rec.MarkedBy, rec.MarkedBy != ""),
		Remarks:     null.NewString(rec.Remarks, rec.Remarks != ""),
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) unboil(row *attendanceRow) attendance.Record {
	if row == nil {
		return attendance.Record{}
	}
	return attendance.Record{
		ID:          row.ID,
		StudentID:   row.StudentID,
		ClassroomID: row.ClassroomID,
		Subject:     row.Subject,
		Date:        row.Date,
		Status:      attendance.Status(row.Status),
		MarkedBy:    row.MarkedBy.String,
		Remarks:     row.Remarks.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo attendanceRepository) unboilSlice(rows []*attendanceRow) []attendance.Record {
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, repo.unboil(r))
	}
	return records
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrRecordNotFound
func (repo attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return attendance.ErrRecordNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo attendanceRepository) where(column string, value interface{}) qm.QueryMod {
	return qm.Where(fmt.Sprintf("%s = ?", strmangle.IdentQuote(dialect.LQ, dialect.RQ, column)), value)
}

// QueryRecords runs a single SELECT: postgres reads it from one snapshot.
func (repo attendanceRepository) QueryRecords(ctx context.Context, filter attendance.Filter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	mods := []qm.QueryMod{
		qm.Select(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, attendanceAllColumns)...),
		qm.From(strmangle.IdentQuote(dialect.LQ, dialect.RQ, attendanceTable)),
	}
	if filter.ClassroomID != "" {
		mods = append(mods, repo.where(attendanceColumns.ClassroomID, filter.ClassroomID))
	}
	if filter.StudentID != "" {
		mods = append(mods, repo.where(attendanceColumns.StudentID, filter.StudentID))
	}
	if filter.Subject != "" {
		mods = append(mods, repo.where(attendanceColumns.Subject, filter.Subject))
	}
	if !filter.From.IsZero() {
		mods = append(mods, qm.Where(`"date" >= ?`, filter.From))
	}
	if !filter.To.IsZero() {
		mods = append(mods, qm.Where(`"date" <= ?`, filter.To))
	}
	mods = append(mods, qm.OrderBy(`"date" ASC, "created_at" ASC, "id" ASC`))

	var rows []*attendanceRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return repo.unboilSlice(rows), nil
}

func (repo attendanceRepository) GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	row := new(attendanceRow)
	err := newQuery(
		qm.Select(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, attendanceAllColumns)...),
		qm.From(strmangle.IdentQuote(dialect.LQ, dialect.RQ, attendanceTable)),
		repo.where(attendanceColumns.ID, id),
	).Bind(ctx, repo.getExec(exec), row)
	if err != nil {
		return attendance.Record{}, repo.trapNoRowsErr(err, "finding attendance record by ID")
	}
	return repo.unboil(row), nil
}

// UpsertRecords writes the records in batches, within a transaction when more than one batch is needed.
func (repo attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record, exec ...core.DBExecutor) error {
	if len(records) == 0 {
		return nil
	}
	exe := repo.getExec(exec)
	if db, ok := exe.(core.DB); ok && len(records) > upsertBatchSize {
		return core.InTx(ctx, db, func(tx core.DBExecutor) error {
			return repo.upsertBatches(ctx, tx, records)
		})
	}
	return repo.upsertBatches(ctx, exe, records)
}

func (repo attendanceRepository) upsertBatches(ctx context.Context, exe core.DBExecutor, records []attendance.Record) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := repo.upsertBatch(ctx, exe, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (repo attendanceRepository) upsertBatch(ctx context.Context, exe core.DBExecutor, records []attendance.Record) error {
	nCols := len(attendanceAllColumns)
	args := make([]interface{}, 0, len(records)*nCols)
	for _, rec := range records {
		row := repo.boil(rec)
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		args = append(args,
			row.ID, row.StudentID, row.ClassroomID, row.Subject, row.Date,
			row.Status, row.MarkedBy, row.Remarks, row.CreatedAt, row.UpdatedAt,
		)
	}

	sets := make([]string, 0, len(attendanceUpdateColumns))
	for _, col := range attendanceUpdateColumns {
		qc := strmangle.IdentQuote(dialect.LQ, dialect.RQ, col)
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", qc, qc))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		strmangle.IdentQuote(dialect.LQ, dialect.RQ, attendanceTable),
		strings.Join(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, attendanceAllColumns), ", "),
		strmangle.Placeholders(dialect.UseIndexPlaceholders, len(records)*nCols, 1, nCols),
		strings.Join(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, attendanceKeyColumns), ", "),
		strings.Join(sets, ", "),
	)

	if boil.DebugMode {
		fmt.Fprintln(boil.DebugWriter, query)
		fmt.Fprintln(boil.DebugWriter, args...)
	}
	if _, err := queries.Raw(query, args...).ExecContext(ctx, exe); err != nil {
		return errors.Wrap(err, "upserting attendance records")
	}
	return nil
}

func (repo attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	row := repo.boil(rec)
	updated := new(attendanceRow)
	query := fmt.Sprintf(
		`UPDATE %s SET "status" = $1, "marked_by" = $2, "remarks" = $3, "updated_at" = $4 WHERE "id" = $5 RETURNING %s`,
		strmangle.IdentQuote(dialect.LQ, dialect.RQ, attendanceTable),
		strings.Join(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, attendanceAllColumns), ", "),
	)
	err := queries.Raw(query, row.Status, row.MarkedBy, row.Remarks, row.UpdatedAt, row.ID).
		Bind(ctx, repo.getExec(exec), updated)
	if err != nil {
		return attendance.Record{}, repo.trapNoRowsErr(err, "updating attendance record")
	}
	return repo.unboil(updated), nil
}

func (repo attendanceRepository) DeleteRecord(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	deleted := new(attendanceRow)
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE "id" = $1 RETURNING %s`,
		strmangle.IdentQuote(dialect.LQ, dialect.RQ, attendanceTable),
		strings.Join(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, attendanceAllColumns), ", "),
	)
	if err := queries.Raw(query, id).Bind(ctx, repo.getExec(exec), deleted); err != nil {
		return attendance.Record{}, repo.trapNoRowsErr(err, "deleting attendance record")
	}
	return repo.unboil(deleted), nil
}
