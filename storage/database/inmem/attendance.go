package inmemdb

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) indexOf(id string) int {
	for i, r := range repo.db.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.Filter, _ ...core.DBExecutor) ([]attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0)
	for _, r := range repo.db.rows {
		if filter.Matches(r) {
			records = append(records, r)
		}
	}
	return records, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, id string, _ ...core.DBExecutor) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := repo.indexOf(id); i >= 0 {
		return repo.db.rows[i], nil
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record, _ ...core.DBExecutor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	index := make(map[recordKey]int, len(repo.db.rows))
	for i, r := range repo.db.rows {
		index[keyOf(r)] = i
	}
	for _, rec := range records {
		if i, ok := index[keyOf(rec)]; ok {
			existing := repo.db.rows[i]
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			repo.db.rows[i] = rec
			continue
		}
		index[keyOf(rec)] = len(repo.db.rows)
		repo.db.rows = append(repo.db.rows, rec)
	}
	return nil
}

// InsertRecords appends the records as is, without any uniqueness check.
func (repo *attendanceRepository) InsertRecords(records ...attendance.Record) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.rows = append(repo.db.rows, records...)
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := repo.indexOf(rec.ID)
	if i < 0 {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	existing := repo.db.rows[i]
	existing.Status = rec.Status
	existing.Remarks = rec.Remarks
	existing.MarkedBy = rec.MarkedBy
	existing.UpdatedAt = rec.UpdatedAt
	repo.db.rows[i] = existing
	return existing, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string, _ ...core.DBExecutor) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := repo.indexOf(id)
	if i < 0 {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	rec := repo.db.rows[i]
	repo.db.rows = append(repo.db.rows[:i], repo.db.rows[i+1:]...)
	return rec, nil
}
