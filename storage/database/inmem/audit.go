package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.rows = append(repo.db.rows, entry)
	return entry, nil
}

func (repo *auditRepository) QueryEntries(_ context.Context, filter audit.QueryFilter, ordering []core.DBOrdering) ([]audit.Entry, error) {
	repo.db.mutex.RLock()
	entries := make([]audit.Entry, 0)
	for _, e := range repo.db.rows {
		if filter.Matches(e) {
			entries = append(entries, e)
		}
	}
	repo.db.mutex.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareEntries(entries[i], entries[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})

	if filter.Skip >= len(entries) {
		return []audit.Entry{}, nil
	}
	entries = entries[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(entries) {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func compareEntries(a, b audit.Entry, field string) int {
	switch field {
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	case "event_type":
		return strings.Compare(a.EventType, b.EventType)
	case "user_id":
		return strings.Compare(a.UserID, b.UserID)
	case "entity_type":
		return strings.Compare(a.EntityType, b.EntityType)
	}
	return 0
}

func (repo *auditRepository) GetEntry(_ context.Context, id string) (audit.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, e := range repo.db.rows {
		if e.ID == id {
			return e, nil
		}
	}
	return audit.Entry{}, audit.ErrNotFound
}

func (repo *auditRepository) DeleteEntry(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for i, e := range repo.db.rows {
		if e.ID == id {
			repo.db.rows = append(repo.db.rows[:i], repo.db.rows[i+1:]...)
			return nil
		}
	}
	return audit.ErrNotFound
}
