package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/audit"
)

const auditColumns = `"id", "event_type", "user_id", "entity_type", "entity_id", "description", "meta", "created_at"`

type auditRow struct {
	ID          string         `db:"id"`
	EventType   string         `db:"event_type"`
	UserID      string         `db:"user_id"`
	EntityType  null.String    `db:"entity_type"`
	EntityID    null.String    `db:"entity_id"`
	Description null.String    `db:"description"`
	Meta        types.JSONText `db:"meta"`
	CreatedAt   time.Time      `db:"created_at"`
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sql.DB) *auditRepository {
	return &auditRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo auditRepository) toRow(e audit.Entry) (auditRow, error) {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return auditRow{}, errors.Wrap(err, "marshalling meta")
	}
	return auditRow{
		ID:          e.ID,
		EventType:   e.EventType,
		UserID:      e.UserID,
		EntityType:  null.NewString(e.EntityType, e.EntityType != ""),
		EntityID:    null.NewString(e.EntityID, e.EntityID != ""),
		Description: null.NewString(e.Description, e.Description != ""),
		Meta:        types.JSONText(meta),
		CreatedAt:   e.CreatedAt.UTC(),
	}, nil
}

func (repo auditRepository) fromRow(row auditRow) (audit.Entry, error) {
	meta := make(map[string]interface{})
	if len(row.Meta) > 0 {
		if err := row.Meta.Unmarshal(&meta); err != nil {
			return audit.Entry{}, errors.Wrap(err, "unmarshalling meta")
		}
	}
	return audit.Entry{
		ID:          row.ID,
		EventType:   row.EventType,
		UserID:      row.UserID,
		EntityType:  row.EntityType.String,
		EntityID:    row.EntityID.String,
		Description: row.Description.String,
		Meta:        meta,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func (repo auditRepository) CreateEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	row, err := repo.toRow(entry)
	if err != nil {
		return audit.Entry{}, err
	}
	q := `INSERT INTO "audit_logs" (` + auditColumns + `)
		VALUES (:id, :event_type, :user_id, :entity_type, :entity_id, :description, :meta, :created_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit log")
	}
	return entry, nil
}

func (repo auditRepository) QueryEntries(ctx context.Context, filter audit.QueryFilter, ordering []core.DBOrdering) ([]audit.Entry, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = append(where, `"user_id" = ?`)
		args = append(args, filter.UserID)
	}
	if filter.EventType != "" {
		where = append(where, `"event_type" = ?`)
		args = append(args, filter.EventType)
	}
	if filter.EntityType != "" {
		where = append(where, `"entity_type" = ?`)
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		where = append(where, `"entity_id" = ?`)
		args = append(args, filter.EntityID)
	}

	q := `SELECT ` + auditColumns + ` FROM "audit_logs"`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += ` ORDER BY ` + strings.Join(orderList, ", ")
	}
	q += ` LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Skip)

	var rows []auditRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (repo auditRepository) GetEntry(ctx context.Context, id string) (audit.Entry, error) {
	var row auditRow
	q := `SELECT ` + auditColumns + ` FROM "audit_logs" WHERE "id" = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return audit.Entry{}, audit.ErrNotFound
		}
		return audit.Entry{}, errors.Wrap(err, "finding audit log by ID")
	}
	return repo.fromRow(row)
}

func (repo auditRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "audit_logs" WHERE "id" = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting audit log")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting audit log")
	}
	if n == 0 {
		return audit.ErrNotFound
	}
	return nil
}
