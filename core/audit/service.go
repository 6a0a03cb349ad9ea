package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	ErrNotFound = errors.New("audit log not found")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		// QueryEntries applies AND operation on the filter fields, then its pagination.
		QueryEntries(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Entry, error)
		GetEntry(ctx context.Context, id string) (Entry, error)
		DeleteEntry(ctx context.Context, id string) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{repo: repo, logger: logger}
}

// Log saves a validated NewEntry.
func (svc *Service) Log(ctx context.Context, ne NewEntry) (Entry, error) {
	meta := ne.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	entry, err := svc.repo.CreateEntry(ctx, Entry{
		ID:          uuid.New().String(),
		EventType:   ne.EventType,
		UserID:      ne.UserID,
		EntityType:  ne.EntityType,
		EntityID:    ne.EntityID,
		Description: ne.Description,
		Meta:        meta,
		CreatedAt:   nowFunc(),
	})
	return entry, errors.Wrap(err, "creating audit log")
}

// Record logs an event on behalf of the app: failures are reported, never returned.
func (svc *Service) Record(ctx context.Context, ne NewEntry) {
	if _, err := svc.Log(ctx, ne); err != nil {
		svc.logger.Error(fmt.Sprintf("recording %q audit log: %v", ne.EventType, err), err)
	}
}

// Query returns the matching entries, newest first unless ordered otherwise.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Entry, error) {
	filter.Clean()
	ordering = core.AllowedOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	entries, err := svc.repo.QueryEntries(ctx, filter, ordering)
	return entries, errors.Wrap(err, "querying audit logs")
}

func (svc *Service) Get(ctx context.Context, id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrNotFound
	}
	return svc.repo.GetEntry(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return svc.repo.DeleteEntry(ctx, id)
}
