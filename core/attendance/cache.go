package attendance

import (
	"context"
	"time"
)

type (
	// Cache stores computed summaries by Filter.Key.
	// Entries are tagged by classroom ("" for queries spanning all classrooms) so that a write
	// to a classroom invalidates its entries along with the untagged ones.
	Cache interface {
		// Generation returns the tag's invalidation counter. Invalidate must bump it.
		Generation(ctx context.Context, classroomID string) (int64, error)
		Get(ctx context.Context, key string) ([]Summary, bool, error)
		Set(ctx context.Context, key, classroomID string, summaries []Summary) error
		Invalidate(ctx context.Context, classroomIDs ...string) error
	}

	// Observer is notified of every computed query and cache lookup.
	Observer interface {
		ObserveQuery(op string, elapsed time.Duration, err error)
		ObserveCacheLookup(hit bool)
	}

	NopCache    struct{}
	nopObserver struct{}
)

var (
	_ Cache    = NopCache{}
	_ Observer = nopObserver{}
)

func (NopCache) Generation(context.Context, string) (int64, error)     { return 0, nil }
func (NopCache) Get(context.Context, string) ([]Summary, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, string, []Summary) error { return nil }
func (NopCache) Invalidate(context.Context, ...string) error          { return nil }
func (nopObserver) ObserveQuery(string, time.Duration, error)         {}
func (nopObserver) ObserveCacheLookup(bool)                           {}
