package boiledrepos

import (
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
)

// postgres
var dialect = drivers.Dialect{
	LQ:                   0x22,
	RQ:                   0x22,
	UseIndexPlaceholders: true,
	UseLastInsertID:      false,
	UseSchema:            false,
	UseDefaultKeyword:    true,
	UseAutoColumns:       false,
	UseTopClause:         false,
	UseOutputClause:      false,
}

// newQuery initializes a new Query using the passed in QueryMods
func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}
