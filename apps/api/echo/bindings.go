package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mahudhurio/core"
)

const orderingParam = "ordering"

// bindOrdering reads `?ordering=field,-field`; "-" sorts descending.
// Blank entries are skipped and only the first ordering on a field is kept.
func bindOrdering(ctx echo.Context) []core.DBOrdering {
	raw := core.CleanString(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	var ords []core.DBOrdering
	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = core.CleanString(field, true /* lower */)
		asc := !strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		ords = append(ords, core.DBOrdering{Field: field, Ascending: asc})
	}
	return ords
}
