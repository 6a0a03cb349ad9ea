package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/audit"
)

type logApi struct {
	svc      *audit.Service
	validate *validator.Validate
}

func registerLogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *audit.Service, validate *validator.Validate) {
	api := logApi{
		svc:      svc,
		validate: validate,
	}

	lg := g.Group("/logs", jwt, adminMiddleware())
	lg.GET("", api.query)
	lg.POST("", api.create)
	lg.GET("/:id", api.retrieve)
	lg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *logApi) query(ctx echo.Context) error {
	filter := new(audit.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	entries, err := api.svc.Query(ctx.Request().Context(), *filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying audit logs")
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *logApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data audit.NewEntry
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if data.UserID == "" {
		data.UserID = claims.Subject
	}

	entry, err := api.svc.Log(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating audit log")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *logApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting audit log")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *logApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting audit log")
	}
	return ctx.NoContent(http.StatusNoContent)
}
