package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

const defaultLeaderboardSize = 10

type (
	reportApi struct {
		svc *attendance.Service
	}

	LeaderboardResponse struct {
		N           int                  `json:"n"`
		Leaderboard []attendance.Summary `json:"leaderboard"`
	}

	DefaultersResponse struct {
		Threshold  float64              `json:"threshold"`
		Defaulters []attendance.Summary `json:"defaulters"`
	}
)

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt, staffMiddleware())
	rg.GET("/leaderboard", api.leaderboard)
	rg.GET("/defaulters", api.defaulters)
	rg.GET("/report", api.report)
}

// Handlers

func (api *reportApi) leaderboard(ctx echo.Context) error {
	n := defaultLeaderboardSize
	if raw := core.CleanString(ctx.QueryParam("n")); raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil {
			return attendance.NewInvalidFilterError(fmt.Sprintf("invalid leaderboard size %q", raw))
		}
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}

	board, err := api.svc.ComputeLeaderboard(ctx.Request().Context(), filter, n)
	if err != nil {
		return errors.Wrap(err, "computing leaderboard")
	}
	return ctx.JSON(http.StatusOK, LeaderboardResponse{N: n, Leaderboard: summariesOrEmpty(board)})
}

func (api *reportApi) defaulters(ctx echo.Context) error {
	threshold := api.svc.DefaultThreshold()
	if raw := core.CleanString(ctx.QueryParam("threshold")); raw != "" {
		var err error
		if threshold, err = strconv.ParseFloat(raw, 64); err != nil {
			return &attendance.Error{
				Kind:    attendance.KindInvalidThreshold,
				Message: fmt.Sprintf("invalid threshold %q: must be a number between 0 and 100", raw),
			}
		}
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}

	defaulters, err := api.svc.ComputeDefaulters(ctx.Request().Context(), filter, threshold)
	if err != nil {
		return errors.Wrap(err, "computing defaulters")
	}
	return ctx.JSON(http.StatusOK, DefaultersResponse{Threshold: threshold, Defaulters: summariesOrEmpty(defaulters)})
}

func (api *reportApi) report(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	report, err := api.svc.ComputeReport(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing report")
	}
	if report.Details == nil {
		report.Details = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, report)
}
