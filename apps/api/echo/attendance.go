package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/audit"
)

type (
	attendanceApi struct {
		svc      *attendance.Service
		auditSvc *audit.Service
		validate *validator.Validate
	}

	MarkResponse struct {
		Marked int `json:"marked"`
	}
)

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *attendance.Service,
	auditSvc *audit.Service,
	validate *validator.Validate,
) {
	api := attendanceApi{
		svc:      svc,
		auditSvc: auditSvc,
		validate: validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.GET("", api.query, staffMiddleware())
	ag.POST("/manual", api.mark, staffMiddleware())
	ag.GET("/stats", api.stats, staffMiddleware())
	ag.GET("/mystats", api.myStats)
	ag.GET("/subjects", api.subjects, staffMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", staffMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// bindFilter binds then normalizes the filter query params.
func bindFilter(ctx echo.Context) (attendance.Filter, error) {
	var qf attendance.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return attendance.Filter{}, errors.Wrap(err, "binding to QueryFilter")
	}
	return qf.Normalize()
}

func summariesOrEmpty(sums []attendance.Summary) []attendance.Summary {
	if sums == nil {
		return []attendance.Summary{}
	}
	return sums
}

// Handlers

func (api *attendanceApi) query(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.ListRecords(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data attendance.MarkRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	n, err := api.svc.MarkAttendance(rctx, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}

	classrooms := make(map[string]int)
	for _, nr := range data.Records {
		classrooms[nr.ClassroomID]++
	}
	for id := range classrooms {
		api.auditSvc.Record(rctx, audit.NewEntry{
			EventType:   audit.EventAttendanceMark,
			UserID:      claims.Subject,
			EntityType:  audit.EntityClassroom,
			EntityID:    id,
			Description: "attendance marked",
			Meta:        map[string]interface{}{"records": classrooms[id]},
		})
	}
	return ctx.JSON(http.StatusCreated, MarkResponse{Marked: n})
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	sums, err := api.svc.ComputeStudentSummaries(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing student summaries")
	}
	return ctx.JSON(http.StatusOK, summariesOrEmpty(sums))
}

// myStats returns the caller's own summary. The student filter is always the caller's.
func (api *attendanceApi) myStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	studentID := claims.OwnStudentID()
	if studentID == "" {
		return errHttpForbidden
	}

	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	filter.StudentID = studentID

	sums, err := api.svc.ComputeStudentSummaries(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing own summary")
	}
	return ctx.JSON(http.StatusOK, summariesOrEmpty(sums))
}

func (api *attendanceApi) subjects(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	sums, err := api.svc.ComputeSubjectBreakdown(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing subject breakdown")
	}
	return ctx.JSON(http.StatusOK, summariesOrEmpty(sums))
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetRecord(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data attendance.RecordUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	prev, err := api.svc.GetRecord(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting record")
	}
	rec, err := api.svc.UpdateRecord(rctx, prev.ID, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "updating record")
	}

	api.auditSvc.Record(rctx, audit.NewEntry{
		EventType:   audit.EventAttendanceUpdate,
		UserID:      claims.Subject,
		EntityType:  audit.EntityAttendanceRecord,
		EntityID:    rec.ID,
		Description: "attendance record updated",
		Meta:        map[string]interface{}{"from": prev.Status, "to": rec.Status},
	})
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rctx := ctx.Request().Context()
	rec, err := api.svc.DeleteRecord(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting record")
	}

	api.auditSvc.Record(rctx, audit.NewEntry{
		EventType:   audit.EventAttendanceDelete,
		UserID:      claims.Subject,
		EntityType:  audit.EntityAttendanceRecord,
		EntityID:    rec.ID,
		Description: "attendance record deleted",
		Meta: map[string]interface{}{
			"student_id":   rec.StudentID,
			"classroom_id": rec.ClassroomID,
			"date":         rec.Date.String(),
			"status":       rec.Status,
		},
	})
	return ctx.NoContent(http.StatusNoContent)
}
