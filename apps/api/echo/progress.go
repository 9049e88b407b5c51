package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/progress"
)

type progressApi struct {
	ServerDeps
}

type (
	scorePayload struct {
		Score *float64 `json:"score"`
	}

	scoreResponse struct {
		Record  progress.Record  `json:"record"`
		Effects progress.Effects `json:"effects"`
	}

	accessResponse struct {
		Unlocked bool   `json:"unlocked"`
		Reason   string `json:"reason,omitempty"`
	}

	overviewResponse struct {
		progress.Overview
		Certificate *certificate.Certificate `json:"certificate"`
	}
)

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := progressApi{deps}

	// route level middlewares: the /courses/:id & /chapters/:id prefixes are shared with the course API
	student := studentMiddleware()
	courseAccess := courseAccessMiddleware(deps)
	chapterAccess := chapterAccessMiddleware(deps)

	g.GET("/report-card", api.reportCard, jwt, student)

	g.GET("/courses/:id/overview", api.overview, jwt, student, courseAccess)
	g.GET("/courses/:id/progress", api.records, jwt, student, courseAccess)

	g.GET("/chapters/:id/access", api.access, jwt, student, chapterAccess)
	g.POST("/chapters/:id/score", api.recordScore, jwt, student, chapterAccess)
	g.POST("/chapters/:id/complete", api.markCompleted, jwt, student, chapterAccess)
}

// Handlers

func (api *progressApi) overview(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	crs := contextCourse(ctx)

	ov, err := api.ProgressSvc.CourseOverview(reqCtx, usr.ID, crs.ID)
	if err != nil {
		return err
	}
	resp := overviewResponse{Overview: ov}
	cert, err := api.CertificateSvc.Get(reqCtx, usr.ID, crs.ID)
	switch errors.Cause(err) {
	case nil:
		resp.Certificate = &cert
	case certificate.ErrNotFound:
	default:
		return errors.Wrap(err, "getting certificate")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *progressApi) records(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	recs, err := api.ProgressSvc.GetProgress(ctx.Request().Context(), usr.ID, contextCourse(ctx).ID)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []progress.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *progressApi) access(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	ok, reason, err := api.ProgressSvc.IsUnlocked(ctx.Request().Context(), usr.ID, contextChapter(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, accessResponse{Unlocked: ok, Reason: reason})
}

func (api *progressApi) recordScore(ctx echo.Context) error {
	var data scorePayload
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if data.Score == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "this field is required"})
	}

	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	rec, effects, err := api.ProgressSvc.RecordScore(ctx.Request().Context(), usr.ID, contextChapter(ctx).ID, *data.Score)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, scoreResponse{Record: rec, Effects: effects})
}

func (api *progressApi) markCompleted(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	rec, err := api.ProgressSvc.MarkCompleted(ctx.Request().Context(), usr.ID, contextChapter(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *progressApi) reportCard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	card, err := api.ProgressSvc.ReportCard(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	if card == nil {
		card = []progress.CourseScores{}
	}
	return ctx.JSON(http.StatusOK, card)
}
