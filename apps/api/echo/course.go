package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
)

type courseApi struct {
	ServerDeps
}

type (
	chapterPayload struct {
		Title   string        `json:"title"`
		Code    string        `json:"code"`
		URL     string        `json:"url"`
		Kind    course.Kind   `json:"kind"`
		Order   *course.Order `json:"order"`
		Reorder bool          `json:"reorder"`
	}

	enrollPayload struct {
		StudentIDs []string `json:"student_ids"`
	}
)

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query, studentMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", courseAccessMiddleware(deps))
	dg.GET("/chapters", api.chapters)
	dg.POST("/chapters", api.createChapter, staffMiddleware())
	dg.POST("/reorder", api.reorder, staffMiddleware())
	dg.POST("/students", api.enroll, staffMiddleware())

	chg := g.Group("/chapters", jwt)
	chg.PUT("/:id", api.updateChapter, staffMiddleware(), chapterAccessMiddleware(deps))
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	courses, err := api.CourseSvc.StudentCourses(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying student courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) chapters(ctx echo.Context) error {
	outline, err := api.CourseSvc.Outline(ctx.Request().Context(), contextCourse(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "loading course outline")
	}
	return ctx.JSON(http.StatusOK, outline.All())
}

func (api *courseApi) createChapter(ctx echo.Context) error {
	var data chapterPayload
	if err := bind(ctx, &data); err != nil {
		return err
	}

	ch, err := api.CourseSvc.CreateChapter(ctx.Request().Context(), course.NewChapter{
		CourseID: contextCourse(ctx).ID,
		Title:    data.Title,
		Code:     data.Code,
		URL:      data.URL,
		Kind:     data.Kind,
		Order:    data.Order,
		Reorder:  data.Reorder,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *courseApi) updateChapter(ctx echo.Context) error {
	var data course.UpdateChapter
	if err := bind(ctx, &data); err != nil {
		return err
	}

	ch, err := api.CourseSvc.UpdateChapter(ctx.Request().Context(), contextChapter(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ch)
}

func (api *courseApi) reorder(ctx echo.Context) error {
	kind, err := course.ParseKind(ctx.QueryParam("kind"))
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	crs := contextCourse(ctx)
	if err = api.CourseSvc.ReorderChapters(reqCtx, crs.ID, kind); err != nil {
		return err
	}
	outline, err := api.CourseSvc.Outline(reqCtx, crs.ID)
	if err != nil {
		return errors.Wrap(err, "loading course outline")
	}
	return ctx.JSON(http.StatusOK, outline.All())
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data enrollPayload
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := api.CourseSvc.Enroll(ctx.Request().Context(), contextCourse(ctx).ID, data.StudentIDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
