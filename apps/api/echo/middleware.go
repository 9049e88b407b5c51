package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

var (
	contextCourseKey  = "course"
	contextChapterKey = "chapter"
)

// kindMiddleware only lets through users of the given kinds.
func kindMiddleware(kinds ...user.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, k := range kinds {
				if claims.Kind == k {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func staffMiddleware() echo.MiddlewareFunc {
	return kindMiddleware(user.KindSchool, user.KindTeacher)
}

func studentMiddleware() echo.MiddlewareFunc {
	return kindMiddleware(user.KindStudent)
}

// courseAccessMiddleware loads the course of the `:id` param and checks the context user can access it.
func courseAccessMiddleware(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			crs, err := deps.CourseSvc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			if err = checkAccess(ctx, deps, crs.ID); err != nil {
				return err
			}
			ctx.Set(contextCourseKey, crs)
			return next(ctx)
		}
	}
}

// chapterAccessMiddleware loads the chapter of the `:id` param and checks the context user can access its course.
func chapterAccessMiddleware(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ch, err := deps.CourseSvc.GetChapter(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			if err = checkAccess(ctx, deps, ch.CourseID); err != nil {
				return err
			}
			ctx.Set(contextChapterKey, ch)
			return next(ctx)
		}
	}
}

func checkAccess(ctx echo.Context, deps ServerDeps, courseID string) error {
	usr, err := getContextUser(ctx, deps.UserSvc)
	if err != nil {
		return err
	}
	ok, err := deps.CourseSvc.CanAccess(ctx.Request().Context(), usr, courseID)
	if err != nil {
		return errors.Wrap(err, "checking course access")
	}
	if !ok {
		if usr.IsStudent() {
			return course.ErrNotEnrolled
		}
		return errHttpForbidden
	}
	return nil
}

func contextCourse(ctx echo.Context) course.Course {
	crs, _ := ctx.Get(contextCourseKey).(course.Course)
	return crs
}

func contextChapter(ctx echo.Context) course.Chapter {
	ch, _ := ctx.Get(contextChapterKey).(course.Chapter)
	return ch
}
