package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/certificate"
)

type certificateApi struct {
	ServerDeps
}

func registerCertificateAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := certificateApi{deps}
	student := studentMiddleware()
	courseAccess := courseAccessMiddleware(deps)

	g.GET("/courses/:id/certificate", api.retrieve, jwt, student, courseAccess)
	g.POST("/courses/:id/certificate", api.ensure, jwt, student, courseAccess)

	g.GET("/certificates", api.query, jwt, student)
	g.GET("/certificates/:code", api.verify) // public
}

// Handlers

func (api *certificateApi) ensure(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	cert, err := api.CertificateSvc.Ensure(ctx.Request().Context(), usr.ID, contextCourse(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	cert, err := api.CertificateSvc.Get(ctx.Request().Context(), usr.ID, contextCourse(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	certs, err := api.CertificateSvc.ListForStudent(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *certificateApi) verify(ctx echo.Context) error {
	cert, err := api.CertificateSvc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}
