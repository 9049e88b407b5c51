package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		UserSvc        *user.Service
		CourseSvc      *course.Service
		ProgressSvc    *progress.Service
		CertificateSvc *certificate.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		ServerDeps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		ServerDeps: deps,
		app:        echo.New(),
		jwt:        newJWTConfig(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.signalShutdown)
	s.app.Debug = s.Conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwt)

	registerCourseAPI(v1, jwt, s.ServerDeps)
	registerProgressAPI(v1, jwt, s.ServerDeps)
	registerCertificateAPI(v1, jwt, s.ServerDeps)
}

func (s *server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
