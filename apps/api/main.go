package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	templates := core.NewTemplateSet(conf)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, templates, log.New(os.Stdout, "EMAIL : ", log.LstdFlags), logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, templates, logger)
	}

	validator := core.NewValidator()
	tx := database.NewTransactor(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)

	usrSvc := user.NewService(usrRepo, validator)
	courseSvc := course.NewService(courseRepo, usrRepo, tx, validator, logger)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), courseRepo, usrRepo, tx, validator, logger)
	certSvc := certificate.NewService(sqlxrepos.NewCertificateRepository(db), progressSvc, courseRepo, usrRepo, tx, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			CourseSvc:      courseSvc,
			ProgressSvc:    progressSvc,
			CertificateSvc: certSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}
