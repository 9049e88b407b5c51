package main

import (
	"context"
	"fmt"
	"log"
	"os"

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
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

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
	progSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), courseRepo, usrRepo, tx, validator, logger)

	// start CLI
	cli := commandLine{
		db:      db,
		conf:    conf,
		out:     os.Stdout,
		usrSvc:  user.NewService(usrRepo, validator),
		crsSvc:  course.NewService(courseRepo, usrRepo, tx, validator, logger),
		progSvc: progSvc,
		certSvc: certificate.NewService(sqlxrepos.NewCertificateRepository(db), progSvc, courseRepo, usrRepo, tx, mailSvc, logger),
	}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
	}

	if cErr := db.Close(); cErr != nil {
		logger.Error(fmt.Sprintf("closing database: %v", cErr), cErr)
	}
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}
