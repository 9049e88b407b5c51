package testutil

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database/inmem"
)

// Repos are the repositories an Env is wired with.
type Repos struct {
	Users        user.Repository
	Courses      course.Repository
	Progress     progress.Repository
	Certificates certificate.Repository
	Tx           core.Transactor
}

// Env wires the services the way the apps do.
type Env struct {
	Conf      *core.Config
	Logger    core.Logger
	Mail      *emailsvc.ConsoleService
	Validator *core.Validator
	Repos

	UserSvc        *user.Service
	CourseSvc      *course.Service
	ProgressSvc    *progress.Service
	CertificateSvc *certificate.Service
}

// NewLogger returns a silent core.Logger.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
}

func NewEnv(repos Repos) *Env {
	conf := core.NewTestConfig()
	logger := NewLogger()
	v := core.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	env := &Env{
		Conf:      conf,
		Logger:    logger,
		Mail:      mailSvc,
		Validator: v,
		Repos:     repos,
	}
	env.UserSvc = user.NewService(repos.Users, v)
	env.CourseSvc = course.NewService(repos.Courses, repos.Users, repos.Tx, v, logger)
	env.ProgressSvc = progress.NewService(repos.Progress, repos.Courses, repos.Users, repos.Tx, v, logger)
	env.CertificateSvc = certificate.NewService(repos.Certificates, env.ProgressSvc, repos.Courses, repos.Users, repos.Tx, mailSvc, logger)
	return env
}

// NewInmemEnv returns an Env backed by a fresh in-memory store.
func NewInmemEnv() *Env {
	db := inmemdb.NewDB()
	return NewEnv(Repos{
		Users:        inmemdb.NewUserRepository(db),
		Courses:      inmemdb.NewCourseRepository(db),
		Progress:     inmemdb.NewProgressRepository(db),
		Certificates: inmemdb.NewCertificateRepository(db),
		Tx:           db,
	})
}

func (env *Env) CreateUser(t *testing.T, name, email string, kind user.Kind) user.User {
	t.Helper()
	usr, err := env.UserSvc.Create(context.Background(), user.NewUser{Name: name, Email: email, Kind: kind})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateCourse(t *testing.T, name string) course.Course {
	t.Helper()
	crs, err := env.CourseSvc.CreateCourse(context.Background(), course.NewCourse{Name: name})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

// CreateChapter creates a chapter at order (eg. "1.5").
func (env *Env) CreateChapter(t *testing.T, courseID, title string, kind course.Kind, order string) course.Chapter {
	t.Helper()
	o, err := course.ParseOrder(order)
	if err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	ch, err := env.CourseSvc.CreateChapter(context.Background(), course.NewChapter{
		CourseID: courseID,
		Title:    title,
		Kind:     kind,
		Order:    &o,
	})
	if err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	return ch
}

func (env *Env) Enroll(t *testing.T, courseID string, students ...user.User) {
	t.Helper()
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	if err := env.CourseSvc.Enroll(context.Background(), courseID, ids...); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}
