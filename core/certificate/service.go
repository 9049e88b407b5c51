package certificate

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

const (
	codeLength       = 10
	maxCodeAttempts  = 5
	issuedEmailTmpl  = "certificate_issued"
	issuedDateLayout = "January 2, 2006"
)

var (
	// errors
	ErrNotFound       = core.NewError(core.CodeNotFound, "certificate not found")
	ErrNotComplete    = core.NewError(core.CodeNotComplete, "the course is not complete yet")
	errCodesExhausted = errors.New("could not generate a unique certificate code")

	newCode = generateCode // mockable
)

type (
	Repository interface {
		// GetCertificate returns the certificate of a student for a course, or ErrNotFound.
		GetCertificate(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (Certificate, error)
		GetCertificateByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Certificate, error)
		CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error)
		CreateCertificate(ctx context.Context, cert Certificate, exec ...core.DBExecutor) (Certificate, error)
		QueryStudentCertificates(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Certificate, error)
	}

	// ProgressCalculator computes a student's progress within a transaction, holding the student/course lock.
	ProgressCalculator interface {
		LockedPercent(ctx context.Context, studentID, courseID string, exec core.DBExecutor) (int, error)
	}

	Service struct {
		repo     Repository
		progress ProgressCalculator
		courses  course.Repository
		users    user.Repository
		tx       core.Transactor
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	progress ProgressCalculator,
	courses course.Repository,
	users user.Repository,
	tx core.Transactor,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		progress: progress,
		courses:  courses,
		users:    users,
		tx:       tx,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// generateCode returns 10 upper-case hex characters taken from a random UUID.
func generateCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:codeLength]
}

// Ensure returns the certificate of a student who completed a course, issuing it on first call.
func (svc *Service) Ensure(ctx context.Context, studentID, courseID string) (Certificate, error) {
	student, err := svc.users.GetUser(ctx, user.GetFilter{ID: studentID})
	if err != nil {
		return Certificate{}, err
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Certificate{}, err
	}
	enrolled, err := svc.courses.IsMember(ctx, courseID, studentID, course.MemberStudent)
	if err != nil {
		return Certificate{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Certificate{}, course.ErrNotEnrolled
	}

	var cert Certificate
	var issued bool
	err = svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		percent, err := svc.progress.LockedPercent(ctx, studentID, courseID, exec)
		if err != nil {
			return err
		}
		if percent < 100 {
			return ErrNotComplete
		}

		cert, err = svc.repo.GetCertificate(ctx, studentID, courseID, exec)
		if err == nil {
			return nil
		}
		if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "getting certificate")
		}

		code, err := svc.uniqueCode(ctx, exec)
		if err != nil {
			return err
		}
		cert, err = svc.repo.CreateCertificate(ctx, Certificate{
			StudentID: studentID,
			CourseID:  courseID,
			Code:      code,
			IssuedAt:  time.Now().UTC(),
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating certificate")
		}
		issued = true
		return nil
	})
	if err != nil {
		return Certificate{}, err
	}

	if issued {
		svc.logger.Info(fmt.Sprintf("certificate %s issued for course %s", cert.Code, crs.ID), student)
		svc.notify(student, crs, cert)
	}
	return cert, nil
}

func (svc *Service) uniqueCode(ctx context.Context, exec core.DBExecutor) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := newCode()
		exists, err := svc.repo.CodeExists(ctx, code, exec)
		if err != nil {
			return "", errors.Wrap(err, "checking certificate code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", errCodesExhausted
}

// notify emails the student about a new certificate; sending happens in the background.
func (svc *Service) notify(student user.User, crs course.Course, cert Certificate) {
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Your certificate for " + crs.Name,
		TemplateName: issuedEmailTmpl,
		TemplateData: issuedEmailData{
			StudentName: student.Name,
			CourseName:  crs.Name,
			Code:        cert.Code,
			IssuedAt:    cert.IssuedAt.Format(issuedDateLayout),
		},
	})
}

func (svc *Service) Get(ctx context.Context, studentID, courseID string) (Certificate, error) {
	return svc.repo.GetCertificate(ctx, studentID, courseID)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Certificate, error) {
	return svc.repo.GetCertificateByCode(ctx, strings.ToUpper(core.CleanString(code)))
}

func (svc *Service) ListForStudent(ctx context.Context, studentID string) ([]Certificate, error) {
	if _, err := svc.users.GetUser(ctx, user.GetFilter{ID: studentID}); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudentCertificates(ctx, studentID)
}
