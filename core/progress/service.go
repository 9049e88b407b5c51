package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

type (
	Repository interface {
		// UpsertScore sets the score & completion of a record in a single statement.
		UpsertScore(ctx context.Context, studentID, chapterID string, score float64, completed bool, at time.Time, exec ...core.DBExecutor) (Record, error)
		// UpsertCompleted marks a record completed, keeping its score.
		UpsertCompleted(ctx context.Context, studentID, chapterID string, at time.Time, exec ...core.DBExecutor) (Record, error)
		// InsertIfAbsent creates an empty record unless one exists; created reports which happened.
		InsertIfAbsent(ctx context.Context, studentID, chapterID string, at time.Time, exec ...core.DBExecutor) (rec Record, created bool, err error)
		QueryRecords(ctx context.Context, studentID string, chapterIDs []string, exec ...core.DBExecutor) ([]Record, error)
		// LockStudentCourse serializes the progress writes of a student on a course until the end of the transaction.
		LockStudentCourse(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		courses   course.Repository
		users     user.Repository
		tx        core.Transactor
		validator *core.Validator
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	users user.Repository,
	tx core.Transactor,
	v *core.Validator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		courses:   courses,
		users:     users,
		tx:        tx,
		validator: v,
		logger:    logger,
	}
}

// targetChapter loads the chapter a student writes progress on, checking the student, the kind & the enrollment.
func (svc *Service) targetChapter(ctx context.Context, studentID, chapterID string, kind course.Kind) (course.Chapter, error) {
	if _, err := svc.users.GetUser(ctx, user.GetFilter{ID: studentID}); err != nil {
		return course.Chapter{}, err
	}
	ch, err := svc.courses.GetChapter(ctx, chapterID)
	if err != nil {
		return course.Chapter{}, err
	}
	if ch.Kind != kind {
		return course.Chapter{}, course.ErrInvalidChapterKind
	}
	enrolled, err := svc.courses.IsMember(ctx, ch.CourseID, studentID, course.MemberStudent)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return course.Chapter{}, course.ErrNotEnrolled
	}
	return ch, nil
}

// RecordScore sets the score of a student on an exercise; a score of 8 or more approves it.
func (svc *Service) RecordScore(ctx context.Context, studentID, chapterID string, score float64) (Record, Effects, error) {
	ch, err := svc.targetChapter(ctx, studentID, chapterID, course.KindExercise)
	if err != nil {
		return Record{}, Effects{}, err
	}
	if err = svc.validator.Var("score", score, "gte=0,lte=10"); err != nil {
		return Record{}, Effects{}, err
	}
	score = math.Round(score*100) / 100

	var rec Record
	var eff Effects
	err = svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.LockStudentCourse(ctx, studentID, ch.CourseID, exec); err != nil {
			return errors.Wrap(err, "locking student progress")
		}
		outline, err := svc.outline(ctx, ch.CourseID, exec)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if rec, err = svc.repo.UpsertScore(ctx, studentID, ch.ID, score, score >= PassingScore, now, exec); err != nil {
			return errors.Wrap(err, "upserting score")
		}
		eff, err = svc.cascade(ctx, outline, ch, rec, now, exec)
		return err
	})
	if err != nil {
		return Record{}, Effects{}, err
	}

	if eff.Approved {
		svc.logger.Debug(fmt.Sprintf("exercise %s approved for student %s", ch.ID, studentID), map[string]interface{}{
			"score":            score,
			"completed_lesson": eff.CompletedLesson != nil,
			"opened_lesson":    eff.OpenedLesson != nil,
		})
	}
	return rec, eff, nil
}

// MarkCompleted completes a lesson for a student. Exercises can only be completed through RecordScore.
func (svc *Service) MarkCompleted(ctx context.Context, studentID, chapterID string) (Record, error) {
	ch, err := svc.targetChapter(ctx, studentID, chapterID, course.KindLesson)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	err = svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.LockStudentCourse(ctx, studentID, ch.CourseID, exec); err != nil {
			return errors.Wrap(err, "locking student progress")
		}
		var err error
		rec, err = svc.repo.UpsertCompleted(ctx, studentID, ch.ID, time.Now().UTC(), exec)
		return errors.Wrap(err, "completing lesson")
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetProgress returns the records of a student on the chapters of a course, in chapter order.
func (svc *Service) GetProgress(ctx context.Context, studentID, courseID string) ([]Record, error) {
	l, err := svc.studentLedger(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(l.records))
	for _, ch := range l.outline.All() {
		if r, ok := l.records[ch.ID]; ok {
			records = append(records, r)
		}
	}
	return records, nil
}

func (svc *Service) PercentComplete(ctx context.Context, studentID, courseID string) (int, error) {
	l, err := svc.studentLedger(ctx, studentID, courseID)
	if err != nil {
		return 0, err
	}
	return l.PercentComplete(), nil
}

// LockedPercent locks the progress of a student on a course for the rest of the transaction
// and returns the percentage computed within it.
func (svc *Service) LockedPercent(ctx context.Context, studentID, courseID string, exec core.DBExecutor) (int, error) {
	if err := svc.repo.LockStudentCourse(ctx, studentID, courseID, exec); err != nil {
		return 0, errors.Wrap(err, "locking student progress")
	}
	l, err := svc.ledger(ctx, studentID, courseID, exec)
	if err != nil {
		return 0, err
	}
	return l.PercentComplete(), nil
}

// IsUnlocked reports whether a chapter is accessible to a student, with the reason when it is not.
func (svc *Service) IsUnlocked(ctx context.Context, studentID, chapterID string) (bool, string, error) {
	ch, err := svc.courses.GetChapter(ctx, chapterID)
	if err != nil {
		return false, "", err
	}
	l, err := svc.studentLedger(ctx, studentID, ch.CourseID)
	if err != nil {
		return false, "", err
	}
	unlocked, reason := l.Access(ch)
	return unlocked, reason, nil
}

func (svc *Service) CourseOverview(ctx context.Context, studentID, courseID string) (Overview, error) {
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Overview{}, err
	}
	l, err := svc.studentLedger(ctx, studentID, courseID)
	if err != nil {
		return Overview{}, err
	}
	return l.Overview(crs), nil
}

// ReportCard returns the exercise scores of a student, grouped by enrolled course.
func (svc *Service) ReportCard(ctx context.Context, studentID string) ([]CourseScores, error) {
	if _, err := svc.users.GetUser(ctx, user.GetFilter{ID: studentID}); err != nil {
		return nil, err
	}
	courses, err := svc.courses.QueryMemberCourses(ctx, studentID, course.MemberStudent)
	if err != nil {
		return nil, errors.Wrap(err, "querying student courses")
	}

	card := make([]CourseScores, 0, len(courses))
	for _, crs := range courses {
		l, err := svc.ledger(ctx, studentID, crs.ID)
		if err != nil {
			return nil, err
		}
		card = append(card, CourseScores{Course: crs, Percent: l.PercentComplete(), Scores: l.Scores()})
	}
	return card, nil
}

func (svc *Service) outline(ctx context.Context, courseID string, exec ...core.DBExecutor) (*course.Outline, error) {
	chapters, err := svc.courses.QueryChapters(ctx, courseID, "", exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	return course.NewOutline(chapters), nil
}

func (svc *Service) studentLedger(ctx context.Context, studentID, courseID string) (*Ledger, error) {
	if _, err := svc.users.GetUser(ctx, user.GetFilter{ID: studentID}); err != nil {
		return nil, err
	}
	return svc.ledger(ctx, studentID, courseID)
}

func (svc *Service) ledger(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (*Ledger, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID, exec...); err != nil {
		return nil, err
	}
	outline, err := svc.outline(ctx, courseID, exec...)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryRecords(ctx, studentID, outline.ChapterIDs(), exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return NewLedger(outline, records), nil
}
