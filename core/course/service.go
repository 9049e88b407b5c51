package course

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrCourseNotFound     = core.NewError(core.CodeNotFound, "course not found")
	ErrChapterNotFound    = core.NewError(core.CodeNotFound, "chapter not found")
	ErrNotEnrolled        = core.NewError(core.CodeNotEnrolled, "student is not enrolled in this course")
	ErrInvalidChapterKind = core.NewError(core.CodeInvalidChapterKind, "operation not allowed on this kind of chapter")
	ErrOrderConflict      = core.NewError(core.CodeConflict, "another chapter of the same kind already has this order")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// QueryMemberCourses returns the courses userID is a member of, ordered by name.
		QueryMemberCourses(ctx context.Context, userID string, m Membership, exec ...core.DBExecutor) ([]Course, error)

		CreateChapter(ctx context.Context, ch Chapter, exec ...core.DBExecutor) (Chapter, error)
		UpdateChapter(ctx context.Context, ch Chapter, exec ...core.DBExecutor) (Chapter, error)
		GetChapter(ctx context.Context, id string, exec ...core.DBExecutor) (Chapter, error)
		// FindChapter returns the chapter of kind k at order o, or ErrChapterNotFound.
		FindChapter(ctx context.Context, courseID string, k Kind, o Order, exec ...core.DBExecutor) (Chapter, error)
		// QueryChapters returns the chapters of a course ordered by (order, id), all kinds if k is empty.
		QueryChapters(ctx context.Context, courseID string, k Kind, exec ...core.DBExecutor) ([]Chapter, error)
		// RenumberChapters sets the orders of the given chapters ({chapterID: order}) at once.
		RenumberChapters(ctx context.Context, courseID string, orders map[string]Order, exec ...core.DBExecutor) error
		// LockChapters serializes chapter writes on a course until the end of the transaction.
		LockChapters(ctx context.Context, courseID string, exec ...core.DBExecutor) error

		AddMembers(ctx context.Context, courseID string, m Membership, userIDs []string, exec ...core.DBExecutor) error
		RemoveMembers(ctx context.Context, courseID string, m Membership, userIDs []string, exec ...core.DBExecutor) error
		IsMember(ctx context.Context, courseID, userID string, m Membership, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		repo      Repository
		users     user.Repository
		tx        core.Transactor
		validator *core.Validator
		logger    core.Logger
	}
)

func NewService(repo Repository, users user.Repository, tx core.Transactor, v *core.Validator, logger core.Logger) *Service {
	RegisterValidators(v)
	return &Service{
		repo:      repo,
		users:     users,
		tx:        tx,
		validator: v,
		logger:    logger,
	}
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validator); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	crs, err := svc.repo.CreateCourse(ctx, Course{
		Name:        nc.Name,
		Description: nc.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return crs, errors.Wrap(err, "creating course")
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) GetChapter(ctx context.Context, id string) (Chapter, error) {
	return svc.repo.GetChapter(ctx, id)
}

// Outline returns the Outline of an existing course.
func (svc *Service) Outline(ctx context.Context, courseID string) (*Outline, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	chapters, err := svc.repo.QueryChapters(ctx, courseID, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	return NewOutline(chapters), nil
}

// NextOrder suggests the order of a new chapter of kind k: right after the last one of its kind.
func (svc *Service) NextOrder(ctx context.Context, courseID string, k Kind) (Order, error) {
	if !k.IsValid() {
		return Order{}, core.NewValidationError(nil, core.FieldError{Field: "kind", Error: chapterKindText})
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Order{}, err
	}
	chapters, err := svc.repo.QueryChapters(ctx, courseID, k)
	if err != nil {
		return Order{}, errors.Wrap(err, "querying chapters")
	}
	return nextOrder(chapters, k), nil
}

func nextOrder(chapters []Chapter, k Kind) Order {
	var last int
	for _, ch := range chapters {
		if ch.Order.Whole > last {
			last = ch.Order.Whole
		}
	}
	return slot(k, last+1)
}

func slot(k Kind, n int) Order {
	if k == KindExercise {
		return ExerciseOrder(n)
	}
	return LessonOrder(n)
}

func (svc *Service) CreateChapter(ctx context.Context, nc NewChapter) (Chapter, error) {
	if err := nc.Validate(svc.validator); err != nil {
		return Chapter{}, err
	}

	var created Chapter
	err := svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetCourse(ctx, nc.CourseID, exec); err != nil {
			return err
		}
		if err := svc.repo.LockChapters(ctx, nc.CourseID, exec); err != nil {
			return errors.Wrap(err, "locking chapters")
		}

		var order Order
		if nc.Order != nil {
			order = *nc.Order
			if err := svc.claimOrder(ctx, nc.CourseID, nc.Kind, order, "", nc.Reorder, exec); err != nil {
				return err
			}
		} else {
			chapters, err := svc.repo.QueryChapters(ctx, nc.CourseID, nc.Kind, exec)
			if err != nil {
				return errors.Wrap(err, "querying chapters")
			}
			order = nextOrder(chapters, nc.Kind)
		}

		now := time.Now().UTC()
		var err error
		created, err = svc.repo.CreateChapter(ctx, Chapter{
			CourseID:  nc.CourseID,
			Title:     nc.Title,
			Code:      nc.Code,
			URL:       nc.URL,
			Kind:      nc.Kind,
			Order:     order,
			CreatedAt: now,
			UpdatedAt: now,
		}, exec)
		return errors.Wrap(err, "creating chapter")
	})
	return created, err
}

func (svc *Service) UpdateChapter(ctx context.Context, id string, uc UpdateChapter) (Chapter, error) {
	var updated Chapter
	err := svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		orig, err := svc.repo.GetChapter(ctx, id, exec)
		if err != nil {
			return err
		}
		if err = uc.Validate(orig, svc.validator); err != nil {
			return err
		}
		if err = svc.repo.LockChapters(ctx, orig.CourseID, exec); err != nil {
			return errors.Wrap(err, "locking chapters")
		}

		ch := orig
		ch.Title = uc.Title
		ch.Code = uc.Code
		ch.URL = uc.URL
		ch.UpdatedAt = time.Now().UTC()
		if uc.Order != nil && *uc.Order != orig.Order {
			if err = svc.claimOrder(ctx, orig.CourseID, orig.Kind, *uc.Order, orig.ID, uc.Reorder, exec); err != nil {
				return err
			}
			ch.Order = *uc.Order
		}

		updated, err = svc.repo.UpdateChapter(ctx, ch, exec)
		return errors.Wrap(err, "updating chapter")
	})
	return updated, err
}

// claimOrder makes order available to chapterID (empty for a new chapter).
// An order held by another chapter is a conflict unless reorder is set,
// in which case the other chapters of the kind are renumbered around it.
func (svc *Service) claimOrder(ctx context.Context, courseID string, k Kind, order Order, chapterID string, reorder bool, exec core.DBExecutor) error {
	holder, err := svc.repo.FindChapter(ctx, courseID, k, order, exec)
	switch {
	case errors.Cause(err) == ErrChapterNotFound:
		return nil
	case err != nil:
		return errors.Wrap(err, "finding chapter by order")
	case holder.ID == chapterID:
		return nil
	case !reorder:
		return ErrOrderConflict
	}
	return svc.renumber(ctx, courseID, k, &order, chapterID, exec)
}

// ReorderChapters renumbers the chapters of kind k from 1 by their current order, ties broken by ID.
// Exercises keep their .5 slot.
func (svc *Service) ReorderChapters(ctx context.Context, courseID string, k Kind) error {
	if !k.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "kind", Error: chapterKindText})
	}
	return svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetCourse(ctx, courseID, exec); err != nil {
			return err
		}
		if err := svc.repo.LockChapters(ctx, courseID, exec); err != nil {
			return errors.Wrap(err, "locking chapters")
		}
		return svc.renumber(ctx, courseID, k, nil, "", exec)
	})
}

// renumber assigns 1..N to the chapters of kind k, leaving out the chapter excludedID and skipping the reserved slot.
func (svc *Service) renumber(ctx context.Context, courseID string, k Kind, reserved *Order, excludedID string, exec core.DBExecutor) error {
	chapters, err := svc.repo.QueryChapters(ctx, courseID, k, exec)
	if err != nil {
		return errors.Wrap(err, "querying chapters")
	}
	sortChapters(chapters)

	orders := make(map[string]Order)
	n := 1
	for _, ch := range chapters {
		if ch.ID == excludedID {
			continue
		}
		o := slot(k, n)
		if reserved != nil && o == *reserved {
			n++
			o = slot(k, n)
		}
		if o != ch.Order {
			orders[ch.ID] = o
		}
		n++
	}
	if len(orders) == 0 {
		return nil
	}
	all, err := svc.repo.QueryChapters(ctx, courseID, "", exec)
	if err != nil {
		return errors.Wrap(err, "querying chapters")
	}
	if err = svc.repo.RenumberChapters(ctx, courseID, orders, exec); err != nil {
		return errors.Wrap(err, "renumbering chapters")
	}
	svc.logger.Info(fmt.Sprintf("renumbered %d %s(s) of course %s", len(orders), k, courseID))
	for _, rp := range repairedExercises(all, k, orders, reserved, excludedID) {
		svc.logger.Warn(fmt.Sprintf("exercise %s of course %s changes paired lesson", rp.exercise.ID, courseID), map[string]interface{}{
			"exercise":        rp.exercise.Title,
			"previous_lesson": rp.prev,
			"lesson":          rp.next,
		})
	}
	return nil
}

type repairing struct {
	exercise   Chapter
	prev, next string // lesson IDs, empty for none
}

// repairedExercises returns the exercises of chapters whose paired lesson changes once the chapters of kind k
// take their new orders and excludedID (or the chapter being created, when empty) takes the reserved slot.
func repairedExercises(chapters []Chapter, k Kind, orders map[string]Order, reserved *Order, excludedID string) []repairing {
	const newLesson = "(new lesson)"
	before := make(map[int]string)
	after := make(map[int]string)
	if reserved != nil && k == KindLesson && excludedID == "" {
		after[reserved.Whole] = newLesson
	}
	type move struct {
		ex       Chapter
		newWhole int
	}
	var exercises []move
	for _, ch := range chapters {
		o := ch.Order
		if newOrder, ok := orders[ch.ID]; ok {
			o = newOrder
		}
		if reserved != nil && ch.ID == excludedID {
			o = *reserved
		}
		if ch.IsLesson() {
			before[ch.Order.Whole] = ch.ID
			after[o.Whole] = ch.ID
		} else {
			exercises = append(exercises, move{ch, o.Whole})
		}
	}

	var res []repairing
	for _, m := range exercises {
		prev, next := before[m.ex.Order.Whole], after[m.newWhole]
		if prev != next {
			res = append(res, repairing{exercise: m.ex, prev: prev, next: next})
		}
	}
	return res
}

// Enroll adds students to a course; already enrolled students are left untouched.
func (svc *Service) Enroll(ctx context.Context, courseID string, studentIDs ...string) error {
	return svc.addMembers(ctx, courseID, MemberStudent, user.KindStudent, "student_ids", studentIDs)
}

func (svc *Service) Unenroll(ctx context.Context, courseID string, studentIDs ...string) error {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.RemoveMembers(ctx, courseID, MemberStudent, studentIDs), "removing students")
}

func (svc *Service) AssignSchools(ctx context.Context, courseID string, schoolIDs ...string) error {
	return svc.addMembers(ctx, courseID, MemberSchool, user.KindSchool, "school_ids", schoolIDs)
}

func (svc *Service) AssignTeachers(ctx context.Context, courseID string, teacherIDs ...string) error {
	return svc.addMembers(ctx, courseID, MemberTeacher, user.KindTeacher, "teacher_ids", teacherIDs)
}

func (svc *Service) addMembers(ctx context.Context, courseID string, m Membership, kind user.Kind, field string, userIDs []string) error {
	if len(userIDs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}

	users, err := svc.users.QueryUsersByID(ctx, userIDs)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	found := make(map[string]user.User, len(users))
	for _, usr := range users {
		found[usr.ID] = usr
	}
	for _, id := range userIDs {
		usr, ok := found[id]
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: fmt.Sprintf("unknown user %q", id)})
		}
		if usr.Kind != kind {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: fmt.Sprintf("user %q is not a %s", id, kind)})
		}
	}

	return svc.tx.Atomic(ctx, func(exec core.DBExecutor) error {
		return errors.Wrapf(svc.repo.AddMembers(ctx, courseID, m, userIDs, exec), "adding %ss", m)
	})
}

func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return svc.repo.IsMember(ctx, courseID, studentID, MemberStudent)
}

// CanAccess reports whether usr may see the course:
// students must be enrolled, schools and teachers must be associated with it.
func (svc *Service) CanAccess(ctx context.Context, usr user.User, courseID string) (bool, error) {
	var m Membership
	switch usr.Kind {
	case user.KindStudent:
		m = MemberStudent
	case user.KindSchool:
		m = MemberSchool
	case user.KindTeacher:
		m = MemberTeacher
	default:
		return false, errors.Errorf("unknown user kind %q", usr.Kind)
	}
	if !usr.IsActive {
		return false, nil
	}
	return svc.repo.IsMember(ctx, courseID, usr.ID, m)
}

// StudentCourses returns the courses a student is enrolled in.
func (svc *Service) StudentCourses(ctx context.Context, studentID string) ([]Course, error) {
	return svc.repo.QueryMemberCourses(ctx, studentID, MemberStudent)
}
