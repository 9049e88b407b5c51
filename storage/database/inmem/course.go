package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = newID()
	repo.db.t.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.t.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) QueryMemberCourses(_ context.Context, userID string, m course.Membership, exec ...core.DBExecutor) ([]course.Course, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for courseID, ids := range repo.db.t.members[m] {
		if _, ok := ids[userID]; ok {
			if crs, ok := repo.db.t.courses[courseID]; ok {
				courses = append(courses, crs)
			}
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Name != courses[j].Name {
			return courses[i].Name < courses[j].Name
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

// checkOrderUnique mimics the (course_id, kind, sort_order) unique constraint.
func (repo *courseRepository) checkOrderUnique(ch course.Chapter) error {
	if repo.db.deferOrders {
		return nil
	}
	for _, other := range repo.db.t.chapters {
		if other.ID != ch.ID && other.CourseID == ch.CourseID && other.Kind == ch.Kind && other.Order == ch.Order {
			return errors.Errorf("duplicate chapter order %s for %s", ch.Order, ch.Kind)
		}
	}
	return nil
}

func (repo *courseRepository) CreateChapter(_ context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.courses[ch.CourseID]; !ok {
		return course.Chapter{}, course.ErrCourseNotFound
	}
	ch.ID = newID()
	if err := repo.checkOrderUnique(ch); err != nil {
		return course.Chapter{}, err
	}
	repo.db.t.chapters[ch.ID] = ch
	return ch, nil
}

func (repo *courseRepository) UpdateChapter(_ context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.chapters[ch.ID]; !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	if err := repo.checkOrderUnique(ch); err != nil {
		return course.Chapter{}, err
	}
	repo.db.t.chapters[ch.ID] = ch
	return ch, nil
}

func (repo *courseRepository) GetChapter(_ context.Context, id string, exec ...core.DBExecutor) (course.Chapter, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ch, ok := repo.db.t.chapters[id]; ok {
		return ch, nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) FindChapter(_ context.Context, courseID string, k course.Kind, o course.Order, exec ...core.DBExecutor) (course.Chapter, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, ch := range repo.db.t.chapters {
		if ch.CourseID == courseID && ch.Kind == k && ch.Order == o {
			return ch, nil
		}
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) QueryChapters(_ context.Context, courseID string, k course.Kind, exec ...core.DBExecutor) ([]course.Chapter, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.t.chapters {
		if ch.CourseID == courseID && (k == "" || ch.Kind == k) {
			chapters = append(chapters, ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		if c := chapters[i].Order.Compare(chapters[j].Order); c != 0 {
			return c < 0
		}
		return chapters[i].ID < chapters[j].ID
	})
	return chapters, nil
}

func (repo *courseRepository) RenumberChapters(_ context.Context, courseID string, orders map[string]course.Order, exec ...core.DBExecutor) error {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// like the deferred constraint, uniqueness is checked when the transaction ends
	repo.db.deferOrders = true
	for id, o := range orders {
		ch, ok := repo.db.t.chapters[id]
		if !ok || ch.CourseID != courseID {
			return course.ErrChapterNotFound
		}
		ch.Order = o
		repo.db.t.chapters[id] = ch
	}
	return nil
}

// LockChapters is a no-op: transactions are already serialized.
func (repo *courseRepository) LockChapters(context.Context, string, ...core.DBExecutor) error {
	return nil
}

func (repo *courseRepository) AddMembers(_ context.Context, courseID string, m course.Membership, userIDs []string, exec ...core.DBExecutor) error {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.courses[courseID]; !ok {
		return course.ErrCourseNotFound
	}
	byCourse, ok := repo.db.t.members[m]
	if !ok {
		byCourse = make(map[string]map[string]struct{})
		repo.db.t.members[m] = byCourse
	}
	ids, ok := byCourse[courseID]
	if !ok {
		ids = make(map[string]struct{})
		byCourse[courseID] = ids
	}
	for _, id := range userIDs {
		ids[id] = struct{}{}
	}
	return nil
}

func (repo *courseRepository) RemoveMembers(_ context.Context, courseID string, m course.Membership, userIDs []string, exec ...core.DBExecutor) error {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ids := repo.db.t.members[m][courseID]
	for _, id := range userIDs {
		delete(ids, id)
	}
	return nil
}

func (repo *courseRepository) IsMember(_ context.Context, courseID, userID string, m course.Membership, exec ...core.DBExecutor) (bool, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.t.members[m][courseID][userID]
	return ok, nil
}
