package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

const (
	courseColumns  = "id, name, description, is_active, created_at, updated_at"
	chapterColumns = "id, course_id, title, code, url, kind, sort_order, created_at, updated_at"
)

var memberTables = map[course.Membership]string{
	course.MemberStudent: "course_students",
	course.MemberSchool:  "course_schools",
	course.MemberTeacher: "course_teachers",
}

type courseRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type chapterRow struct {
	ID        string       `db:"id"`
	CourseID  string       `db:"course_id"`
	Title     string       `db:"title"`
	Code      string       `db:"code"`
	URL       string       `db:"url"`
	Kind      string       `db:"kind"`
	Order     course.Order `db:"sort_order"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func toChapterRow(ch course.Chapter) chapterRow {
	return chapterRow{
		ID:        ch.ID,
		CourseID:  ch.CourseID,
		Title:     ch.Title,
		Code:      ch.Code,
		URL:       ch.URL,
		Kind:      string(ch.Kind),
		Order:     ch.Order,
		CreatedAt: ch.CreatedAt.UTC(),
		UpdatedAt: ch.UpdatedAt.UTC(),
	}
}

func (r chapterRow) chapter() course.Chapter {
	return course.Chapter{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Code:      r.Code,
		URL:       r.URL,
		Kind:      course.Kind(r.Kind),
		Order:     r.Order,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func chapters(rows []chapterRow) []course.Chapter {
	chs := make([]course.Chapter, 0, len(rows))
	for _, r := range rows {
		chs = append(chs, r.chapter())
	}
	return chs
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	row, err := selectOne[courseRow](ctx, repo.getExec(exec),
		`INSERT INTO courses (`+courseColumns+`) VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+courseColumns,
		crs.ID, crs.Name, crs.Description, crs.IsActive, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.course(), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrCourseNotFound
	}
	row, err := selectOne[courseRow](ctx, repo.getExec(exec), "SELECT "+courseColumns+" FROM courses WHERE id = $1", id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrCourseNotFound, "finding course")
	}
	return row.course(), nil
}

func (repo courseRepository) QueryMemberCourses(ctx context.Context, userID string, m course.Membership, exec ...core.DBExecutor) ([]course.Course, error) {
	table, ok := memberTables[m]
	if !ok {
		return nil, errors.Errorf("unknown membership %q", m)
	}
	if !isUUID(userID) {
		return []course.Course{}, nil
	}
	var rows []courseRow
	err := selectAll(ctx, repo.getExec(exec), &rows,
		`SELECT c.id, c.name, c.description, c.is_active, c.created_at, c.updated_at
		FROM courses c JOIN `+table+` m ON m.course_id = c.id
		WHERE m.user_id = $1 ORDER BY c.name, c.id`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying member courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	ch.ID = uuid.New().String()
	q, args, err := bindNamed(
		`INSERT INTO chapters (`+chapterColumns+`)
		VALUES (:id, :course_id, :title, :code, :url, :kind, :sort_order, :created_at, :updated_at)
		RETURNING `+chapterColumns,
		toChapterRow(ch),
	)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "binding chapter")
	}
	row, err := selectOne[chapterRow](ctx, repo.getExec(exec), q, args...)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return row.chapter(), nil
}

func (repo courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	if !isUUID(ch.ID) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	q, args, err := bindNamed(
		`UPDATE chapters SET title = :title, code = :code, url = :url, sort_order = :sort_order, updated_at = :updated_at
		WHERE id = :id
		RETURNING `+chapterColumns,
		toChapterRow(ch),
	)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "binding chapter")
	}
	row, err := selectOne[chapterRow](ctx, repo.getExec(exec), q, args...)
	if err != nil {
		return course.Chapter{}, trapNoRowsErr(err, course.ErrChapterNotFound, "updating chapter")
	}
	return row.chapter(), nil
}

func (repo courseRepository) GetChapter(ctx context.Context, id string, exec ...core.DBExecutor) (course.Chapter, error) {
	if !isUUID(id) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	row, err := selectOne[chapterRow](ctx, repo.getExec(exec), "SELECT "+chapterColumns+" FROM chapters WHERE id = $1", id)
	if err != nil {
		return course.Chapter{}, trapNoRowsErr(err, course.ErrChapterNotFound, "finding chapter")
	}
	return row.chapter(), nil
}

func (repo courseRepository) FindChapter(ctx context.Context, courseID string, k course.Kind, o course.Order, exec ...core.DBExecutor) (course.Chapter, error) {
	if !isUUID(courseID) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	row, err := selectOne[chapterRow](ctx, repo.getExec(exec),
		"SELECT "+chapterColumns+" FROM chapters WHERE course_id = $1 AND kind = $2 AND sort_order = $3",
		courseID, string(k), o,
	)
	if err != nil {
		return course.Chapter{}, trapNoRowsErr(err, course.ErrChapterNotFound, "finding chapter by order")
	}
	return row.chapter(), nil
}

func (repo courseRepository) QueryChapters(ctx context.Context, courseID string, k course.Kind, exec ...core.DBExecutor) ([]course.Chapter, error) {
	if !isUUID(courseID) {
		return []course.Chapter{}, nil
	}
	var rows []chapterRow
	err := selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT "+chapterColumns+" FROM chapters WHERE course_id = $1 AND ($2 = '' OR kind = $2) ORDER BY sort_order, id",
		courseID, string(k),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	return chapters(rows), nil
}

// RenumberChapters defers the (course, kind, order) unique constraint to the commit,
// so that orders can be swapped one row at a time.
func (repo courseRepository) RenumberChapters(ctx context.Context, courseID string, orders map[string]course.Order, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	if _, err := exe.ExecContext(ctx, "SET CONSTRAINTS chapters_course_kind_order_key DEFERRED"); err != nil {
		return errors.Wrap(err, "deferring chapter order constraint")
	}
	now := time.Now().UTC()
	for id, o := range orders {
		res, err := exe.ExecContext(ctx,
			"UPDATE chapters SET sort_order = $1, updated_at = $2 WHERE id = $3 AND course_id = $4",
			o, now, id, courseID,
		)
		if err != nil {
			return errors.Wrap(err, "updating chapter order")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return course.ErrChapterNotFound
		}
	}
	return nil
}

func (repo courseRepository) LockChapters(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	return advisoryLock(ctx, repo.getExec(exec), "chapters:"+courseID)
}

func (repo courseRepository) AddMembers(ctx context.Context, courseID string, m course.Membership, userIDs []string, exec ...core.DBExecutor) error {
	table, ok := memberTables[m]
	if !ok {
		return errors.Errorf("unknown membership %q", m)
	}
	exe := repo.getExec(exec)
	for _, id := range uuids(userIDs) {
		_, err := exe.ExecContext(ctx,
			"INSERT INTO "+table+" (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			courseID, id,
		)
		if err != nil {
			return errors.Wrapf(err, "inserting %s", m)
		}
	}
	return nil
}

func (repo courseRepository) RemoveMembers(ctx context.Context, courseID string, m course.Membership, userIDs []string, exec ...core.DBExecutor) error {
	table, ok := memberTables[m]
	if !ok {
		return errors.Errorf("unknown membership %q", m)
	}
	ids := uuids(userIDs)
	if len(ids) == 0 || !isUUID(courseID) {
		return nil
	}
	q, args, err := bindIn("DELETE FROM "+table+" WHERE course_id = ? AND user_id IN (?)", courseID, ids)
	if err != nil {
		return errors.Wrap(err, "binding member IDs")
	}
	_, err = repo.getExec(exec).ExecContext(ctx, q, args...)
	return errors.Wrapf(err, "deleting %ss", m)
}

func (repo courseRepository) IsMember(ctx context.Context, courseID, userID string, m course.Membership, exec ...core.DBExecutor) (bool, error) {
	table, ok := memberTables[m]
	if !ok {
		return false, errors.Errorf("unknown membership %q", m)
	}
	if !isUUID(courseID) || !isUUID(userID) {
		return false, nil
	}
	var found bool
	err := repo.getExec(exec).QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE course_id = $1 AND user_id = $2)",
		courseID, userID,
	).Scan(&found)
	return found, errors.Wrap(err, "checking membership")
}
