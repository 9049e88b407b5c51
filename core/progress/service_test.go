package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	. "github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

type mathCourse struct {
	course.Course
	lesson1, exercise1, lesson2, lesson3 course.Chapter
	student                              user.User
}

// newMathCourse seeds: lesson 1, exercise 1.5, lesson 2 (no exercise), lesson 3 (no exercise),
// and an enrolled student.
func newMathCourse(t *testing.T, env *testutil.Env) mathCourse {
	crs := env.CreateCourse(t, "Math")
	m := mathCourse{
		Course:    crs,
		lesson1:   env.CreateChapter(t, crs.ID, "Numbers", course.KindLesson, "1"),
		exercise1: env.CreateChapter(t, crs.ID, "Numbers quiz", course.KindExercise, "1.5"),
		lesson2:   env.CreateChapter(t, crs.ID, "Sets", course.KindLesson, "2"),
		lesson3:   env.CreateChapter(t, crs.ID, "Logic", course.KindLesson, "3"),
		student:   env.CreateUser(t, "Jo", "", user.KindStudent),
	}
	env.Enroll(t, crs.ID, m.student)
	return m
}

func percent(t *testing.T, env *testutil.Env, studentID, courseID string) int {
	t.Helper()
	p, err := env.ProgressSvc.PercentComplete(context.Background(), studentID, courseID)
	require.NoError(t, err)
	assert.True(t, p >= 0 && p <= 100)
	return p
}

func unlocked(t *testing.T, env *testutil.Env, studentID, chapterID string) (bool, string) {
	t.Helper()
	ok, reason, err := env.ProgressSvc.IsUnlocked(context.Background(), studentID, chapterID)
	require.NoError(t, err)
	return ok, reason
}

func TestService_RecordScore_errors(t *testing.T) {
	env := testutil.NewInmemEnv()
	m := newMathCourse(t, env)
	stranger := env.CreateUser(t, "Mo", "", user.KindStudent)

	tests := []struct {
		name      string
		studentID string
		chapterID string
		score     float64
		wantErr   error
		wantCode  core.ErrorCode
	}{
		{name: "unknown student", studentID: "ghost", chapterID: m.exercise1.ID, score: 9, wantErr: user.ErrNotFound, wantCode: core.CodeNotFound},
		{name: "unknown chapter", studentID: m.student.ID, chapterID: "ghost", score: 9, wantErr: course.ErrChapterNotFound, wantCode: core.CodeNotFound},
		{
			name: "lesson", studentID: m.student.ID, chapterID: m.lesson1.ID, score: 9,
			wantErr: course.ErrInvalidChapterKind, wantCode: core.CodeInvalidChapterKind,
		},
		{
			name: "not enrolled", studentID: stranger.ID, chapterID: m.exercise1.ID, score: 9,
			wantErr: course.ErrNotEnrolled, wantCode: core.CodeNotEnrolled,
		},
		{name: "negative", studentID: m.student.ID, chapterID: m.exercise1.ID, score: -0.5, wantCode: core.CodeValidation},
		{name: "above max", studentID: m.student.ID, chapterID: m.exercise1.ID, score: 10.01, wantCode: core.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.ProgressSvc.RecordScore(context.Background(), tt.studentID, tt.chapterID, tt.score)
			assert.Equal(t, tt.wantCode, core.Code(err), "got %v", err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			}
		})
	}

	recs, err := env.ProgressSvc.GetProgress(context.Background(), m.student.ID, m.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// approving the only exercise of the course opens the next lesson
func TestService_RecordScore_approved(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	crs := env.CreateCourse(t, "Math")
	lesson1 := env.CreateChapter(t, crs.ID, "Numbers", course.KindLesson, "1")
	exercise1 := env.CreateChapter(t, crs.ID, "Numbers quiz", course.KindExercise, "1.5")
	student := env.CreateUser(t, "Jo", "", user.KindStudent)
	env.Enroll(t, crs.ID, student)

	rec, eff, err := env.ProgressSvc.RecordScore(ctx, student.ID, exercise1.ID, 9)
	require.NoError(t, err)
	assert.True(t, rec.Completed)
	assert.Equal(t, 9.0, rec.Score.Float64)
	assert.True(t, eff.Approved)
	if assert.NotNil(t, eff.CompletedLesson) {
		assert.Equal(t, lesson1.ID, eff.CompletedLesson.ChapterID)
		assert.True(t, eff.CompletedLesson.Completed)
	}
	assert.Nil(t, eff.OpenedLesson, "no next lesson")
	assert.Equal(t, 100, percent(t, env, student.ID, crs.ID))

	// with a second lesson
	lesson2 := env.CreateChapter(t, crs.ID, "Sets", course.KindLesson, "2")
	assert.Equal(t, 50, percent(t, env, student.ID, crs.ID))

	_, eff, err = env.ProgressSvc.RecordScore(ctx, student.ID, exercise1.ID, 9)
	require.NoError(t, err)
	if assert.NotNil(t, eff.OpenedLesson) {
		assert.Equal(t, lesson2.ID, eff.OpenedLesson.ChapterID)
		assert.False(t, eff.OpenedLesson.Completed)
		assert.False(t, eff.OpenedLesson.Score.Valid)
	}
	ok, reason := unlocked(t, env, student.ID, lesson2.ID)
	assert.True(t, ok)
	assert.Empty(t, reason)

	// the opened record is not created twice
	_, eff, err = env.ProgressSvc.RecordScore(ctx, student.ID, exercise1.ID, 9)
	require.NoError(t, err)
	assert.Nil(t, eff.OpenedLesson)
}

func TestService_RecordScore_concurrent(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)

	const n = 10
	var wg sync.WaitGroup
	effects := make([]Effects, n)
	errs := make([]error, n+1)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, effects[i], errs[i] = env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 8+float64(i)/10)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[n] = env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.lesson1.ID)
	}()
	wg.Wait()

	opened := 0
	for i, eff := range effects {
		require.NoError(t, errs[i])
		assert.True(t, eff.Approved)
		assert.NotNil(t, eff.CompletedLesson)
		if eff.OpenedLesson != nil {
			opened++
		}
	}
	require.NoError(t, errs[n])
	assert.Equal(t, 1, opened, "the next lesson is opened once")

	recs, err := env.ProgressSvc.GetProgress(ctx, m.student.ID, m.ID)
	require.NoError(t, err)
	if assert.Len(t, recs, 3, "one record per chapter") {
		assert.Equal(t, m.lesson1.ID, recs[0].ChapterID)
		assert.True(t, recs[0].Completed)
		assert.Equal(t, m.exercise1.ID, recs[1].ChapterID)
		assert.True(t, recs[1].Score.Float64 >= 8 && recs[1].Score.Float64 <= 8.9, "one of the recorded scores")
		assert.Equal(t, m.lesson2.ID, recs[2].ChapterID)
		assert.False(t, recs[2].Completed)
	}
	assert.Equal(t, 33, percent(t, env, m.student.ID, m.ID))
}

func TestService_RecordScore_failed(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)

	rec, eff, err := env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 5)
	require.NoError(t, err)
	assert.False(t, rec.Completed)
	assert.Equal(t, 5.0, rec.Score.Float64)
	assert.Equal(t, Effects{}, eff)

	ok, reason := unlocked(t, env, m.student.ID, m.lesson2.ID)
	assert.False(t, ok)
	assert.Equal(t, "complete previous exercise with score ≥ 8", reason)

	recs, err := env.ProgressSvc.GetProgress(ctx, m.student.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "no cascade to the next lesson")
	assert.Equal(t, 0, percent(t, env, m.student.ID, m.ID))

	// just below the threshold
	rec, _, err = env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 7.999)
	require.NoError(t, err)
	assert.Equal(t, 8.0, rec.Score.Float64, "scores are rounded to 2 decimals")
	assert.True(t, rec.Completed)
}

func TestService_RecordScore_idempotent(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)

	state := func() []Record {
		recs, err := env.ProgressSvc.GetProgress(ctx, m.student.ID, m.ID)
		require.NoError(t, err)
		for i := range recs {
			recs[i].UpdatedAt = time.Time{}
		}
		return recs
	}

	_, _, err := env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 8.5)
	require.NoError(t, err)
	once := state()
	p := percent(t, env, m.student.ID, m.ID)

	_, _, err = env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 8.5)
	require.NoError(t, err)
	assert.Equal(t, once, state())
	assert.Equal(t, p, percent(t, env, m.student.ID, m.ID))
}

func TestService_RecordScore_lowerScore(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)

	_, _, err := env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 9)
	require.NoError(t, err)

	rec, _, err := env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 3)
	require.NoError(t, err)
	assert.False(t, rec.Completed, "the last score wins")

	ov, err := env.ProgressSvc.CourseOverview(ctx, m.student.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, ov.Lessons[0].Completed, "the lesson stays completed")
	assert.False(t, ov.Lessons[0].Done)
}

func TestService_MarkCompleted(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)
	stranger := env.CreateUser(t, "Mo", "", user.KindStudent)

	t.Run("exercise", func(t *testing.T) {
		_, err := env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.exercise1.ID)
		assert.Equal(t, course.ErrInvalidChapterKind, errors.Cause(err))
	})

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.ProgressSvc.MarkCompleted(ctx, stranger.ID, m.lesson1.ID)
		assert.Equal(t, course.ErrNotEnrolled, errors.Cause(err))
	})

	t.Run("lesson with exercise", func(t *testing.T) {
		rec, err := env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.lesson1.ID)
		require.NoError(t, err)
		assert.True(t, rec.Completed)
		assert.Equal(t, 0, percent(t, env, m.student.ID, m.ID), "the exercise must be approved")

		ok, _ := unlocked(t, env, m.student.ID, m.exercise1.ID)
		assert.True(t, ok)
	})

	t.Run("lesson without exercise", func(t *testing.T) {
		rec, err := env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.lesson3.ID)
		require.NoError(t, err)
		assert.True(t, rec.Completed)
		assert.False(t, rec.Score.Valid)
		assert.Equal(t, 33, percent(t, env, m.student.ID, m.ID))

		// done stays done
		for i := 0; i < 3; i++ {
			assert.Equal(t, 33, percent(t, env, m.student.ID, m.ID))
		}
		_, err = env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.lesson3.ID)
		require.NoError(t, err)
		assert.Equal(t, 33, percent(t, env, m.student.ID, m.ID))
	})
}

func TestService_IsUnlocked(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)

	_, _, err := env.ProgressSvc.IsUnlocked(ctx, m.student.ID, "ghost")
	assert.Equal(t, course.ErrChapterNotFound, errors.Cause(err))

	ok, reason := unlocked(t, env, m.student.ID, m.lesson1.ID)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = unlocked(t, env, m.student.ID, m.exercise1.ID)
	assert.False(t, ok)
	assert.Equal(t, ReasonLessonFirst, reason)

	ok, reason = unlocked(t, env, m.student.ID, m.lesson3.ID)
	assert.False(t, ok)
	assert.Equal(t, ReasonPreviousChapter, reason)

	_, err = env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.lesson1.ID)
	require.NoError(t, err)
	_, _, err = env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 10)
	require.NoError(t, err)
	_, err = env.ProgressSvc.MarkCompleted(ctx, m.student.ID, m.lesson2.ID)
	require.NoError(t, err)

	for _, ch := range []course.Chapter{m.lesson1, m.exercise1, m.lesson2, m.lesson3} {
		ok, _ = unlocked(t, env, m.student.ID, ch.ID)
		assert.True(t, ok, ch.Title)
	}
}

func TestService_reads(t *testing.T) {
	env := testutil.NewInmemEnv()
	ctx := context.Background()
	m := newMathCourse(t, env)
	art := env.CreateCourse(t, "Art")
	env.Enroll(t, art.ID, m.student)

	_, _, err := env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 8)
	require.NoError(t, err)

	t.Run("GetProgress", func(t *testing.T) {
		recs, err := env.ProgressSvc.GetProgress(ctx, m.student.ID, m.ID)
		require.NoError(t, err)
		ids := make([]string, 0, len(recs))
		for _, r := range recs {
			ids = append(ids, r.ChapterID)
		}
		assert.Equal(t, []string{m.lesson1.ID, m.exercise1.ID, m.lesson2.ID}, ids)

		_, err = env.ProgressSvc.GetProgress(ctx, "ghost", m.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		_, err = env.ProgressSvc.GetProgress(ctx, m.student.ID, "ghost")
		assert.Equal(t, course.ErrCourseNotFound, errors.Cause(err))
	})

	t.Run("CourseOverview", func(t *testing.T) {
		ov, err := env.ProgressSvc.CourseOverview(ctx, m.student.ID, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.Course, ov.Course)
		assert.Equal(t, 33, ov.Percent)
		require.Len(t, ov.Lessons, 3)
		assert.True(t, ov.Lessons[1].Unlocked)
		assert.False(t, ov.Lessons[2].Unlocked)
		assert.Equal(t, ReasonPreviousChapter, ov.Lessons[2].Reason)
	})

	t.Run("ReportCard", func(t *testing.T) {
		card, err := env.ProgressSvc.ReportCard(ctx, m.student.ID)
		require.NoError(t, err)
		require.Len(t, card, 2)
		assert.Equal(t, "Art", card[0].Course.Name)
		assert.Empty(t, card[0].Scores)
		assert.Equal(t, "Math", card[1].Course.Name)
		assert.Equal(t, 33, card[1].Percent)
		if assert.Len(t, card[1].Scores, 1) {
			assert.Equal(t, 8.0, card[1].Scores[0].Score.Float64)
		}

		_, err = env.ProgressSvc.ReportCard(ctx, "ghost")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}

var errBoom = errors.New("boom")

// failingRepository fails when the cascade opens the next lesson.
type failingRepository struct {
	Repository
}

func (failingRepository) InsertIfAbsent(context.Context, string, string, time.Time, ...core.DBExecutor) (Record, bool, error) {
	return Record{}, false, errBoom
}

func TestService_RecordScore_rollback(t *testing.T) {
	db := inmemdb.NewDB()
	env := testutil.NewEnv(testutil.Repos{
		Users:        inmemdb.NewUserRepository(db),
		Courses:      inmemdb.NewCourseRepository(db),
		Progress:     failingRepository{inmemdb.NewProgressRepository(db)},
		Certificates: inmemdb.NewCertificateRepository(db),
		Tx:           db,
	})
	ctx := context.Background()
	m := newMathCourse(t, env)

	_, _, err := env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 9)
	assert.Equal(t, errBoom, errors.Cause(err))

	recs, err := env.ProgressSvc.GetProgress(ctx, m.student.ID, m.ID)
	require.NoError(t, err)
	assert.Empty(t, recs, "neither the score nor the completed lesson are kept")

	// a failed score does not cascade, so it is saved
	_, _, err = env.ProgressSvc.RecordScore(ctx, m.student.ID, m.exercise1.ID, 4)
	require.NoError(t, err)
	recs, err = env.ProgressSvc.GetProgress(ctx, m.student.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
