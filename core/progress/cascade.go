package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

// cascade applies the writes derived from rec, within the transaction of its upsert.
// An approved exercise completes its paired lesson and opens the next lesson.
// A completed lesson derives nothing.
func (svc *Service) cascade(ctx context.Context, outline *course.Outline, ch course.Chapter, rec Record, now time.Time, exec core.DBExecutor) (Effects, error) {
	var eff Effects
	if !ch.IsExercise() || !rec.Approved() {
		return eff, nil
	}
	eff.Approved = true

	if lesson, ok := outline.LessonFor(ch); ok {
		completed, err := svc.repo.UpsertCompleted(ctx, rec.StudentID, lesson.ID, now, exec)
		if err != nil {
			return Effects{}, errors.Wrap(err, "completing paired lesson")
		}
		eff.CompletedLesson = &completed
	}

	if next, ok := outline.Successor(ch); ok {
		opened, created, err := svc.repo.InsertIfAbsent(ctx, rec.StudentID, next.ID, now, exec)
		if err != nil {
			return Effects{}, errors.Wrap(err, "opening next lesson")
		}
		if created {
			eff.OpenedLesson = &opened
		}
	}
	return eff, nil
}
