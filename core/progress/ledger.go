package progress

import (
	"github.com/trezcool/academia/core/course"
)

// Ledger is a read-only view of a student's records over a course outline.
type Ledger struct {
	outline *course.Outline
	records map[string]Record // {chapterID: Record}
}

func NewLedger(outline *course.Outline, records []Record) *Ledger {
	l := &Ledger{
		outline: outline,
		records: make(map[string]Record, len(records)),
	}
	for _, r := range records {
		l.records[r.ChapterID] = r
	}
	return l
}

func (l *Ledger) Outline() *course.Outline { return l.outline }

func (l *Ledger) Record(chapterID string) (Record, bool) {
	r, ok := l.records[chapterID]
	return r, ok
}

// LessonDone reports whether a lesson counts as done:
// its paired exercise is approved, or it has no exercise and was completed.
func (l *Ledger) LessonDone(lesson course.Chapter) bool {
	if ex, ok := l.outline.ExerciseFor(lesson); ok {
		return l.records[ex.ID].Approved()
	}
	return l.records[lesson.ID].Completed
}

// PercentComplete returns floor(100 * done / lessons), 0 for a course without lessons.
func (l *Ledger) PercentComplete() int {
	lessons := l.outline.Lessons()
	if len(lessons) == 0 {
		return 0
	}
	var done int
	for _, lesson := range lessons {
		if l.LessonDone(lesson) {
			done++
		}
	}
	return 100 * done / len(lessons)
}

// Access reports whether ch is accessible, with the reason when it is not.
func (l *Ledger) Access(ch course.Chapter) (bool, string) {
	switch ch.Kind {
	case course.KindLesson:
		return l.LessonAccess(ch)
	case course.KindExercise:
		return l.ExerciseAccess(ch)
	}
	return false, ""
}

// LessonAccess unlocks the first lesson, then each lesson once its predecessor is done.
func (l *Ledger) LessonAccess(lesson course.Chapter) (bool, string) {
	prev, ok := l.outline.Predecessor(lesson)
	if !ok {
		return l.outline.Position(lesson) == 0, ""
	}
	if l.LessonDone(prev) {
		return true, ""
	}
	if _, ok := l.outline.ExerciseFor(prev); ok {
		return false, ReasonPreviousExercise
	}
	return false, ReasonPreviousChapter
}

// ExerciseAccess opens an exercise once its paired lesson was completed.
func (l *Ledger) ExerciseAccess(exercise course.Chapter) (bool, string) {
	lesson, ok := l.outline.LessonFor(exercise)
	if !ok {
		return false, ReasonNoLesson
	}
	if l.records[lesson.ID].Completed {
		return true, ""
	}
	return false, ReasonLessonFirst
}

// Overview builds the status of every lesson of the course.
func (l *Ledger) Overview(crs course.Course) Overview {
	lessons := l.outline.Lessons()
	ov := Overview{
		Course:  crs,
		Percent: l.PercentComplete(),
		Lessons: make([]LessonStatus, 0, len(lessons)),
	}
	for _, lesson := range lessons {
		st := LessonStatus{
			Chapter:   lesson,
			Done:      l.LessonDone(lesson),
			Completed: l.records[lesson.ID].Completed,
		}
		st.Unlocked, st.Reason = l.LessonAccess(lesson)
		if ex, ok := l.outline.ExerciseFor(lesson); ok {
			r := l.records[ex.ID]
			exSt := &ExerciseStatus{Chapter: ex, Score: r.Score, Completed: r.Completed}
			exSt.Accessible, exSt.Reason = l.ExerciseAccess(ex)
			st.Exercise = exSt
		}
		ov.Lessons = append(ov.Lessons, st)
	}
	return ov
}

// Scores returns the scores of every exercise of the course.
func (l *Ledger) Scores() []ExerciseScore {
	exercises := l.outline.Exercises()
	scores := make([]ExerciseScore, 0, len(exercises))
	for _, ex := range exercises {
		r := l.records[ex.ID]
		scores = append(scores, ExerciseScore{Chapter: ex, Score: r.Score, Completed: r.Completed})
	}
	return scores
}
