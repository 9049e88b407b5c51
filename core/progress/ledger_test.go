package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/course"
)

var (
	l1 = course.Chapter{ID: "l1", Kind: course.KindLesson, Order: course.LessonOrder(1)}
	e1 = course.Chapter{ID: "e1", Kind: course.KindExercise, Order: course.ExerciseOrder(1)}
	l2 = course.Chapter{ID: "l2", Kind: course.KindLesson, Order: course.LessonOrder(2)}
	l3 = course.Chapter{ID: "l3", Kind: course.KindLesson, Order: course.LessonOrder(3)}
	e3 = course.Chapter{ID: "e3", Kind: course.KindExercise, Order: course.ExerciseOrder(3)}
	e5 = course.Chapter{ID: "e5", Kind: course.KindExercise, Order: course.ExerciseOrder(5)} // no lesson 5

	outline = course.NewOutline([]course.Chapter{l1, e1, l2, l3, e3, e5})
)

func scored(chapterID string, score float64) Record {
	return Record{ChapterID: chapterID, Score: null.Float64From(score), Completed: score >= PassingScore}
}

func completed(chapterID string) Record {
	return Record{ChapterID: chapterID, Completed: true}
}

func TestLedger_LessonDone(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		lesson  course.Chapter
		want    bool
	}{
		{name: "no record", lesson: l1},
		{name: "completed with exercise pending", records: []Record{completed("l1")}, lesson: l1},
		{name: "exercise failed", records: []Record{completed("l1"), scored("e1", 7.99)}, lesson: l1},
		{name: "exercise approved", records: []Record{scored("e1", 8)}, lesson: l1, want: true},
		{name: "no exercise, not completed", records: []Record{{ChapterID: "l2"}}, lesson: l2},
		{name: "no exercise, completed", records: []Record{completed("l2")}, lesson: l2, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(outline, tt.records)
			assert.Equal(t, tt.want, l.LessonDone(tt.lesson))
		})
	}
}

func TestLedger_PercentComplete(t *testing.T) {
	tests := []struct {
		name    string
		outline *course.Outline
		records []Record
		want    int
	}{
		{name: "no lessons", outline: course.NewOutline([]course.Chapter{e5})},
		{name: "nothing done", outline: outline, records: []Record{scored("e1", 5)}},
		{name: "one of three", outline: outline, records: []Record{scored("e1", 9)}, want: 33},
		{name: "two of three", outline: outline, records: []Record{scored("e1", 9), completed("l2")}, want: 66},
		{
			name: "all done", outline: outline,
			records: []Record{scored("e1", 9), completed("l2"), scored("e3", 10), scored("e5", 2)},
			want:    100,
		},
		{name: "single lesson pair", outline: course.NewOutline([]course.Chapter{l1, e1}), records: []Record{scored("e1", 8)}, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLedger(tt.outline, tt.records).PercentComplete()
			assert.Equal(t, tt.want, got)
			assert.True(t, got >= 0 && got <= 100)
		})
	}
}

func TestLedger_Access(t *testing.T) {
	type access struct {
		ok     bool
		reason string
	}

	tests := []struct {
		name    string
		records []Record
		ch      course.Chapter
		want    access
	}{
		{name: "first lesson", ch: l1, want: access{ok: true}},
		{name: "first lesson with any records", records: []Record{scored("e1", 1)}, ch: l1, want: access{ok: true}},
		{name: "exercise before lesson", ch: e1, want: access{reason: ReasonLessonFirst}},
		{name: "exercise after lesson", records: []Record{completed("l1")}, ch: e1, want: access{ok: true}},
		{name: "orphan exercise", records: []Record{completed("l1")}, ch: e5, want: access{reason: ReasonNoLesson}},
		{name: "next lesson, exercise pending", records: []Record{completed("l1")}, ch: l2, want: access{reason: ReasonPreviousExercise}},
		{name: "next lesson, exercise failed", records: []Record{completed("l1"), scored("e1", 5)}, ch: l2, want: access{reason: ReasonPreviousExercise}},
		{name: "next lesson, exercise approved", records: []Record{completed("l1"), scored("e1", 8)}, ch: l2, want: access{ok: true}},
		{name: "lesson after lesson without exercise", records: []Record{scored("e1", 8)}, ch: l3, want: access{reason: ReasonPreviousChapter}},
		{name: "lesson after completed lesson", records: []Record{completed("l2")}, ch: l3, want: access{ok: true}},
		{name: "unknown kind", ch: course.Chapter{ID: "x", Kind: "quiz"}},
		{name: "lesson of another course", ch: course.Chapter{ID: "x", Kind: course.KindLesson, Order: course.LessonOrder(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := NewLedger(outline, tt.records).Access(tt.ch)
			assert.Equal(t, tt.want, access{ok: ok, reason: reason})
		})
	}
}

func TestLedger_Overview(t *testing.T) {
	crs := course.Course{ID: "c", Name: "Math"}
	l := NewLedger(outline, []Record{completed("l1"), scored("e1", 9.5), completed("l2")})

	ov := l.Overview(crs)
	assert.Equal(t, crs, ov.Course)
	assert.Equal(t, 66, ov.Percent)
	if assert.Len(t, ov.Lessons, 3) {
		first := ov.Lessons[0]
		assert.True(t, first.Done)
		assert.True(t, first.Unlocked)
		if assert.NotNil(t, first.Exercise) {
			assert.Equal(t, null.Float64From(9.5), first.Exercise.Score)
			assert.True(t, first.Exercise.Accessible)
		}

		assert.Nil(t, ov.Lessons[1].Exercise)
		assert.True(t, ov.Lessons[1].Done)

		last := ov.Lessons[2]
		assert.True(t, last.Unlocked)
		assert.False(t, last.Done)
		if assert.NotNil(t, last.Exercise) {
			assert.Equal(t, ReasonLessonFirst, last.Exercise.Reason)
			assert.False(t, last.Exercise.Score.Valid)
		}
	}

	scores := l.Scores()
	if assert.Len(t, scores, 3) {
		assert.Equal(t, "e1", scores[0].Chapter.ID)
		assert.True(t, scores[0].Completed)
		assert.False(t, scores[1].Score.Valid)
		assert.Equal(t, "e5", scores[2].Chapter.ID)
	}
}
