package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func chapterIDs(chapters []Chapter) []string {
	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}
	return ids
}

func TestOutline(t *testing.T) {
	l1 := Chapter{ID: "l1", Kind: KindLesson, Order: LessonOrder(1)}
	e1 := Chapter{ID: "e1", Kind: KindExercise, Order: ExerciseOrder(1)}
	l2 := Chapter{ID: "l2", Kind: KindLesson, Order: LessonOrder(2)}
	l4 := Chapter{ID: "l4", Kind: KindLesson, Order: LessonOrder(4)}
	e3 := Chapter{ID: "e3", Kind: KindExercise, Order: ExerciseOrder(3)} // no lesson 3
	unknown := Chapter{ID: "x", Kind: KindLesson, Order: LessonOrder(9)}

	o := NewOutline([]Chapter{l4, e3, l2, e1, l1})

	assert.Equal(t, []string{"l1", "l2", "l4"}, chapterIDs(o.Lessons()))
	assert.Equal(t, []string{"e1", "e3"}, chapterIDs(o.Exercises()))
	assert.Equal(t, []string{"l1", "e1", "l2", "e3", "l4"}, chapterIDs(o.All()))
	assert.ElementsMatch(t, []string{"l1", "e1", "l2", "e3", "l4"}, o.ChapterIDs())

	t.Run("pairing", func(t *testing.T) {
		ex, ok := o.ExerciseFor(l1)
		assert.True(t, ok)
		assert.Equal(t, e1, ex)

		_, ok = o.ExerciseFor(l2)
		assert.False(t, ok)
		_, ok = o.ExerciseFor(e1)
		assert.False(t, ok, "exercises have no exercise")

		lesson, ok := o.LessonFor(e1)
		assert.True(t, ok)
		assert.Equal(t, l1, lesson)

		_, ok = o.LessonFor(e3)
		assert.False(t, ok)
	})

	t.Run("successor", func(t *testing.T) {
		tests := []struct {
			name   string
			ch     Chapter
			want   string
			wantOk bool
		}{
			{name: "after exercise", ch: e1, want: "l2", wantOk: true},
			{name: "after orphan exercise", ch: e3, want: "l4", wantOk: true},
			{name: "after lesson", ch: l2, want: "l4", wantOk: true},
			{name: "after last lesson", ch: l4},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, ok := o.Successor(tt.ch)
				assert.Equal(t, tt.wantOk, ok)
				assert.Equal(t, tt.want, got.ID)
			})
		}
	})

	t.Run("predecessor", func(t *testing.T) {
		_, ok := o.Predecessor(l1)
		assert.False(t, ok)

		prev, ok := o.Predecessor(l4)
		assert.True(t, ok)
		assert.Equal(t, l2, prev)

		_, ok = o.Predecessor(unknown)
		assert.False(t, ok)
		assert.Equal(t, -1, o.Position(unknown))
		assert.Equal(t, 2, o.Position(l4))
	})

	t.Run("ties sorted by id", func(t *testing.T) {
		b := Chapter{ID: "b", Kind: KindLesson, Order: LessonOrder(1)}
		a := Chapter{ID: "a", Kind: KindLesson, Order: LessonOrder(1)}
		assert.Equal(t, []string{"a", "b"}, chapterIDs(NewOutline([]Chapter{b, a}).Lessons()))
	})

	t.Run("empty", func(t *testing.T) {
		empty := NewOutline(nil)
		assert.Empty(t, empty.Lessons())
		assert.Empty(t, empty.All())
		_, ok := empty.Successor(l1)
		assert.False(t, ok)
	})
}
