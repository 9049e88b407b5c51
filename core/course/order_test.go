package course

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    Order
		wantErr bool
	}{
		{name: "lesson", s: "2", want: LessonOrder(2)},
		{name: "lesson with zero fraction", s: "2.0", want: LessonOrder(2)},
		{name: "exercise", s: "2.5", want: ExerciseOrder(2)},
		{name: "exercise with trailing zero", s: "12.50", want: ExerciseOrder(12)},
		{name: "spaces", s: " 3 ", want: LessonOrder(3)},
		{name: "empty", s: "", wantErr: true},
		{name: "zero", s: "0", wantErr: true},
		{name: "negative", s: "-1", wantErr: true},
		{name: "other fraction", s: "1.3", wantErr: true},
		{name: "two digits fraction", s: "1.25", wantErr: true},
		{name: "too big", s: "10000", wantErr: true},
		{name: "not a number", s: "one", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrder(tt.s)
			if tt.wantErr {
				vErr, ok := err.(*core.ValidationError)
				if assert.True(t, ok, "want a *core.ValidationError, got %v", err) {
					assert.Equal(t, []core.FieldError{{Field: "order", Error: errInvalidOrder}}, vErr.Fields)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrder_Fits(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		kind  Kind
		want  bool
	}{
		{name: "lesson on whole", order: LessonOrder(1), kind: KindLesson, want: true},
		{name: "lesson on .5", order: ExerciseOrder(1), kind: KindLesson},
		{name: "exercise on .5", order: ExerciseOrder(1), kind: KindExercise, want: true},
		{name: "exercise on whole", order: LessonOrder(1), kind: KindExercise},
		{name: "invalid order", order: Order{Whole: 1, Sub: 3}, kind: KindLesson},
		{name: "zero order", order: Order{}, kind: KindLesson},
		{name: "unknown kind", order: LessonOrder(1), kind: "quiz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.Fits(tt.kind))
		})
	}
}

func TestOrder_Compare(t *testing.T) {
	assert.Equal(t, -1, LessonOrder(1).Compare(ExerciseOrder(1)))
	assert.Equal(t, 1, LessonOrder(2).Compare(ExerciseOrder(1)))
	assert.Equal(t, 0, ExerciseOrder(3).Compare(Order{Whole: 3, Sub: 5}))
	assert.True(t, ExerciseOrder(9).Less(LessonOrder(10)))
	assert.False(t, LessonOrder(10).Less(LessonOrder(10)))
}

func TestOrder_JSON(t *testing.T) {
	type payload struct {
		Order *Order `json:"order"`
	}

	data, err := json.Marshal(payload{Order: &Order{Whole: 4, Sub: 5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"order": 4.5}`, string(data))

	data, err = json.Marshal(LessonOrder(4))
	require.NoError(t, err)
	assert.Equal(t, "4", string(data))

	tests := []struct {
		name    string
		data    string
		want    *Order
		wantErr bool
	}{
		{name: "number", data: `{"order": 2.5}`, want: &Order{Whole: 2, Sub: 5}},
		{name: "string", data: `{"order": "3"}`, want: &Order{Whole: 3}},
		{name: "missing", data: `{}`},
		{name: "invalid", data: `{"order": 1.7}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := json.Unmarshal([]byte(tt.data), &p)
			if tt.wantErr {
				assert.IsType(t, &core.ValidationError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Order)
		})
	}
}

func TestOrder_SQL(t *testing.T) {
	v, err := ExerciseOrder(7).Value()
	require.NoError(t, err)
	assert.Equal(t, "7.5", v)

	v, err = LessonOrder(7).Value()
	require.NoError(t, err)
	assert.Equal(t, "7.0", v)

	tests := []struct {
		name    string
		src     interface{}
		want    Order
		wantErr bool
	}{
		{name: "bytes", src: []byte("2.5"), want: ExerciseOrder(2)},
		{name: "string", src: "3.0", want: LessonOrder(3)},
		{name: "int", src: int64(4), want: LessonOrder(4)},
		{name: "float", src: 5.5, want: ExerciseOrder(5)},
		{name: "bool", src: true, wantErr: true},
		{name: "invalid", src: "0.5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Order
			err := o.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, o)
		})
	}
}

func Test_nextOrder(t *testing.T) {
	chapters := []Chapter{
		{ID: "a", Kind: KindLesson, Order: LessonOrder(1)},
		{ID: "b", Kind: KindLesson, Order: LessonOrder(4)},
	}
	assert.Equal(t, LessonOrder(5), nextOrder(chapters, KindLesson))
	assert.Equal(t, ExerciseOrder(1), nextOrder(nil, KindExercise))
	assert.Equal(t, LessonOrder(1), nextOrder(nil, KindLesson))
}
