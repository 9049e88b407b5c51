package progress

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/course"
)

const (
	PassingScore = 8.0
	MaxScore     = 10.0
)

// Unlock reasons
const (
	ReasonPreviousExercise = "complete previous exercise with score ≥ 8"
	ReasonPreviousChapter  = "complete previous chapter"
	ReasonLessonFirst      = "complete the lesson before the exercise"
	ReasonNoLesson         = "exercise has no related lesson"
)

// Record is the progress of a student on a chapter.
type Record struct {
	StudentID string       `json:"student_id"`
	ChapterID string       `json:"chapter_id"`
	Completed bool         `json:"completed"`
	Score     null.Float64 `json:"score"`
	UpdatedAt time.Time    `json:"updated_at"` // UTC
}

// Approved reports whether the record holds a passing score.
func (r Record) Approved() bool {
	return r.Score.Valid && r.Score.Float64 >= PassingScore
}

// Effects are the writes derived from a progress event.
type Effects struct {
	Approved bool `json:"approved"`
	// CompletedLesson is the lesson completed along with its approved exercise.
	CompletedLesson *Record `json:"completed_lesson,omitempty"`
	// OpenedLesson is the next lesson whose record was created by the approval.
	OpenedLesson *Record `json:"opened_lesson,omitempty"`
}

type (
	ExerciseStatus struct {
		Chapter    course.Chapter `json:"chapter"`
		Accessible bool           `json:"accessible"`
		Reason     string         `json:"reason,omitempty"`
		Score      null.Float64   `json:"score"`
		Completed  bool           `json:"completed"`
	}

	LessonStatus struct {
		Chapter   course.Chapter  `json:"chapter"`
		Done      bool            `json:"done"`
		Completed bool            `json:"completed"`
		Unlocked  bool            `json:"unlocked"`
		Reason    string          `json:"reason,omitempty"`
		Exercise  *ExerciseStatus `json:"exercise,omitempty"`
	}

	// Overview is the progress of a student through a whole course.
	Overview struct {
		Course  course.Course  `json:"course"`
		Percent int            `json:"percent"`
		Lessons []LessonStatus `json:"lessons"`
	}

	ExerciseScore struct {
		Chapter   course.Chapter `json:"chapter"`
		Score     null.Float64   `json:"score"`
		Completed bool           `json:"completed"`
	}

	// CourseScores are the exercise scores of a student in one course.
	CourseScores struct {
		Course  course.Course   `json:"course"`
		Percent int             `json:"percent"`
		Scores  []ExerciseScore `json:"scores"`
	}
)
