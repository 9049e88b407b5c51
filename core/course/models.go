package course

import (
	"time"

	"github.com/trezcool/academia/core"
)

// Kind is the kind of a chapter.
type Kind string

const (
	KindLesson   Kind = "lesson"
	KindExercise Kind = "exercise"
)

func (k Kind) IsValid() bool {
	return k == KindLesson || k == KindExercise
}

// ParseKind parses a chapter kind, returning a validation error on field `kind` if unknown.
func ParseKind(s string) (Kind, error) {
	k := Kind(core.CleanString(s, true /* lower */))
	if !k.IsValid() {
		return "", core.NewValidationError(nil, core.FieldError{Field: "kind", Error: chapterKindText})
	}
	return k, nil
}

// Membership is the link between a course and one of its users.
type Membership string

const (
	MemberStudent Membership = "student"
	MemberSchool  Membership = "school"
	MemberTeacher Membership = "teacher"
)

type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Chapter struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Code      string    `json:"code,omitempty"`
	URL       string    `json:"url,omitempty"`
	Kind      Kind      `json:"kind"`
	Order     Order     `json:"order"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (ch Chapter) IsLesson() bool   { return ch.Kind == KindLesson }
func (ch Chapter) IsExercise() bool { return ch.Kind == KindExercise }

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(v *core.Validator) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return v.Struct(nc)
}

// NewChapter contains information needed to create a new Chapter.
// A nil Order places the chapter after the last one of its kind.
// Reorder renumbers the other chapters of the same kind when Order is already taken.
type NewChapter struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
	Title    string `json:"title" validate:"required"`
	Code     string `json:"code"`
	URL      string `json:"url" validate:"omitempty,url"`
	Kind     Kind   `json:"kind" validate:"required,chapterkind"`
	Order    *Order `json:"order"`
	Reorder  bool   `json:"reorder"`
}

func (nc *NewChapter) Validate(v *core.Validator) error {
	nc.CourseID = core.CleanString(nc.CourseID, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Code = core.CleanString(nc.Code)
	nc.URL = core.CleanString(nc.URL)
	nc.Kind = Kind(core.CleanString(string(nc.Kind), true /* lower */))
	return v.Struct(nc)
}

// UpdateChapter defines what information may be provided to modify an existing Chapter.
// The kind of a chapter cannot change.
type UpdateChapter struct {
	Title   string `json:"title"`
	Code    string `json:"code"`
	URL     string `json:"url" validate:"omitempty,url"`
	Order   *Order `json:"order"`
	Reorder bool   `json:"reorder"`
}

func (uc *UpdateChapter) Validate(orig Chapter, v *core.Validator) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if code := core.CleanString(uc.Code); code != "" {
		uc.Code = code
	} else {
		uc.Code = orig.Code
	}
	if url := core.CleanString(uc.URL); url != "" {
		uc.URL = url
	} else {
		uc.URL = orig.URL
	}
	if err := v.Struct(uc); err != nil {
		return err
	}
	if uc.Order != nil {
		return ValidateOrder(orig.Kind, *uc.Order)
	}
	return nil
}

// ValidateOrder rejects orders that do not fit the chapter kind:
// lessons sit on whole numbers and exercises on the .5 slot.
func ValidateOrder(k Kind, o Order) error {
	if o.Fits(k) {
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{Field: "order", Error: orderTextFor(k)})
}

func orderTextFor(k Kind) string {
	if k == KindExercise {
		return exerciseOrderText
	}
	return lessonOrderText
}
