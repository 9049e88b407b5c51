package user

import (
	"time"

	"github.com/trezcool/academia/core"
)

// Kind is the closed set of user kinds.
type Kind string

const (
	KindSchool  Kind = "school"
	KindTeacher Kind = "teacher"
	KindStudent Kind = "student"
)

var Kinds = []Kind{KindSchool, KindTeacher, KindStudent}

func (k Kind) IsValid() bool {
	switch k {
	case KindSchool, KindTeacher, KindStudent:
		return true
	}
	return false
}

// IsStaff reports whether users of this kind may manage courses.
func (k Kind) IsStaff() bool {
	switch k {
	case KindSchool, KindTeacher:
		return true
	case KindStudent:
		return false
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	Kind      Kind      `json:"kind"`
	SchoolID  string    `json:"school_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u User) IsStudent() bool { return u.Kind == KindStudent }
func (u User) IsStaff() bool   { return u.Kind.IsStaff() }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Kind     Kind   `json:"kind" validate:"required,userkind"`
	SchoolID string `json:"school_id" validate:"omitempty,uuid"`
}

func (nu *NewUser) Validate(v *core.Validator) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Kind = Kind(core.CleanString(string(nu.Kind), true /* lower */))
	nu.SchoolID = core.CleanString(nu.SchoolID, true /* lower */)
	return v.Struct(nu)
}

type GetFilter struct {
	ID       string
	Username string
	Email    string
}
