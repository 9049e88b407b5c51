package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound   = core.NewError(core.CodeNotFound, "user not found")
	ErrUserExists = errors.New("a user with this username or email already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		QueryUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]User, error)
	}

	Service struct {
		repo      Repository
		validator *core.Validator
	}
)

func NewService(repo Repository, v *core.Validator) *Service {
	RegisterValidators(v)
	return &Service{repo: repo, validator: v}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validator); err != nil {
		return User{}, err
	}
	if err := svc.repo.CheckUsernameUniqueness(ctx, nu.Username, nu.Email); err != nil {
		if errors.Cause(err) == ErrUserExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "checking user uniqueness")
	}
	if nu.SchoolID != "" {
		school, err := svc.GetByID(ctx, nu.SchoolID)
		if err != nil {
			return User{}, err
		}
		if school.Kind != KindSchool {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "must reference a school"})
		}
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Kind:      nu.Kind,
		SchoolID:  nu.SchoolID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}
