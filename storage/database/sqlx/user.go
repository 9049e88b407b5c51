package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const userColumns = "id, name, username, email, kind, school_id, is_active, created_at, updated_at"

type userRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Username  null.String `db:"username"`
	Email     null.String `db:"email"`
	Kind      string      `db:"kind"`
	SchoolID  null.String `db:"school_id"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:        usr.ID,
		Name:      usr.Name,
		Username:  null.NewString(usr.Username, usr.Username != ""),
		Email:     null.NewString(usr.Email, usr.Email != ""),
		Kind:      string(usr.Kind),
		SchoolID:  null.NewString(usr.SchoolID, usr.SchoolID != ""),
		IsActive:  usr.IsActive,
		CreatedAt: usr.CreatedAt.UTC(),
		UpdatedAt: usr.UpdatedAt.UTC(),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:        r.ID,
		Name:      r.Name,
		Username:  r.Username.String,
		Email:     r.Email.String,
		Kind:      user.Kind(r.Kind),
		SchoolID:  r.SchoolID.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	var found bool
	err := repo.getExec(exec).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE (username = $1 AND $1 <> '') OR (email = $2 AND $2 <> ''))`,
		username, email,
	).Scan(&found)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if found {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	q, args, err := bindNamed(
		`INSERT INTO users (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :kind, :school_id, :is_active, :created_at, :updated_at)
		RETURNING `+userColumns,
		toUserRow(usr),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}
	row, err := selectOne[userRow](ctx, repo.getExec(exec), q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var where string
	var arg string
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		where, arg = "id = $1", filter.ID
	case filter.Username != "":
		where, arg = "username = $1", filter.Username
	case filter.Email != "":
		where, arg = "email = $1", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	row, err := selectOne[userRow](ctx, repo.getExec(exec), "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	ids = uuids(ids)
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	q, args, err := bindIn("SELECT "+userColumns+" FROM users WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, errors.Wrap(err, "binding user IDs")
	}
	var rows []userRow
	if err = selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}
