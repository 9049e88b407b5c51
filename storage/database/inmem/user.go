package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, exec ...core.DBExecutor) error {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.t.users {
		if (username != "" && usr.Username == username) || (email != "" && usr.Email == email) {
			return user.ErrUserExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = newID()
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.t.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.t.users {
		if (filter.Username != "" && usr.Username == filter.Username) || (filter.Email != "" && usr.Email == filter.Email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.t.users[id]; ok && !seen[id] {
			users = append(users, usr)
			seen[id] = true
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
