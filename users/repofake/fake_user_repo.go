package fakeuserrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo keeps users in memory. Records are copied on the way in and
// out so callers never share state with the repo.
type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user.Email = users.NormalizeEmail(user.Email)
	if _, ok := ur.emailIds[user.Email]; ok {
		return apperrors.ErrUserExists
	}
	ur.store(user)
	return nil
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user.Email = users.NormalizeEmail(user.Email)
	if owner, ok := ur.emailIds[user.Email]; ok && owner != user.ID {
		return apperrors.ErrUserExists
	}
	if existing, ok := ur.users[user.ID]; ok && existing.Email != user.Email {
		delete(ur.emailIds, existing.Email)
	}
	ur.store(user)
	return nil
}

func (ur *FakeUserRepo) store(user *users.User) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[users.NormalizeEmail(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	stored, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *stored
	return &u, nil
}

// List orders users by join date, then ID.
func (ur *FakeUserRepo) List(_ context.Context, offset, limit int) (users.ListResponse, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		u := *v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		if userList[i].DateJoined.Equal(userList[j].DateJoined) {
			return userList[i].ID < userList[j].ID
		}
		return userList[i].DateJoined.Before(userList[j].DateJoined)
	})

	return users.Page(userList, offset, limit), nil
}

func (ur *FakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	return ur.update(id, func(u *users.User) { u.IsActive = active })
}

func (ur *FakeUserRepo) SetDeleted(_ context.Context, id string, deleted bool) error {
	return ur.update(id, func(u *users.User) { u.IsDeleted = deleted })
}

func (ur *FakeUserRepo) SetRole(_ context.Context, id string, role users.Role) error {
	return ur.update(id, func(u *users.User) { u.Role = role })
}

func (ur *FakeUserRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	return ur.update(id, func(u *users.User) { u.LastLogin = at })
}

func (ur *FakeUserRepo) update(id string, fn func(u *users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(u)
	return nil
}
