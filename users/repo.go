package users

import (
	"context"
	"time"
)

// UserRepo stores identity records. Lookups of unknown users return
// errors.ErrUserNotFound; creating a user with a taken email returns
// errors.ErrUserExists.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	Upsert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) (ListResponse, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetDeleted(ctx context.Context, id string, deleted bool) error
	SetRole(ctx context.Context, id string, role Role) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}

type ListResponse struct {
	Users  []*User `json:"users"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// Page slices an ordered user list. Out of range offsets yield an empty page.
func Page(all []*User, offset, limit int) ListResponse {
	if offset < 0 {
		offset = 0
	}
	resp := ListResponse{Users: []*User{}, Total: len(all), Offset: offset, Limit: limit}
	if offset >= len(all) || limit <= 0 {
		return resp
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	resp.Users = all[offset:end]
	return resp
}
