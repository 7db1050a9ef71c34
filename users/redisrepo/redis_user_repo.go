// Package redisrepo stores identity records in Redis.
//
// Each user is a JSON document under foodbook:user:<id>. An email index maps
// normalized emails to IDs and a sorted set scored by join time backs List.
package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/users"
)

const (
	userKeyPrefix  = "foodbook:user:"
	emailKeyPrefix = "foodbook:user-email:"
	listKey        = "foodbook:users"
)

var _ users.UserRepo = (*RedisUserRepo)(nil)

type RedisUserRepo struct {
	client redis.UniversalClient
}

// record is the stored form. users.User never serializes its password hash.
type record struct {
	users.User
	PasswordHash string `json:"password_hash"`
}

func New(client redis.UniversalClient) *RedisUserRepo {
	return &RedisUserRepo{client: client}
}

func userKey(id string) string     { return userKeyPrefix + id }
func emailKey(email string) string { return emailKeyPrefix + email }

func encode(u *users.User) ([]byte, error) {
	return json.Marshal(record{User: *u, PasswordHash: u.PasswordHash})
}

func decode(data []byte) (*users.User, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decode user")
	}
	u := r.User
	u.PasswordHash = r.PasswordHash
	return &u, nil
}

func prepare(user *users.User) {
	user.Email = users.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
}

// Create claims the email index first so concurrent signups with the same
// email have exactly one winner.
func (r *RedisUserRepo) Create(ctx context.Context, user *users.User) error {
	prepare(user)

	claimed, err := r.client.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return errors.Wrap(err, "RedisUserRepo.Create claim email")
	}
	if !claimed {
		return apperrors.ErrUserExists
	}

	if err := r.write(ctx, user); err != nil {
		_ = r.client.Del(ctx, emailKey(user.Email)).Err()
		return err
	}
	return nil
}

func (r *RedisUserRepo) Upsert(ctx context.Context, user *users.User) error {
	prepare(user)

	existing, err := r.GetByID(ctx, user.ID)
	if err != nil && !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return err
	}
	if err := r.claimEmail(ctx, user); err != nil {
		return err
	}
	if existing != nil && existing.Email != user.Email {
		if err := r.client.Del(ctx, emailKey(existing.Email)).Err(); err != nil {
			return errors.Wrap(err, "RedisUserRepo.Upsert drop old email")
		}
	}
	return r.write(ctx, user)
}

// claimEmail points the email index at user unless another user holds it.
func (r *RedisUserRepo) claimEmail(ctx context.Context, user *users.User) error {
	key := emailKey(user.Email)
	claimed, err := r.client.SetNX(ctx, key, user.ID, 0).Result()
	if err != nil {
		return errors.Wrap(err, "RedisUserRepo.claimEmail")
	}
	if claimed {
		return nil
	}
	owner, err := r.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "RedisUserRepo.claimEmail owner")
	}
	if owner != user.ID {
		return apperrors.ErrUserExists
	}
	return nil
}

func (r *RedisUserRepo) write(ctx context.Context, user *users.User) error {
	data, err := encode(user)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(user.ID), data, 0)
		pipe.ZAdd(ctx, listKey, redis.Z{Score: float64(user.DateJoined.UnixNano()), Member: user.ID})
		return nil
	})
	return errors.Wrap(err, "RedisUserRepo.write")
}

func (r *RedisUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	id, err := r.client.Get(ctx, emailKey(users.NormalizeEmail(email))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "RedisUserRepo.GetByEmail")
	}
	return r.GetByID(ctx, id)
}

func (r *RedisUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if id == "" {
		return nil, apperrors.ErrUserNotFound
	}
	data, err := r.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "RedisUserRepo.GetByID")
	}
	return decode(data)
}

func (r *RedisUserRepo) List(ctx context.Context, offset, limit int) (users.ListResponse, error) {
	if offset < 0 {
		offset = 0
	}
	total, err := r.client.ZCard(ctx, listKey).Result()
	if err != nil {
		return users.ListResponse{}, errors.Wrap(err, "RedisUserRepo.List count")
	}
	resp := users.ListResponse{Users: []*users.User{}, Total: int(total), Offset: offset, Limit: limit}
	if limit <= 0 || int64(offset) >= total {
		return resp, nil
	}

	ids, err := r.client.ZRange(ctx, listKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return users.ListResponse{}, errors.Wrap(err, "RedisUserRepo.List range")
	}
	if len(ids) == 0 {
		return resp, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return users.ListResponse{}, errors.Wrap(err, "RedisUserRepo.List fetch")
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		u, err := decode([]byte(s))
		if err != nil {
			return users.ListResponse{}, err
		}
		resp.Users = append(resp.Users, u)
	}
	return resp, nil
}

func (r *RedisUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, func(u *users.User) { u.IsActive = active })
}

func (r *RedisUserRepo) SetDeleted(ctx context.Context, id string, deleted bool) error {
	return r.update(ctx, id, func(u *users.User) { u.IsDeleted = deleted })
}

func (r *RedisUserRepo) SetRole(ctx context.Context, id string, role users.Role) error {
	return r.update(ctx, id, func(u *users.User) { u.Role = role })
}

func (r *RedisUserRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(u *users.User) { u.LastLogin = at })
}

// update is a read-modify-write guarded by WATCH on the user key.
func (r *RedisUserRepo) update(ctx context.Context, id string, fn func(u *users.User)) error {
	key := userKey(id)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return errors.Wrap(err, "RedisUserRepo.update get")
		}
		u, err := decode(data)
		if err != nil {
			return err
		}
		fn(u)
		encoded, err := encode(u)
		if err != nil {
			return errors.Wrap(err, "encode user")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}, key)
}
