package refresh

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
)

const redisKeyPrefix = "foodbook:refresh:spent:"

// RedisLedger shares spent refresh IDs between server instances. Entries
// expire with the credential they belong to.
type RedisLedger struct {
	client redis.UniversalClient
}

var _ Ledger = (*RedisLedger)(nil)

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Spend(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("RedisLedger.Spend: empty jti")
	}

	ttl := expiresAt.Sub(NowTimeFunc())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := l.client.SetNX(ctx, redisKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return errors.Wrap(err, "RedisLedger.Spend SetNX")
	}
	if !ok {
		return apperrors.ErrRefreshReused
	}
	return nil
}

func (l *RedisLedger) IsSpent(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, redisKeyPrefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, "RedisLedger.IsSpent Exists")
	}
	return n > 0, nil
}
