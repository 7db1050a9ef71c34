package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// MemoryLedger is a single-process Ledger. Expired entries are dropped by
// Cleanup.
type MemoryLedger struct {
	spent map[string]time.Time
	mu    sync.Mutex
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		spent: make(map[string]time.Time),
	}
}

func (l *MemoryLedger) Spend(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("MemoryLedger.Spend: empty jti")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.spent[jti]; ok && NowTimeFunc().Before(exp) {
		return apperrors.ErrRefreshReused
	}
	l.spent[jti] = expiresAt
	return nil
}

func (l *MemoryLedger) IsSpent(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.spent[jti]
	return ok && NowTimeFunc().Before(exp), nil
}

// Cleanup removes entries whose credential has expired.
func (l *MemoryLedger) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := NowTimeFunc()
	for jti, exp := range l.spent {
		if !now.Before(exp) {
			delete(l.spent, jti)
		}
	}
}

// Len returns the number of tracked entries.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.spent)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (l *MemoryLedger) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
