// Package refresh tracks refresh credentials that have already been exchanged.
//
// Refresh credentials rotate on every use. Once a credential has been
// exchanged its jti is recorded here until the credential would have expired
// anyway, so a replay of the old credential is rejected.
package refresh

import (
	"context"
	"time"
)

// Ledger records spent refresh credential IDs.
type Ledger interface {
	// Spend marks jti as used until expiresAt. It returns
	// errors.ErrRefreshReused when jti has already been spent.
	Spend(ctx context.Context, jti string, expiresAt time.Time) error

	// IsSpent reports whether jti has been spent and not yet expired.
	IsSpent(ctx context.Context, jti string) (bool, error)
}
