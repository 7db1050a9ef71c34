// Package authz decides whether a verified subject may use a protected
// operation, based on the stored account state and role.
package authz

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/users"
)

type DecisionKind int

const (
	Granted DecisionKind = iota
	IdentityNotFound
	AccountDeleted
	AccountBlocked
	InsufficientRole
)

func (k DecisionKind) String() string {
	switch k {
	case Granted:
		return "granted"
	case IdentityNotFound:
		return "identity_not_found"
	case AccountDeleted:
		return "account_deleted"
	case AccountBlocked:
		return "account_blocked"
	case InsufficientRole:
		return "insufficient_role"
	default:
		return "unknown"
	}
}

// Decision is the gate result. User is set only when Kind is Granted.
type Decision struct {
	Kind DecisionKind
	User *users.User
}

func (d Decision) Granted() bool {
	return d.Kind == Granted
}

// Err maps a refusal to its sentinel error. It returns nil when granted.
func (d Decision) Err() error {
	switch d.Kind {
	case Granted:
		return nil
	case IdentityNotFound:
		return apperrors.ErrIdentityNotFound
	case AccountDeleted:
		return apperrors.ErrAccountDeleted
	case AccountBlocked:
		return apperrors.ErrAccountBlocked
	case InsufficientRole:
		return apperrors.ErrInsufficientRole
	default:
		return apperrors.ErrInternal
	}
}

// Lookup is the part of users.UserRepo the gate needs.
type Lookup interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

type Gate struct {
	users Lookup
}

func NewGate(lookup Lookup) *Gate {
	return &Gate{users: lookup}
}

// Authorize checks a subject that the verifier already accepted. An empty
// required role only checks account state. Deleted is checked before
// blocked, and both before the role. A store failure other than not-found
// is returned as an error.
func (g *Gate) Authorize(ctx context.Context, subjectID string, required users.Role) (Decision, error) {
	u, err := g.users.GetByID(ctx, subjectID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return Decision{Kind: IdentityNotFound}, nil
		}
		return Decision{}, errors.Wrap(err, "authorize lookup")
	}

	switch {
	case u.IsDeleted:
		return Decision{Kind: AccountDeleted}, nil
	case !u.IsActive:
		return Decision{Kind: AccountBlocked}, nil
	case !u.HasRole(required):
		return Decision{Kind: InsufficientRole}, nil
	}
	return Decision{Kind: Granted, User: u}, nil
}
