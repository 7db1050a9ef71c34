package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type tags a credential with the channel it may be used on.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

func (t Type) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// other returns the opposite credential type.
func (t Type) other() Type {
	if t == TypeAccess {
		return TypeRefresh
	}
	return TypeAccess
}

// Claims is the decoded body of a credential. Only Type and the registered
// claims are trusted after verification.
type Claims struct {
	Type Type `json:"typ"`
	jwt.RegisteredClaims
}

// Credential is a signed token plus the metadata the issuer stamped into it.
type Credential struct {
	Token     string
	Type      Type
	SubjectID string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is what a successful login, signup or refresh hands back.
type Pair struct {
	Access  Credential
	Refresh Credential
}
