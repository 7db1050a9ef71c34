package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.Claims) (string, error)

	// GetVerificationKey is the jwt.Keyfunc used when parsing a token
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// HMACSigner implements Signer using symmetric HMAC-SHA256
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{
		secret: []byte(secret),
	}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

// Keys holds one signer per credential type. Access and refresh credentials
// never share a secret.
type Keys struct {
	access  Signer
	refresh Signer
}

// NewKeys builds HMAC signers for both credential types. Each secret must be
// at least minLength bytes and the two secrets must differ.
func NewKeys(accessSecret, refreshSecret string, minLength int) (Keys, error) {
	if len(accessSecret) < minLength {
		return Keys{}, errors.Errorf("access secret must be at least %d characters", minLength)
	}
	if len(refreshSecret) < minLength {
		return Keys{}, errors.Errorf("refresh secret must be at least %d characters", minLength)
	}
	if accessSecret == refreshSecret {
		return Keys{}, errors.New("access and refresh secrets must be different")
	}
	return Keys{
		access:  NewHMACSigner(accessSecret),
		refresh: NewHMACSigner(refreshSecret),
	}, nil
}

func (k Keys) signerFor(t Type) Signer {
	if t == TypeRefresh {
		return k.refresh
	}
	return k.access
}
