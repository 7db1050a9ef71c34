package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DefaultAccessExpiry  = 15 * time.Minute
	DefaultRefreshExpiry = 7 * 24 * time.Hour
)

type options struct {
	issuer        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

// Option configures an Issuer or a Verifier.
type Option func(*options)

func WithExpiry(accessExpiry, refreshExpiry time.Duration) Option {
	return func(o *options) {
		o.accessExpiry = accessExpiry
		o.refreshExpiry = refreshExpiry
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func WithIssuer(issuer string) Option {
	return func(o *options) {
		o.issuer = issuer
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.accessExpiry <= 0 {
		o.accessExpiry = DefaultAccessExpiry
	}
	if o.refreshExpiry <= 0 {
		o.refreshExpiry = DefaultRefreshExpiry
	}
	if o.nowFunc == nil {
		o.nowFunc = time.Now
	}
	return o
}

// Issuer mints signed access and refresh credentials. It holds no state
// besides its keys and settings.
type Issuer struct {
	keys Keys
	opts options
}

func NewIssuer(keys Keys, opts ...Option) *Issuer {
	return &Issuer{
		keys: keys,
		opts: newOptions(opts),
	}
}

func (i *Issuer) IssueAccess(subjectID string) (Credential, error) {
	return i.issue(subjectID, TypeAccess, i.opts.accessExpiry)
}

func (i *Issuer) IssueRefresh(subjectID string) (Credential, error) {
	return i.issue(subjectID, TypeRefresh, i.opts.refreshExpiry)
}

// IssuePair mints a fresh access and refresh credential for one subject.
func (i *Issuer) IssuePair(subjectID string) (Pair, error) {
	access, err := i.IssueAccess(subjectID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefresh(subjectID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) issue(subjectID string, t Type, expiry time.Duration) (Credential, error) {
	if subjectID == "" {
		return Credential{}, errors.New("Issuer.issue: subject id is required")
	}

	now := i.opts.nowFunc()
	cred := Credential{
		Type:      t,
		SubjectID: subjectID,
		ID:        uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(expiry),
	}

	claims := Claims{
		Type: t,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.opts.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(cred.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt),
			ID:        cred.ID,
		},
	}

	signed, err := i.keys.signerFor(t).Sign(claims)
	if err != nil {
		return Credential{}, errors.Wrapf(err, "Issuer.issue %s", t)
	}
	cred.Token = signed
	return cred, nil
}
