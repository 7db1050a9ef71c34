// Package auth implements the account endpoints of the FoodBook server:
// login, signup, refresh and logout.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/foodbook-server/authz"
	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/metrics"
	"github.com/jrsteele09/foodbook-server/token"
	"github.com/jrsteele09/foodbook-server/token/refresh"
	"github.com/jrsteele09/foodbook-server/users"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Deps holds the collaborators of the Service
type Deps struct {
	Users    users.UserRepo  // Identity records
	Issuer   *token.Issuer   // Signs new credentials
	Verifier *token.Verifier // Checks presented credentials
	Gate     *authz.Gate     // Account state and role checks
	Ledger   refresh.Ledger  // Spent refresh credentials
}

// Session is returned by login, signup and refresh. User is omitted on refresh.
type Session struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.Summary `json:"user,omitempty"`
}

type Service struct {
	deps      Deps
	validator *Validator
	nowTime   func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(deps Deps, options ...ServiceOption) (*Service, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.Wrap(ErrMissingDependency, "[NewService] Users repo is required")
	case deps.Issuer == nil:
		return nil, errors.Wrap(ErrMissingDependency, "[NewService] Issuer is required")
	case deps.Verifier == nil:
		return nil, errors.Wrap(ErrMissingDependency, "[NewService] Verifier is required")
	case deps.Gate == nil:
		return nil, errors.Wrap(ErrMissingDependency, "[NewService] Gate is required")
	case deps.Ledger == nil:
		return nil, errors.Wrap(ErrMissingDependency, "[NewService] Ledger is required")
	}

	s := &Service{
		deps:      deps,
		validator: NewValidator(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Validator exposes the request validator so handlers share the same rules.
func (s *Service) Validator() *Validator {
	return s.validator
}

// Login checks the password and account state, then issues a fresh pair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.deps.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Service.Login] GetByEmail")
	}
	if !u.CheckPassword(req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	decision, err := s.deps.Gate.Authorize(ctx, u.ID, "")
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] Authorize")
	}
	if !decision.Granted() {
		return nil, decision.Err()
	}

	if err := s.deps.Users.SetLastLogin(ctx, u.ID, s.nowTime().UTC()); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to record last login")
	}
	return s.newSession(decision.User)
}

// Signup creates a user account with the default role and logs it in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	u, err := users.NewUser(req.Email, req.Username, req.Password, users.RoleUser)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Signup] NewUser")
	}
	u.DateJoined = s.nowTime().UTC()
	u.LastLogin = u.DateJoined

	if err := s.deps.Users.Create(ctx, u); err != nil {
		if apperrors.Is(err, apperrors.ErrUserExists) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[Service.Signup] Create")
	}
	return s.newSession(u)
}

// Refresh exchanges a refresh credential for a new pair. The presented
// credential is spent even though it has not expired, so each refresh
// credential works once.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*Session, error) {
	outcome, claims := s.deps.Verifier.VerifyClaims(req.RefreshToken, token.TypeRefresh)
	metrics.RecordVerification(string(token.TypeRefresh), outcome.Kind.String())
	if !outcome.Valid() {
		metrics.RecordRefresh("rejected")
		return nil, outcome.Err()
	}

	decision, err := s.deps.Gate.Authorize(ctx, outcome.SubjectID, "")
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] Authorize")
	}
	metrics.RecordGateDecision("", decision.Kind.String())
	if !decision.Granted() {
		metrics.RecordRefresh("denied")
		return nil, decision.Err()
	}

	if err := s.deps.Ledger.Spend(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		if apperrors.Is(err, apperrors.ErrRefreshReused) {
			metrics.RecordRefresh("reused")
			log.Warn().Str("user_id", outcome.SubjectID).Str("jti", claims.ID).Msg("refresh credential reused")
			return nil, fmt.Errorf("%w: %w", apperrors.ErrCredentialInvalid, err)
		}
		return nil, errors.Wrap(err, "[Service.Refresh] Spend")
	}

	session, err := s.newSession(decision.User)
	if err != nil {
		return nil, err
	}
	session.User = nil
	metrics.RecordRefresh("rotated")
	return session, nil
}

// Logout spends the refresh credential when one is presented and verifies.
// Anything else is ignored; logging out always succeeds for the caller.
func (s *Service) Logout(ctx context.Context, req LogoutRequest) error {
	if req.RefreshToken == "" {
		return nil
	}
	outcome, claims := s.deps.Verifier.VerifyClaims(req.RefreshToken, token.TypeRefresh)
	if !outcome.Valid() {
		return nil
	}
	err := s.deps.Ledger.Spend(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil && !apperrors.Is(err, apperrors.ErrRefreshReused) {
		return errors.Wrap(err, "[Service.Logout] Spend")
	}
	return nil
}

// ListUsers returns one page of users. Pages are numbered from 1.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (users.ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	resp, err := s.deps.Users.List(ctx, (page-1)*limit, limit)
	return resp, errors.Wrap(err, "[Service.ListUsers] List")
}

// EnsureAdmin creates the administrator account if no user has the email.
// An existing account is promoted to admin. It reports whether a new
// account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	existing, err := s.deps.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == users.RoleAdmin {
			return false, nil
		}
		existing.Role = users.RoleAdmin
		return false, errors.Wrap(s.deps.Users.Upsert(ctx, existing), "[Service.EnsureAdmin] Upsert")
	case !apperrors.Is(err, apperrors.ErrUserNotFound):
		return false, errors.Wrap(err, "[Service.EnsureAdmin] GetByEmail")
	}

	if err := users.ValidatePasswordStrength(password); err != nil {
		return false, fmt.Errorf("%w: %w", apperrors.ErrWeakPassword, err)
	}
	admin, err := users.NewUser(email, "admin", password, users.RoleAdmin)
	if err != nil {
		return false, errors.Wrap(err, "[Service.EnsureAdmin] NewUser")
	}
	admin.DateJoined = s.nowTime().UTC()
	if err := s.deps.Users.Create(ctx, admin); err != nil {
		return false, errors.Wrap(err, "[Service.EnsureAdmin] Create")
	}
	return true, nil
}

func (s *Service) newSession(u *users.User) (*Session, error) {
	pair, err := s.deps.Issuer.IssuePair(u.ID)
	if err != nil {
		return nil, errors.Wrap(err, "IssuePair")
	}
	summary := u.Summary()
	return &Session{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
		User:         &summary,
	}, nil
}
