package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/foodbook-server/auth"
	"github.com/jrsteele09/foodbook-server/authz"
	"github.com/jrsteele09/foodbook-server/internal/config"
	"github.com/jrsteele09/foodbook-server/server"
	"github.com/jrsteele09/foodbook-server/token"
	"github.com/jrsteele09/foodbook-server/token/refresh"
	"github.com/jrsteele09/foodbook-server/users"
	fakeuserrepo "github.com/jrsteele09/foodbook-server/users/repofake"
)

const (
	accessSecret  = "access-secret-access-secret-0123456789"
	refreshSecret = "refresh-secret-refresh-secret-0123456789"
	adminEmail    = "admin@foodbook.test"
	adminPassword = "AdminPass1"
	clientOrigin  = "http://localhost:3000"
)

type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	keys     token.Keys
	server   *server.Server
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("CLIENT_URL", clientOrigin)
	t.Setenv("ADMIN_EMAIL", adminEmail)
	t.Setenv("ADMIN_PASSWORD", adminPassword)

	keys, err := token.NewKeys(accessSecret, refreshSecret, 32)
	require.NoError(t, err)

	f := &testFixture{userRepo: fakeuserrepo.NewFakeUserRepo(), keys: keys}
	verifier := token.NewVerifier(keys)
	gate := authz.NewGate(f.userRepo)
	service, err := auth.NewService(auth.Deps{
		Users:    f.userRepo,
		Issuer:   token.NewIssuer(keys),
		Verifier: verifier,
		Gate:     gate,
		Ledger:   refresh.NewMemoryLedger(),
	})
	require.NoError(t, err)

	f.server, err = server.New(config.New(), server.Deps{Auth: service, Verifier: verifier, Gate: gate})
	require.NoError(t, err)
	return f
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.Summary `json:"user"`
}

func (f *testFixture) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (f *testFixture) session(t *testing.T, path string, body any) sessionData {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, path, "", body)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rec.Code, env.Message)
	var s sessionData
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func (f *testFixture) signup(t *testing.T, email string) sessionData {
	return f.session(t, server.RouteAuthSignup, map[string]string{
		"email": email, "username": "cook", "password": "Password123",
	})
}

func TestSignupLoginMe(t *testing.T) {
	f := newTestFixture(t)
	signedUp := f.signup(t, "cook@example.com")
	require.NotEmpty(t, signedUp.AccessToken)
	require.Equal(t, users.RoleUser, signedUp.User.Role)

	loggedIn := f.session(t, server.RouteAuthLogin, map[string]string{
		"email": "cook@example.com", "password": "Password123",
	})

	rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, loggedIn.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	var me users.Summary
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, signedUp.User.ID, me.ID)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestSignupErrors(t *testing.T) {
	f := newTestFixture(t)
	f.signup(t, "cook@example.com")

	rec, env := f.do(t, http.MethodPost, server.RouteAuthSignup, "", map[string]string{
		"email": "cook@example.com", "username": "cook2", "password": "Password123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.False(t, env.Success)

	rec, env = f.do(t, http.MethodPost, server.RouteAuthSignup, "", map[string]string{"email": "bad"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, server.CodeValidationFailed, env.Code)

	req := httptest.NewRequest(http.MethodPost, server.RouteAuthSignup, bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	f.server.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newTestFixture(t)
	f.signup(t, "cook@example.com")

	rec, env := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{
		"email": "cook@example.com", "password": "Password999",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.CodeInvalidCredentials, env.Code)
}

func TestProtectedRouteVerification(t *testing.T) {
	f := newTestFixture(t)
	s := f.signup(t, "cook@example.com")

	expiredIssuer := token.NewIssuer(f.keys, token.WithNowFunc(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	expired, err := expiredIssuer.IssueAccess(s.User.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		bearer string
		code   string
	}{
		{"missing", "", server.CodeCredentialMissing},
		{"garbage", "garbage", server.CodeCredentialInvalid},
		{"refresh on access channel", s.RefreshToken, server.CodeCredentialWrongType},
		{"expired", expired.Token, server.CodeCredentialExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, tt.bearer, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, tt.code, env.Code)
			require.False(t, env.Success)
		})
	}
}

func TestBareAuthorizationHeaderAccepted(t *testing.T) {
	f := newTestFixture(t)
	s := f.signup(t, "cook@example.com")

	req := httptest.NewRequest(http.MethodGet, server.RouteAuthMe, nil)
	req.Header.Set("Authorization", s.AccessToken)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

// Blocked after issue: the credential still verifies, the gate refuses it.
func TestBlockedAccountForbidden(t *testing.T) {
	f := newTestFixture(t)
	s := f.signup(t, "cook@example.com")
	require.NoError(t, f.userRepo.SetActive(context.Background(), s.User.ID, false))

	rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, s.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeAccountBlocked, env.Code)

	rec, env = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": s.RefreshToken})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeAccountBlocked, env.Code)
}

func TestDeletedAccountForbidden(t *testing.T) {
	f := newTestFixture(t)
	s := f.signup(t, "cook@example.com")
	require.NoError(t, f.userRepo.SetDeleted(context.Background(), s.User.ID, true))

	rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, s.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeAccountDeleted, env.Code)
}

func TestUnknownIdentityUnauthorized(t *testing.T) {
	f := newTestFixture(t)
	ghost, err := token.NewIssuer(f.keys).IssueAccess("ghost")
	require.NoError(t, err)

	rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, ghost.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.CodeIdentityNotFound, env.Code)
}

func TestAdminRoute(t *testing.T) {
	f := newTestFixture(t)
	cook := f.signup(t, "cook@example.com")

	rec, env := f.do(t, http.MethodGet, server.RouteAdminUsers, cook.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeInsufficientRole, env.Code)

	admin := f.session(t, server.RouteAuthLogin, map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(t, users.RoleAdmin, admin.User.Role)

	rec, env = f.do(t, http.MethodGet, server.RouteAdminUsers+"?page=1&limit=1", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Users []users.Summary `json:"users"`
		Total int             `json:"total"`
		Limit int             `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, 2, page.Total)
	require.Equal(t, 1, page.Limit)
	require.Len(t, page.Users, 1)
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	f := newTestFixture(t)
	s := f.signup(t, "cook@example.com")

	rotated := f.session(t, server.RouteAuthRefresh, map[string]string{"refreshToken": s.RefreshToken})
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, s.RefreshToken, rotated.RefreshToken)
	require.Nil(t, rotated.User)

	rec, env := f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": s.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.CodeCredentialInvalid, env.Code)

	rec, env = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.CodeCredentialMissing, env.Code)

	rec, env = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": rotated.AccessToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.CodeCredentialWrongType, env.Code)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	f := newTestFixture(t)
	s := f.signup(t, "cook@example.com")

	rec, env := f.do(t, http.MethodPost, server.RouteAuthLogout, "", map[string]string{"refreshToken": s.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	rec, _ = f.do(t, http.MethodPost, server.RouteAuthLogout, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": s.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCorsPreflight(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteAuthLogin, nil)
	req.Header.Set("Origin", clientOrigin)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, clientOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodOptions, server.RouteAuthLogin, nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	f := newTestFixture(t)
	rec, env := f.do(t, http.MethodGet, server.RouteHealth, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newTestFixture(t)
	f.do(t, http.MethodGet, server.RouteAuthMe, "", nil)

	req := httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "foodbook_credential_verifications_total")
}

func TestRecoverMiddleware(t *testing.T) {
	f := newTestFixture(t)
	h := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.RecoverMiddleware)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func (f *testFixture) adminSession(t *testing.T) sessionData {
	t.Helper()
	return f.session(t, server.RouteAuthLogin, map[string]string{"email": adminEmail, "password": adminPassword})
}

func adminUserPath(pattern, id string) string {
	return strings.Replace(pattern, "{id}", id, 1)
}

// A deleted admin is refused by the role-gated route with 403, not 401.
func TestDeletedAdminForbiddenOnAdminRoute(t *testing.T) {
	f := newTestFixture(t)
	admin := f.adminSession(t)
	require.NoError(t, f.userRepo.SetDeleted(context.Background(), admin.User.ID, true))

	rec, env := f.do(t, http.MethodGet, server.RouteAdminUsers, admin.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeAccountDeleted, env.Code)
}

func TestAdminBlocksUser(t *testing.T) {
	f := newTestFixture(t)
	admin := f.adminSession(t)
	cook := f.signup(t, "cook@example.com")
	statusPath := adminUserPath(server.RouteAdminUserStatus, cook.User.ID)

	rec, env := f.do(t, http.MethodPut, statusPath, admin.AccessToken, map[string]any{"isActive": false, "reason": "posting spam"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	require.Equal(t, "User blocked successfully", env.Message)

	rec, env = f.do(t, http.MethodGet, server.RouteAuthMe, cook.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeAccountBlocked, env.Code)

	rec, _ = f.do(t, http.MethodPut, statusPath, admin.AccessToken, map[string]any{"isActive": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, server.RouteAuthMe, cook.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAccountRoutes(t *testing.T) {
	f := newTestFixture(t)
	admin := f.adminSession(t)
	cook := f.signup(t, "cook@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		body   any
		status int
		code   string
	}{
		{"own status", http.MethodPut, adminUserPath(server.RouteAdminUserStatus, admin.User.ID), admin.AccessToken, map[string]any{"isActive": false}, http.StatusBadRequest, server.CodeOwnAccount},
		{"own delete", http.MethodDelete, adminUserPath(server.RouteAdminUser, admin.User.ID), admin.AccessToken, nil, http.StatusBadRequest, server.CodeOwnAccount},
		{"missing isActive", http.MethodPut, adminUserPath(server.RouteAdminUserStatus, cook.User.ID), admin.AccessToken, map[string]any{}, http.StatusBadRequest, server.CodeValidationFailed},
		{"short reason", http.MethodDelete, adminUserPath(server.RouteAdminUser, cook.User.ID), admin.AccessToken, map[string]any{"reason": "no"}, http.StatusBadRequest, server.CodeValidationFailed},
		{"unknown user", http.MethodPut, adminUserPath(server.RouteAdminUserPromote, "ghost"), admin.AccessToken, nil, http.StatusNotFound, server.CodeUserNotFound},
		{"not an admin", http.MethodDelete, adminUserPath(server.RouteAdminUser, admin.User.ID), cook.AccessToken, nil, http.StatusForbidden, server.CodeInsufficientRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, tt.method, tt.path, tt.bearer, tt.body)
			require.Equal(t, tt.status, rec.Code, env.Message)
			require.Equal(t, tt.code, env.Code)
		})
	}
}

func TestAdminPromotesAndDeletesUser(t *testing.T) {
	f := newTestFixture(t)
	admin := f.adminSession(t)
	cook := f.signup(t, "cook@example.com")

	rec, env := f.do(t, http.MethodPut, adminUserPath(server.RouteAdminUserPromote, cook.User.ID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	rec, _ = f.do(t, http.MethodGet, server.RouteAdminUsers, cook.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodDelete, adminUserPath(server.RouteAdminUser, cook.User.ID), admin.AccessToken, map[string]string{"reason": "account closed"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	rec, env = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": cook.RefreshToken})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, server.CodeAccountDeleted, env.Code)
}
