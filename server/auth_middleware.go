package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/foodbook-server/metrics"
	"github.com/jrsteele09/foodbook-server/token"
	"github.com/jrsteele09/foodbook-server/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the authorized identity record
	ContextKeyUser ContextKey = "user"
)

// UserFromContext returns the identity stored by RequireAuth
func UserFromContext(ctx context.Context) (*users.User, bool) {
	u, ok := ctx.Value(ContextKeyUser).(*users.User)
	return u, ok && u != nil
}

// bearerToken extracts the credential from the Authorization header. A bare
// value without the Bearer scheme is accepted as the credential itself.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	return header
}

// RequireAuth verifies the access credential and runs the authorization
// gate. Verifier failures and unknown identities are 401 so the client may
// refresh; account state and role failures are 403.
func (s *Server) RequireAuth(required users.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			outcome := s.verifier.Verify(bearerToken(r), token.TypeAccess)
			metrics.RecordVerification(string(token.TypeAccess), outcome.Kind.String())
			if !outcome.Valid() {
				if outcome.Kind == token.KindInvalid {
					log.Debug().Str("reason", outcome.Reason).Str("path", r.URL.Path).Msg("access credential rejected")
				}
				verificationFailure(w, outcome, token.TypeAccess)
				return
			}

			decision, err := s.gate.Authorize(r.Context(), outcome.SubjectID, required)
			if err != nil {
				log.Err(err).Str("user_id", outcome.SubjectID).Msg("authorization lookup failed")
				writeError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error during authorization")
				return
			}
			metrics.RecordGateDecision(string(required), decision.Kind.String())
			if !decision.Granted() {
				if required == users.RoleAdmin {
					log.Warn().Str("user_id", outcome.SubjectID).Str("decision", decision.Kind.String()).Msg("admin access refused")
				}
				gateFailure(w, decision)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, decision.User)
			next(w, r.WithContext(ctx))
		}
	}
}
