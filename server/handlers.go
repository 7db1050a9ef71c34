package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/foodbook-server/auth"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		session, err := s.auth.Login(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "Login successful", session)
	}
}

func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		session, err := s.auth.Signup(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "Signup successful", session)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RefreshRequest
		if !decodeBody(w, r, &req) {
			return
		}
		session, err := s.auth.Refresh(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "Token refreshed", session)
	}
}

// LogoutHandler always succeeds. A failure to spend the refresh credential
// is only logged.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LogoutRequest
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
		if err := s.auth.Logout(r.Context(), req); err != nil {
			log.Err(err).Msg("logout failed to spend refresh credential")
		}
		writeSuccess(w, http.StatusOK, "Logged out", nil)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeCredentialMissing, "Authentication required")
			return
		}
		writeSuccess(w, http.StatusOK, "", u.Summary())
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, "OK", map[string]string{
			"app": s.config.GetAppName(),
			"env": s.env,
		})
	}
}
