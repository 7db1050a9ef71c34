package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/foodbook-server/auth"
	"github.com/jrsteele09/foodbook-server/authz"
	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/token"
)

// Response is the JSON envelope of every API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Machine readable failure codes
const (
	CodeCredentialMissing   = "credential_missing"
	CodeCredentialInvalid   = "credential_invalid"
	CodeCredentialExpired   = "credential_expired"
	CodeCredentialWrongType = "credential_wrong_type"
	CodeIdentityNotFound    = "identity_not_found"
	CodeAccountBlocked      = "account_blocked"
	CodeAccountDeleted      = "account_deleted"
	CodeInsufficientRole    = "insufficient_role"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeUserExists          = "user_exists"
	CodeUserNotFound        = "user_not_found"
	CodeOwnAccount          = "own_account"
	CodeValidationFailed    = "validation_failed"
	CodeBadRequest          = "bad_request"
	CodeInternalError       = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response{Success: false, Code: code, Message: message})
}

// verificationFailure maps a non-valid verifier outcome to a 401 response.
func verificationFailure(w http.ResponseWriter, outcome token.Outcome, t token.Type) {
	label, invalid := "Access token", "Invalid access token"
	if t == token.TypeRefresh {
		label, invalid = "Refresh token", "Invalid refresh token"
	}
	switch outcome.Kind {
	case token.KindMissing:
		writeError(w, http.StatusUnauthorized, CodeCredentialMissing, label+" is required")
	case token.KindExpired:
		writeError(w, http.StatusUnauthorized, CodeCredentialExpired, label+" has expired")
	case token.KindWrongType:
		writeError(w, http.StatusUnauthorized, CodeCredentialWrongType, "Invalid token type")
	default:
		writeError(w, http.StatusUnauthorized, CodeCredentialInvalid, invalid)
	}
}

// gateFailure maps a refused gate decision. An unknown identity is an
// authentication failure, the rest are authorization failures.
func gateFailure(w http.ResponseWriter, decision authz.Decision) {
	switch decision.Kind {
	case authz.IdentityNotFound:
		writeError(w, http.StatusUnauthorized, CodeIdentityNotFound, "User not found")
	case authz.AccountDeleted:
		writeError(w, http.StatusForbidden, CodeAccountDeleted, "Account has been deleted")
	case authz.AccountBlocked:
		writeError(w, http.StatusForbidden, CodeAccountBlocked, "Account has been blocked")
	case authz.InsufficientRole:
		writeError(w, http.StatusForbidden, CodeInsufficientRole, "Admin access required. This incident will be logged.")
	default:
		writeError(w, http.StatusInternalServerError, CodeInternalError, "Internal Server Error")
	}
}

// writeServiceError maps errors returned by the auth service.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, Response{Code: CodeValidationFailed, Message: verr.Error(), Data: verr.Errors})
	case errors.Is(err, apperrors.ErrCredentialMissing):
		verificationFailure(w, token.Outcome{Kind: token.KindMissing}, token.TypeRefresh)
	case errors.Is(err, apperrors.ErrCredentialExpired):
		verificationFailure(w, token.Outcome{Kind: token.KindExpired}, token.TypeRefresh)
	case errors.Is(err, apperrors.ErrCredentialWrongType):
		verificationFailure(w, token.Outcome{Kind: token.KindWrongType}, token.TypeRefresh)
	case errors.Is(err, apperrors.ErrRefreshReused):
		writeError(w, http.StatusUnauthorized, CodeCredentialInvalid, "Refresh token has already been used")
	case errors.Is(err, apperrors.ErrCredentialInvalid):
		verificationFailure(w, token.Outcome{Kind: token.KindInvalid}, token.TypeRefresh)
	case errors.Is(err, apperrors.ErrIdentityNotFound):
		gateFailure(w, authz.Decision{Kind: authz.IdentityNotFound})
	case errors.Is(err, apperrors.ErrAccountDeleted):
		gateFailure(w, authz.Decision{Kind: authz.AccountDeleted})
	case errors.Is(err, apperrors.ErrAccountBlocked):
		gateFailure(w, authz.Decision{Kind: authz.AccountBlocked})
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, apperrors.ErrUserExists):
		writeError(w, http.StatusConflict, CodeUserExists, "email already exists")
	case errors.Is(err, apperrors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeUserNotFound, "User not found")
	case errors.Is(err, apperrors.ErrOwnAccount):
		writeError(w, http.StatusBadRequest, CodeOwnAccount, "You cannot change your own account")
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, CodeInternalError, "Internal Server Error")
	}
}
