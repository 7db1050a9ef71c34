package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/foodbook-server/auth"
	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/users"
)

// AdminUsersListHandler lists users one page at a time (?page=&limit=)
func (s *Server) AdminUsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		resp, err := s.auth.ListUsers(r.Context(), page, limit)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		summaries := make([]users.Summary, 0, len(resp.Users))
		for _, u := range resp.Users {
			summaries = append(summaries, u.Summary())
		}
		writeSuccess(w, http.StatusOK, "", map[string]any{
			"users":  summaries,
			"total":  resp.Total,
			"offset": resp.Offset,
			"limit":  resp.Limit,
		})
	}
}

// AdminUserStatusHandler blocks or reactivates the user named in the path
func (s *Server) AdminUserStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.UserStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}
		admin, _ := UserFromContext(r.Context())
		userID := r.PathValue("id")
		if err := s.auth.SetUserStatus(r.Context(), admin.ID, userID, req); err != nil {
			if errors.Is(err, apperrors.ErrOwnAccount) {
				writeError(w, http.StatusBadRequest, CodeOwnAccount, "You cannot change your own status")
				return
			}
			writeServiceError(w, r, err)
			return
		}

		action := "blocked"
		if *req.IsActive {
			action = "activated"
		}
		writeSuccess(w, http.StatusOK, "User "+action+" successfully", adminActionData(admin.ID, userID, req.Reason, map[string]any{
			"isActive": *req.IsActive,
		}))
	}
}

// AdminUserDeleteHandler soft deletes the user named in the path
func (s *Server) AdminUserDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.AdminActionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		admin, _ := UserFromContext(r.Context())
		userID := r.PathValue("id")
		if err := s.auth.DeleteUser(r.Context(), admin.ID, userID, req); err != nil {
			if errors.Is(err, apperrors.ErrOwnAccount) {
				writeError(w, http.StatusBadRequest, CodeOwnAccount, "You cannot delete your own account")
				return
			}
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "User deleted successfully", adminActionData(admin.ID, userID, req.Reason, nil))
	}
}

// AdminUserPromoteHandler gives the user named in the path the admin role
func (s *Server) AdminUserPromoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.AdminActionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		admin, _ := UserFromContext(r.Context())
		userID := r.PathValue("id")
		if err := s.auth.PromoteUser(r.Context(), admin.ID, userID, req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "User promoted to admin successfully", adminActionData(admin.ID, userID, req.Reason, map[string]any{
			"newRole": users.RoleAdmin,
		}))
	}
}

func adminActionData(adminID, userID, reason string, extra map[string]any) map[string]any {
	data := map[string]any{
		"userId":    userID,
		"updatedBy": adminID,
		"updatedAt": time.Now().UTC(),
		"reason":    nil,
	}
	if reason != "" {
		data["reason"] = reason
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
