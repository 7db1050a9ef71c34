package auth

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
	"github.com/jrsteele09/foodbook-server/users"
)

// SetUserStatus blocks or reactivates userID. An administrator cannot change
// their own status.
func (s *Service) SetUserStatus(ctx context.Context, adminID, userID string, req UserStatusRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if adminID == userID {
		return apperrors.ErrOwnAccount
	}
	if err := s.deps.Users.SetActive(ctx, userID, *req.IsActive); err != nil {
		return errors.Wrap(err, "[Service.SetUserStatus] SetActive")
	}

	action := "blocked"
	if *req.IsActive {
		action = "activated"
	}
	log.Info().Str("admin_id", adminID).Str("user_id", userID).Str("reason", req.Reason).Msgf("user %s", action)
	return nil
}

// DeleteUser soft deletes userID. The record stays so the gate can refuse
// credentials that are still in circulation.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID string, req AdminActionRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if adminID == userID {
		return apperrors.ErrOwnAccount
	}
	if err := s.deps.Users.SetDeleted(ctx, userID, true); err != nil {
		return errors.Wrap(err, "[Service.DeleteUser] SetDeleted")
	}
	log.Info().Str("admin_id", adminID).Str("user_id", userID).Str("reason", req.Reason).Msg("user deleted")
	return nil
}

func (s *Service) PromoteUser(ctx context.Context, adminID, userID string, req AdminActionRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := s.deps.Users.SetRole(ctx, userID, users.RoleAdmin); err != nil {
		return errors.Wrap(err, "[Service.PromoteUser] SetRole")
	}
	log.Info().Str("admin_id", adminID).Str("user_id", userID).Str("reason", req.Reason).Msg("user promoted to admin")
	return nil
}
