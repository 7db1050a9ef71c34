package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// InitialiseSystem creates the administrator account from ADMIN_EMAIL and
// ADMIN_PASSWORD. Nothing happens when ADMIN_EMAIL is unset.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	email := s.config.GetAdminEmail()
	if email == "" {
		return nil
	}

	created, err := s.auth.EnsureAdmin(ctx, email, s.config.GetAdminPassword())
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap admin: %w", err)
	}

	if created {
		log.Info().Str("email", email).Msg("👤 administrator account created")
	}
	return nil
}
