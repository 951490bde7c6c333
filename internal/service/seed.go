package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/config"
	"github.com/CHUDOAL/Valve-sait/internal/ids"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/repository"
	"github.com/CHUDOAL/Valve-sait/internal/security"
)

// EnsureManager creates the initial manager account when it is missing. It
// does nothing without a configured password.
func EnsureManager(ctx context.Context, users UserStore, cfg config.SeedConfig, log zerolog.Logger) error {
	if cfg.ManagerEmail == "" || cfg.ManagerPassword == "" {
		log.Debug().Msg("manager seed skipped, no credentials configured")
		return nil
	}

	email := normalizeEmail(cfg.ManagerEmail)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup manager: %w", err)
	}

	hash, err := security.HashPassword(cfg.ManagerPassword)
	if err != nil {
		return err
	}
	manager := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  cfg.ManagerName,
		Role:         models.UserRoleManager,
		Status:       models.UserStatusActive,
	}
	if err := users.Create(ctx, manager); err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	log.Info().Str("user_id", manager.ID).Str("email", email).Msg("seeded manager account")
	return nil
}

// EnsureAssistant returns the synthetic identity that authors AI replies,
// creating it on first start. It has no usable password.
func EnsureAssistant(ctx context.Context, users UserStore, name, email string) (models.User, error) {
	email = normalizeEmail(email)
	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("lookup assistant: %w", err)
	}

	assistant := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: []byte{},
		DisplayName:  name,
		Role:         models.UserRoleEmployee,
		Status:       models.UserStatusSystem,
	}
	if err := users.Create(ctx, assistant); err != nil {
		return models.User{}, fmt.Errorf("create assistant: %w", err)
	}
	return assistant, nil
}
