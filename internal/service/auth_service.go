package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/config"
	"github.com/CHUDOAL/Valve-sait/internal/ids"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/repository"
	"github.com/CHUDOAL/Valve-sait/internal/security"
)

const maxDisplayNameLen = 50

// AuthService owns accounts and sessions and is the session and role guard
// every authenticated endpoint goes through.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type RegisterInput struct {
	DisplayName string
	Email       string
	Password    string
	Role        models.UserRole
	Bio         *string
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput, client ClientInfo) (AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	if err := validateDisplayName(input.DisplayName); err != nil {
		return AuthResult{}, err
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return AuthResult{}, apperr.Validation("invalid_email", "email address is not valid")
	}
	if input.Password == "" {
		return AuthResult{}, apperr.Validation("password_required", "password is required")
	}
	if !input.Role.Valid() {
		return AuthResult{}, apperr.Validation("invalid_role", "role must be manager or employee")
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		Status:       models.UserStatusActive,
		Bio:          input.Bio,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, translate("create user", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return s.createSession(ctx, user, client)
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput, client ClientInfo) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, errInvalidCredentials
		}
		return AuthResult{}, translate("find user", err)
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, apperr.Forbidden("account is not active")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return AuthResult{}, errInvalidCredentials
	}
	if !ok {
		return AuthResult{}, errInvalidCredentials
	}

	return s.createSession(ctx, user, client)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(ctx, security.HashSessionToken(token)); err != nil {
		return translate("delete session", err)
	}
	return nil
}

// Authenticate resolves a session token to its user. Expired sessions are
// rejected here even if they have not been swept yet.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, apperr.Unauthenticated("authentication required")
	}

	session, err := s.sessions.FindValid(ctx, security.HashSessionToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, apperr.Unauthenticated("session expired or invalid")
		}
		return models.User{}, translate("find session", err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.Unauthenticated("session user no longer exists")
		}
		return models.User{}, translate("load session user", err)
	}
	if user.Status != models.UserStatusActive {
		return models.User{}, apperr.Forbidden("account is not active")
	}
	return user, nil
}

// IssueStreamTicket signs a short-lived websocket ticket for user.
func (s *AuthService) IssueStreamTicket(user models.User) (string, time.Time, error) {
	now := s.now()
	ticket, err := security.IssueStreamTicket(s.cfg.TicketSecret, user.ID, string(user.Role), s.cfg.TicketTTL, now)
	if err != nil {
		return "", time.Time{}, apperr.Internal(err)
	}
	return ticket, now.Add(s.cfg.TicketTTL), nil
}

func (s *AuthService) AuthenticateTicket(ctx context.Context, ticket string) (models.User, error) {
	claims, err := security.ParseStreamTicket(ticket, s.cfg.TicketSecret)
	if err != nil {
		return models.User{}, apperr.Unauthenticated("invalid stream ticket")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, apperr.Unauthenticated("invalid stream ticket")
	}
	if user.Status != models.UserStatusActive {
		return models.User{}, apperr.Forbidden("account is not active")
	}
	return user, nil
}

// SweepExpired deletes sessions that expired before now minus grace.
func (s *AuthService) SweepExpired(ctx context.Context, grace time.Duration) (int64, error) {
	removed, err := s.sessions.DeleteExpiredBefore(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return removed, nil
}

func (s *AuthService) createSession(ctx context.Context, user models.User, client ClientInfo) (AuthResult, error) {
	token, hash, err := security.GenerateSessionToken()
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	session := models.Session{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenHash: hash,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, translate("create session", err)
	}

	return AuthResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// RequireRole returns a Forbidden error unless user holds one of roles.
func RequireRole(user models.User, roles ...models.UserRole) error {
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return apperr.Forbidden("insufficient permissions")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateDisplayName(name string) error {
	if name == "" {
		return apperr.Validation("username_required", "username is required")
	}
	if len([]rune(name)) > maxDisplayNameLen {
		return apperr.Validation("username_too_long", fmt.Sprintf("username must be at most %d characters", maxDisplayNameLen))
	}
	return nil
}
