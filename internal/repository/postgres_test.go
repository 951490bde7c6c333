package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CHUDOAL/Valve-sait/internal/config"
	"github.com/CHUDOAL/Valve-sait/internal/database"
	"github.com/CHUDOAL/Valve-sait/internal/ids"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, config.PostgresConfig{DSN: dsn, MaxOpen: 4, ConnMaxLifetime: time.Minute})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func newUser(role models.UserRole) models.User {
	id := ids.New()
	return models.User{
		ID:           id,
		Email:        id + "@test.local",
		PasswordHash: []byte("x"),
		DisplayName:  "user-" + id,
		Role:         role,
		Status:       models.UserStatusActive,
	}
}

func TestUserConflicts(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	u := newUser(models.UserRoleEmployee)
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupEmail := newUser(models.UserRoleEmployee)
	dupEmail.Email = u.Email
	if err := users.Create(ctx, dupEmail); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	dupName := newUser(models.UserRoleEmployee)
	dupName.DisplayName = u.DisplayName
	if err := users.Create(ctx, dupName); !errors.Is(err, ErrDisplayNameTaken) {
		t.Fatalf("expected ErrDisplayNameTaken, got %v", err)
	}

	if _, err := users.GetByID(ctx, ids.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool)
	sessions := NewSessionRepository(pool)
	ctx := context.Background()

	u := newUser(models.UserRoleEmployee)
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now().UTC()
	hash := []byte(ids.New())
	if err := sessions.Create(ctx, models.Session{ID: ids.New(), UserID: u.ID, TokenHash: hash, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := sessions.FindValid(ctx, hash, now); err != nil {
		t.Fatalf("find valid: %v", err)
	}
	if _, err := sessions.FindValid(ctx, hash, now.Add(2*time.Hour)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
}

func TestMessagesOrderedBySeq(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool)
	messages := NewMessageRepository(pool)
	ctx := context.Background()

	u := newUser(models.UserRoleEmployee)
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// identical timestamps fall back to insertion order
	at := time.Now().UTC().Add(time.Hour)
	a, b := "first", "second"
	saved, err := messages.Create(ctx,
		models.Message{ID: ids.New(), AuthorID: u.ID, Content: &a, Kind: models.MessageKindText, CreatedAt: at},
		models.Message{ID: ids.New(), AuthorID: u.ID, Content: &b, Kind: models.MessageKindText, CreatedAt: at},
	)
	if err != nil {
		t.Fatalf("create messages: %v", err)
	}
	if saved[1].Seq <= saved[0].Seq {
		t.Fatalf("expected increasing seq, got %d then %d", saved[0].Seq, saved[1].Seq)
	}

	recent, err := messages.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != saved[1].ID || recent[1].ID != saved[0].ID {
		t.Fatalf("expected newest first")
	}
	if recent[0].DisplayName != u.DisplayName {
		t.Fatalf("expected joined author name")
	}
}
