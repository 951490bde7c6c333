package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/config"
	"github.com/CHUDOAL/Valve-sait/internal/media"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/repository/memory"
	"github.com/CHUDOAL/Valve-sait/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}

func securityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		SessionTTL:   time.Hour,
		CookieName:   "session_id",
		TicketSecret: "test-secret",
		TicketTTL:    time.Minute,
	}
}

func newAuth(t *testing.T) (*AuthService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewAuthService(store.Users, store.Sessions, securityConfig(), zerolog.Nop()), store
}

func register(t *testing.T, auth *AuthService, name, email string, role models.UserRole) AuthResult {
	t.Helper()
	res, err := auth.Register(context.Background(), RegisterInput{
		DisplayName: name,
		Email:       email,
		Password:    "secret-password",
		Role:        role,
	}, ClientInfo{IPAddress: "127.0.0.1"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, got, err)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	reg := register(t, auth, "alice", " Alice@Example.com ", models.UserRoleEmployee)
	if reg.User.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", reg.User.Email)
	}

	user, err := auth.Authenticate(ctx, reg.Token)
	if err != nil || user.ID != reg.User.ID {
		t.Fatalf("authenticate after register: %v", err)
	}

	login, err := auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret-password"}, ClientInfo{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Token == reg.Token {
		t.Fatalf("expected a fresh session token")
	}

	if err := auth.Logout(ctx, login.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = auth.Authenticate(ctx, login.Token)
	assertKind(t, err, apperr.KindAuthenticationRequired)

	// the registration session is unaffected
	if _, err := auth.Authenticate(ctx, reg.Token); err != nil {
		t.Fatalf("other session revoked: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	auth, _ := newAuth(t)
	register(t, auth, "bob", "bob@example.com", models.UserRoleEmployee)

	tests := []struct {
		name string
		in   RegisterInput
		kind apperr.Kind
		code string
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "x", Role: models.UserRoleEmployee}, apperr.KindValidation, "username_required"},
		{"long name", RegisterInput{DisplayName: strings.Repeat("n", 51), Email: "a@b.c", Password: "x", Role: models.UserRoleEmployee}, apperr.KindValidation, "username_too_long"},
		{"bad email", RegisterInput{DisplayName: "n", Email: "nope", Password: "x", Role: models.UserRoleEmployee}, apperr.KindValidation, "invalid_email"},
		{"no password", RegisterInput{DisplayName: "n", Email: "a@b.c", Role: models.UserRoleEmployee}, apperr.KindValidation, "password_required"},
		{"bad role", RegisterInput{DisplayName: "n", Email: "a@b.c", Password: "x", Role: "admin"}, apperr.KindValidation, "invalid_role"},
		{"duplicate email", RegisterInput{DisplayName: "bob2", Email: "BOB@example.com", Password: "x", Role: models.UserRoleEmployee}, apperr.KindConflict, "email_taken"},
		{"duplicate name", RegisterInput{DisplayName: "bob", Email: "other@example.com", Password: "x", Role: models.UserRoleEmployee}, apperr.KindConflict, "username_taken"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Register(context.Background(), tc.in, ClientInfo{})
			assertKind(t, err, tc.kind)
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Code != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuth(t)
	register(t, auth, "carol", "carol@example.com", models.UserRoleManager)

	_, err := auth.Login(context.Background(), LoginInput{Email: "carol@example.com", Password: "wrong"}, ClientInfo{})
	assertKind(t, err, apperr.KindAuthenticationRequired)

	_, err = auth.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "x"}, ClientInfo{})
	assertKind(t, err, apperr.KindAuthenticationRequired)
}

func TestExpiredSessionRejectedAndSwept(t *testing.T) {
	auth, store := newAuth(t)
	res := register(t, auth, "dave", "dave@example.com", models.UserRoleEmployee)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := auth.Authenticate(context.Background(), res.Token)
	assertKind(t, err, apperr.KindAuthenticationRequired)

	removed, err := auth.SweepExpired(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 || store.Sessions.Len() != 0 {
		t.Fatalf("expected one swept session, removed=%d left=%d", removed, store.Sessions.Len())
	}
}

func TestStreamTicket(t *testing.T) {
	auth, _ := newAuth(t)
	res := register(t, auth, "erin", "erin@example.com", models.UserRoleEmployee)

	ticket, expires, err := auth.IssueStreamTicket(res.User)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expires.After(time.Now()) {
		t.Fatalf("ticket already expired")
	}
	user, err := auth.AuthenticateTicket(context.Background(), ticket)
	if err != nil || user.ID != res.User.ID {
		t.Fatalf("authenticate ticket: %v", err)
	}

	_, err = auth.AuthenticateTicket(context.Background(), ticket+"x")
	assertKind(t, err, apperr.KindAuthenticationRequired)
}

func TestAssistantCannotLogin(t *testing.T) {
	auth, store := newAuth(t)
	ctx := context.Background()

	assistant, err := EnsureAssistant(ctx, store.Users, "AI Assistant", "assistant@portal.local")
	if err != nil {
		t.Fatalf("ensure assistant: %v", err)
	}
	again, err := EnsureAssistant(ctx, store.Users, "AI Assistant", "assistant@portal.local")
	if err != nil || again.ID != assistant.ID {
		t.Fatalf("expected idempotent assistant, got %v", err)
	}
	if assistant.Status != models.UserStatusSystem {
		t.Fatalf("assistant status %s", assistant.Status)
	}

	_, err = auth.Login(ctx, LoginInput{Email: "assistant@portal.local", Password: ""}, ClientInfo{})
	assertKind(t, err, apperr.KindForbidden)
}

func TestEnsureManager(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	cfg := config.SeedConfig{ManagerEmail: "boss@valve.com", ManagerName: "admin", ManagerPassword: "pw"}

	for i := 0; i < 2; i++ {
		if err := EnsureManager(ctx, store.Users, cfg, zerolog.Nop()); err != nil {
			t.Fatalf("ensure manager: %v", err)
		}
	}
	managers, _ := store.Users.ListByRole(ctx, models.UserRoleManager)
	if len(managers) != 1 || managers[0].Email != "boss@valve.com" {
		t.Fatalf("unexpected managers: %+v", managers)
	}

	empty := memory.New()
	if err := EnsureManager(ctx, empty.Users, config.SeedConfig{ManagerEmail: "x@y.z"}, zerolog.Nop()); err != nil {
		t.Fatalf("skip seed: %v", err)
	}
	if _, err := empty.Users.FindByEmail(ctx, "x@y.z"); err == nil {
		t.Fatalf("manager created without password")
	}
}

func TestTaskLifecycle(t *testing.T) {
	auth, store := newAuth(t)
	tasks := NewTaskService(store.Tasks, store.Users)
	ctx := context.Background()

	boss := register(t, auth, "boss", "boss@example.com", models.UserRoleManager).User
	other := register(t, auth, "other-boss", "other@example.com", models.UserRoleManager).User
	worker := register(t, auth, "worker", "worker@example.com", models.UserRoleEmployee).User
	peer := register(t, auth, "peer", "peer@example.com", models.UserRoleEmployee).User

	task, err := tasks.Create(ctx, boss, CreateTaskInput{Title: " Report ", Description: "Q3", AssigneeID: worker.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != models.TaskStatusPending || task.Title != "Report" {
		t.Fatalf("unexpected task: %+v", task)
	}

	t.Run("create rules", func(t *testing.T) {
		_, err := tasks.Create(ctx, worker, CreateTaskInput{Title: "x", AssigneeID: peer.ID})
		assertKind(t, err, apperr.KindForbidden)
		_, err = tasks.Create(ctx, boss, CreateTaskInput{Title: "", AssigneeID: worker.ID})
		assertKind(t, err, apperr.KindValidation)
		_, err = tasks.Create(ctx, boss, CreateTaskInput{Title: "x", AssigneeID: "missing"})
		assertKind(t, err, apperr.KindNotFound)
		_, err = tasks.Create(ctx, boss, CreateTaskInput{Title: "x", AssigneeID: other.ID})
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("listing", func(t *testing.T) {
		mine, _ := tasks.List(ctx, boss)
		theirs, _ := tasks.List(ctx, other)
		assigned, _ := tasks.List(ctx, worker)
		none, _ := tasks.List(ctx, peer)
		if len(mine) != 1 || len(theirs) != 0 || len(assigned) != 1 || len(none) != 0 {
			t.Fatalf("unexpected list sizes %d %d %d %d", len(mine), len(theirs), len(assigned), len(none))
		}
	})

	t.Run("status updates", func(t *testing.T) {
		_, err := tasks.UpdateStatus(ctx, peer, task.ID, models.TaskStatusCompleted)
		assertKind(t, err, apperr.KindForbidden)
		_, err = tasks.UpdateStatus(ctx, other, task.ID, models.TaskStatusCompleted)
		assertKind(t, err, apperr.KindForbidden)
		_, err = tasks.UpdateStatus(ctx, worker, task.ID, "done")
		assertKind(t, err, apperr.KindValidation)
		_, err = tasks.UpdateStatus(ctx, worker, "missing", models.TaskStatusCompleted)
		assertKind(t, err, apperr.KindNotFound)

		updated, err := tasks.UpdateStatus(ctx, worker, task.ID, models.TaskStatusInProgress)
		if err != nil || updated.Status != models.TaskStatusInProgress {
			t.Fatalf("assignee update: %v", err)
		}
		updated, err = tasks.UpdateStatus(ctx, boss, task.ID, models.TaskStatusCompleted)
		if err != nil || updated.Status != models.TaskStatusCompleted {
			t.Fatalf("creator update: %v", err)
		}
	})
}

func TestProfileUpdateAndAvatar(t *testing.T) {
	auth, store := newAuth(t)
	ctx := context.Background()
	backend, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	uploader := media.NewUploader(backend, "/uploads", 1<<20)
	profiles := NewProfileService(store.Users, uploader, zerolog.Nop())

	user := register(t, auth, "frank", "frank@example.com", models.UserRoleEmployee).User
	register(t, auth, "grace", "grace@example.com", models.UserRoleEmployee)

	bio := "likes trains"
	updated, err := profiles.Update(ctx, user, ProfileUpdate{Bio: &bio})
	if err != nil || updated.Bio == nil || *updated.Bio != bio || updated.DisplayName != "frank" {
		t.Fatalf("bio update: %v %+v", err, updated)
	}

	taken := "grace"
	_, err = profiles.Update(ctx, updated, ProfileUpdate{DisplayName: &taken})
	assertKind(t, err, apperr.KindConflict)

	upload := func() media.Upload {
		return media.Upload{
			Filename:    "me.png",
			ContentType: "image/png",
			Size:        int64(len(pngHeader)),
			Body:        bytes.NewReader(pngHeader),
		}
	}
	first, err := profiles.UploadAvatar(ctx, updated, upload())
	if err != nil {
		t.Fatalf("first avatar: %v", err)
	}
	current, _ := profiles.Get(ctx, user.ID)
	second, err := profiles.UploadAvatar(ctx, current, upload())
	if err != nil {
		t.Fatalf("second avatar: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct avatar refs")
	}

	key, _ := storage.KeyFromRef("/uploads", first)
	if _, _, err := backend.Open(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("previous avatar not removed: %v", err)
	}

	_, err = profiles.UploadAvatar(ctx, current, media.Upload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	assertKind(t, err, apperr.KindValidation)

	employees, err := profiles.ListEmployees(ctx)
	if err != nil || len(employees) != 2 {
		t.Fatalf("list employees: %v %d", err, len(employees))
	}
}
