package service

import (
	"context"
	"time"

	"github.com/CHUDOAL/Valve-sait/internal/media"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

// The interfaces below are satisfied by both the postgres repositories and
// the in-memory stores.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, displayName string, bio *string) error
	UpdateAvatar(ctx context.Context, id string, avatarRef string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindValid(ctx context.Context, tokenHash []byte, now time.Time) (models.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TaskStore interface {
	Create(ctx context.Context, task models.Task) (models.Task, error)
	GetByID(ctx context.Context, id string) (models.Task, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.Task, error)
	ListByAssignee(ctx context.Context, assigneeID string) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (models.Task, error)
}

type AvatarStore interface {
	StoreAvatar(ctx context.Context, in media.Upload) (media.Stored, error)
	Remove(ctx context.Context, ref string) error
}
