package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/media"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

type ProfileService struct {
	users   UserStore
	avatars AvatarStore
	log     zerolog.Logger
}

func NewProfileService(users UserStore, avatars AvatarStore, log zerolog.Logger) *ProfileService {
	return &ProfileService{users: users, avatars: avatars, log: log}
}

func (s *ProfileService) Get(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, translate("get user", err)
	}
	return user, nil
}

func (s *ProfileService) ListEmployees(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListByRole(ctx, models.UserRoleEmployee)
	if err != nil {
		return nil, translate("list employees", err)
	}
	return users, nil
}

// ProfileUpdate leaves a field untouched when it is nil. An empty display
// name is treated as absent.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
}

func (s *ProfileService) Update(ctx context.Context, user models.User, in ProfileUpdate) (models.User, error) {
	displayName := user.DisplayName
	if in.DisplayName != nil {
		if trimmed := strings.TrimSpace(*in.DisplayName); trimmed != "" {
			if err := validateDisplayName(trimmed); err != nil {
				return models.User{}, err
			}
			displayName = trimmed
		}
	}
	bio := user.Bio
	if in.Bio != nil {
		bio = in.Bio
	}

	if err := s.users.UpdateProfile(ctx, user.ID, displayName, bio); err != nil {
		return models.User{}, translate("update profile", err)
	}
	return s.Get(ctx, user.ID)
}

// UploadAvatar stores a new avatar image, points the profile at it and then
// drops the previous one.
func (s *ProfileService) UploadAvatar(ctx context.Context, user models.User, upload media.Upload) (string, error) {
	upload.OwnerID = user.ID
	stored, err := s.avatars.StoreAvatar(ctx, upload)
	if err != nil {
		return "", translate("store avatar", err)
	}

	if err := s.users.UpdateAvatar(ctx, user.ID, stored.Ref); err != nil {
		if rmErr := s.avatars.Remove(context.WithoutCancel(ctx), stored.Ref); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("avatar_ref", stored.Ref).Msg("orphaned avatar")
		}
		return "", translate("update avatar", err)
	}

	if user.AvatarRef != nil && *user.AvatarRef != stored.Ref {
		if err := s.avatars.Remove(context.WithoutCancel(ctx), *user.AvatarRef); err != nil {
			s.log.Warn().Err(err).Str("avatar_ref", *user.AvatarRef).Msg("remove previous avatar failed")
		}
	}
	return stored.Ref, nil
}
