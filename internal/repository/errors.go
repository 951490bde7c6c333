package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrDisplayNameTaken = errors.New("display name already taken")
)

const uniqueViolation = "23505"

// mapUserConflict turns unique violations on users into the matching sentinel.
func mapUserConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrEmailTaken
	case "users_display_name_key":
		return ErrDisplayNameTaken
	}
	return err
}
