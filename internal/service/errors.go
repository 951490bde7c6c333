package service

import (
	"errors"
	"fmt"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/repository"
)

var errInvalidCredentials = apperr.New(apperr.KindAuthenticationRequired, "invalid_credentials", "invalid email or password")

// translate maps store sentinels onto client-facing errors and wraps anything
// else as internal.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.NotFound("user_not_found", "user not found")
	case errors.Is(err, repository.ErrTaskNotFound):
		return apperr.NotFound("task_not_found", "task not found")
	case errors.Is(err, repository.ErrEmailTaken):
		return apperr.Conflict("email_taken", "a user with this email already exists")
	case errors.Is(err, repository.ErrDisplayNameTaken):
		return apperr.Conflict("username_taken", "a user with this username already exists")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
