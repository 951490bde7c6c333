package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
)

// Abort renders err as {"error": code, "message": text} with the status its
// kind maps to. Unclassified errors are logged and hidden behind a generic
// internal error.
func Abort(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err)
	}

	status := apperr.HTTPStatus(appErr.Kind)
	if status >= 500 {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("code", appErr.Code).Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}
