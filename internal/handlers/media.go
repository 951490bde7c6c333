package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/media"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
	"github.com/CHUDOAL/Valve-sait/internal/storage"
)

const multipartOverhead = 1 << 20

// ServeMedia streams a stored upload back to the client.
func (h HandlerSet) ServeMedia(c *gin.Context) {
	key, err := storage.CleanKey(c.Param("key"))
	if err != nil {
		middleware.Abort(c, apperr.NotFound("media_not_found", "file not found"))
		return
	}

	body, obj, err := h.media.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			middleware.Abort(c, apperr.NotFound("media_not_found", "file not found"))
			return
		}
		middleware.Abort(c, err)
		return
	}
	defer body.Close()

	// only media kinds render inline; anything else is forced to download
	if _, err := media.Classify(obj.ContentType); err != nil {
		c.Header("Content-Type", "application/octet-stream")
		c.Header("Content-Disposition", "attachment")
	} else {
		c.Header("Content-Type", obj.ContentType)
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "public, max-age=86400")
	if obj.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.log.Debug().Err(err).Str("key", key).Msg("media stream interrupted")
	}
}

// formUpload reads the optional multipart file in field. It returns a nil
// upload when the field is absent.
func (h HandlerSet) formUpload(c *gin.Context, field string) (*media.Upload, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Chat.MaxUploadBytes+multipartOverhead)

	file, header, err := c.Request.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, func() {}, nil
		case errors.As(err, &maxErr):
			return nil, func() {}, apperr.Validation("file_too_large", "upload exceeds the size limit")
		}
		return nil, func() {}, apperr.Validation("invalid_form", "could not read multipart form")
	}

	return &media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { file.Close() }, nil
}
