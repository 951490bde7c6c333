package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/media/sniffer"
	"github.com/CHUDOAL/Valve-sait/internal/media/svg"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/security"
	"github.com/CHUDOAL/Valve-sait/internal/storage"
)

const tokenBytes = 8

type Upload struct {
	OwnerID     string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Stored struct {
	Key         string
	Ref         string
	ContentType string
	Category    Category
}

// Uploader validates attachments and writes them to the configured backend.
type Uploader struct {
	store        storage.Backend
	publicPrefix string
	maxBytes     int64
	now          func() time.Time
}

func NewUploader(store storage.Backend, publicPrefix string, maxBytes int64) *Uploader {
	return &Uploader{store: store, publicPrefix: publicPrefix, maxBytes: maxBytes, now: time.Now}
}

func (u *Uploader) StoreChatAttachment(ctx context.Context, in Upload) (Stored, error) {
	cat, err := Classify(in.ContentType)
	if err != nil {
		return Stored{}, err
	}
	return u.put(ctx, in, cat, func(token, ext string) string {
		return ChatKey(cat, in.OwnerID, token, u.now(), ext)
	})
}

func (u *Uploader) StoreAvatar(ctx context.Context, in Upload) (Stored, error) {
	cat, err := Classify(in.ContentType)
	if err != nil || cat.Kind != models.MessageKindImage {
		return Stored{}, apperr.Validation("avatar_not_image", "avatar must be an image")
	}
	return u.put(ctx, in, cat, func(token, ext string) string {
		return AvatarKey(in.OwnerID, token, ext)
	})
}

// Remove deletes the object behind ref. Refs outside the public prefix are
// ignored.
func (u *Uploader) Remove(ctx context.Context, ref string) error {
	key, ok := storage.KeyFromRef(u.publicPrefix, ref)
	if !ok {
		return nil
	}
	return u.store.Remove(ctx, key)
}

func (u *Uploader) put(ctx context.Context, in Upload, cat Category, keyFor func(token, ext string) string) (Stored, error) {
	if in.Body == nil {
		return Stored{}, apperr.Validation("missing_file", "file is required")
	}
	if u.maxBytes > 0 && in.Size > u.maxBytes {
		return Stored{}, apperr.Validation("file_too_large", fmt.Sprintf("file exceeds %d bytes", u.maxBytes))
	}

	_, head, err := sniffer.Detect(in.Body)
	if err != nil && !errors.Is(err, sniffer.ErrUnknownType) {
		return Stored{}, fmt.Errorf("read head: %w", err)
	}
	if len(head) == 0 {
		return Stored{}, apperr.Validation("empty_file", "file is empty")
	}

	ext := Extension(in.Filename, in.ContentType, head)
	body := io.MultiReader(bytes.NewReader(head), in.Body)
	size := in.Size
	contentType := BaseType(in.ContentType)

	if IsSVG(contentType, ext) {
		data, err := io.ReadAll(io.LimitReader(body, u.limit()))
		if err != nil {
			return Stored{}, fmt.Errorf("read svg: %w", err)
		}
		clean, err := svg.Sanitize(data)
		if err != nil {
			return Stored{}, apperr.Validation("invalid_svg", "file is not a valid svg document")
		}
		body = bytes.NewReader(clean)
		size = int64(len(clean))
		contentType = "image/svg+xml"
	}

	token, err := security.RandomToken(tokenBytes)
	if err != nil {
		return Stored{}, err
	}
	key := keyFor(token, ext)

	if err := u.store.Put(ctx, key, body, size, contentType); err != nil {
		return Stored{}, fmt.Errorf("store %s: %w", key, err)
	}

	return Stored{
		Key:         key,
		Ref:         storage.Ref(u.publicPrefix, key),
		ContentType: contentType,
		Category:    cat,
	}, nil
}

func (u *Uploader) limit() int64 {
	if u.maxBytes > 0 {
		return u.maxBytes
	}
	return 50 << 20
}
