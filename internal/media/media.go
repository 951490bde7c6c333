// Package media maps uploaded attachments onto message kinds and storage keys.
package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/media/sniffer"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

type Category struct {
	Kind   models.MessageKind
	Folder string
}

var categories = map[string]Category{
	"image/": {Kind: models.MessageKindImage, Folder: "chat/images"},
	"video/": {Kind: models.MessageKindVideo, Folder: "chat/videos"},
	"audio/": {Kind: models.MessageKindAudio, Folder: "chat/audio"},
}

const AvatarFolder = "avatars"

// BaseType strips parameters from a Content-Type value and lowercases it.
func BaseType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Classify maps a declared content type to its message kind. Anything that is
// not image, video or audio is a validation error.
func Classify(contentType string) (Category, error) {
	base := BaseType(contentType)
	for prefix, cat := range categories {
		if strings.HasPrefix(base, prefix) && len(base) > len(prefix) {
			return cat, nil
		}
	}
	return Category{}, apperr.Validation("unsupported_media_type",
		fmt.Sprintf("content type %q is not an image, video or audio file", contentType))
}

var preferredExt = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"video/mp4":     ".mp4",
	"video/webm":    ".webm",
	"audio/mpeg":    ".mp3",
	"audio/ogg":     ".ogg",
	"audio/wav":     ".wav",
	"audio/webm":    ".weba",
}

// Extension picks the stored file extension: the original file name wins,
// then the leading bytes, then the declared content type. Name and sniffed
// extensions are kept only when they map back to the declared category, so
// an "image/png" upload named "pic.html" is still stored as ".png".
func Extension(filename, contentType string, head []byte) string {
	base := BaseType(contentType)
	family := typeFamily(base)

	if ext := strings.ToLower(filepath.Ext(filename)); isSafeExt(ext) && family != "" &&
		strings.HasPrefix(BaseType(mime.TypeByExtension(ext)), family) {
		return ext
	}
	if res, err := sniffer.DetectHead(head); err == nil && family != "" && strings.HasPrefix(res.MIME, family) {
		return res.Ext
	}
	if ext, ok := preferredExt[base]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// typeFamily returns the category prefix ("image/", "video/", "audio/") of a
// base content type, or "" when it has none.
func typeFamily(base string) string {
	for prefix := range categories {
		if strings.HasPrefix(base, prefix) {
			return prefix
		}
	}
	return ""
}

func isSafeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 8 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// ChatKey names a chat attachment: {userId}_{token}_{unix}{ext} under the
// category folder.
func ChatKey(cat Category, userID, token string, now time.Time, ext string) string {
	return fmt.Sprintf("%s/%s_%s_%d%s", cat.Folder, userID, token, now.Unix(), ext)
}

func AvatarKey(userID, token, ext string) string {
	return fmt.Sprintf("%s/%s_%s%s", AvatarFolder, userID, token, ext)
}

func IsSVG(contentType, ext string) bool {
	return BaseType(contentType) == "image/svg+xml" || ext == ".svg"
}
