// Package sniffer recognises common media containers from their leading bytes.
package sniffer

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeSVG  MediaType = "svg"
	TypeMP4  MediaType = "mp4"
	TypeWEBM MediaType = "webm"
	TypeOGG  MediaType = "ogg"
	TypeMP3  MediaType = "mp3"
	TypeWAV  MediaType = "wav"
)

var ErrUnknownType = errors.New("unknown media type")

const headSize = 512

type Result struct {
	Type MediaType
	MIME string
	Ext  string
}

// Detect reads up to 512 bytes from r and classifies them. The consumed head
// is returned so callers can stitch it back in front of r.
func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	switch {
	case len(head) == 0:
		return Result{}, ErrUnknownType
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg", Ext: ".jpg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png", Ext: ".png"}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, MIME: "image/gif", Ext: ".gif"}, nil
	case isRIFF(head, "WEBP"):
		return Result{Type: TypeWEBP, MIME: "image/webp", Ext: ".webp"}, nil
	case isRIFF(head, "WAVE"):
		return Result{Type: TypeWAV, MIME: "audio/wav", Ext: ".wav"}, nil
	case isMP4(head):
		return Result{Type: TypeMP4, MIME: "video/mp4", Ext: ".mp4"}, nil
	case isWEBM(head):
		return Result{Type: TypeWEBM, MIME: "video/webm", Ext: ".webm"}, nil
	case bytes.HasPrefix(head, []byte("OggS")):
		return Result{Type: TypeOGG, MIME: "audio/ogg", Ext: ".ogg"}, nil
	case isMP3(head):
		return Result{Type: TypeMP3, MIME: "audio/mpeg", Ext: ".mp3"}, nil
	case isSVG(head):
		return Result{Type: TypeSVG, MIME: "image/svg+xml", Ext: ".svg"}, nil
	}
	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

func isPNG(head []byte) bool {
	return bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
}

func isGIF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a"))
}

func isRIFF(head []byte, format string) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && string(head[8:12]) == format
}

func isMP4(head []byte) bool {
	return len(head) >= 12 && string(head[4:8]) == "ftyp"
}

func isWEBM(head []byte) bool {
	return bytes.HasPrefix(head, []byte{0x1a, 0x45, 0xdf, 0xa3})
}

func isMP3(head []byte) bool {
	if bytes.HasPrefix(head, []byte("ID3")) {
		return true
	}
	// MPEG audio frame sync
	return len(head) > 2 && head[0] == 0xff && head[1]&0xe0 == 0xe0
}

func isSVG(head []byte) bool {
	trimmed := strings.TrimSpace(string(head))
	return strings.HasPrefix(trimmed, "<svg") ||
		(strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg"))
}
