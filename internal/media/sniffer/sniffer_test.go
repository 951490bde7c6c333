package sniffer

import (
	"bytes"
	"errors"
	"testing"
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want MediaType
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}, TypePNG},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, TypeJPEG},
		{"gif", []byte("GIF89a...."), TypeGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP},
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), TypeWAV},
		{"mp4", []byte("\x00\x00\x00\x18ftypmp42"), TypeMP4},
		{"ogg", []byte("OggS\x00\x02"), TypeOGG},
		{"mp3", []byte("ID3\x03\x00"), TypeMP3},
		{"svg", []byte("  <svg xmlns=\"http://www.w3.org/2000/svg\"/>"), TypeSVG},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHead(tc.head)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if got.Type != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Type)
			}
		})
	}
}

func TestDetectUnknown(t *testing.T) {
	if _, err := DetectHead([]byte("PK\x03\x04zip")); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected unknown, got %v", err)
	}
	if _, err := DetectHead(nil); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected unknown for empty head")
	}
}

func TestDetectReturnsHead(t *testing.T) {
	data := append([]byte("GIF87a"), bytes.Repeat([]byte{1}, 1000)...)
	res, head, err := Detect(bytes.NewReader(data))
	if err != nil || res.Type != TypeGIF {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
	if len(head) != headSize {
		t.Fatalf("expected %d head bytes, got %d", headSize, len(head))
	}
}
