package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "chat/images/a.png", want: "chat/images/a.png"},
		{key: "/avatars/b.jpg", want: "avatars/b.jpg"},
		{key: "", wantErr: true},
		{key: "../etc/passwd", wantErr: true},
		{key: "chat/../../x", wantErr: true},
		{key: "chat//x", wantErr: true},
	}
	for _, tc := range tests {
		got, err := CleanKey(tc.key)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.key)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %q, %v", tc.key, got, err)
		}
	}
}

func TestRefRoundTrip(t *testing.T) {
	ref := Ref("/uploads/", "avatars/u1_ab.png")
	if ref != "/uploads/avatars/u1_ab.png" {
		t.Fatalf("unexpected ref %q", ref)
	}
	key, ok := KeyFromRef("/uploads", ref)
	if !ok || key != "avatars/u1_ab.png" {
		t.Fatalf("unexpected key %q %v", key, ok)
	}
	if _, ok := KeyFromRef("/uploads", "https://elsewhere/x.png"); ok {
		t.Fatalf("foreign ref should not resolve")
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Put(ctx, "chat/images/x.png", strings.NewReader("data"), 4, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, obj, err := store.Open(ctx, "chat/images/x.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "data" || obj.Size != 4 || obj.ContentType != "image/png" {
		t.Fatalf("unexpected object %+v body %q", obj, body)
	}

	if err := store.Remove(ctx, "chat/images/x.png"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, _, err := store.Open(ctx, "chat/images/x.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Remove(ctx, "chat/images/x.png"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if err := store.Put(ctx, "../escape", strings.NewReader("x"), 1, ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
}
