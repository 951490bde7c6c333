package svg

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	in := `<svg onload="alert(1)"><script>alert(2)</script><a href='javascript:x()'>l</a><circle r="1" onclick='y()'/></svg>`
	out, err := Sanitize([]byte(in))
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	got := string(out)
	for _, banned := range []string{"<script", "onload", "onclick", "javascript:"} {
		if strings.Contains(got, banned) {
			t.Fatalf("%q survived: %s", banned, got)
		}
	}
	if !strings.Contains(got, `<circle r="1"`) {
		t.Fatalf("benign content removed: %s", got)
	}
}

func TestSanitizeRejectsNonSVG(t *testing.T) {
	if _, err := Sanitize([]byte("<html></html>")); !errors.Is(err, ErrNotSVG) {
		t.Fatalf("expected ErrNotSVG, got %v", err)
	}
}
