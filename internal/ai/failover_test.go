package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubModel struct {
	name     string
	calls    int
	complete func(ctx context.Context, p Prompt) (string, error)
}

func (s *stubModel) Name() string { return s.name }

func (s *stubModel) Complete(ctx context.Context, p Prompt) (string, error) {
	s.calls++
	return s.complete(ctx, p)
}

func answer(text string) func(context.Context, Prompt) (string, error) {
	return func(context.Context, Prompt) (string, error) { return text, nil }
}

func fail(err error) func(context.Context, Prompt) (string, error) {
	return func(context.Context, Prompt) (string, error) { return "", err }
}

func TestFailoverPrimarySucceeds(t *testing.T) {
	primary := &stubModel{name: "p", complete: answer("from primary")}
	fallback := &stubModel{name: "f", complete: answer("from fallback")}

	got, err := NewFailover(time.Second, zerolog.Nop(), primary, fallback).Complete(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "from primary" || fallback.calls != 0 {
		t.Fatalf("expected primary answer without fallback, got %q (fallback calls %d)", got, fallback.calls)
	}
}

func TestFailoverUsesFallbackOnAnyError(t *testing.T) {
	primary := &stubModel{name: "p", complete: fail(errors.New("model not found"))}
	fallback := &stubModel{name: "f", complete: answer("from fallback")}

	got, err := NewFailover(time.Second, zerolog.Nop(), primary, fallback).Complete(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "from fallback" || primary.calls != 1 {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestFailoverPerAttemptTimeout(t *testing.T) {
	slow := &stubModel{name: "slow", complete: func(ctx context.Context, _ Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	fallback := &stubModel{name: "f", complete: answer("ok")}

	got, err := NewFailover(20*time.Millisecond, zerolog.Nop(), slow, fallback).Complete(context.Background(), Prompt{})
	if err != nil || got != "ok" {
		t.Fatalf("expected fallback after timeout, got %q %v", got, err)
	}
}

func TestFailoverAllFail(t *testing.T) {
	last := errors.New("quota")
	f := NewFailover(time.Second, zerolog.Nop(),
		&stubModel{name: "p", complete: fail(errors.New("down"))},
		&stubModel{name: "f", complete: fail(last)},
	)

	_, err := f.Complete(context.Background(), Prompt{})
	if !errors.Is(err, ErrAllModelsFailed) || !errors.Is(err, last) {
		t.Fatalf("expected wrapped last error, got %v", err)
	}
}

func TestIsReasoningModel(t *testing.T) {
	for model, want := range map[string]bool{"o1-mini": true, "o3": true, "gpt-4o-mini": false, "omni": false} {
		if got := isReasoningModel(model); got != want {
			t.Fatalf("%s: expected %v", model, want)
		}
	}
}
