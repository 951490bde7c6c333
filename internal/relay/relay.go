// Package relay carries broadcast payloads to every portal instance. Local
// delivers straight into this process's hub; Stream goes through a redis
// stream that every instance tails.
package relay

import (
	"context"

	"github.com/CHUDOAL/Valve-sait/internal/hub"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, payload []byte) error
}

type Local struct {
	hub *hub.Hub
}

func NewLocal(h *hub.Hub) *Local {
	return &Local{hub: h}
}

func (l *Local) Broadcast(_ context.Context, payload []byte) error {
	l.hub.Broadcast(payload)
	return nil
}
