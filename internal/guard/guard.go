package guard

import (
	"log/slog"

	"github.com/pzerone/webvirt-wizard/internal/session"
)

// Guard decides whether the protected view may be entered. It only looks at
// the local store: a revoked token is admitted until the server rejects it.
type Guard struct {
	store session.Store
}

func New(store session.Store) *Guard {
	return &Guard{store: store}
}

func (g *Guard) CanEnter() bool {
	_, ok, err := g.store.Get()
	if err != nil {
		slog.Warn("Session store unreadable, denying entry", "error", err)
		return false
	}
	return ok
}
