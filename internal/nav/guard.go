// Package nav decides when the UI must be redirected between the auth
// area and the main area based on session state.
package nav

import (
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/models"
	"github.com/carl-assist/carl-client/internal/session"
)

// Area is one of the two top-level UI areas.
type Area string

const (
	AreaAuth Area = "auth"
	AreaMain Area = "main"
)

// Router is the navigation surface the guard drives. Replace swaps the
// current area without growing a history stack.
type Router interface {
	Current() Area
	Replace(Area)
}

// Guard is a pure redirect policy. It holds no state of its own, so
// re-evaluating an unchanged snapshot never produces another redirect.
//
// Anonymous sessions may sit in either area; only a fully absent
// session is forced back to auth, and only a full session is barred
// from the auth area.
type Guard struct {
	router Router
	log    *zap.Logger
}

func NewGuard(router Router, log *zap.Logger) *Guard {
	return &Guard{router: router, log: log}
}

// Evaluate applies the redirect table to one session snapshot. While a
// session operation is in flight no decision is taken; the first real
// decision therefore happens only after Initialize completes.
func (g *Guard) Evaluate(s session.Snapshot) {
	if s.IsLoading {
		return
	}

	current := g.router.Current()
	switch {
	case s.IsFirstLaunch && current != AreaAuth:
		g.redirect(AreaAuth, "first launch")
	case s.Kind == models.TokenFull && current == AreaAuth:
		g.redirect(AreaMain, "authenticated")
	case s.Kind == models.TokenNone && current != AreaAuth:
		g.redirect(AreaAuth, "unauthenticated")
	}
}

// Attach subscribes the guard to session state changes. The returned
// function detaches it.
func (g *Guard) Attach(m *session.Manager) func() {
	return m.Subscribe(g.Evaluate)
}

func (g *Guard) redirect(to Area, reason string) {
	g.log.Debug("redirect", zap.String("to", string(to)), zap.String("reason", reason))
	g.router.Replace(to)
}
