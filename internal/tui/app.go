// Package tui is the interactive terminal frontend: a login screen in
// the auth area, and chat, FAQ and profile screens in the main area.
// Screen switching between the two areas is decided by the navigation
// guard, never by the screens themselves.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/api"
	"github.com/carl-assist/carl-client/internal/config"
	"github.com/carl-assist/carl-client/internal/nav"
	"github.com/carl-assist/carl-client/internal/session"
)

// App bundles the long-lived collaborators every screen needs.
type App struct {
	cfg      *config.Config
	sessions *session.Manager
	client   *api.Client
	log      *zap.Logger
}

func NewApp(cfg *config.Config, sessions *session.Manager, client *api.Client, log *zap.Logger) *App {
	return &App{cfg: cfg, sessions: sessions, client: client, log: log}
}

// Run blocks until the user quits the interface.
func (a *App) Run() error {
	_, err := tea.NewProgram(newRootModel(a), tea.WithAltScreen()).Run()
	return err
}

type screen int

const (
	screenLogin screen = iota
	screenHome
	screenChat
	screenFAQ
	screenProfile
)

// initializedMsg signals that the startup session load finished.
type initializedMsg struct{}

// areaRouter is the guard's navigation surface: a single mutable area.
type areaRouter struct {
	area nav.Area
}

func (r *areaRouter) Current() nav.Area  { return r.area }
func (r *areaRouter) Replace(a nav.Area) { r.area = a }

type rootModel struct {
	app    *App
	router *areaRouter
	guard  *nav.Guard

	screen  screen
	login   *loginModel
	chat    *chatModel
	faq     *faqModel
	profile *profileModel

	ready bool
}

func newRootModel(app *App) *rootModel {
	router := &areaRouter{area: nav.AreaAuth}
	return &rootModel{
		app:     app,
		router:  router,
		guard:   nav.NewGuard(router, app.log),
		screen:  screenLogin,
		login:   newLoginModel(app),
		chat:    newChatModel(app),
		faq:     newFAQModel(app),
		profile: newProfileModel(app),
	}
}

func (m *rootModel) Init() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		app.sessions.Initialize(context.Background())
		return initializedMsg{}
	}
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case initializedMsg:
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.chat.unmount()
			return m, tea.Quit
		case "esc":
			if m.screen > screenHome {
				if m.screen == screenChat {
					m.chat.unmount()
				}
				m.screen = screenHome
				return m, nil
			}
		}
		cmd = m.dispatch(msg)

	default:
		cmd = m.dispatch(msg)
	}

	m.applyGuard()
	return m, cmd
}

// dispatch routes a message to the active screen.
func (m *rootModel) dispatch(msg tea.Msg) tea.Cmd {
	switch m.screen {
	case screenLogin:
		cmd, done := m.login.Update(msg)
		if done {
			// Anonymous sessions are not redirected by the guard, so
			// entering the main area is an explicit choice here.
			m.router.Replace(nav.AreaMain)
			m.screen = screenHome
		}
		return cmd
	case screenHome:
		return m.updateHome(msg)
	case screenChat:
		return m.chat.Update(msg)
	case screenFAQ:
		return m.faq.Update(msg)
	case screenProfile:
		return m.profile.Update(msg)
	}
	return nil
}

func (m *rootModel) updateHome(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "c":
		m.screen = screenChat
		return m.chat.mount()
	case "f":
		m.screen = screenFAQ
		return m.faq.mount()
	case "p":
		m.screen = screenProfile
		return nil
	}
	return nil
}

// applyGuard re-evaluates the redirect policy and realigns the active
// screen with the area it picked. The guard is idempotent, so running
// it after every update is safe.
func (m *rootModel) applyGuard() {
	if !m.ready {
		return
	}
	m.guard.Evaluate(m.app.sessions.Snapshot())

	switch m.router.area {
	case nav.AreaAuth:
		if m.screen != screenLogin {
			m.chat.unmount()
			m.screen = screenLogin
			m.login = newLoginModel(m.app)
		}
	case nav.AreaMain:
		if m.screen == screenLogin {
			m.screen = screenHome
		}
	}
}

func (m *rootModel) View() string {
	if !m.ready {
		return "Avvio in corso...\n"
	}
	switch m.screen {
	case screenLogin:
		return m.login.View()
	case screenChat:
		return m.chat.View()
	case screenFAQ:
		return m.faq.View()
	case screenProfile:
		return m.profile.View()
	default:
		return m.viewHome()
	}
}

func (m *rootModel) viewHome() string {
	s := titleStyle.Render("Carl") + "\n"
	snap := m.app.sessions.Snapshot()
	if snap.User != nil {
		s += "Ciao, " + snap.User.Name + "\n\n"
	} else {
		s += "Sessione anonima\n\n"
	}
	s += "  c  Assistenza (chat)\n"
	s += "  f  Domande frequenti\n"
	s += "  p  Profilo e documenti\n\n"
	s += helpStyle.Render("ctrl+c: esci")
	return s
}
