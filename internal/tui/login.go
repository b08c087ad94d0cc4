package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginDoneMsg reports the outcome of a login attempt started from the
// login screen.
type loginDoneMsg struct {
	ok bool
}

type loginModel struct {
	app      *App
	email    textinput.Model
	password textinput.Model
	focus    int
	busy     bool
	failed   bool
}

func newLoginModel(app *App) *loginModel {
	email := textinput.New()
	email.Placeholder = "email o codice fiscale"
	email.Focus()
	email.CharLimit = 128

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 128

	return &loginModel{app: app, email: email, password: password}
}

func (m *loginModel) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.busy = false
		m.failed = !msg.ok
		return nil, msg.ok

	case tea.KeyMsg:
		if m.busy {
			return nil, false
		}
		switch msg.String() {
		case "tab", "shift+tab":
			m.toggleFocus()
			return nil, false
		case "enter":
			if m.focus == 0 {
				m.toggleFocus()
				return nil, false
			}
			return m.submit(), false
		case "ctrl+a":
			return m.submitAnonymous(), false
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...), false
}

func (m *loginModel) toggleFocus() {
	if m.focus == 0 {
		m.focus = 1
		m.email.Blur()
		m.password.Focus()
	} else {
		m.focus = 0
		m.password.Blur()
		m.email.Focus()
	}
}

func (m *loginModel) submit() tea.Cmd {
	identifier, secret := m.email.Value(), m.password.Value()
	if identifier == "" || secret == "" {
		m.failed = true
		return nil
	}
	m.busy = true
	m.failed = false
	app := m.app
	return func() tea.Msg {
		ok := app.sessions.Login(context.Background(), identifier, secret)
		return loginDoneMsg{ok: ok}
	}
}

func (m *loginModel) submitAnonymous() tea.Cmd {
	m.busy = true
	m.failed = false
	app := m.app
	return func() tea.Msg {
		ok := app.sessions.LoginAnonymous(context.Background())
		return loginDoneMsg{ok: ok}
	}
}

func (m *loginModel) View() string {
	s := titleStyle.Render("Accedi a Carl") + "\n"
	s += m.email.View() + "\n"
	s += m.password.View() + "\n\n"
	if m.busy {
		s += "Accesso in corso...\n"
	}
	if m.failed {
		s += errorStyle.Render("Accesso non riuscito. Riprova.") + "\n"
	}
	s += helpStyle.Render("enter: accedi · ctrl+a: continua senza login · ctrl+c: esci")
	return s
}
