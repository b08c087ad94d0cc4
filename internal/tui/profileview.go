package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carl-assist/carl-client/internal/models"
)

type downloadDoneMsg struct {
	path string
	err  error
}

// loggedOutMsg exists so the root model re-runs the guard once the
// logout has completed.
type loggedOutMsg struct{}

type profileModel struct {
	app      *App
	selected int
	busy     bool
	lastPath string
	lastErr  error
}

func newProfileModel(app *App) *profileModel {
	return &profileModel{app: app}
}

func (m *profileModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case downloadDoneMsg:
		m.busy = false
		m.lastPath, m.lastErr = msg.path, msg.err
		return nil

	case tea.KeyMsg:
		if m.busy {
			return nil
		}
		docs := models.DocumentTypes()
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(docs)-1 {
				m.selected++
			}
		case "enter":
			return m.download(docs[m.selected])
		case "ctrl+l":
			app := m.app
			return func() tea.Msg {
				app.sessions.Logout(context.Background())
				return loggedOutMsg{}
			}
		}
	}
	return nil
}

func (m *profileModel) download(doc models.DocumentType) tea.Cmd {
	m.busy = true
	m.lastErr = nil
	m.lastPath = ""
	app := m.app
	return func() tea.Msg {
		path, err := app.client.DownloadPDF(context.Background(), doc, app.cfg.DownloadsDir)
		return downloadDoneMsg{path: path, err: err}
	}
}

func (m *profileModel) View() string {
	s := titleStyle.Render("Profilo") + "\n"

	snap := m.app.sessions.Snapshot()
	if snap.User != nil {
		s += fmt.Sprintf("Utente: %s\n", snap.User.Name)
		s += fmt.Sprintf("Identificativo: %s\n\n", snap.User.DisplayIdentifier())
	} else {
		s += "Sessione anonima.\n\n"
	}

	s += questionStyle.Render("Documenti") + "\n"
	for i, doc := range models.DocumentTypes() {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		s += cursor + doc.Filename() + "\n"
	}
	s += "\n"

	switch {
	case m.busy:
		s += "Download in corso...\n"
	case m.lastErr != nil:
		s += errorStyle.Render(m.lastErr.Error()) + "\n"
	case m.lastPath != "":
		s += "Salvato in " + m.lastPath + "\n"
	}

	s += helpStyle.Render("enter: scarica · ctrl+l: logout · esc: indietro")
	return s
}
