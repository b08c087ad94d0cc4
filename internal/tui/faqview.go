package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carl-assist/carl-client/internal/models"
)

type faqsMsg struct {
	faqs []models.FAQ
	err  error
}

type faqModel struct {
	app    *App
	faqs   []models.FAQ
	err    error
	loaded bool
}

func newFAQModel(app *App) *faqModel {
	return &faqModel{app: app}
}

func (m *faqModel) mount() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		faqs, err := app.client.FAQs(context.Background())
		return faqsMsg{faqs: faqs, err: err}
	}
}

func (m *faqModel) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(faqsMsg); ok {
		m.faqs, m.err, m.loaded = msg.faqs, msg.err, true
	}
	return nil
}

func (m *faqModel) View() string {
	s := titleStyle.Render("Domande frequenti") + "\n"
	switch {
	case m.err != nil:
		s += errorStyle.Render(m.err.Error()) + "\n"
	case !m.loaded:
		s += "Caricamento...\n"
	case len(m.faqs) == 0:
		s += "Nessuna FAQ disponibile.\n"
	default:
		for _, faq := range m.faqs {
			s += questionStyle.Render(faq.Question) + "\n"
			s += faq.Answer + "\n\n"
		}
	}
	s += helpStyle.Render("esc: indietro")
	return s
}
