package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/carl-assist/carl-client/internal/chat"
	"github.com/carl-assist/carl-client/internal/models"
)

// chatUpdateMsg wakes the view when the channel's state or message
// sequence changed.
type chatUpdateMsg struct{}

// historyMsg delivers the pre-connection chat history.
type historyMsg struct {
	messages []models.ChatMessage
}

type chatModel struct {
	app     *App
	channel *chat.Channel
	input   textinput.Model
}

func newChatModel(app *App) *chatModel {
	input := textinput.New()
	input.Placeholder = "Scrivi un messaggio..."
	input.Focus()
	input.CharLimit = 1024

	return &chatModel{app: app, input: input}
}

// mount opens a fresh channel scoped to the current session token. Any
// previous channel is closed first, so a token change never leaves a
// connection authenticated as a stale identity.
func (m *chatModel) mount() tea.Cmd {
	m.unmount()

	snap := m.app.sessions.Snapshot()
	m.channel = chat.New(chat.URL(m.app.cfg, m.app.sessions.CurrentToken(), snap.User), m.app.log)

	app := m.app
	return tea.Batch(
		func() tea.Msg {
			history, err := app.client.History(context.Background())
			if err != nil {
				// History is best-effort; the live channel still opens.
				return historyMsg{}
			}
			return historyMsg{messages: history}
		},
		m.waitUpdates(),
	)
}

func (m *chatModel) unmount() {
	if m.channel != nil {
		m.channel.Close()
		m.channel = nil
	}
}

func (m *chatModel) open() tea.Cmd {
	channel := m.channel
	return func() tea.Msg {
		_ = channel.Open(context.Background())
		return chatUpdateMsg{}
	}
}

func (m *chatModel) waitUpdates() tea.Cmd {
	channel := m.channel
	return func() tea.Msg {
		<-channel.Updates()
		return chatUpdateMsg{}
	}
}

func (m *chatModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case historyMsg:
		if m.channel != nil {
			m.channel.Seed(msg.messages)
			return m.open()
		}
		return nil

	case chatUpdateMsg:
		if m.channel == nil {
			return nil
		}
		return m.waitUpdates()

	case tea.KeyMsg:
		if msg.String() == "enter" {
			text := m.input.Value()
			if text != "" && m.channel != nil {
				m.channel.Send(text)
				m.input.Reset()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *chatModel) View() string {
	s := titleStyle.Render("Assistenza") + "\n"

	if m.channel == nil {
		return s + "Connessione in corso...\n"
	}

	switch m.channel.State() {
	case chat.StateIdle, chat.StateConnecting:
		s += systemText.Render("Connessione in corso...") + "\n"
	case chat.StateClosed:
		s += systemText.Render("Disconnesso.") + "\n"
	}

	for _, msg := range m.channel.Messages() {
		ts := msg.Timestamp.Format("15:04")
		switch msg.Origin {
		case models.OriginUser:
			s += fmt.Sprintf("%s %s\n", userBubble.Render(msg.Text), helpStyle.Render(ts))
		case models.OriginRemote:
			s += fmt.Sprintf("%s %s\n", remoteBubble.Render(msg.Text), helpStyle.Render(ts))
		default:
			s += systemText.Render(msg.Text) + "\n"
		}
	}

	s += "\n" + m.input.View() + "\n"
	s += helpStyle.Render("enter: invia · esc: indietro")
	return s
}
