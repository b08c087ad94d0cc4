// Package chat maintains the live support-chat connection. One channel
// exists per mounted chat screen, scoped to the session token it was
// built with; when the token changes the owner must Close it and build
// a new one so no connection lingers under a stale identity.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/models"
)

// State is the connection lifecycle: Idle → Connecting → Open → Closed.
// There is no automatic reconnect; a fresh channel is needed to retry.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

const (
	connectedText   = "Connected to chat. An admin will be with you shortly."
	unreachableText = "Could not connect to the chat service. Please try again later."
)

type Channel struct {
	url    string
	dialer *websocket.Dialer
	log    *zap.Logger

	mu       sync.Mutex
	state    State
	chatID   string
	conn     *websocket.Conn
	messages []models.ChatMessage
	closing  bool

	updates chan struct{}
	done    chan struct{}
}

// New builds an idle channel for the given WebSocket URL (see URL for
// the deployment variants).
func New(wsURL string, log *zap.Logger) *Channel {
	return &Channel{
		url:     wsURL,
		dialer:  websocket.DefaultDialer,
		log:     log,
		state:   StateIdle,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Seed preloads previously fetched history into the message sequence.
// Only meaningful before Open.
func (c *Channel) Seed(history []models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return
	}
	c.messages = append(c.messages, history...)
}

// Open dials the backend and starts the read loop. On transport
// failure the channel ends Closed and a system-origin message is
// appended: that inline message is the only user-visible error surface
// for the chat transport.
func (c *Channel) Open(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.log.Warn("chat dial failed", zap.Error(err))
		c.mu.Lock()
		c.state = StateClosed
		c.appendLocked(models.ChatMessage{
			ID:        uuid.NewString(),
			Text:      unreachableText,
			Origin:    models.OriginSystem,
			Timestamp: time.Now(),
		})
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()
	c.notify()

	go c.readLoop(conn)
	return nil
}

// Send transmits a user message. It is a silent no-op unless the
// channel is Open. The text is appended to the local sequence before
// the network write, so the user sees it immediately; the server's echo
// of it is suppressed in the read loop.
func (c *Channel) Send(text string) {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.appendLocked(models.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Origin:    models.OriginUser,
		Timestamp: time.Now(),
	})
	c.mu.Unlock()
	c.notify()

	if err := conn.WriteJSON(models.OutboundMessage{Message: text}); err != nil {
		c.log.Warn("chat send failed", zap.Error(err))
	}
}

// Close tears the connection down. Mandatory on screen unmount and on
// any session token change.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.notify()
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChatID returns the server-assigned conversation id, empty until the
// handshake event arrives.
func (c *Channel) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// Messages returns a copy of the append-only message sequence in
// display order.
func (c *Channel) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Updates is a coalesced notification channel: a receive means the
// state or message sequence changed since the last look.
func (c *Channel) Updates() <-chan struct{} {
	return c.updates
}

// Done is closed when the read loop has finished.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer close(c.done)

	for {
		var event models.ServerEvent
		if err := conn.ReadJSON(&event); err != nil {
			c.mu.Lock()
			deliberate := c.closing
			c.state = StateClosed
			c.conn = nil
			if !deliberate && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("chat connection lost", zap.Error(err))
				c.appendLocked(models.ChatMessage{
					ID:        uuid.NewString(),
					Text:      unreachableText,
					Origin:    models.OriginSystem,
					Timestamp: time.Now(),
				})
			}
			c.mu.Unlock()
			c.notify()
			return
		}

		switch event.Type {
		case models.EventTypeConnection:
			c.mu.Lock()
			c.chatID = event.ChatID
			c.appendLocked(models.ChatMessage{
				ID:        uuid.NewString(),
				Text:      connectedText,
				Origin:    models.OriginSystem,
				Timestamp: event.Time(),
			})
			c.mu.Unlock()
			c.notify()
		case models.EventTypeMessage:
			// Only admin messages are appended: the user's own sent
			// text was already added optimistically on Send.
			if event.SenderType != models.SenderAdmin {
				continue
			}
			c.mu.Lock()
			c.appendLocked(models.ChatMessage{
				ID:        uuid.NewString(),
				Text:      event.Message,
				Origin:    models.OriginRemote,
				Timestamp: event.Time(),
			})
			c.mu.Unlock()
			c.notify()
		default:
			// Unknown event types are ignored.
		}
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify()
}

func (c *Channel) appendLocked(msg models.ChatMessage) {
	c.messages = append(c.messages, msg)
}

func (c *Channel) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
