package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newChatServer runs handler for each upgraded connection and returns
// the ws:// URL of the server.
func newChatServer(t *testing.T, handler func(conn *websocket.Conn)) (string, *httptest.Server) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func drainUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestOpenHandshakeAppendsConnectionNotice(t *testing.T) {
	url, srv := newChatServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(models.ServerEvent{
			Type:      models.EventTypeConnection,
			ChatID:    "c1",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		drainUntilClosed(conn)
	})
	defer srv.Close()

	ch := New(url, zap.NewNop())
	require.NoError(t, ch.Open(context.Background()))
	assert.Equal(t, StateOpen, ch.State())

	waitFor(t, func() bool { return ch.ChatID() == "c1" })
	messages := ch.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.OriginSystem, messages[0].Origin)
	assert.Contains(t, messages[0].Text, "Connected to chat")

	ch.Close()
	<-ch.Done()
}

func TestAdminMessageAppendedAsRemote(t *testing.T) {
	url, srv := newChatServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(models.ServerEvent{
			Type:       models.EventTypeMessage,
			SenderType: models.SenderAdmin,
			Message:    "hi",
		})
		drainUntilClosed(conn)
	})
	defer srv.Close()

	ch := New(url, zap.NewNop())
	require.NoError(t, ch.Open(context.Background()))

	waitFor(t, func() bool { return len(ch.Messages()) == 1 })
	msg := ch.Messages()[0]
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, models.OriginRemote, msg.Origin)

	ch.Close()
	<-ch.Done()
}

func TestSelfEchoSuppressed(t *testing.T) {
	url, srv := newChatServer(t, func(conn *websocket.Conn) {
		var out models.OutboundMessage
		if err := conn.ReadJSON(&out); err != nil {
			return
		}
		// Echo the user's own message back, then an admin reply as a
		// sync point.
		_ = conn.WriteJSON(models.ServerEvent{
			Type:       models.EventTypeMessage,
			SenderType: models.SenderUser,
			Message:    out.Message,
		})
		_ = conn.WriteJSON(models.ServerEvent{
			Type:       models.EventTypeMessage,
			SenderType: models.SenderAdmin,
			Message:    "reply",
		})
		drainUntilClosed(conn)
	})
	defer srv.Close()

	ch := New(url, zap.NewNop())
	require.NoError(t, ch.Open(context.Background()))
	ch.Send("hello")

	waitFor(t, func() bool {
		for _, m := range ch.Messages() {
			if m.Text == "reply" {
				return true
			}
		}
		return false
	})

	hellos := 0
	for _, m := range ch.Messages() {
		if m.Text == "hello" {
			hellos++
			assert.Equal(t, models.OriginUser, m.Origin)
		}
	}
	assert.Equal(t, 1, hellos, "echo of own message must not be appended again")

	ch.Close()
	<-ch.Done()
}

func TestSendBeforeOpenIsNoOp(t *testing.T) {
	ch := New("ws://unused.invalid/ws/tok", zap.NewNop())
	ch.Send("hello")
	assert.Empty(t, ch.Messages())
	assert.Equal(t, StateIdle, ch.State())
}

func TestSendAfterCloseIsNoOp(t *testing.T) {
	url, srv := newChatServer(t, drainUntilClosed)
	defer srv.Close()

	ch := New(url, zap.NewNop())
	require.NoError(t, ch.Open(context.Background()))
	ch.Close()
	<-ch.Done()

	before := len(ch.Messages())
	ch.Send("too late")
	assert.Len(t, ch.Messages(), before)
}

func TestDialFailureAppendsSystemMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close() // nothing listening anymore

	ch := New(url, zap.NewNop())
	err := ch.Open(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateClosed, ch.State())
	messages := ch.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.OriginSystem, messages[0].Origin)
	assert.Contains(t, messages[0].Text, "Could not connect")
}

func TestConnectionLossAppendsSystemMessage(t *testing.T) {
	url, srv := newChatServer(t, func(conn *websocket.Conn) {
		// Drop the connection without a close frame.
		conn.Close()
	})
	defer srv.Close()

	ch := New(url, zap.NewNop())
	require.NoError(t, ch.Open(context.Background()))

	waitFor(t, func() bool { return ch.State() == StateClosed })
	<-ch.Done()

	messages := ch.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.OriginSystem, messages[0].Origin)
}

func TestSeedPreloadsHistoryInOrder(t *testing.T) {
	url, srv := newChatServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(models.ServerEvent{
			Type:       models.EventTypeMessage,
			SenderType: models.SenderAdmin,
			Message:    "fresh",
		})
		drainUntilClosed(conn)
	})
	defer srv.Close()

	ch := New(url, zap.NewNop())
	ch.Seed([]models.ChatMessage{
		{ID: "h1", Text: "old question", Origin: models.OriginUser},
		{ID: "h2", Text: "old answer", Origin: models.OriginRemote},
	})
	require.NoError(t, ch.Open(context.Background()))

	waitFor(t, func() bool { return len(ch.Messages()) == 3 })
	messages := ch.Messages()
	assert.Equal(t, "old question", messages[0].Text)
	assert.Equal(t, "old answer", messages[1].Text)
	assert.Equal(t, "fresh", messages[2].Text)

	// Seeding after open is ignored.
	ch.Seed([]models.ChatMessage{{ID: "h3", Text: "late"}})
	assert.Len(t, ch.Messages(), 3)

	ch.Close()
	<-ch.Done()
}
