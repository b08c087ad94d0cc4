package stub

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Development stub, every origin is welcome.
		return true
	},
}

// handleWS is the token-variant chat endpoint: /ws/<token>.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	s.mu.Lock()
	_, known := s.tokens[token]
	s.mu.Unlock()
	if !known {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	s.serveChat(w, r, token)
}

// handleWSUser is the user-variant chat endpoint:
// /ws/user/<id>?user_name=<name>. No token is required; the connection
// is keyed by the caller-supplied identity.
func (s *Server) handleWSUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if strings.TrimSpace(userID) == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}
	s.serveChat(w, r, "user:"+userID)
}

// serveChat runs one chat conversation: a connection envelope on
// handshake, then an echo of every user message followed by a canned
// admin reply so the client sees both sides of the protocol.
func (s *Server) serveChat(w http.ResponseWriter, r *http.Request, key string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	chatID := uuid.NewString()
	s.log.Info("chat connected", zap.String("chat_id", chatID))

	if err := conn.WriteJSON(models.ServerEvent{
		Type:      models.EventTypeConnection,
		ChatID:    chatID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return
	}

	conn.SetReadLimit(64 * 1024)
	for {
		var in models.OutboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			s.log.Info("chat disconnected", zap.String("chat_id", chatID))
			return
		}
		text := strings.TrimSpace(in.Message)
		if text == "" {
			continue
		}

		user := s.record(key, text, models.SenderUser)
		if err := conn.WriteJSON(models.ServerEvent{
			Type:       models.EventTypeMessage,
			SenderType: models.SenderUser,
			Message:    user.Message,
			Timestamp:  user.Timestamp,
		}); err != nil {
			return
		}

		admin := s.record(key, "Grazie per il messaggio, un operatore ti risponderà a breve.", models.SenderAdmin)
		if err := conn.WriteJSON(models.ServerEvent{
			Type:       models.EventTypeMessage,
			SenderType: models.SenderAdmin,
			Message:    admin.Message,
			Timestamp:  admin.Timestamp,
		}); err != nil {
			return
		}
	}
}
