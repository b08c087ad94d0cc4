// Package stub is an in-memory development backend implementing the
// HTTP and WebSocket contract the client expects. It exists for local
// development and manual testing only; nothing here is the real
// service.
package stub

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"github.com/carl-assist/carl-client/internal/models"
)

type account struct {
	ID         string
	Email      string
	FiscalCode string
	Name       string
	passHash   []byte
	passSalt   []byte
}

type storedMessage struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	SenderType string `json:"sender_type"`
	Timestamp  string `json:"timestamp"`
}

type Server struct {
	log *zap.Logger

	mu       sync.Mutex
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> account id, "" for anonymous
	messages map[string][]storedMessage
	faqs     []models.FAQ
}

// NewServer builds a stub backend seeded with one demo account
// (demo@carl.com / demo) and a handful of FAQ entries.
func NewServer(log *zap.Logger) *Server {
	s := &Server{
		log:      log,
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		messages: make(map[string][]storedMessage),
		faqs: []models.FAQ{
			{ID: "1", Question: "Come posso accedere?", Answer: "Usa le credenziali ricevute via email, oppure continua senza login."},
			{ID: "2", Question: "Come scarico i miei documenti?", Answer: "Dalla schermata profilo, dopo aver effettuato l'accesso."},
			{ID: "3", Question: "Come contatto l'assistenza?", Answer: "Dalla chat: un operatore ti risponderà appena possibile."},
		},
	}
	s.seedAccount("demo@carl.com", "demo", "RSSMRA80A01H501U", "Mario Rossi")
	return s
}

func (s *Server) seedAccount(email, password, fiscalCode, name string) {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	s.accounts[email] = &account{
		ID:         uuid.NewString(),
		Email:      email,
		FiscalCode: fiscalCode,
		Name:       name,
		passHash:   hashPassword(password, salt),
		passSalt:   salt,
	}
}

func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 3, 64*1024, 2, 32)
}

func (a *account) checkPassword(password string) bool {
	computed := hashPassword(password, a.passSalt)
	if len(computed) != len(a.passHash) {
		return false
	}
	diff := 0
	for i := range computed {
		diff |= int(computed[i]) ^ int(a.passHash[i])
	}
	return diff == 0
}

// Routes builds the chi router for the full contract.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Post("/api/auth/login", s.handleLogin)
	r.Get("/api/auth/login-anon", s.handleLoginAnon)
	r.Get("/api/user/me", s.handleMe)
	r.Get("/faqs", s.handleFAQs)
	r.Get("/api/messages", s.handleMessages)
	r.Post("/chat/messages", s.handleLegacySend)
	r.Get("/api/pdf/print-{doc}/{id}", s.handlePDF)
	r.Get("/ws/{token}", s.handleWS)
	r.Get("/ws/user/{id}", s.handleWSUser)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func newToken() string {
	raw := make([]byte, 32)
	_, _ = rand.Read(raw)
	return base64.URLEncoding.EncodeToString(raw)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "richiesta non valida")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || !acct.checkPassword(req.Password) {
		writeDetail(w, http.StatusUnauthorized, "credenziali non valide")
		return
	}

	token := newToken()
	s.tokens[token] = acct.ID
	s.log.Info("login", zap.String("email", acct.Email))
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleLoginAnon(w http.ResponseWriter, r *http.Request) {
	token := newToken()
	s.mu.Lock()
	s.tokens[token] = ""
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// bearerAccount resolves the Authorization header to a token and, when
// the token belongs to a full session, its account.
func (s *Server) bearerAccount(r *http.Request) (string, *account, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", nil, false
	}
	token := strings.TrimPrefix(header, "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	accountID, ok := s.tokens[token]
	if !ok {
		return "", nil, false
	}
	for _, acct := range s.accounts {
		if acct.ID == accountID {
			return token, acct, true
		}
	}
	return token, nil, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	_, acct, ok := s.bearerAccount(r)
	if !ok || acct == nil {
		writeDetail(w, http.StatusUnauthorized, "token non valido")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    acct.ID,
		"cfisc": acct.FiscalCode,
		"nome":  acct.Name,
	})
}

func (s *Server) handleFAQs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.faqs)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	token, _, ok := s.bearerAccount(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "token non valido")
		return
	}
	s.mu.Lock()
	history := append([]storedMessage(nil), s.messages[token]...)
	s.mu.Unlock()
	if history == nil {
		history = []storedMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleLegacySend(w http.ResponseWriter, r *http.Request) {
	token, _, ok := s.bearerAccount(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "token non valido")
		return
	}
	var req models.OutboundMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeDetail(w, http.StatusBadRequest, "messaggio mancante")
		return
	}

	s.record(token, req.Message, models.SenderUser)
	writeJSON(w, http.StatusOK, map[string]string{"message": req.Message})
}

func (s *Server) record(token, text, senderType string) storedMessage {
	msg := storedMessage{
		ID:         uuid.NewString(),
		Message:    text,
		SenderType: senderType,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Lock()
	s.messages[token] = append(s.messages[token], msg)
	s.mu.Unlock()
	return msg
}

// handlePDF serves a minimal single-page PDF so downloads have real
// bytes to save.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.bearerAccount(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "token non valido")
		return
	}
	doc := models.DocumentType(chi.URLParam(r, "doc"))
	if !doc.Valid() || chi.URLParam(r, "id") != doc.BackendID() {
		writeDetail(w, http.StatusNotFound, "documento non trovato")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Write(minimalPDF(string(doc)))
}

func minimalPDF(title string) []byte {
	return []byte("%PDF-1.4\n% stub document: " + title + "\n%%EOF\n")
}
