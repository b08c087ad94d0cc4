// Package api wraps every outbound HTTP call to the backend with the
// current session token and uniform error translation. Screens never
// build requests themselves.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/models"
)

// TokenSource yields the bearer token for outbound requests. The
// session manager is the only implementation outside tests: full token
// first, anonymous token otherwise, empty when unauthenticated.
type TokenSource interface {
	CurrentToken() string
}

type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	log     *zap.Logger
}

func NewClient(baseURL string, tokens TokenSource, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		log:     log,
	}
}

// do executes one JSON request. withAuth attaches the bearer header
// when a token exists. Non-2xx responses are translated to StatusError
// with the backend's {detail} message when present.
func (c *Client) do(ctx context.Context, method, path string, body any, withAuth bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		if token := c.tokens.CurrentToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeStatusError(resp)
	}
	return resp, nil
}

func decodeStatusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil {
		se.Detail = body.Detail
	}
	return se
}

func (c *Client) getJSON(ctx context.Context, path string, out any, withAuth bool) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, withAuth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login exchanges credentials for a full-identity token.
func (c *Client) Login(ctx context.Context, identifier, secret string) (string, error) {
	body := map[string]string{"email": identifier, "password": secret}
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", body, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// LoginAnonymous obtains a limited token without credentials.
func (c *Client) LoginAnonymous(ctx context.Context) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.getJSON(ctx, "/api/auth/login-anon", &out, false); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Me fetches the profile of the currently authenticated user.
func (c *Client) Me(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.getJSON(ctx, "/api/user/me", &profile, true); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FAQs lists the public FAQ entries. No auth required.
func (c *Client) FAQs(ctx context.Context) ([]models.FAQ, error) {
	var faqs []models.FAQ
	if err := c.getJSON(ctx, "/faqs", &faqs, false); err != nil {
		return nil, err
	}
	return faqs, nil
}

// historyRecord is one entry of the chat history response.
type historyRecord struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	SenderType string `json:"sender_type"`
	Timestamp  string `json:"timestamp"`
}

// History fetches prior chat messages, mapped into the local message
// model (admin entries become remote-origin, everything else user).
func (c *Client) History(ctx context.Context) ([]models.ChatMessage, error) {
	var records []historyRecord
	if err := c.getJSON(ctx, "/api/messages", &records, true); err != nil {
		return nil, err
	}

	messages := make([]models.ChatMessage, 0, len(records))
	for _, rec := range records {
		origin := models.OriginUser
		if rec.SenderType == models.SenderAdmin {
			origin = models.OriginRemote
		}
		ts := time.Now()
		if t, err := time.Parse(time.RFC3339, rec.Timestamp); err == nil {
			ts = t
		}
		messages = append(messages, models.ChatMessage{
			ID:        rec.ID,
			Text:      rec.Message,
			Origin:    origin,
			Timestamp: ts,
		})
	}
	return messages, nil
}

// SendMessage posts a chat message over plain HTTP, the legacy path
// used when the WebSocket channel is unavailable.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	resp, err := c.do(ctx, http.MethodPost, "/chat/messages", models.OutboundMessage{Message: text}, true)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// DownloadPDF streams one of the profile documents into dir and
// returns the written file path.
func (c *Client) DownloadPDF(ctx context.Context, doc models.DocumentType, dir string) (string, error) {
	if !doc.Valid() {
		return "", fmt.Errorf("unknown document type %q", doc)
	}

	path := fmt.Sprintf("/api/pdf/print-%s/%s", doc, doc.BackendID())
	resp, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(dir, doc.Filename())
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(target)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	c.log.Info("document downloaded",
		zap.String("type", string(doc)),
		zap.String("path", target))
	return target, nil
}
