package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/models"
)

type staticTokens string

func (s staticTokens) CurrentToken() string { return string(s) }

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","cfisc":"RSSMRA80A01H501U","nome":"Mario"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok-1"), zap.NewNop())
	profile, err := c.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "RSSMRA80A01H501U", profile.DisplayIdentifier())
}

func TestClientOmitsBearerWhenNoToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens(""), zap.NewNop())
	_, err := c.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientTranslatesErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"credenziali non valide"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens(""), zap.NewNop())
	_, err := c.Login(context.Background(), "user@example.com", "nope")
	require.Error(t, err)
	assert.EqualError(t, err, "credenziali non valide")
}

func TestClientFallsBackToGenericStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens(""), zap.NewNop())
	_, err := c.FAQs(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "Error: 502")
}

func TestClientUnauthorizedIsDetectable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token scaduto"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("stale"), zap.NewNop())
	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNetwork(err))
}

func TestClientNetworkErrorIsDetectable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // unreachable from here on

	c := NewClient(srv.URL, staticTokens(""), zap.NewNop())
	_, err := c.LoginAnonymous(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsUnauthorized(err))
}

func TestClientHistoryMapsOrigins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"1","message":"ciao","sender_type":"user","timestamp":"2026-08-20T10:00:00Z"},
			{"id":"2","message":"salve","sender_type":"admin","timestamp":"2026-08-20T10:01:00Z"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), zap.NewNop())
	messages, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.OriginUser, messages[0].Origin)
	assert.Equal(t, models.OriginRemote, messages[1].Origin)
}

func TestClientDownloadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pdf/print-documento_1/doc1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL, staticTokens("tok"), zap.NewNop())
	path, err := c.DownloadPDF(context.Background(), models.DocumentOne, dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "Documento_1.pdf")

	_, err = c.DownloadPDF(context.Background(), models.DocumentType("bogus"), dir)
	assert.Error(t, err)
}
