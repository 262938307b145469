package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

func doJSON(t *testing.T, srv *testServer, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, srv.ts.URL+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	srv.ts.Config.Handler.ServeHTTP(resp, req)
	return resp
}

func TestSessionLifecycleOverREST(t *testing.T) {
	srv := startTestServer(t)

	tokenA, userA := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, userB := registerUser(t, srv, "bob@example.com", "bob")

	start := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	body := fmt.Sprintf(`{"title":"Evening run","description":"shadow jog","starts_at":%q,"ends_at":%q}`, start, end)
	resp := doJSON(t, srv, http.MethodPost, "/api/sessions", tokenA, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created SessionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Equal(t, userA, created.HostID)
	require.Equal(t, "Evening run", created.Title)

	// Bob joins.
	resp = doJSON(t, srv, http.MethodPost, "/api/sessions/"+created.ID+"/join", tokenB, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doJSON(t, srv, http.MethodGet, "/api/sessions/"+created.ID+"/participants", tokenA, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var participants struct {
		Participants []string `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &participants))
	require.ElementsMatch(t, []string{userA, userB}, participants.Participants)

	// Only the host can update.
	update := fmt.Sprintf(`{"title":"Moved","description":"","starts_at":%q,"ends_at":%q}`, start, end)
	resp = doJSON(t, srv, http.MethodPut, "/api/sessions/"+created.ID, tokenB, update)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = doJSON(t, srv, http.MethodPut, "/api/sessions/"+created.ID, tokenA, update)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Bob leaves; the host cannot.
	resp = doJSON(t, srv, http.MethodPost, "/api/sessions/"+created.ID+"/leave", tokenB, "")
	require.Equal(t, http.StatusOK, resp.Code)
	resp = doJSON(t, srv, http.MethodPost, "/api/sessions/"+created.ID+"/leave", tokenA, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSessionHistoryOverREST(t *testing.T) {
	srv := startTestServer(t)

	tokenA, userA := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, _ := registerUser(t, srv, "bob@example.com", "bob")
	sessionID := createSession(t, srv, userA)

	require.NoError(t, srv.store.SaveMessage(context.Background(), &store.Message{
		SessionID: sessionID,
		UserID:    userA,
		Body:      "hello",
		CreatedAt: time.Now().UTC(),
	}))

	resp := doJSON(t, srv, http.MethodGet, "/api/sessions/"+sessionID+"/messages", tokenA, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var messages []MessageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Body)

	// Non-participants cannot read history.
	resp = doJSON(t, srv, http.MethodGet, "/api/sessions/"+sessionID+"/messages", tokenB, "")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSessionInviteOverREST(t *testing.T) {
	srv := startTestServer(t)

	tokenA, userA := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, userB := registerUser(t, srv, "bob@example.com", "bob")
	sessionID := createSession(t, srv, userA)

	body := fmt.Sprintf(`{"user_id":%q}`, userB)
	resp := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sessionID+"/invite", tokenA, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	// The invitee got a notification.
	resp = doJSON(t, srv, http.MethodGet, "/api/notifications?unread=true", tokenB, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var notes []NotificationResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	require.Equal(t, "session_invite", notes[0].Kind)
	require.Equal(t, sessionID, notes[0].SubjectID)
}

func TestSessionEndpointsRequireAuth(t *testing.T) {
	srv := startTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/sessions", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doJSON(t, srv, http.MethodPost, "/api/sessions", "", `{"title":"x"}`)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
