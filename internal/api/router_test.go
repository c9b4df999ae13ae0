package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siachat-backend/internal/auth"
	"siachat-backend/internal/config"
	"siachat-backend/internal/handlers"
	"siachat-backend/internal/llm"
	"siachat-backend/internal/models"
	"siachat-backend/internal/services"
	"siachat-backend/internal/store/memory"
)

type stubBackend struct {
	reply string
	err   error
}

func (b *stubBackend) Generate(ctx context.Context, req llm.Request) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return b.reply, nil
}

func (b *stubBackend) Model() string { return "stub-model" }

const testJWTSecret = "test-secret"

func newTestRouter(backend *stubBackend) http.Handler {
	st := memory.NewMemoryStore()
	prompts := llm.NewPromptBuilder(llm.PromptConfig{
		DemoBookingURL:       "https://cal.example.com/sia-demo",
		FallbackContactEmail: "hello@example.com",
		HistoryLimit:         10,
	})
	chatService := services.NewChatService(st, backend, prompts)

	return NewRouter(RouterDependencies{
		ChatHandler:  handlers.NewChatHandlers(chatService),
		StatsHandler: handlers.NewStatsHandlers(services.NewStatsService(st)),
		Config: &config.Config{
			AllowedOrigins: []string{"http://localhost:3000"},
			AdminJWTSecret: testJWTSecret,
		},
	})
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpointHappyPath(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "Hello Jane!"})

	rec := postJSON(t, router, "/v1/chat", map[string]any{
		"message": "Hi, I'm Jane. My email is jane@acme.com",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hello Jane!", resp.Response)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
}

func TestChatEndpointValidation(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"empty message", map[string]any{"message": "   "}, "message"},
		{"missing message", map[string]any{}, "message"},
		{"bad session id", map[string]any{"message": "hi", "session_id": "not-a-uuid"}, "session_id"},
		{"bad seed email", map[string]any{"message": "hi", "user_email": "not-an-email"}, "user_email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/v1/chat", tc.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body struct {
				Success bool              `json:"success"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Contains(t, body.Details, tc.field)
		})
	}
}

func TestChatEndpointOversizedMessage(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	long := make([]byte, models.MaxMessageLength+1)
	for i := range long {
		long[i] = 'a'
	}
	rec := postJSON(t, router, "/v1/chat", map[string]any{"message": string(long)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointSuggestedActionsAlwaysPresent(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	// No quick replies exist for a general message; the field must still
	// serialize as an empty list rather than disappear.
	rec := postJSON(t, router, "/v1/chat", map[string]any{"message": "just browsing around"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suggested_actions":[]`)
}

func TestChatEndpointBackendFailure(t *testing.T) {
	router := newTestRouter(&stubBackend{err: llm.ErrBackendUnavailable})

	rec := postJSON(t, router, "/v1/chat", map[string]any{"message": "hello"})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	// The body stays user safe, no internal error text leaks.
	assert.NotContains(t, rec.Body.String(), "unavailable")
}

func TestUpdateInfoUnknownSessionReturns404(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	rec := postJSON(t, router, "/v1/chat/update-info", map[string]any{
		"session_id": uuid.New().String(),
		"user_name":  "Jane",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateInfoRejectsBlankFields(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"blank name", map[string]any{"session_id": uuid.New().String(), "user_name": "   "}, "user_name"},
		{"blank email", map[string]any{"session_id": uuid.New().String(), "user_email": ""}, "user_email"},
		{"blank company", map[string]any{"session_id": uuid.New().String(), "company_name": ""}, "company_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/v1/chat/update-info", tc.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body struct {
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Details, tc.field)
		})
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	rec := postJSON(t, router, "/v1/chat", map[string]any{"message": "Hi, I'm Jane"})
	require.Equal(t, http.StatusOK, rec.Code)
	var chat models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/session/"+chat.SessionID.String(), nil)
	snapRec := httptest.NewRecorder()
	router.ServeHTTP(snapRec, req)

	require.Equal(t, http.StatusOK, snapRec.Code)
	var envelope models.SessionInfoEnvelope
	require.NoError(t, json.Unmarshal(snapRec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, chat.SessionID, envelope.Session.SessionID)
	assert.Len(t, envelope.Session.RecentMessages, 2)
}

func TestSessionEndpointsUnknownSession(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})
	missing := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/session/"+missing, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, path := range []string{"/v1/chat/session/reset", "/v1/chat/session/close"} {
		rec := postJSON(t, router, path, map[string]any{"session_id": missing})
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestResetAndCloseHappyPath(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	rec := postJSON(t, router, "/v1/chat", map[string]any{"message": "hello"})
	var chat models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))

	resetRec := postJSON(t, router, "/v1/chat/session/reset", map[string]any{
		"session_id": chat.SessionID.String(),
	})
	require.Equal(t, http.StatusOK, resetRec.Code)
	var action models.ActionResponse
	require.NoError(t, json.Unmarshal(resetRec.Body.Bytes(), &action))
	assert.True(t, action.Success)

	closeRec := postJSON(t, router, "/v1/chat/session/close", map[string]any{
		"session_id": chat.SessionID.String(),
	})
	assert.Equal(t, http.StatusOK, closeRec.Code)
}

func TestStatsRequiresJWT(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatsWithValidToken(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	postJSON(t, router, "/v1/chat", map[string]any{"message": "hello"})

	token, err := auth.NewAdminToken(uuid.New(), testJWTSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool                `json:"success"`
		Stats   models.SessionStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(1), body.Stats.TotalSessions)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&stubBackend{reply: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_")
}
