package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/embed"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/index"
	"github.com/abhisek/mathguide/internal/phrase"
	"github.com/abhisek/mathguide/internal/session"
)

type failingArchiver struct{}

func (failingArchiver) ArchiveSession(context.Context, session.Session) error {
	return errors.New("disk full")
}

func setupTestServer(t *testing.T, memOpts ...session.Option) *Server {
	t.Helper()
	st, err := index.NewChromemStore("", "api-test", false)
	require.NoError(t, err)
	ix, err := index.Build(context.Background(), st, corpus.Default(), embed.NewHash(0))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	o := guidance.New(ix, session.NewMemory(memOpts...), embed.NewHash(0),
		guidance.WithMetrics(guidance.NewMetrics(reg)))
	s, err := NewServer(o, phrase.NewTemplate(ix), reg, zap.NewNop(), DefaultConfig())
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("requires an engine", func(t *testing.T) {
		_, err := NewServer(nil, nil, nil, zap.NewNop(), DefaultConfig())
		assert.ErrorContains(t, err, "engine cannot be nil")
	})
	t.Run("requires a logger", func(t *testing.T) {
		o := guidance.New(nil, session.NewMemory(), nil)
		_, err := NewServer(o, nil, nil, nil, DefaultConfig())
		assert.ErrorContains(t, err, "logger is required")
	})
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.Addr())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleTurn(t *testing.T) {
	s := setupTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/turn", TurnRequest{Topic: string(corpus.TopicLinear)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var first TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotEmpty(t, first.SessionID, "a session id is assigned")
	assert.Equal(t, hint.ActionPresentProblem, first.Decision.Kind)
	assert.True(t, strings.HasPrefix(first.Message, "New linear equations problem"), first.Message)

	rec = do(t, s, http.MethodPost, "/v1/turn", TurnRequest{SessionID: first.SessionID, Input: "hint"})
	require.Equal(t, http.StatusOK, rec.Code)
	var second TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, second.Decision.HintLevel)
	assert.Equal(t, first.Decision.Target.ProblemID, second.Decision.Target.ProblemID)
	assert.NotEmpty(t, second.Message)
}

func TestHandleTurn_BadRequests(t *testing.T) {
	s := setupTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"input":`},
		{"unknown topic", `{"topic":"calculus"}`},
		{"difficulty out of range", `{"difficulty":9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/turn", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := setupTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, s, http.MethodPost, "/v1/turn", TurnRequest{SessionID: "s1"})
	rec = do(t, s, http.MethodGet, "/v1/sessions/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "s1", snap.ID)
	assert.True(t, snap.HasActiveProblem())
	assert.Equal(t, hint.ProblemPresented, snap.Phase)

	rec = do(t, s, http.MethodPost, "/v1/sessions/s1/end", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/sessions/unknown/end", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "ending an unknown session is a no-op")
}

func TestEndSession_ArchiveFailure(t *testing.T) {
	s := setupTestServer(t, session.WithArchiver(failingArchiver{}))
	do(t, s, http.MethodPost, "/v1/turn", TurnRequest{SessionID: "s1"})

	rec := do(t, s, http.MethodPost, "/v1/sessions/s1/end", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	do(t, s, http.MethodPost, "/v1/turn", TurnRequest{SessionID: "s1"})
	do(t, s, http.MethodGet, "/v1/sessions/s1", nil)

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mathguide_turns_total")
	assert.Contains(t, body, `route="/v1/sessions/:id"`)
	assert.NotContains(t, body, `route="/v1/sessions/s1"`)
}
