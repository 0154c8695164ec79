package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/common/config"
	apperrors "cattle-chatbot/internal/common/errors"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockChatbot struct {
	mock.Mock
}

func (m *MockChatbot) Answer(ctx context.Context, req chatbot.Request) chatbot.Answer {
	args := m.Called(ctx, req)
	return args.Get(0).(chatbot.Answer)
}

func (m *MockChatbot) Explain(utterance, timeWindow string) chatbot.Explanation {
	args := m.Called(utterance, timeWindow)
	return args.Get(0).(chatbot.Explanation)
}

func (m *MockChatbot) Catalog(ctx context.Context) ([]models.Entity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entity), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) RefreshCatalog(ctx context.Context) ([]models.Entity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entity), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createTestServer(t *testing.T, bot *MockChatbot, store *MockStore, cfg config.ServerConfig) http.Handler {
	t.Helper()
	return NewServer(cfg, "test", bot, store, logger.NewTestLogger(t)).Router()
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{Address: ":0", RateLimit: 100, RateBurst: 100}
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var herd = []models.Entity{
	{ID: "cow-101", DisplayName: "Bessie"},
	{ID: "cow-102", DisplayName: "Daisy"},
}

// ==========================
// Ask Tests
// ==========================

func TestAsk_ReturnsAnswer(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Answer", mock.Anything, chatbot.Request{Question: "temperature of cow-101", TimeWindow: "today"}).
		Return(chatbot.Answer{
			Text:     "🌡️ Bessie currently has a temperature of 38.7°C",
			Intent:   models.Intent{EntityID: models.StringPtr("cow-101"), Metric: models.MetricTemperature, TimeWindow: models.TimeWindowToday},
			RowCount: 1,
			Outcome:  chatbot.OutcomeAnswered,
		})
	h := createTestServer(t, bot, new(MockStore), defaultServerConfig())

	rec := do(t, h, http.MethodPost, "/api/v1/ask", []byte(`{"question":"temperature of cow-101","timeWindow":"today"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "🌡️ Bessie currently has a temperature of 38.7°C", resp.Text)
	assert.Equal(t, chatbot.OutcomeAnswered, resp.Outcome)
	assert.Equal(t, "cow-101", resp.Intent.Entity())
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-Id"))
	bot.AssertExpectations(t)
}

func TestAsk_KeepsCallerRequestID(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Answer", mock.Anything, mock.Anything).Return(chatbot.Answer{Outcome: chatbot.OutcomeNoData})
	h := createTestServer(t, bot, new(MockStore), defaultServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"where is cow-7"}`))
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req-42", resp.RequestID)
}

func TestAsk_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty question", `{"question":""}`},
		{"missing question", `{"timeWindow":"today"}`},
		{"unknown window", `{"question":"cow-1 temp","timeWindow":"fortnight"}`},
		{"malformed json", `{"question":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := new(MockChatbot)
			h := createTestServer(t, bot, new(MockStore), defaultServerConfig())

			rec := do(t, h, http.MethodPost, "/api/v1/ask", []byte(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_REQUEST", resp.Code)
			assert.NotEmpty(t, resp.Details)
			bot.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
		})
	}
}

func TestAsk_RateLimited(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Answer", mock.Anything, mock.Anything).Return(chatbot.Answer{Outcome: chatbot.OutcomeAnswered})
	h := createTestServer(t, bot, new(MockStore), config.ServerConfig{RateLimit: 0.001, RateBurst: 2})

	body := []byte(`{"question":"cow-1 temp"}`)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/ask", body).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/ask", body).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/ask", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	bot.AssertNumberOfCalls(t, "Answer", 2)
}

// ==========================
// Explain and Cows Tests
// ==========================

func TestExplain(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Explain", "where is cow-7", "last_hour").Return(chatbot.Explanation{
		Dialect:   "sqlite",
		Statement: "SELECT ...",
		Args:      []interface{}{"cow-7"},
	})
	h := createTestServer(t, bot, new(MockStore), defaultServerConfig())

	rec := do(t, h, http.MethodGet, "/api/v1/explain?q=where+is+cow-7&window=last_hour", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatbot.Explanation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sqlite", resp.Dialect)
	assert.Equal(t, []interface{}{"cow-7"}, resp.Args)
}

func TestExplain_MissingQuestion(t *testing.T) {
	h := createTestServer(t, new(MockChatbot), new(MockStore), defaultServerConfig())
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/explain", nil).Code)
}

func TestCows(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(*MockChatbot, *MockStore)
	}{
		{
			name:   "cached catalog",
			target: "/api/v1/cows",
			setup: func(b *MockChatbot, _ *MockStore) {
				b.On("Catalog", mock.Anything).Return(herd, nil)
			},
		},
		{
			name:   "forced refresh",
			target: "/api/v1/cows?refresh=true",
			setup: func(_ *MockChatbot, s *MockStore) {
				s.On("RefreshCatalog", mock.Anything).Return(herd, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, store := new(MockChatbot), new(MockStore)
			tt.setup(bot, store)
			h := createTestServer(t, bot, store, defaultServerConfig())

			rec := do(t, h, http.MethodGet, tt.target, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp CowsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 2, resp.Count)
			assert.Equal(t, herd, resp.Cows)
			bot.AssertExpectations(t)
			store.AssertExpectations(t)
		})
	}
}

func TestCows_StoreDown(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Catalog", mock.Anything).Return(nil, apperrors.NewCatalogLookupFailedError(stderrors.New("dial tcp: refused")))
	h := createTestServer(t, bot, new(MockStore), defaultServerConfig())

	rec := do(t, h, http.MethodGet, "/api/v1/cows", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
	assert.Contains(t, rec.Body.String(), "CATALOG_LOOKUP_FAILED")
}

// ==========================
// Health and Readiness Tests
// ==========================

func TestHealth(t *testing.T) {
	h := createTestServer(t, new(MockChatbot), new(MockStore), defaultServerConfig())

	rec := do(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		err        error
		wantStatus int
		wantBody   string
	}{
		{"store reachable", 3, nil, http.StatusOK, `"cows":3`},
		{"store down", 0, apperrors.NewDatabaseConnectionFailedError(stderrors.New("refused")), http.StatusServiceUnavailable, "DATABASE_CONNECTION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("Ping", mock.Anything).Return(tt.count, tt.err)
			h := createTestServer(t, new(MockChatbot), store, defaultServerConfig())

			rec := do(t, h, http.MethodGet, "/ready", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := createTestServer(t, new(MockChatbot), new(MockStore), defaultServerConfig())
	do(t, h, http.MethodGet, "/health", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatbot_transport_requests_total")
}

func TestCORS_Preflight(t *testing.T) {
	h := createTestServer(t, new(MockChatbot), new(MockStore), config.ServerConfig{
		RateLimit:      100,
		RateBurst:      100,
		AllowedOrigins: []string{"https://herd.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ask", nil)
	req.Header.Set("Origin", "https://herd.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://herd.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
