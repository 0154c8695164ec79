package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/logger"
)

type testReply struct {
	RequestID string          `json:"requestId"`
	Error     string          `json:"error"`
	Text      string          `json:"text"`
	Outcome   chatbot.Outcome `json:"outcome"`
}

func dialChat(t *testing.T, bot *MockChatbot, cfg config.ServerConfig) *websocket.Conn {
	t.Helper()
	// The handler goroutine outlives the test once the socket is hijacked,
	// so it must not log through t.
	srv := httptest.NewServer(NewServer(cfg, "test", bot, new(MockStore), logger.NewNoOpLogger()).Router())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChatWebSocket_AnswersEachMessage(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Answer", mock.Anything, chatbot.Request{Question: "temperature of cow-101"}).
		Return(chatbot.Answer{Text: "🌡️ Bessie currently has a temperature of 38.7°C", Outcome: chatbot.OutcomeAnswered})
	bot.On("Answer", mock.Anything, chatbot.Request{Question: "where is cow-999"}).
		Return(chatbot.Answer{Text: "no data", Outcome: chatbot.OutcomeNoData})
	conn := dialChat(t, bot, defaultServerConfig())

	require.NoError(t, conn.WriteJSON(map[string]string{"requestId": "a", "question": "temperature of cow-101"}))
	var first testReply
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "a", first.RequestID)
	assert.Equal(t, chatbot.OutcomeAnswered, first.Outcome)
	assert.Contains(t, first.Text, "Bessie")

	require.NoError(t, conn.WriteJSON(map[string]string{"question": "where is cow-999"}))
	var second testReply
	require.NoError(t, conn.ReadJSON(&second))
	assert.NotEmpty(t, second.RequestID)
	assert.Equal(t, chatbot.OutcomeNoData, second.Outcome)
}

func TestChatWebSocket_RejectsInvalidMessages(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"empty question", `{"requestId":"r1","question":""}`},
		{"missing question", `{"requestId":"r1","timeWindow":"today"}`},
		{"unknown window", `{"requestId":"r1","question":"cow-1 temp","timeWindow":"fortnight"}`},
		{"question too long", `{"requestId":"r1","question":"` + strings.Repeat("x", 501) + `"}`},
		{"malformed json", `{"question":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := new(MockChatbot)
			conn := dialChat(t, bot, defaultServerConfig())

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.message)))
			var reply testReply
			require.NoError(t, conn.ReadJSON(&reply))
			assert.True(t, strings.HasPrefix(reply.Error, "invalid request: "), reply.Error)
			assert.NotEmpty(t, reply.RequestID)
			assert.Empty(t, reply.Text)
			bot.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
		})
	}
}

func TestChatWebSocket_PassesTimeWindow(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Answer", mock.Anything, chatbot.Request{Question: "is cow-102 healthy", TimeWindow: "last_week"}).
		Return(chatbot.Answer{Text: "Daisy", Outcome: chatbot.OutcomeAnswered})
	conn := dialChat(t, bot, defaultServerConfig())

	require.NoError(t, conn.WriteJSON(map[string]string{"question": "is cow-102 healthy", "timeWindow": "last_week"}))
	var reply testReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Empty(t, reply.Error)
	assert.Equal(t, "Daisy", reply.Text)
	bot.AssertExpectations(t)
}

func TestChatWebSocket_RateLimitsMessages(t *testing.T) {
	bot := new(MockChatbot)
	bot.On("Answer", mock.Anything, mock.Anything).Return(chatbot.Answer{Outcome: chatbot.OutcomeAnswered})
	// The upgrade request takes the single HTTP token; the session gets its own bucket.
	conn := dialChat(t, bot, config.ServerConfig{RateLimit: 0.001, RateBurst: 1})

	require.NoError(t, conn.WriteJSON(map[string]string{"question": "cow-1 temp"}))
	var first testReply
	require.NoError(t, conn.ReadJSON(&first))
	assert.Empty(t, first.Error)

	require.NoError(t, conn.WriteJSON(map[string]string{"question": "cow-1 temp"}))
	var second testReply
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "rate limit exceeded", second.Error)
	bot.AssertNumberOfCalls(t, "Answer", 1)
}
