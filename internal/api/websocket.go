package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/common/metrics"
)

const (
	wsReadLimit   = 4 << 10
	wsIdleTimeout = 5 * time.Minute
)

type wsMessage struct {
	RequestID string `json:"requestId,omitempty"`
	chatbot.Request
}

type wsReply struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error,omitempty"`
	*chatbot.Answer
}

func (s *Server) upgrader() *websocket.Upgrader {
	origins := s.allowedOrigins()
	return &websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// chatWebSocket answers one question per text frame until the client leaves.
func (s *Server) chatWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"remote": r.RemoteAddr,
			"error":  err.Error(),
		})
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	limiter := rate.NewLimiter(rate.Limit(s.limiter.limit), s.limiter.burst)
	log := s.logger.With(map[string]interface{}{"requestId": requestIDFrom(r.Context())})
	log.Info("chat session opened", map[string]interface{}{"remote": r.RemoteAddr})

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("chat session ended", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var msg wsMessage
		decodeErr := json.Unmarshal(raw, &msg)
		if msg.RequestID == "" {
			msg.RequestID = uuid.NewString()
		}

		reply := wsReply{RequestID: msg.RequestID}
		switch {
		case s.limiter.limit > 0 && !limiter.Allow():
			reply.Error = "rate limit exceeded"
		case decodeErr != nil:
			reply.Error = "invalid request: " + decodeErr.Error()
		default:
			req, details := s.decodeRequest(raw)
			if details != nil {
				reply.Error = "invalid request: " + strings.Join(details, "; ")
				break
			}
			ans := s.chatbot.Answer(r.Context(), *req)
			reply.Answer = &ans
		}
		status := "ok"
		if reply.Error != "" {
			status = "rejected"
		}
		metrics.TransportRequestsTotal.WithLabelValues("websocket", status).Inc()

		if err := conn.WriteJSON(reply); err != nil {
			log.Warn("chat reply failed", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}
