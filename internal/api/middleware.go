package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	apperrors "cattle-chatbot/internal/common/errors"
	"cattle-chatbot/internal/common/metrics"
)

const requestIDHeader = "X-Request-Id"

type ctxKey int

const requestIDKey ctxKey = iota

// requestID keeps a caller supplied id or assigns a fresh UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 && websocket.IsWebSocketUpgrade(r) {
			status = http.StatusSwitchingProtocols
		}
		metrics.TransportRequestsTotal.WithLabelValues("http", strconv.Itoa(status)).Inc()

		fields := map[string]interface{}{
			"requestId": requestIDFrom(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    status,
			"bytes":     ww.BytesWritten(),
			"duration":  time.Since(start).Milliseconds(),
			"remote":    r.RemoteAddr,
		}
		switch {
		case status >= 500:
			s.logger.Error("request", fields)
		case status >= 400:
			s.logger.Warn("request", fields)
		default:
			s.logger.Info("request", fields)
		}
	})
}

// clientIP puts the caller's address in RemoteAddr. Forwarding headers are
// believed only when the direct peer is a trusted proxy; X-Forwarded-For is
// walked right to left and the first untrusted hop is the client.
func (s *Server) clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := s.forwardedClient(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) forwardedClient(r *http.Request) string {
	if len(s.trusted) == 0 || !s.isTrusted(net.ParseIP(clientKey(r))) {
		return ""
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				return ""
			}
			if !s.isTrusted(ip) {
				return ip.String()
			}
		}
		return ""
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}

func (s *Server) isTrusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range s.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			respondError(w, http.StatusTooManyRequests, apperrors.NewInvalidRequestError("rate limit exceeded"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientLimiter holds one token bucket per client address. A non-positive
// limit disables limiting. Buckets idle for longer than idleTTL, or than a
// full refill if that is longer, are swept so the map stays bounded by the
// number of recently active clients.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int, idleTTL time.Duration) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	c := &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	if perSecond > 0 {
		refill := time.Duration(float64(burst) / perSecond * float64(time.Second))
		if refill > c.idleTTL {
			c.idleTTL = refill
		}
	}
	return c
}

func (c *clientLimiter) allow(key string) bool {
	if c.limit <= 0 {
		return true
	}
	now := c.now()

	c.mu.Lock()
	c.sweep(now)
	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.buckets[key] = b
	}
	b.lastSeen = now
	c.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// sweep runs at most once per idleTTL. Callers hold mu.
func (c *clientLimiter) sweep(now time.Time) {
	if c.idleTTL <= 0 || now.Sub(c.lastSweep) < c.idleTTL {
		return
	}
	c.lastSweep = now
	for key, b := range c.buckets {
		if now.Sub(b.lastSeen) >= c.idleTTL {
			delete(c.buckets, key)
		}
	}
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}
