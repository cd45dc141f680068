package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDKey = "RequestID"

// The dashboard serves a single operator; the limiter exists to stop a
// runaway poller, not to shape real traffic.
const (
	limiterRate  = 20
	limiterBurst = 50
)

// clientLimiters holds one token bucket per client IP and drops buckets
// for clients that go quiet.
type clientLimiters struct {
	mu       sync.Mutex
	byIP     map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

func newClientLimiters() *clientLimiters {
	cl := &clientLimiters{
		byIP:     make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
	go cl.prune()
	return cl
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	lim, ok := cl.byIP[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(limiterRate), limiterBurst)
		cl.byIP[ip] = lim
	}
	cl.lastSeen[ip] = time.Now()
	return lim
}

func (cl *clientLimiters) prune() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cl.mu.Lock()
		for ip, seen := range cl.lastSeen {
			if time.Since(seen) > 10*time.Minute {
				delete(cl.byIP, ip)
				delete(cl.lastSeen, ip)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimit rejects clients polling faster than the dashboard ever
// legitimately does.
func RateLimit() gin.HandlerFunc {
	limiters := newClientLimiters()
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiters.get(ip).Allow() {
			log.Printf("api: rate limit exceeded by %s", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// RequestID tags each request for log correlation. An inbound
// X-Request-ID is preserved so the front-end can trace its own calls.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// CORS opens the API to a front-end served from another origin. The
// dashboard sends only Content-Type and the bearer token.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Deadline bounds REST handlers through the request context. The
// downstream calls (sqlite, exchange REST) all honor the context, so an
// expired deadline surfaces as their error; a handler that wrote
// nothing by then gets a 504. Not applied to the websocket route, which
// holds its connection open for the client's lifetime.
func Deadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			log.Printf("api: deadline exceeded: %s %s", c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "request timed out",
			})
		}
	}
}

// Logger writes one line per request with timing and status.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		id := c.GetString(requestIDKey)
		if len(id) > 8 {
			id = id[:8]
		}
		log.Printf("api: %s | %s %s | %d | %v | %s",
			id, method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
