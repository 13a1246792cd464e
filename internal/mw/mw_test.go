package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0

	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/rooms", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})

	first := do(r, http.MethodGet, "/rooms", nil)
	second := do(r, http.MethodGet, "/rooms", nil)
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, rc.Len())

	rc.Flush()
	assert.Zero(t, rc.Len())
	third := do(r, http.MethodGet, "/rooms", nil)
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())

	do(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, 1, rc.Len(), "error responses are not cached")
}

func TestResponseCache_KeyedByPathAndQuery(t *testing.T) {
	rc := NewResponseCache(time.Minute)

	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/rooms/:id", func(c *gin.Context) {
		if c.Param("id") == "404" {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "q": c.Query("q")})
	})

	// Client-built requests leave RequestURI empty.
	send := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		require.Empty(t, req.RequestURI)
		r.ServeHTTP(w, req)
		return w
	}

	assert.JSONEq(t, `{"id":"1","q":""}`, send("/rooms/1").Body.String())

	w := send("/rooms/2")
	assert.JSONEq(t, `{"id":"2","q":""}`, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Cache"))

	w = send("/rooms/2?q=x")
	assert.JSONEq(t, `{"id":"2","q":"x"}`, w.Body.String())

	w = send("/rooms/404")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send("/rooms/1")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":"1","q":""}`, w.Body.String())
	assert.Equal(t, 3, rc.Len())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)

	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.2"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := do(r, http.MethodGet, "/", nil)
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))

	given := uuid.NewString()
	w = do(r, http.MethodGet, "/", map[string]string{HeaderRequestID: given})
	assert.Equal(t, given, w.Body.String())

	w = do(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
}

func TestActor(t *testing.T) {
	r := gin.New()
	r.Use(Actor())
	r.POST("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"actor": ActorIDFrom(c)}) })

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "42", status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "not a number", header: "admin", status: http.StatusUnauthorized},
		{name: "zero", header: "0", status: http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers[HeaderActorID] = tc.header
			}
			w := do(r, http.MethodPost, "/", headers)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"actor":42}`, w.Body.String())
			}
		})
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	do(r, http.MethodGet, "/ok", nil)
	do(r, http.MethodGet, "/down", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "/down", entries[1].ContextMap()["path"])
	assert.NotEmpty(t, entries[1].ContextMap()["request_id"])
}
