package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"hostel-allocation-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClientIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 1, "X-Real-IP"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	a := http.Header{"X-Real-Ip": {"10.0.0.1"}}
	b := http.Header{"X-Real-Ip": {"10.0.0.2"}}

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", a).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", b).Code)
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("1.2.3.4"), l.GetLimiter("1.2.3.4"))
	assert.NotSame(t, l.GetLimiter("1.2.3.4"), l.GetLimiter("5.6.7.8"))
}

func TestCache_ServesHitsAndFlushesOnWrite(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := 0

	r := gin.New()
	r.Use(InvalidateOnWrite(store))
	r.GET("/hostels", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.POST("/hostels", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	first := serve(r, http.MethodGet, "/hostels", nil)
	second := serve(r, http.MethodGet, "/hostels", nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	serve(r, http.MethodPost, "/fail", nil)
	serve(r, http.MethodGet, "/hostels", nil)
	assert.Equal(t, 1, calls)

	serve(r, http.MethodPost, "/hostels", nil)
	third := serve(r, http.MethodGet, "/hostels", nil)
	assert.Equal(t, 2, calls)
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(r, http.MethodGet, "/", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {"abc"}})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	const secret = "s3cret"
	r := gin.New()
	r.GET("/admin", Authenticate([]byte(secret)), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "role": Role(c)})
	})

	valid := jwt.MapClaims{"id": 7, "role": "ADMIN", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + sign(t, "other", valid), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, secret, jwt.MapClaims{"id": 7, "role": "ADMIN", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"wrong role", "Bearer " + sign(t, secret, jwt.MapClaims{"id": 8, "role": "WARDEN"}), http.StatusForbidden},
		{"admin", "Bearer " + sign(t, secret, valid), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			w := serve(r, http.MethodGet, "/admin", h)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"role":"ADMIN"}`, w.Body.String())
			}
		})
	}
}

func TestAuthenticate_RejectsOtherAlgorithms(t *testing.T) {
	r := gin.New()
	r.GET("/", Authenticate([]byte("k")), func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"id": 1, "role": "ADMIN"}).SignedString([]byte("k"))
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
