package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(zap.NewNop().Sugar()), BearerAuth(secret, zap.NewNop().Sugar()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("subject")) })
	return r
}

func sign(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, jwt.StandardClaims{Subject: "ops", ExpiresAt: exp.Unix()}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	r := newAuthRouter("s3cret")

	w := do(r, "Bearer "+sign(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ops", w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Basic abc").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+sign(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour))).Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+sign(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour))).Code)
	require.Contains(t, do(r, "").Body.String(), `"code":40100`)
}

func TestBearerAuth_DisabledWithoutSecret(t *testing.T) {
	require.Equal(t, http.StatusOK, do(newAuthRouter(""), "").Code)
}

func TestTraceMiddleware_KeepsClientRequestID(t *testing.T) {
	r := newAuthRouter("")
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}
