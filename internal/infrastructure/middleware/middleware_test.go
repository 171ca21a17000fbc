package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"channel_chat_server/pkg/constants"
	"channel_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTEngine(tokens *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.CONTEXT_USER_ID))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	tokens := jwt.NewManager("secret", 5)
	token, err := tokens.GenerateAccessToken("u1")
	require.NoError(t, err)
	r := newJWTEngine(tokens)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Token " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u1", w.Body.String())
			}
		})
	}
}

func TestTlsHandlerRedirects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TlsHandler("chat.example.com", 8443))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://chat.example.com/api/health", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://chat.example.com:8443/api/health", w.Header().Get("Location"))
}
