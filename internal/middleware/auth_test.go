package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func newAuthRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler)
	r.GET("/", func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		ctxUserID, _ := logging.UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": userID, "ctx_user_id": ctxUserID})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	validator := new(testhelpers.MockTokenValidator)
	validator.On("ValidateToken", mock.Anything, "good").Return(&types.TokenClaims{UserID: 7, Username: "alice"}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").Return(nil, service.ErrInvalidToken)
	validator.On("ValidateToken", mock.Anything, "broken").Return(nil, assert.AnError)
	r := newAuthRouter(AuthMiddleware(validator))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"bearer token", "Bearer good", http.StatusOK},
		{"token scheme", "Token good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"unknown scheme", "Basic good", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"validator failure", "Bearer broken", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"authenticated": true, "user_id": 7, "ctx_user_id": 7}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	validator := new(testhelpers.MockTokenValidator)
	validator.On("ValidateToken", mock.Anything, "good").Return(&types.TokenClaims{UserID: 3}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").Return(nil, service.ErrInvalidToken)
	r := newAuthRouter(OptionalAuth(validator))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated": false, "user_id": 0, "ctx_user_id": 0}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated": true, "user_id": 3, "ctx_user_id": 3}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token bad")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
