package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/validation"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func setupAPI(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.RegisterGinRules())

	db := testhelpers.SetupTestDB(t)
	auth := service.NewAuthService(db, "test-secret", time.Hour, nil)

	router := gin.New()
	RegisterRoutes(router, Services{
		Auth:          auth,
		Users:         service.NewUserService(db),
		Subscriptions: service.NewSubscriptionService(db),
		Recipes:       service.NewRecipeService(db, storage.NewLocalImageStore(t.TempDir(), "/media")),
		Relations:     service.NewRelationService(db),
		ShoppingList:  service.NewShoppingListService(db),
		Tags:          service.NewTagService(db),
		Ingredients:   service.NewIngredientService(db),
	}, nil)
	NewHealthHandler(db).RegisterRoutes(router)

	return &testEnv{router: router, db: db, auth: auth}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

// do sends body as JSON; an empty token sends an anonymous request
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
