package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestUserEndpoints(t *testing.T) {
	env := setupAPI(t)
	viewer := testhelpers.CreateUser(t, env.db, "viewer")
	author := testhelpers.CreateUser(t, env.db, "author")
	testhelpers.Subscribe(t, env.db, viewer, author)

	w := env.do(t, http.MethodGet, "/api/users/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(2), page["count"])

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/", author.ID), env.token(t, viewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_subscribed"])

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/", author.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["is_subscribed"])

	w = env.do(t, http.MethodGet, "/api/users/999/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/me/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	env := setupAPI(t)
	reader := testhelpers.CreateUser(t, env.db, "reader")
	author := testhelpers.CreateUser(t, env.db, "author")
	for i := 0; i < 3; i++ {
		testhelpers.CreateRecipe(t, env.db, author, fmt.Sprintf("dish-%d", i), nil)
	}
	token := env.token(t, reader)
	path := fmt.Sprintf("/api/users/%d/subscribe/", author.ID)

	w := env.do(t, http.MethodPost, path+"?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "author", created["username"])
	assert.Equal(t, true, created["is_subscribed"])
	assert.Equal(t, float64(3), created["recipes_count"])
	assert.Len(t, created["recipes"], 1)

	w = env.do(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", reader.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/999/subscribe/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/subscriptions/?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(1), page["count"])
	results := page["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Len(t, results[0].(map[string]interface{})["recipes"], 2)

	w = env.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Zero(t, testhelpers.Count(t, env.db, &models.Subscribe{}))
}

func TestCatalogEndpoints(t *testing.T) {
	env := setupAPI(t)
	tag := testhelpers.CreateTag(t, env.db, "Breakfast", "breakfast")
	testhelpers.CreateIngredient(t, env.db, "salt", "g")
	testhelpers.CreateIngredient(t, env.db, "sugar", "g")
	pepper := testhelpers.CreateIngredient(t, env.db, "pepper", "g")

	w := env.do(t, http.MethodGet, "/api/tags/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{"id": %d, "name": "Breakfast", "color": %q, "slug": "breakfast"}]`, tag.ID, tag.Color), w.Body.String())

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/tags/%d/", tag.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/tags/999/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/ingredients/?name=S", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id": 1, "name": "salt", "measurement_unit": "g"}, {"id": 2, "name": "sugar", "measurement_unit": "g"}]`, w.Body.String())

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/ingredients/%d/", pepper.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pepper", decode(t, w)["name"])
}

func TestHealthEndpoint(t *testing.T) {
	env := setupAPI(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}
