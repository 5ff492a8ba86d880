package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeHandler serves recipes, favorites, the shopping cart and its download
type RecipeHandler struct {
	recipes      service.IRecipeService
	relations    service.IRelationService
	shoppingList service.IShoppingListService
	requireAuth  gin.HandlerFunc
	optionalAuth gin.HandlerFunc
	createLimit  gin.HandlerFunc
	now          func() time.Time
}

// NewRecipeHandler creates a RecipeHandler; limiter may be nil
func NewRecipeHandler(recipes service.IRecipeService, relations service.IRelationService, shoppingList service.IShoppingListService, tokens middleware.TokenValidator, limiter *middleware.RateLimiter) *RecipeHandler {
	h := &RecipeHandler{
		recipes:      recipes,
		relations:    relations,
		shoppingList: shoppingList,
		requireAuth:  middleware.AuthMiddleware(tokens),
		optionalAuth: middleware.OptionalAuth(tokens),
		createLimit:  func(c *gin.Context) { c.Next() },
		now:          time.Now,
	}
	if limiter != nil {
		h.createLimit = limiter.Middleware()
	}
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("/", h.optionalAuth, h.ListRecipes)
		recipes.POST("/", h.requireAuth, h.createLimit, h.CreateRecipe)
		recipes.GET("/download_shopping_cart/", h.requireAuth, h.DownloadShoppingCart)
		recipes.GET("/:id/", h.optionalAuth, h.GetRecipe)
		recipes.PUT("/:id/", h.requireAuth, h.UpdateRecipe)
		recipes.PATCH("/:id/", h.requireAuth, h.UpdateRecipe)
		recipes.DELETE("/:id/", h.requireAuth, h.DeleteRecipe)
		recipes.POST("/:id/favorite/", h.requireAuth, h.AddFavorite)
		recipes.DELETE("/:id/favorite/", h.requireAuth, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart/", h.requireAuth, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart/", h.requireAuth, h.RemoveFromShoppingCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter := types.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
	}
	if raw := c.Query("author"); raw != "" {
		author, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author", "fields": gin.H{"author": "author must be a user id"}})
			return
		}
		id := uint(author)
		filter.AuthorID = &id
	}

	page := parsePage(c)
	viewer := viewerID(c)
	recipes, total, err := h.recipes.List(c.Request.Context(), filter, viewer, page)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.recipes.Present(c.Request.Context(), viewer, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, out))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

// UpdateRecipe serves both PUT and PATCH; each replaces the whole recipe
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), currentUserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, h.relations.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFavorite)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addRelation(c, h.relations.AddToShoppingCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFromShoppingCart)
}

// DownloadShoppingCart returns the aggregated cart as a text attachment
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shoppingList.Items(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.RecordShoppingListDownload(len(items))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.ShoppingListFilename(h.now())))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	out, err := h.recipes.Present(c.Request.Context(), viewerID(c), []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out[0])
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := add(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewRecipeShortResponse(recipe))
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
