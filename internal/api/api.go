// Package api exposes the services over HTTP with gin.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services groups the dependencies of the API handlers
type Services struct {
	Auth          service.IAuthService
	Users         service.IUserService
	Subscriptions service.ISubscriptionService
	Recipes       service.IRecipeService
	Relations     service.IRelationService
	ShoppingList  service.IShoppingListService
	Tags          service.ITagService
	Ingredients   service.IIngredientService
}

// RegisterRoutes mounts every handler under /api. limiter may be nil, in
// which case recipe creation is not rate limited.
func RegisterRoutes(router gin.IRouter, svc Services, limiter *middleware.RateLimiter) {
	api := router.Group("/api")

	NewAuthHandler(svc.Auth).RegisterRoutes(api)
	NewUserHandler(svc.Users, svc.Subscriptions, svc.Auth).RegisterRoutes(api)
	NewTagHandler(svc.Tags).RegisterRoutes(api)
	NewIngredientHandler(svc.Ingredients).RegisterRoutes(api)
	NewRecipeHandler(svc.Recipes, svc.Relations, svc.ShoppingList, svc.Auth, limiter).RegisterRoutes(api)
}
