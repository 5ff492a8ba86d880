package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves accounts and subscriptions
type UserHandler struct {
	users         service.IUserService
	subscriptions service.ISubscriptionService
	requireAuth   gin.HandlerFunc
	optionalAuth  gin.HandlerFunc
}

func NewUserHandler(users service.IUserService, subscriptions service.ISubscriptionService, tokens middleware.TokenValidator) *UserHandler {
	return &UserHandler{
		users:         users,
		subscriptions: subscriptions,
		requireAuth:   middleware.AuthMiddleware(tokens),
		optionalAuth:  middleware.OptionalAuth(tokens),
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/", h.optionalAuth, h.ListUsers)
		users.POST("/", h.Register)
		users.GET("/me/", h.requireAuth, h.Me)
		users.POST("/set_password/", h.requireAuth, h.SetPassword)
		users.GET("/subscriptions/", h.requireAuth, h.Subscriptions)
		users.GET("/:id/", h.optionalAuth, h.GetUser)
		users.POST("/:id/subscribe/", h.requireAuth, h.Subscribe)
		users.DELETE("/:id/subscribe/", h.requireAuth, h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page := parsePage(c)
	users, total, err := h.users.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.users.Present(c.Request.Context(), viewerID(c), users)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, out))
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewUserResponse(user, false))
}

func (h *UserHandler) Me(c *gin.Context) {
	h.respondUser(c, currentUserID(c))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respondUser(c, id)
}

func (h *UserHandler) respondUser(c *gin.Context, id uint) {
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.users.Present(c.Request.Context(), viewerID(c), []models.User{*user})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out[0])
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.users.SetPassword(c.Request.Context(), currentUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page := parsePage(c)
	authors, total, err := h.subscriptions.List(c.Request.Context(), currentUserID(c), page, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, authors))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.subscriptions.Subscribe(c.Request.Context(), currentUserID(c), authorID, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.subscriptions.Unsubscribe(c.Request.Context(), currentUserID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit reads recipes_limit; missing or invalid means no limit
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
