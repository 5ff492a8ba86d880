package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
}

// New wires services, middleware and routes. redisClient may be nil, which
// disables token revocation and the recipe creation limit.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images storage.ImageStore) (*Server, error) {
	if err := validation.RegisterGinRules(); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Metrics(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSOrigins),
	)

	var revoker service.TokenRevoker
	var limiter *middleware.RateLimiter
	if redisClient != nil {
		revoker = service.NewRedisTokenRevoker(redisClient)
		limiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreateLimit)
	} else {
		logging.Warn().Msg("redis disabled: logout will not revoke tokens and recipe creation is not rate limited")
	}

	auth := service.NewAuthService(db, cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute, revoker)
	api.RegisterRoutes(router, api.Services{
		Auth:          auth,
		Users:         service.NewUserService(db),
		Subscriptions: service.NewSubscriptionService(db),
		Recipes:       service.NewRecipeService(db, images),
		Relations:     service.NewRelationService(db),
		ShoppingList:  service.NewShoppingListService(db),
		Tags:          service.NewTagService(db),
		Ingredients:   service.NewIngredientService(db),
	}, limiter)

	api.NewHealthHandler(db).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.MediaStorage == "local" && strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(cfg.MediaURL, cfg.MediaDir)
	}

	return &Server{
		router: router,
		cfg:    cfg,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logging.Info().Str("addr", s.http.Addr).Msg("starting http server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
