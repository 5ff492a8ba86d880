package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
)

// viewerID returns the authenticated user or nil for anonymous requests
func viewerID(c *gin.Context) *uint {
	if id, ok := middleware.CurrentUserID(c); ok {
		return &id
	}
	return nil
}

// currentUserID is only valid behind middleware.AuthMiddleware
func currentUserID(c *gin.Context) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}

// pathID parses a positive integer path parameter; anything else is a 404
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// queryFlag reads boolean query parameters sent as 1/0 or true/false
func queryFlag(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
