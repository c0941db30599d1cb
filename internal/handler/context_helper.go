package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blocklearn/blocklearn-api/internal/middleware"
	"github.com/blocklearn/blocklearn-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func pageParams(c *gin.Context) (page, size int) {
	page = queryInt(c, "page", 1)
	size = queryInt(c, "page_size", 20)
	return page, size
}
