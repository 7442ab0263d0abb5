package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fleetworks/motorpool-api/internal/middleware"
	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
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

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return id, nil
}
