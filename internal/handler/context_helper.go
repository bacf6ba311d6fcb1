package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/plumbdesk/plumbdesk-api/internal/middleware"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

func userFromContext(c *gin.Context) *models.AuthUser {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return user
}
