package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
)

// currentUserID extracts the authenticated user's id from the request
// context. It aborts with 401 and returns false when the context carries no
// usable id.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autenticado"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Identificador de utilizador inválido"})
		return uuid.Nil, false
	}
	return userID, true
}

// currentUser loads the authenticated user's row
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Utilizador não encontrado"})
		return nil, false
	}
	return &user, true
}
