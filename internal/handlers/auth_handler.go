package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/utils"
)

// AuthHandler handles signup and login
type AuthHandler struct {
	db       *gorm.DB
	registry *affiliate.ReferralRegistry
	audit    *utils.AuditLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, registry *affiliate.ReferralRegistry, audit *utils.AuditLogger) *AuthHandler {
	return &AuthHandler{db: db, registry: registry, audit: audit}
}

// Signup registers a user, assigns a fresh referral code and captures the
// referrer when a valid foreign code was supplied
func (h *AuthHandler) Signup(c *gin.Context) {
	var input struct {
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=8"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	var existing models.User
	err := h.db.Where("email = ?", strings.ToLower(input.Email)).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "Email já registado"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	// a signup referral must belong to someone else; invalid codes are dropped
	referredBy := ""
	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		if refUser, err := h.registry.Resolve(code); err == nil && refUser != nil {
			referredBy = refUser.ReferralCode
		}
	}

	user := models.User{
		Name:         input.Name,
		Email:        strings.ToLower(input.Email),
		PasswordHash: hash,
		ReferralCode: h.uniqueReferralCode(),
		ReferredBy:   referredBy,
		IsActive:     true,
	}
	if user.ReferredBy == user.ReferralCode {
		user.ReferredBy = ""
	}
	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar conta"})
		return
	}

	if err := h.audit.Log(&user.ID, utils.AuditUserSignup, models.JSON{"email": user.Email, "referred": referredBy != ""}); err != nil {
		log.Printf("failed to audit signup: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Conta criada",
		"user_id":       user.ID,
		"referral_code": user.ReferralCode,
	})
}

// Login verifies credentials and issues a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	var user models.User
	err := h.db.Where("email = ?", strings.ToLower(input.Email)).First(&user).Error
	if err != nil || !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Credenciais inválidas"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"message": "Conta desativada"})
		return
	}

	tokens, err := utils.GenerateTokenPair(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	now := time.Now()
	if err := h.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		log.Printf("failed to record last login: %v", err)
	}
	if err := h.audit.Log(&user.ID, utils.AuditUserLogin, nil); err != nil {
		log.Printf("failed to audit login: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens": tokens,
		"user": gin.H{
			"id":            user.ID,
			"name":          user.Name,
			"email":         user.Email,
			"is_admin":      user.IsAdmin,
			"referral_code": user.ReferralCode,
		},
	})
}

// uniqueReferralCode draws codes until one is free. Collisions on a 6-char
// alphanumeric code are rare enough that a couple of retries always suffice.
func (h *AuthHandler) uniqueReferralCode() string {
	for i := 0; i < 5; i++ {
		code := utils.GenerateReferralCode()
		var count int64
		if err := h.db.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err == nil && count == 0 {
			return code
		}
	}
	return utils.GenerateReferralCode() + utils.GenerateReferralCode()
}
