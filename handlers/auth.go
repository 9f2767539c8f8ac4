package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/middleware"
	"github.com/WILTYS/bookinails/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone"`
	IsProfessional bool   `json:"is_professional"`
}

type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	// Accepted but never verified: any caller with an email gets a session.
	Password string `json:"password"`
}

// Register creates a new user account
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check email uniqueness
	var existing models.User
	if result := config.DB.Where("email = ?", req.Email).First(&existing); result.Error == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	user := models.User{
		Email:          req.Email,
		Name:           req.Name,
		Phone:          req.Phone,
		IsProfessional: req.IsProfessional,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		// Concurrent registration racing past the uniqueness read.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    user,
	})
}

// Login issues a session token. Unknown emails auto-create a user record.
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// MVP: first login provisions the account, name defaults to the
		// email local part.
		user = models.User{
			Email:          req.Email,
			Name:           strings.SplitN(req.Email, "@", 2)[0],
			Phone:          "",
			IsProfessional: false,
		}
		if err := config.DB.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

// Me returns the authenticated user's record
func Me(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
