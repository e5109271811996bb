package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/models"
	"github.com/formlab/survey-server/utils"
)

const CtxUser = "user"

// AuthJWT requires Authorization: Bearer <token>, loads the user and puts
// it into the request context.
func AuthJWT(db *gorm.DB, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c, db, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid token"})
			return
		}
		c.Set(CtxUser, user)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and stays
// anonymous otherwise. Invalid tokens are treated as anonymous, never as an
// error.
func OptionalAuth(db *gorm.DB, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := resolveUser(c, db, secret); ok {
			c.Set(CtxUser, user)
		}
		c.Next()
	}
}

// CurrentUser returns the resolved caller, nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil
	}
	user, ok := v.(models.User)
	if !ok {
		return nil
	}
	return &user
}

func resolveUser(c *gin.Context, db *gorm.DB, secret []byte) (models.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return models.User{}, false
	}
	rawToken := strings.TrimSpace(authHeader[7:])

	claims, err := utils.VerifyToken(secret, rawToken)
	if err != nil {
		return models.User{}, false
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.User{}, false
	}

	var user models.User
	if err := db.First(&user, "id = ?", uid).Error; err != nil {
		return models.User{}, false
	}
	return user, true
}
