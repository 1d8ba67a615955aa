package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"adeptly/internal/logger"
	"adeptly/internal/models"
	"adeptly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Headers set by the identity proxy in front of the service.
const (
	HeaderUserUUID = "X-User-UUID"
	HeaderUserName = "X-User-Name"
)

const PermissionAdmin = "admin"

const contextUserKey = "adeptly.user"

// ProvisionUser returns the user with uuid, creating it on first sight.
func ProvisionUser(ctx context.Context, db *gorm.DB, id, name string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("uuid = ?", id).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	created := models.User{UUID: id, Username: name, Status: "active"}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "uuid"}}, DoNothing: true}).
		Create(&created).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// re-read so a concurrent request that inserted first wins
	if err := db.WithContext(ctx).Where("uuid = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("load provisioned user: %w", err)
	}
	return &user, nil
}

// RequireUser resolves the caller from the identity headers. A missing or malformed
// uuid is rejected with 401 and a disabled account with 403.
func RequireUser(db *gorm.DB, log *logger.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserUUID))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + HeaderUserUUID + " header"})
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user uuid"})
			return
		}

		user, err := ProvisionUser(c.Request.Context(), db, id.String(), strings.TrimSpace(c.GetHeader(HeaderUserName)))
		if err != nil {
			log.Error("provision user failed", "uuid", id.String(), "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !user.Active() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is disabled"})
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.HasPermission(PermissionAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin permission required"})
			return
		}
		c.Next()
	}
}

// CanAccessUser reports whether operator may read the data of targetUUID.
func CanAccessUser(operator *models.User, targetUUID string) bool {
	if operator == nil {
		return false
	}
	if operator.UUID == targetUUID {
		return true
	}
	return operator.HasPermission(PermissionAdmin)
}

// LoadUserByUUID returns services.ErrUserNotFound when no user carries uuid.
func LoadUserByUUID(ctx context.Context, db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("uuid = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}
