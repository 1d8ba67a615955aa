package admin

import (
	"net/http"
	"strings"

	"adeptly/internal/logger"
	"adeptly/internal/models"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserController manages the locally provisioned user rows.
type UserController struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserController(db *gorm.DB, log *logger.Logger) *UserController {
	return &UserController{db: db, log: logger.OrNop(log).With("controller", "user")}
}

// UpdateUserRequest only admins may change status or permissions.
type UpdateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,max=150"`
	Status      *string `json:"status"`
	Permissions *string `json:"permissions"`
}

// Index GET /users
func (uc *UserController) Index(c *gin.Context) {
	userList := []models.User{}
	if err := uc.db.WithContext(c.Request.Context()).Order("id ASC").Find(&userList).Error; err != nil {
		util.RespondError(c, uc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": userList})
}

// Show GET /users/:uuid
func (uc *UserController) Show(c *gin.Context) {
	targetUUID := c.Param("uuid")
	if !util.CanAccessUser(util.CurrentUser(c), targetUUID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to view this user"})
		return
	}
	user, err := util.LoadUserByUUID(c.Request.Context(), uc.db, targetUUID)
	if err != nil {
		util.RespondError(c, uc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": user})
}

// Update POST /users/:uuid
func (uc *UserController) Update(c *gin.Context) {
	operator := util.CurrentUser(c)
	targetUUID := c.Param("uuid")
	if !util.CanAccessUser(operator, targetUUID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to modify this user"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	if !operator.HasPermission(util.PermissionAdmin) && (req.Status != nil || req.Permissions != nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only admins may change status or permissions"})
		return
	}

	ctx := c.Request.Context()
	user, err := util.LoadUserByUUID(ctx, uc.db, targetUUID)
	if err != nil {
		util.RespondError(c, uc.log, err)
		return
	}

	updates := map[string]any{}
	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	if req.Status != nil {
		s := strings.TrimSpace(*req.Status)
		if s != "active" && s != "disabled" {
			util.RespondFieldError(c, "status", "must be one of active disabled")
			return
		}
		updates["status"] = s
	}
	if req.Permissions != nil {
		updates["permissions"] = strings.TrimSpace(*req.Permissions)
	}

	if len(updates) > 0 {
		if err := uc.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			util.RespondError(c, uc.log, err)
			return
		}
		uc.log.Info("user updated", "uuid", targetUUID, "by", operator.UUID, "fields", len(updates))
	}

	user, err = util.LoadUserByUUID(ctx, uc.db, targetUUID)
	if err != nil {
		util.RespondError(c, uc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": user})
}
