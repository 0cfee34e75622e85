package handlers

import (
	"net/http"

	"fileshare/internal/services"
	"fileshare/internal/services/dto"
	"fileshare/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AdminHandler covers user administration and site configuration. All
// routes behind it require the admin role.
type AdminHandler struct {
	*BaseHandler
	userService   services.UserService
	configService services.ConfigService
}

func NewAdminHandler(base *BaseHandler, userService services.UserService, configService services.ConfigService) *AdminHandler {
	return &AdminHandler{BaseHandler: base, userService: userService, configService: configService}
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := ParsePagination(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

// UpdateUserLimits handles PUT /api/v1/admin/users/:userId/limits
func (h *AdminHandler) UpdateUserLimits(c *gin.Context) {
	var req dto.UpdateLimitsRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.userService.UpdateLimits(c.Request.Context(), c.Param("userId"), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "limits updated"})
}

// DeleteUser handles DELETE /api/v1/admin/users/:userId
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("userId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// GetConfig handles GET /api/v1/admin/config
func (h *AdminHandler) GetConfig(c *gin.Context) {
	cfg, err := h.configService.All(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// SetConfig handles PUT /api/v1/admin/config
func (h *AdminHandler) SetConfig(c *gin.Context) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	if err := h.configService.Set(c.Request.Context(), req.Key, req.Value); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "config updated"})
}
