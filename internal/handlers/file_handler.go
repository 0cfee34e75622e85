package handlers

import (
	"fmt"
	"net/http"

	"fileshare/internal/middleware"
	"fileshare/internal/services"
	"fileshare/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	*BaseHandler
	fileService services.FileService
}

func NewFileHandler(base *BaseHandler, fileService services.FileService) *FileHandler {
	return &FileHandler{BaseHandler: base, fileService: fileService}
}

// ListMine handles GET /api/v1/files
func (h *FileHandler) ListMine(c *gin.Context) {
	user, ok := h.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := ParsePagination(c)
	resp, err := h.fileService.ListUserFiles(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPublic handles GET /api/v1/files/public. Anonymous access allowed.
func (h *FileHandler) ListPublic(c *gin.Context) {
	limit, offset := ParsePagination(c)
	resp, err := h.fileService.ListPublicFiles(c.Request.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetFile handles GET /api/v1/files/:fileId. The viewer may be anonymous;
// the access password, when required, travels in the "password" query param.
func (h *FileHandler) GetFile(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	resp, err := h.fileService.GetFile(c.Request.Context(), c.Param("fileId"), viewer, c.Query("password"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Download handles GET /api/v1/files/:fileId/download
func (h *FileHandler) Download(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	reader, file, err := h.fileService.Download(c.Request.Context(), c.Param("fileId"), viewer, c.Query("password"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalFilename))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, file.Size, contentType, reader, nil)
}

// GetDownloadURL handles GET /api/v1/files/:fileId/url, returning a direct
// (presigned where the backend supports it) download URL.
func (h *FileHandler) GetDownloadURL(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	resp, err := h.fileService.GetDownloadURL(c.Request.Context(), c.Param("fileId"), viewer, c.Query("password"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateShare handles PUT /api/v1/files/:fileId/share
func (h *FileHandler) UpdateShare(c *gin.Context) {
	user, ok := h.RequireUser(c)
	if !ok {
		return
	}

	var req dto.UpdateShareRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.fileService.UpdateShare(c.Request.Context(), c.Param("fileId"), user, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/files/:fileId
func (h *FileHandler) Delete(c *gin.Context) {
	user, ok := h.RequireUser(c)
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), c.Param("fileId"), user); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}
