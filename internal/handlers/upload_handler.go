package handlers

import (
	"net/http"
	"strconv"

	"fileshare/internal/services"
	"fileshare/internal/services/dto"
	"fileshare/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// UploadHandler exposes the resumable chunked upload protocol:
// announce a file, stream chunks in any order, then complete.
type UploadHandler struct {
	*BaseHandler
	uploadService services.UploadService
}

func NewUploadHandler(base *BaseHandler, uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{BaseHandler: base, uploadService: uploadService}
}

// CreateTask handles POST /api/v1/files/upload/create
func (h *UploadHandler) CreateTask(c *gin.Context) {
	user, ok := h.RequireUser(c)
	if !ok {
		return
	}

	var req dto.CreateUploadTaskRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.uploadService.Announce(c.Request.Context(), user, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadChunk handles POST /api/v1/files/upload/chunk/:taskId/:chunkIndex
// with the chunk bytes in a multipart field named "chunk".
func (h *UploadHandler) UploadChunk(c *gin.Context) {
	user, ok := h.RequireUser(c)
	if !ok {
		return
	}

	taskID := c.Param("taskId")
	index, err := strconv.ParseInt(c.Param("chunkIndex"), 10, 64)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid chunk index"))
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing chunk data"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}
	defer src.Close()

	if err := h.uploadService.ReceiveChunk(c.Request.Context(), user.ID, taskID, index, src, fileHeader.Size); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// CompleteTask handles POST /api/v1/files/upload/complete/:taskId
func (h *UploadHandler) CompleteTask(c *gin.Context) {
	user, ok := h.RequireUser(c)
	if !ok {
		return
	}

	resp, err := h.uploadService.Complete(c.Request.Context(), user, c.Param("taskId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
