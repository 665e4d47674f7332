package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles gallery operator requests (upload keys, review queue)
type AdminHandler struct {
	uploads service.UploadService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(uploads service.UploadService) *AdminHandler {
	return &AdminHandler{uploads: uploads}
}

// UploadKeyRequest upload key body
type UploadKeyRequest struct {
	Key string `json:"key" binding:"required"`
}

// SetUploadKey handles PUT /gallery/admin/upload-keys/:instance
// @Summary 인스턴스 업로드 키 설정
// @Tags gallery-admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param instance path string true "인스턴스 ID"
// @Param body body UploadKeyRequest true "업로드 키"
// @Success 204
// @Failure 400 {object} common.APIResponse
// @Router /gallery/admin/upload-keys/{instance} [put]
func (h *AdminHandler) SetUploadKey(c *gin.Context) {
	var req UploadKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "업로드 키가 필요합니다", err)
		return
	}

	if err := h.uploads.SetUploadKey(c.Request.Context(), c.Param("instance"), req.Key); err != nil {
		status := common.StatusFor(err)
		common.ErrorResponse(c, status, "업로드 키 설정 실패", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUploadKey handles DELETE /gallery/admin/upload-keys/:instance
// @Summary 인스턴스 업로드 키 삭제
// @Tags gallery-admin
// @Security ApiKeyAuth
// @Param instance path string true "인스턴스 ID"
// @Success 204
// @Router /gallery/admin/upload-keys/{instance} [delete]
func (h *AdminHandler) DeleteUploadKey(c *gin.Context) {
	if err := h.uploads.DeleteUploadKey(c.Request.Context(), c.Param("instance")); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "업로드 키 삭제 실패", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublishMedia handles POST /gallery/admin/media/:id/publish
// @Summary 검토 대기 이미지 게시
// @Tags gallery-admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "미디어 ID"
// @Success 200 {object} common.APIResponse{data=domain.Media}
// @Failure 404 {object} common.APIResponse
// @Router /gallery/admin/media/{id}/publish [post]
func (h *AdminHandler) PublishMedia(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 미디어 ID", err)
		return
	}

	media, err := h.uploads.Publish(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "미디어를 찾을 수 없습니다", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "게시 실패", err)
		return
	}
	common.SuccessResponse(c, media, nil)
}
