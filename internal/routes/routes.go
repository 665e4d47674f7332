package routes

import (
	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/handler"
	"github.com/damoang/image-organizer/internal/middleware"
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/damoang/image-organizer/pkg/nonce"
	"github.com/gin-gonic/gin"
)

// formOverhead room for the non-file fields of an upload form
const formOverhead = 1 << 20

// Setup configures all gallery routes
func Setup(
	router *gin.Engine,
	galleryHandler *handler.GalleryHandler,
	adminHandler *handler.AdminHandler,
	nonces *nonce.Manager,
	uploadLimiter *middleware.RateLimiter,
	bundle *i18n.Bundle,
	cfg *config.Config,
) {
	gallery := router.Group("/gallery", middleware.I18n())

	// 갤러리 페이지 (공개)
	gallery.GET("", galleryHandler.GetGallery)

	// AJAX: 본문 크기 제한 → nonce 검증 → 업로드만 rate limit
	gallery.POST("/ajax",
		middleware.BodyLimit(cfg.Gallery.MaxUploadSize+formOverhead, bundle),
		middleware.VerifyNonce(nonces, bundle),
		uploadLimiter.Middleware(bundle, isUpload),
		galleryHandler.Ajax,
	)

	// 운영자 API (X-API-Key)
	admin := gallery.Group("/admin", middleware.AdminAPIKey(cfg.Admin.APIKey))
	admin.PUT("/upload-keys/:instance", adminHandler.SetUploadKey)       // 업로드 키 설정
	admin.DELETE("/upload-keys/:instance", adminHandler.DeleteUploadKey) // 업로드 키 삭제
	admin.POST("/media/:id/publish", adminHandler.PublishMedia)          // 검토 대기 이미지 게시
}

func isUpload(c *gin.Context) bool {
	return c.PostForm("action") == domain.ActionUpload
}
