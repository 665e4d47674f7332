package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/middleware"
	"github.com/damoang/image-organizer/internal/render"
	"github.com/damoang/image-organizer/internal/service"
	"github.com/damoang/image-organizer/pkg/ginutil"
	"github.com/damoang/image-organizer/pkg/i18n"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"github.com/damoang/image-organizer/pkg/nonce"
	"github.com/gin-gonic/gin"
)

// GalleryHandler serves gallery pages and the gallery ajax endpoint
type GalleryHandler struct {
	gallery service.GalleryService
	uploads service.UploadService
	builder *render.Builder
	bundle  *i18n.Bundle
	cfg     config.GalleryConfig
}

// NewGalleryHandler creates a new GalleryHandler
func NewGalleryHandler(
	gallery service.GalleryService,
	uploads service.UploadService,
	builder *render.Builder,
	bundle *i18n.Bundle,
	cfg config.GalleryConfig,
) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, uploads: uploads, builder: builder, bundle: bundle, cfg: cfg}
}

// GetGallery handles GET /gallery
// @Summary 갤러리 페이지 렌더링
// @Description 설정된 인스턴스(instance)를 기준으로 하고, 표시 옵션만 쿼리로 덮어쓸 수 있음. 업로드 정책은 설정에서만 읽음
// @Tags gallery
// @Produce html
// @Param instance query string false "인스턴스 ID"
// @Param ids query string false "허용 ID 목록 (콤마 구분, 순서 유지)"
// @Param categories query string false "카테고리 slug (콤마 구분)"
// @Param tags query string false "태그 slug (콤마 구분)"
// @Param columns query int false "열 수 (1-6)"
// @Param limit query int false "페이지 크기"
// @Param show_filter query bool false "필터 표시"
// @Param filter_taxonomy query string false "필터 분류 (category|tag)"
// @Param search query bool false "검색창 표시"
// @Param lang query string false "언어"
// @Success 200 {string} string "HTML"
// @Router /gallery [get]
func (h *GalleryHandler) GetGallery(c *gin.Context) {
	inst := h.instanceFromQuery(c)
	locale := middleware.GetLocale(c)

	body, err := h.gallery.Render(c.Request.Context(), inst, locale)
	if err != nil {
		pkglogger.GetLogger().Error().Err(err).Str("instance", inst.ID).Msg("gallery render failed")
		c.String(http.StatusInternalServerError, h.bundle.T(locale, "error.internal"))
		return
	}

	page, err := h.builder.Page(h.bundle.T(locale, "gallery.title"), locale, body)
	if err != nil {
		pkglogger.GetLogger().Error().Err(err).Msg("gallery page render failed")
		c.String(http.StatusInternalServerError, h.bundle.T(locale, "error.internal"))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// instanceFromQuery merges the configured instance (if any) with display query parameters
func (h *GalleryHandler) instanceFromQuery(c *gin.Context) domain.GalleryInstance {
	id := strings.TrimSpace(c.Query("instance"))
	inst := domain.GalleryInstance{ID: id, ShowSearch: true}

	if ic, ok := h.cfg.Instance(id); ok {
		inst = instanceFromConfig(ic, h.cfg)
	}

	if v, ok := c.GetQuery("ids"); ok {
		inst.Scope.IDs = ginutil.SplitIDs(v)
	}
	if v, ok := c.GetQuery("categories"); ok {
		inst.Scope.Categories = ginutil.SplitCSV(v)
	}
	if v, ok := c.GetQuery("tags"); ok {
		inst.Scope.Tags = ginutil.SplitCSV(v)
	}
	inst.Columns = ginutil.QueryInt(c, "columns", inst.Columns)
	inst.PerPage = ginutil.QueryInt(c, "limit", inst.PerPage)
	if v, ok := c.GetQuery("show_filter"); ok {
		inst.ShowFilter = ginutil.ParseBool(v)
	}
	if v, ok := c.GetQuery("filter_taxonomy"); ok {
		inst.FilterTaxonomy = domain.ParseTaxonomy(v)
	}
	if v, ok := c.GetQuery("search"); ok {
		inst.ShowSearch = ginutil.ParseBool(v)
	}
	return inst
}

func instanceFromConfig(ic config.InstanceConfig, cfg config.GalleryConfig) domain.GalleryInstance {
	inst := domain.GalleryInstance{
		ID:             ic.ID,
		PerPage:        ic.Limit,
		Columns:        ic.Columns,
		Scope:          domain.GalleryScope{IDs: ic.IDs, Categories: ic.Categories, Tags: ic.Tags},
		FilterTaxonomy: domain.ParseTaxonomy(ic.FilterTaxonomy),
		ShowFilter:     ic.ShowFilter,
		ShowSearch:     ic.ShowSearch == nil || *ic.ShowSearch,
	}
	if ic.Upload.Enabled {
		review := cfg.ReviewByDefault
		if ic.Upload.Review != nil {
			review = *ic.Upload.Review
		}
		inst.Upload = domain.UploadPolicy{
			Enabled:        true,
			ReviewRequired: review,
			Category:       ic.Upload.Category,
			MaxSize:        int64(ic.Upload.MaxSizeMB) * 1024 * 1024,
			KeyRequired:    ic.Upload.KeyRequired,
		}
	}
	return inst
}

// Ajax handles POST /gallery/ajax
// @Summary 갤러리 AJAX (더 보기 / 검색 / 업로드)
// @Description action 필드로 분기. 모든 요청은 nonce 검증을 거침
// @Tags gallery
// @Accept x-www-form-urlencoded,multipart/form-data
// @Produce json
// @Param action formData string true "io_load_more | io_search | io_upload"
// @Param nonce formData string true "보안 토큰"
// @Param page formData int false "요청 페이지 (io_load_more)"
// @Param query formData string false "검색어 (io_search)"
// @Param file formData file false "이미지 파일 (io_upload)"
// @Success 200 {object} common.AjaxEnvelope
// @Failure 400 {object} common.AjaxEnvelope
// @Failure 403 {object} common.AjaxEnvelope
// @Failure 413 {object} common.AjaxEnvelope
// @Failure 415 {object} common.AjaxEnvelope
// @Failure 429 {object} common.AjaxEnvelope
// @Router /gallery/ajax [post]
func (h *GalleryHandler) Ajax(c *gin.Context) {
	claims := middleware.GetNonceClaims(c)
	if claims == nil {
		middleware.SetOutcome(c, "rejected")
		common.AjaxError(c, http.StatusForbidden, h.bundle.T(middleware.GetLocale(c), "error.rejected"))
		return
	}

	action := c.PostForm("action")
	switch action {
	case domain.ActionLoadMore:
		h.loadMore(c, claims)
	case domain.ActionSearch:
		h.search(c, claims)
	case domain.ActionUpload:
		h.upload(c, claims)
	default:
		middleware.SetOutcome(c, "invalid")
		common.AjaxError(c, http.StatusBadRequest, h.bundle.T(middleware.GetLocale(c), "error.bad_request"))
	}
}

// instanceFromForm rebuilds the stateless instance scope sent with every ajax request.
// The instance id always comes from the verified token.
func instanceFromForm(c *gin.Context, claims *nonce.Claims) domain.GalleryInstance {
	return domain.GalleryInstance{
		ID:      claims.Instance(),
		PerPage: ginutil.PostFormInt(c, "per_page", 0),
		Columns: ginutil.PostFormInt(c, "columns", 0),
		Scope: domain.GalleryScope{
			IDs:        ginutil.SplitIDs(c.PostForm("ids")),
			Categories: ginutil.SplitCSV(c.PostForm("categories")),
			Tags:       ginutil.SplitCSV(c.PostForm("tags")),
		},
		FilterTaxonomy: domain.ParseTaxonomy(c.PostForm("filter_taxonomy")),
		ShowFilter:     ginutil.ParseBool(c.PostForm("show_filter")),
	}
}

func (h *GalleryHandler) loadMore(c *gin.Context, claims *nonce.Claims) {
	page := ginutil.PostFormInt(c, "page", 0)
	if page < 1 {
		h.fail(c, domain.ActionLoadMore, common.NewValidationError("page", "error.bad_request"))
		return
	}

	resp, err := h.gallery.LoadMore(c.Request.Context(), service.LoadMoreRequest{
		Instance: instanceFromForm(c, claims),
		Page:     page,
	})
	if err != nil {
		h.fail(c, domain.ActionLoadMore, err)
		return
	}
	middleware.SetOutcome(c, "ok")
	common.AjaxSuccess(c, resp)
}

func (h *GalleryHandler) search(c *gin.Context, claims *nonce.Claims) {
	resp, err := h.gallery.Search(c.Request.Context(), service.SearchRequest{
		Instance: instanceFromForm(c, claims),
		Query:    c.PostForm("query"),
	})
	if err != nil {
		h.fail(c, domain.ActionSearch, err)
		return
	}
	middleware.SetOutcome(c, "ok")
	common.AjaxSuccess(c, resp)
}

func (h *GalleryHandler) upload(c *gin.Context, claims *nonce.Claims) {
	var policy domain.UploadPolicy
	if claims.Upload != nil {
		policy = domain.UploadPolicy{
			Enabled:        claims.Upload.Enabled,
			ReviewRequired: claims.Upload.ReviewRequired,
			Category:       claims.Upload.Category,
			MaxSize:        claims.Upload.MaxSize,
			KeyRequired:    claims.Upload.KeyRequired,
		}
	}

	var form domain.UploadForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, domain.ActionUpload, common.NewValidationError("form", "error.bad_request"))
		return
	}
	form.Instance = claims.Instance()

	file, err := h.readUploadFile(c)
	if err != nil {
		h.fail(c, domain.ActionUpload, err)
		return
	}

	resp, err := h.uploads.Upload(c.Request.Context(), policy, form, file)
	if err != nil {
		h.fail(c, domain.ActionUpload, err)
		return
	}

	status := string(domain.MediaPublished)
	if resp.Pending {
		status = string(domain.MediaPending)
	}
	middleware.RecordUpload(status)
	middleware.SetOutcome(c, "ok")
	common.AjaxSuccess(c, resp)
}

// readUploadFile reads at most one byte past the configured limit so oversize files are still detected
func (h *GalleryHandler) readUploadFile(c *gin.Context) (domain.UploadFile, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return domain.UploadFile{}, nil
		}
		return domain.UploadFile{}, common.NewValidationError("file", "upload.no_file")
	}

	f, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadSize+1))
	if err != nil {
		return domain.UploadFile{}, err
	}
	return domain.UploadFile{Filename: fh.Filename, Data: data}, nil
}

// fail answers with the localized failure envelope for err
func (h *GalleryHandler) fail(c *gin.Context, action string, err error) {
	locale := middleware.GetLocale(c)
	status := common.StatusFor(err)

	var ve *common.ValidationError
	var message string
	switch {
	case errors.As(err, &ve):
		message = h.bundle.T(locale, ve.Message, ve.Args...)
		middleware.SetOutcome(c, "invalid")
	case errors.Is(err, common.ErrUploadDisabled):
		message = h.bundle.T(locale, "upload.disabled")
		middleware.SetOutcome(c, "rejected")
	case status == http.StatusForbidden:
		message = h.bundle.T(locale, "error.rejected")
		middleware.SetOutcome(c, "rejected")
	default:
		status = http.StatusInternalServerError
		message = h.bundle.T(locale, failureKey(action))
		middleware.SetOutcome(c, "error")
		pkglogger.GetLogger().Error().Err(err).
			Str("action", action).
			Str("path", c.Request.URL.Path).
			Msg("gallery ajax failed")
	}
	common.AjaxError(c, status, message)
}

func failureKey(action string) string {
	switch action {
	case domain.ActionLoadMore:
		return "status.load_error"
	case domain.ActionSearch:
		return "status.search_error"
	case domain.ActionUpload:
		return "upload.error"
	}
	return "error.internal"
}
