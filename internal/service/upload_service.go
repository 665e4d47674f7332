package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/render"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/pkg/cache"
	"github.com/damoang/image-organizer/pkg/ginutil"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"github.com/damoang/image-organizer/pkg/storage"
	"github.com/go-playground/validator/v10"
)

var uploadValidator = validator.New()

// UploadService accepts public uploads and manages upload keys
type UploadService interface {
	Upload(ctx context.Context, policy domain.UploadPolicy, form domain.UploadForm, file domain.UploadFile) (*domain.UploadResponse, error)
	SetUploadKey(ctx context.Context, instance, key string) error
	DeleteUploadKey(ctx context.Context, instance string) error
	Publish(ctx context.Context, id int64) (*domain.Media, error)
}

type uploadService struct {
	media   repository.MediaRepository
	terms   repository.TermRepository
	keys    repository.UploadKeyStore
	store   storage.Storage
	builder *render.Builder
	cache   cache.Service
	index   MediaIndex
	cfg     config.GalleryConfig
}

// NewUploadService creates a new UploadService; cacheSvc and index may be nil
func NewUploadService(
	media repository.MediaRepository,
	terms repository.TermRepository,
	keys repository.UploadKeyStore,
	store storage.Storage,
	builder *render.Builder,
	cacheSvc cache.Service,
	index MediaIndex,
	cfg config.GalleryConfig,
) UploadService {
	return &uploadService{
		media:   media,
		terms:   terms,
		keys:    keys,
		store:   store,
		builder: builder,
		cache:   cacheSvc,
		index:   index,
		cfg:     cfg,
	}
}

// sizeLimit server cap tightened by the instance policy and the client hint
func (s *uploadService) sizeLimit(policy domain.UploadPolicy, hint int64) int64 {
	limit := s.cfg.MaxUploadSize
	if policy.MaxSize > 0 && policy.MaxSize < limit {
		limit = policy.MaxSize
	}
	if hint > 0 && hint < limit {
		limit = hint
	}
	return limit
}

func (s *uploadService) allowedType(contentType string) bool {
	for _, t := range s.cfg.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

// validate runs every check that must pass before anything is stored
func (s *uploadService) validate(ctx context.Context, policy domain.UploadPolicy, form domain.UploadForm, file domain.UploadFile) (string, error) {
	if !policy.Enabled {
		return "", common.ErrUploadDisabled
	}
	if form.Honeypot != "" {
		return "", common.NewValidationError("", "upload.error")
	}
	if err := uploadValidator.Struct(&form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return "", &common.ValidationError{
				Field: strings.ToLower(verrs[0].Field()), Message: "error.bad_request",
				Status: http.StatusBadRequest, Cause: err,
			}
		}
		return "", common.NewValidationError("", "error.bad_request")
	}
	if len(file.Data) == 0 {
		return "", common.NewValidationError("file", "upload.no_file")
	}

	limit := s.sizeLimit(policy, form.MaxSizeHint)
	if int64(len(file.Data)) > limit {
		mb := (limit + 1024*1024 - 1) / (1024 * 1024)
		return "", common.NewValidationError("file", "upload.too_large", mb).WithStatus(http.StatusRequestEntityTooLarge)
	}

	contentType := http.DetectContentType(file.Data)
	if !s.allowedType(contentType) {
		return "", common.NewValidationError("file", "upload.bad_type").WithStatus(http.StatusUnsupportedMediaType)
	}

	if policy.KeyRequired {
		ok, err := s.keys.Verify(ctx, form.Instance, form.UploadKey)
		if err != nil {
			return "", fmt.Errorf("verify upload key: %w", err)
		}
		if !ok {
			return "", &common.ValidationError{
				Field: "upload_key", Message: "upload.key_mismatch",
				Status: http.StatusBadRequest, Cause: common.ErrUploadKeyMismatch,
			}
		}
	}
	return contentType, nil
}

// Upload validates, stores and records one image
func (s *uploadService) Upload(ctx context.Context, policy domain.UploadPolicy, form domain.UploadForm, file domain.UploadFile) (*domain.UploadResponse, error) {
	contentType, err := s.validate(ctx, policy, form, file)
	if err != nil {
		return nil, err
	}

	var processed *processedImage
	if contentType != "image/webp" {
		processed, err = processImage(file.Data, s.cfg.LargeWidth, s.cfg.ThumbnailWidth)
		if err != nil {
			return nil, common.NewValidationError("file", "upload.bad_type").WithStatus(http.StatusUnsupportedMediaType)
		}
	}

	ext := extForType(contentType)
	name := sanitizeFilename(file.Filename, ext)
	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
				pkglogger.GetLogger().Warn().Err(err).Str("key", key).Msg("orphaned upload cleanup failed")
			}
		}
	}
	put := func(prefix, filename string, data []byte, ct string) (string, error) {
		res, err := s.store.Upload(ctx, storage.GenerateKey(prefix, filename), bytes.NewReader(data), ct, int64(len(data)))
		if err != nil {
			return "", err
		}
		stored = append(stored, res.Key)
		return res.PreferredURL(), nil
	}

	media := &domain.Media{
		Title:       strings.TrimSpace(form.Title),
		Caption:     strings.TrimSpace(form.Caption),
		Description: strings.TrimSpace(form.Description),
		Alt:         strings.TrimSpace(form.Alt),
		MimeType:    contentType,
		FileSize:    int64(len(file.Data)),
		InstanceID:  form.Instance,
		Status:      domain.MediaPublished,
	}
	if media.Title == "" {
		media.Title = titleFromFilename(file.Filename)
	}
	if policy.ReviewRequired || ginutil.ParseBool(form.Review) {
		media.Status = domain.MediaPending
	}

	if media.URL, err = put("gallery/original", name, file.Data, contentType); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}
	media.StorageKey = stored[0]
	if processed != nil {
		media.Width, media.Height = processed.width, processed.height
		variantName := sanitizeFilename(file.Filename, processed.ext)
		if processed.large != nil {
			if media.LargeURL, err = put("gallery/large", variantName, processed.large, processed.contentType); err != nil {
				cleanup()
				return nil, fmt.Errorf("store large variant: %w", err)
			}
		}
		if processed.thumb != nil {
			if media.ThumbURL, err = put("gallery/thumb", variantName, processed.thumb, processed.contentType); err != nil {
				cleanup()
				return nil, fmt.Errorf("store thumbnail: %w", err)
			}
		}
	}

	// 카테고리는 토큰에 묶인 정책만 신뢰
	if policy.Category != "" {
		if form.Category != "" && form.Category != policy.Category {
			pkglogger.GetLogger().Debug().Str("instance", form.Instance).Str("requested", form.Category).Msg("ignoring client category outside policy")
		}
		term, err := s.terms.FindOrCreate(ctx, domain.TaxonomyCategory, policy.Category, "")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("resolve category %q: %w", policy.Category, err)
		}
		media.Terms = []domain.Term{*term}
	}

	if err := s.media.Create(ctx, media); err != nil {
		cleanup()
		return nil, fmt.Errorf("create media: %w", err)
	}

	pending := media.Status == domain.MediaPending
	s.indexMedia(ctx, media)
	if !pending {
		invalidate(ctx, s.cache)
	}

	logger := pkglogger.WithInstance(form.Instance)
	logger.Info().
		Int64("media_id", media.ID).
		Str("type", contentType).
		Int64("size", media.FileSize).
		Bool("pending", pending).
		Msg("image uploaded")

	thumb, err := s.builder.Thumb(media)
	if err != nil {
		return nil, err
	}
	return &domain.UploadResponse{
		ID:          media.ID,
		Src:         common.SanitizeURL(media.SourceURL()),
		Download:    common.SanitizeURL(media.URL),
		Title:       media.Title,
		Caption:     media.Caption,
		Description: domain.StripTags(media.Description),
		Alt:         media.Alt,
		Thumb:       string(thumb),
		Terms:       render.TermTokens(media.Terms),
		Pending:     pending,
	}, nil
}

func (s *uploadService) indexMedia(ctx context.Context, m *domain.Media) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexMedia(ctx, indexDocument(m)); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Int64("media_id", m.ID).Msg("search index update failed")
	}
}

// SetUploadKey stores a hashed per-instance upload key with the configured lifetime
func (s *uploadService) SetUploadKey(ctx context.Context, instance, key string) error {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return common.NewValidationError("instance", "error.bad_request")
	}
	if len(key) < s.cfg.UploadKeyMinLength {
		return common.NewValidationError("key", "error.bad_request")
	}
	return s.keys.Set(ctx, instance, key, s.cfg.UploadKeyTTL)
}

// DeleteUploadKey revokes an instance's upload key
func (s *uploadService) DeleteUploadKey(ctx context.Context, instance string) error {
	return s.keys.Delete(ctx, instance)
}

// Publish approves a pending upload
func (s *uploadService) Publish(ctx context.Context, id int64) (*domain.Media, error) {
	m, err := s.media.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	s.indexMedia(ctx, m)
	invalidate(ctx, s.cache)
	return m, nil
}
