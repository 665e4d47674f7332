package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/render"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/pkg/cache"
	"github.com/damoang/image-organizer/pkg/elasticsearch"
	"github.com/damoang/image-organizer/pkg/i18n"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"github.com/damoang/image-organizer/pkg/nonce"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// MediaIndex optional full-text index over media (elasticsearch)
type MediaIndex interface {
	IndexMedia(ctx context.Context, doc elasticsearch.MediaDocument) error
	DeleteMedia(ctx context.Context, id int64) error
	SearchMediaIDs(ctx context.Context, text string, within []int64, limit int) ([]int64, error)
}

// searchTimeout bounds a shared search; it no longer follows any one caller's context
const searchTimeout = 15 * time.Second

// GalleryService renders gallery instances and answers load-more / search
type GalleryService interface {
	Render(ctx context.Context, inst domain.GalleryInstance, locale i18n.Locale) (string, error)
	LoadMore(ctx context.Context, req LoadMoreRequest) (*domain.LoadMoreResponse, error)
	Search(ctx context.Context, req SearchRequest) (*domain.SearchResponse, error)
	Normalize(inst domain.GalleryInstance) domain.GalleryInstance
}

// LoadMoreRequest io_load_more input; the instance carries the full scope
type LoadMoreRequest struct {
	Instance domain.GalleryInstance
	Page     int
}

// SearchRequest io_search input
type SearchRequest struct {
	Instance domain.GalleryInstance
	Query    string
}

type galleryService struct {
	repo    repository.MediaRepository
	builder *render.Builder
	cache   cache.Service
	index   MediaIndex
	nonces  *nonce.Manager
	cfg     config.GalleryConfig
	ajaxURL string
	group   singleflight.Group
}

// NewGalleryService creates a new GalleryService; cacheSvc and index may be nil
func NewGalleryService(
	repo repository.MediaRepository,
	builder *render.Builder,
	cacheSvc cache.Service,
	index MediaIndex,
	nonces *nonce.Manager,
	cfg config.GalleryConfig,
	ajaxURL string,
) GalleryService {
	if cacheSvc == nil || !cfg.CacheEnabled {
		cacheSvc = cache.NewService(nil)
	}
	return &galleryService{
		repo:    repo,
		builder: builder,
		cache:   cacheSvc,
		index:   index,
		nonces:  nonces,
		cfg:     cfg,
		ajaxURL: ajaxURL,
	}
}

// Normalize clamps instance settings to the configured limits
func (s *galleryService) Normalize(inst domain.GalleryInstance) domain.GalleryInstance {
	if inst.ID == "" {
		inst.ID = "gallery-" + uuid.New().String()[:8]
	}
	if inst.PerPage < 1 {
		inst.PerPage = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && inst.PerPage > s.cfg.MaxLimit {
		inst.PerPage = s.cfg.MaxLimit
	}
	if inst.Columns == 0 {
		inst.Columns = s.cfg.DefaultColumns
	}
	if inst.Columns < 1 {
		inst.Columns = 1
	}
	if inst.Columns > 6 {
		inst.Columns = 6
	}
	if inst.FilterTaxonomy != domain.TaxonomyTag {
		inst.FilterTaxonomy = domain.TaxonomyCategory
	}
	if inst.Upload.Enabled && (inst.Upload.MaxSize <= 0 || inst.Upload.MaxSize > s.cfg.MaxUploadSize) {
		inst.Upload.MaxSize = s.cfg.MaxUploadSize
	}
	return inst
}

func renderOptions(inst domain.GalleryInstance) render.Options {
	return render.Options{FilterTaxonomy: inst.FilterTaxonomy, ShowFilter: inst.ShowFilter}
}

// fragmentKey scope plus the settings that change item markup
func fragmentKey(inst domain.GalleryInstance) string {
	return fmt.Sprintf("%s|f=%s:%t", inst.Scope.Key(), inst.FilterTaxonomy, inst.ShowFilter)
}

// Render builds the first page of an instance with its security token
func (s *galleryService) Render(ctx context.Context, inst domain.GalleryInstance, locale i18n.Locale) (string, error) {
	inst = s.Normalize(inst)

	page, err := s.repo.FindPage(ctx, domain.MediaQuery{Scope: inst.Scope, Page: 1, PerPage: inst.PerPage})
	if err != nil {
		return "", fmt.Errorf("query first page: %w", err)
	}

	var filters []domain.Term
	if inst.ShowFilter && len(page.Items) > 0 {
		filters, err = s.repo.FilterTerms(ctx, inst.Scope, inst.FilterTaxonomy)
		if err != nil {
			return "", fmt.Errorf("query filter terms: %w", err)
		}
	}

	var policy *nonce.UploadPolicy
	if inst.Upload.Enabled {
		policy = &nonce.UploadPolicy{
			Enabled:        true,
			ReviewRequired: inst.Upload.ReviewRequired,
			Category:       inst.Upload.Category,
			MaxSize:        inst.Upload.MaxSize,
			KeyRequired:    inst.Upload.KeyRequired,
		}
	}
	token, err := s.nonces.Issue(inst.ID, policy)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return s.builder.Gallery(render.GalleryView{
		Instance: inst,
		Nonce:    token,
		AjaxURL:  s.ajaxURL,
		Accept:   s.cfg.AllowedTypes,
		Items:    page.Items,
		Filters:  filters,
		MaxPages: page.MaxPages,
		Locale:   locale,
	})
}

// LoadMore returns the fragment of one later page
func (s *galleryService) LoadMore(ctx context.Context, req LoadMoreRequest) (*domain.LoadMoreResponse, error) {
	inst := s.Normalize(req.Instance)
	page := req.Page
	if page < 1 {
		page = 1
	}

	cacheKey := s.cache.PageKey(ctx, fragmentKey(inst), page, inst.PerPage)
	var cached domain.LoadMoreResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	result, err := s.repo.FindPage(ctx, domain.MediaQuery{Scope: inst.Scope, Page: page, PerPage: inst.PerPage})
	if err != nil {
		return nil, fmt.Errorf("query page %d: %w", page, err)
	}

	html, err := s.builder.Fragment(result.Items, renderOptions(inst))
	if err != nil {
		return nil, err
	}

	resp := &domain.LoadMoreResponse{
		HTML:     html,
		HasMore:  result.HasMore(),
		MaxPages: result.MaxPages,
		Count:    len(result.Items),
	}
	if resp.HasMore {
		next := page + 1
		resp.NextPage = &next
	}

	if err := s.cache.Set(ctx, cacheKey, resp, cache.TTLPage); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("key", cacheKey).Msg("gallery page cache write failed")
	}
	return resp, nil
}

// Search returns the entire (unpaginated) match set of the instance scope.
// Identical concurrent searches share one query.
func (s *galleryService) Search(ctx context.Context, req SearchRequest) (*domain.SearchResponse, error) {
	inst := s.Normalize(req.Instance)
	query := strings.TrimSpace(req.Query)

	cacheKey := s.cache.SearchKey(ctx, fragmentKey(inst), strings.ToLower(query))
	var cached domain.SearchResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	// 동일 검색은 한 번만 실행; 첫 요청자가 끊겨도 다른 대기자는 결과를 받음
	v, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchTimeout)
		defer cancel()
		return s.search(sctx, inst, query)
	})
	if err != nil {
		return nil, err
	}
	resp := v.(*domain.SearchResponse)

	if err := s.cache.Set(ctx, cacheKey, resp, cache.TTLSearch); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("key", cacheKey).Msg("gallery search cache write failed")
	}
	return resp, nil
}

func (s *galleryService) search(ctx context.Context, inst domain.GalleryInstance, query string) (*domain.SearchResponse, error) {
	q := domain.MediaQuery{Scope: inst.Scope, Text: query, Page: 1, PerPage: 0}

	if query != "" && s.index != nil && s.cfg.SearchResultLimit > 0 {
		ids, err := s.index.SearchMediaIDs(ctx, query, q.Scope.IDs, s.cfg.SearchResultLimit)
		switch {
		case err != nil:
			// 인덱스 장애 시 DB LIKE 검색으로 대체
			pkglogger.GetLogger().Warn().Err(err).Msg("search index unavailable, falling back to database")
		case len(ids) >= s.cfg.SearchResultLimit:
			// 인덱스 결과가 잘렸을 수 있음; 전체 매치를 위해 DB 검색
			pkglogger.GetLogger().Debug().Str("query", query).Int("limit", s.cfg.SearchResultLimit).
				Msg("search index result truncated, using database")
		default:
			q.MatchIDs = ids
			if q.MatchIDs == nil {
				q.MatchIDs = []int64{}
			}
		}
	}

	result, err := s.repo.FindPage(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	html, err := s.builder.Fragment(result.Items, renderOptions(inst))
	if err != nil {
		return nil, err
	}
	return &domain.SearchResponse{HTML: html, Count: len(result.Items)}, nil
}

// invalidate bumps the cache version after published media changes
func invalidate(ctx context.Context, c cache.Service) {
	if c == nil {
		return
	}
	if err := c.BumpVersion(ctx); err != nil && !errors.Is(err, cache.ErrMiss) {
		pkglogger.GetLogger().Warn().Err(err).Msg("gallery cache version bump failed")
	}
}
