package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MediaRepository defines the interface for gallery media access
type MediaRepository interface {
	// Query translator: scope + text + cursor → ordered page
	FindPage(ctx context.Context, q domain.MediaQuery) (*domain.MediaPage, error)
	// FilterTerms terms of the taxonomy used by any published item in scope
	FilterTerms(ctx context.Context, scope domain.GalleryScope, tax domain.Taxonomy) ([]domain.Term, error)

	FindByID(ctx context.Context, id int64) (*domain.Media, error)
	Create(ctx context.Context, m *domain.Media) error
	Publish(ctx context.Context, id int64) (*domain.Media, error)
	Delete(ctx context.Context, id int64) error
}

// mediaRepository implements MediaRepository with GORM
type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

const likeEscape = "!"

// escapeLike escapes LIKE wildcards with '!' (works on both MySQL and SQLite)
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// dedupeIDs keeps the first occurrence of each positive id
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// termSubquery media ids carrying any of the slugs in the taxonomy
func (r *mediaRepository) termSubquery(tax domain.Taxonomy, slugs []string) *gorm.DB {
	return r.db.Table("gallery_media_terms AS mt").
		Select("mt.media_id").
		Joins("JOIN gallery_terms AS t ON t.id = mt.term_id").
		Where("t.taxonomy = ? AND t.slug IN ?", tax, slugs)
}

// scoped builds the WHERE part shared by count, page and filter-term queries.
// Taxonomy constraints combine with AND; only published media is visible.
func (r *mediaRepository) scoped(ctx context.Context, q domain.MediaQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("gallery_media.status = ?", domain.MediaPublished)

	if ids := dedupeIDs(q.Scope.IDs); len(ids) > 0 {
		db = db.Where("gallery_media.id IN ?", ids)
	}
	if slugs := cleanSlugs(q.Scope.Categories); len(slugs) > 0 {
		db = db.Where("gallery_media.id IN (?)", r.termSubquery(domain.TaxonomyCategory, slugs))
	}
	if slugs := cleanSlugs(q.Scope.Tags); len(slugs) > 0 {
		db = db.Where("gallery_media.id IN (?)", r.termSubquery(domain.TaxonomyTag, slugs))
	}

	if text := domain.FoldSearch(strings.TrimSpace(q.Text)); text != "" {
		if q.MatchIDs != nil {
			// 검색 인덱스 결과로 제한
			if len(q.MatchIDs) == 0 {
				return db.Where("1 = 0")
			}
			db = db.Where("gallery_media.id IN ?", q.MatchIDs)
		} else {
			// search_text는 저장 시 소문자로 접어둠 (DB별 LOWER() 차이 회피)
			db = db.Where("gallery_media.search_text LIKE ? ESCAPE '"+likeEscape+"'", "%"+escapeLike(text)+"%")
		}
	}
	return db
}

// orderClause allow-list order when ids are given, newest-first otherwise
func orderClause(ids []int64) interface{} {
	if len(ids) == 0 {
		return "gallery_media.created_at DESC, gallery_media.id DESC"
	}
	var sb strings.Builder
	vars := make([]interface{}, 0, len(ids)*2+1)
	sb.WriteString("CASE gallery_media.id")
	for i, id := range ids {
		sb.WriteString(" WHEN ? THEN ?")
		vars = append(vars, id, i)
	}
	sb.WriteString(" ELSE ? END")
	vars = append(vars, len(ids))
	return clause.OrderBy{Expression: clause.Expr{SQL: sb.String(), Vars: vars, WithoutParentheses: true}}
}

// FindPage executes the query translated from q
func (r *mediaRepository) FindPage(ctx context.Context, q domain.MediaQuery) (*domain.MediaPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	var total int64
	if err := r.scoped(ctx, q).Count(&total).Error; err != nil {
		return nil, err
	}

	result := &domain.MediaPage{
		Total:    total,
		Page:     page,
		PerPage:  q.PerPage,
		MaxPages: domain.MaxPages(total, q.PerPage),
	}
	if q.Unbounded() {
		result.Page = 1
	}

	if total == 0 || (!q.Unbounded() && (page-1)*q.PerPage >= int(total)) {
		result.Items = []domain.Media{}
		return result, nil
	}

	db := r.scoped(ctx, q).
		Preload("Terms", func(db *gorm.DB) *gorm.DB {
			return db.Order("gallery_terms.id")
		}).
		Order(orderClause(dedupeIDs(q.Scope.IDs)))
	if !q.Unbounded() {
		db = db.Offset((page - 1) * q.PerPage).Limit(q.PerPage)
	}

	var items []domain.Media
	if err := db.Find(&items).Error; err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}

// FilterTerms returns terms of the taxonomy attached to any published item in scope
func (r *mediaRepository) FilterTerms(ctx context.Context, scope domain.GalleryScope, tax domain.Taxonomy) ([]domain.Term, error) {
	inScope := r.scoped(ctx, domain.MediaQuery{Scope: scope}).Select("gallery_media.id")
	used := r.db.Table("gallery_media_terms").Select("term_id").Where("media_id IN (?)", inScope)

	var terms []domain.Term
	err := r.db.WithContext(ctx).
		Where("gallery_terms.taxonomy = ? AND gallery_terms.id IN (?)", tax, used).
		Order("gallery_terms.name ASC, gallery_terms.id ASC").
		Find(&terms).Error
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// FindByID retrieves a media record with its terms
func (r *mediaRepository) FindByID(ctx context.Context, id int64) (*domain.Media, error) {
	var m domain.Media
	err := r.db.WithContext(ctx).Preload("Terms").First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a media record and its term associations
func (r *mediaRepository) Create(ctx context.Context, m *domain.Media) error {
	m.PrepareText()
	return r.db.WithContext(ctx).Create(m).Error
}

// Publish moves a pending record to published
func (r *mediaRepository) Publish(ctx context.Context, id int64) (*domain.Media, error) {
	res := r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("id = ?", id).
		Update("status", domain.MediaPublished)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, common.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes a media record and its term associations
func (r *mediaRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM gallery_media_terms WHERE media_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Media{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

// cleanSlugs trims and drops empty slugs
func cleanSlugs(slugs []string) []string {
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
