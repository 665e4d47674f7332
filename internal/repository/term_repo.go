package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/damoang/image-organizer/internal/domain"
	"gorm.io/gorm"
)

// TermRepository defines the interface for taxonomy term access
type TermRepository interface {
	FindBySlug(ctx context.Context, tax domain.Taxonomy, slug string) (*domain.Term, error)
	FindOrCreate(ctx context.Context, tax domain.Taxonomy, slug, name string) (*domain.Term, error)
	List(ctx context.Context, tax domain.Taxonomy) ([]domain.Term, error)
}

type termRepository struct {
	db *gorm.DB
}

// NewTermRepository creates a new TermRepository
func NewTermRepository(db *gorm.DB) TermRepository {
	return &termRepository{db: db}
}

// FindBySlug returns nil, nil when the term does not exist
func (r *termRepository) FindBySlug(ctx context.Context, tax domain.Taxonomy, slug string) (*domain.Term, error) {
	var t domain.Term
	err := r.db.WithContext(ctx).
		Where("taxonomy = ? AND slug = ?", tax, strings.TrimSpace(slug)).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindOrCreate returns the term, creating it when missing
func (r *termRepository) FindOrCreate(ctx context.Context, tax domain.Taxonomy, slug, name string) (*domain.Term, error) {
	slug = strings.TrimSpace(slug)
	if name == "" {
		name = slug
	}
	t := domain.Term{Taxonomy: tax, Slug: slug}
	err := r.db.WithContext(ctx).
		Where("taxonomy = ? AND slug = ?", tax, slug).
		Attrs(domain.Term{Name: name}).
		FirstOrCreate(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all terms of a taxonomy ordered by name
func (r *termRepository) List(ctx context.Context, tax domain.Taxonomy) ([]domain.Term, error) {
	var terms []domain.Term
	err := r.db.WithContext(ctx).
		Where("taxonomy = ?", tax).
		Order("name ASC, id ASC").
		Find(&terms).Error
	return terms, err
}
