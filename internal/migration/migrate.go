package migration

import (
	"fmt"

	"github.com/damoang/image-organizer/internal/domain"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for the gallery tables
func Run(db *gorm.DB) error {
	// 테이블 없으면 생성, 있으면 컬럼/인덱스만 보강
	if err := db.AutoMigrate(&domain.Term{}, &domain.Media{}); err != nil {
		return err
	}
	return backfillSearchText(db)
}

// backfillSearchText fills search_text for rows written before the column existed
func backfillSearchText(db *gorm.DB) error {
	var rows []domain.Media
	return db.Select("id", "title", "caption", "description").
		Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&rows, 200, func(tx *gorm.DB, batch int) error {
			for i := range rows {
				rows[i].PrepareText()
				err := db.Model(&domain.Media{}).Where("id = ?", rows[i].ID).
					UpdateColumns(map[string]interface{}{
						"plain_description": rows[i].PlainDesc,
						"search_text":       rows[i].SearchText,
					}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// SeedDemo inserts sample terms and media when the media table is empty (local development only)
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.Media{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		terms := []domain.Term{
			{Taxonomy: domain.TaxonomyCategory, Slug: "nature", Name: "Nature"},
			{Taxonomy: domain.TaxonomyCategory, Slug: "city", Name: "City"},
			{Taxonomy: domain.TaxonomyCategory, Slug: "guest", Name: "Guest uploads"},
			{Taxonomy: domain.TaxonomyTag, Slug: "featured", Name: "Featured"},
			{Taxonomy: domain.TaxonomyTag, Slug: "night", Name: "Night"},
		}
		if err := tx.Create(&terms).Error; err != nil {
			return err
		}
		nature, city, featured, night := terms[0], terms[1], terms[3], terms[4]

		samples := []struct {
			title string
			terms []domain.Term
		}{
			{"Mountain lake", []domain.Term{nature, featured}},
			{"Forest trail", []domain.Term{nature}},
			{"Harbor at dusk", []domain.Term{city, night}},
			{"Old town street", []domain.Term{city}},
			{"Desert dunes", []domain.Term{nature}},
			{"Skyline", []domain.Term{city, featured, night}},
			{"Waterfall", []domain.Term{nature}},
			{"Market square", []domain.Term{city}},
		}
		for i, s := range samples {
			pic := 10 + i*7
			m := domain.Media{
				Title:       s.title,
				Caption:     s.title + " caption",
				Description: "<p>Sample image <strong>" + s.title + "</strong>.</p>",
				Alt:         s.title,
				URL:         fmt.Sprintf("https://picsum.photos/id/%d/2400/1600", pic),
				LargeURL:    fmt.Sprintf("https://picsum.photos/id/%d/1600/1067", pic),
				ThumbURL:    fmt.Sprintf("https://picsum.photos/id/%d/300/200", pic),
				MimeType:    "image/jpeg",
				Status:      domain.MediaPublished,
				Width:       2400,
				Height:      1600,
				Terms:       s.terms,
			}
			m.PrepareText()
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
