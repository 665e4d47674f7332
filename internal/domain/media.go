package domain

import (
	"strings"
	"time"
)

// MediaStatus publication state of an uploaded image
type MediaStatus string

const (
	MediaPublished MediaStatus = "published"
	MediaPending   MediaStatus = "pending" // 검토 대기, 조회 대상에서 제외
)

// Taxonomy kind of a term
type Taxonomy string

const (
	TaxonomyCategory Taxonomy = "category"
	TaxonomyTag      Taxonomy = "tag"
)

// ParseTaxonomy returns TaxonomyTag for "tag"/"post_tag", TaxonomyCategory otherwise
func ParseTaxonomy(s string) Taxonomy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tag", "post_tag":
		return TaxonomyTag
	default:
		return TaxonomyCategory
	}
}

// Media represents an image record (gallery_media table)
type Media struct {
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Title       string      `gorm:"size:255" json:"title"`
	Caption     string      `gorm:"size:500" json:"caption"`
	Description string      `gorm:"type:text" json:"description"`
	PlainDesc   string      `gorm:"column:plain_description;type:text" json:"-"` // 태그 제거본
	SearchText  string      `gorm:"column:search_text;type:text" json:"-"`       // 소문자 검색용 (title/caption/plain_description)
	Alt         string      `gorm:"size:255" json:"alt"`
	URL         string      `gorm:"size:500" json:"url"`       // 원본 (download)
	LargeURL    string      `gorm:"size:500" json:"large_url"` // modal 표시용
	ThumbURL    string      `gorm:"size:500" json:"thumb_url"`
	StorageKey  string      `gorm:"size:500" json:"-"`
	MimeType    string      `gorm:"size:50" json:"mime_type"`
	Status      MediaStatus `gorm:"size:20;index;default:published" json:"status"`
	InstanceID  string      `gorm:"size:64" json:"instance_id,omitempty"`
	Terms       []Term      `gorm:"many2many:gallery_media_terms" json:"terms,omitempty"`
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	FileSize    int64       `json:"file_size"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
}

func (Media) TableName() string {
	return "gallery_media"
}

// searchFieldSep joins the searchable fields so a query cannot match across two of them
const searchFieldSep = "\x1f"

// PrepareText fills the derived search text; call before saving
func (m *Media) PrepareText() {
	m.PlainDesc = StripTags(m.Description)
	m.SearchText = FoldSearch(m.Title + searchFieldSep + m.Caption + searchFieldSep + m.PlainDesc)
}

// FoldSearch is the case folding shared by stored search text and queries.
// It is Unicode aware, unlike LOWER() on SQLite.
func FoldSearch(s string) string {
	return strings.ToLower(s)
}

// SourceURL image shown in the modal; falls back to the original file
func (m *Media) SourceURL() string {
	if m.LargeURL != "" {
		return m.LargeURL
	}
	return m.URL
}

// TermsOf returns the item's terms of the given taxonomy, in id order
func (m *Media) TermsOf(tax Taxonomy) []Term {
	var out []Term
	for _, t := range m.Terms {
		if t.Taxonomy == tax {
			out = append(out, t)
		}
	}
	return out
}

// Term represents a category or tag (gallery_terms table)
type Term struct {
	Taxonomy Taxonomy `gorm:"size:20;uniqueIndex:idx_gallery_terms_tax_slug" json:"taxonomy"`
	Slug     string   `gorm:"size:191;uniqueIndex:idx_gallery_terms_tax_slug" json:"slug"`
	Name     string   `gorm:"size:255" json:"name"`
	ID       int64    `gorm:"primaryKey;autoIncrement" json:"id"`
}

func (Term) TableName() string {
	return "gallery_terms"
}

// Token namespaced term token carried in rendered markup ("term-<id>")
func (t Term) Token() string {
	return TermToken(t.ID)
}
