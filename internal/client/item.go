package client

import (
	"strings"

	"github.com/damoang/image-organizer/internal/domain"
)

// Item typed metadata of one rendered gallery item.
// Thumb is server-sanitized markup and is reused verbatim.
type Item struct {
	Title       string
	Caption     string
	Description string
	Alt         string
	Src         string
	Download    string
	Thumb       string
	Terms       []string // namespaced term tokens, e.g. "term-5"
	ID          int64
}

// HasTerm reports whether the item carries the term token
func (it Item) HasTerm(token string) bool {
	for _, t := range it.Terms {
		if t == token {
			return true
		}
	}
	return false
}

// ItemFromUpload builds an item from the authoritative upload response fields
func ItemFromUpload(resp *domain.UploadResponse) Item {
	return Item{
		ID:          resp.ID,
		Title:       resp.Title,
		Caption:     resp.Caption,
		Description: resp.Description,
		Alt:         resp.Alt,
		Src:         resp.Src,
		Download:    resp.Download,
		Thumb:       resp.Thumb,
		Terms:       append([]string(nil), resp.Terms...),
	}
}

// matchesText case-insensitive substring match over title, caption and description
func (it Item) matchesText(query string) bool {
	q := domain.FoldSearch(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{it.Title, it.Caption, it.Description} {
		if strings.Contains(domain.FoldSearch(field), q) {
			return true
		}
	}
	return false
}
