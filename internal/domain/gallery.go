package domain

import (
	"sort"
	"strconv"
	"strings"
)

// FilterAll token of the "show everything" filter control
const FilterAll = "all"

// TermToken builds the namespaced token for a term id
func TermToken(id int64) string {
	return "term-" + strconv.FormatInt(id, 10)
}

// GalleryScope restricts which media an instance can show
type GalleryScope struct {
	IDs        []int64  `json:"ids,omitempty"`        // allow-list; empty = no restriction
	Categories []string `json:"categories,omitempty"` // category slugs
	Tags       []string `json:"tags,omitempty"`       // tag slugs
}

// Key deterministic cache key of the scope; allow-list order is significant
func (s GalleryScope) Key() string {
	ids := make([]string, len(s.IDs))
	for i, id := range s.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	cats := append([]string(nil), s.Categories...)
	tags := append([]string(nil), s.Tags...)
	sort.Strings(cats)
	sort.Strings(tags)
	return "i=" + strings.Join(ids, ",") + "|c=" + strings.Join(cats, ",") + "|t=" + strings.Join(tags, ",")
}

// GalleryInstance one rendered gallery region and its stateless scope
type GalleryInstance struct {
	ID             string
	PerPage        int
	Columns        int
	Scope          GalleryScope
	FilterTaxonomy Taxonomy
	ShowFilter     bool
	ShowSearch     bool
	Upload         UploadPolicy
}

// MediaQuery repository query built from an instance scope
type MediaQuery struct {
	Scope    GalleryScope
	Text     string  // matches title/caption/description, case-insensitive substring
	MatchIDs []int64 // optional search index result restricting the text match
	Page     int
	PerPage  int // 0 = unbounded
}

// Unbounded reports whether the whole match set is requested
func (q MediaQuery) Unbounded() bool {
	return q.PerPage <= 0
}

// MediaPage one page of query results
type MediaPage struct {
	Items    []Media `json:"items"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PerPage  int     `json:"per_page"`
	MaxPages int     `json:"max_pages"`
}

// HasMore reports whether a later page exists
func (p *MediaPage) HasMore() bool {
	return p.Page < p.MaxPages
}

// MaxPages max(1, ceil(total/perPage)); an unbounded page counts as one page
func MaxPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	n := int((total + int64(perPage) - 1) / int64(perPage))
	if n < 1 {
		return 1
	}
	return n
}
