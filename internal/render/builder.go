package render

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/pkg/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options per-instance settings that change item markup
type Options struct {
	FilterTaxonomy domain.Taxonomy
	Locale         i18n.Locale
	ShowFilter     bool
}

// ItemView attributes of one rendered gallery item; plain text, escaped on output
type ItemView struct {
	Title       string
	Caption     string
	Description string
	Alt         string
	Src         string
	Download    string
	Terms       string // space-delimited "term-<id>" tokens of the filter taxonomy
	Thumb       template.HTML
	ID          int64
	ShowTerms   bool
}

type thumbView struct {
	Src    string
	Alt    string
	Width  int
	Height int
}

// GalleryView input of a full instance render
type GalleryView struct {
	Instance domain.GalleryInstance
	Nonce    string
	AjaxURL  string
	Accept   []string
	Items    []domain.Media
	Filters  []domain.Term
	MaxPages int
	Locale   i18n.Locale
}

// galleryData template data of the "gallery" block
type galleryData struct {
	ID                string
	Nonce             string
	AjaxURL           string
	Categories        string
	Tags              string
	IDs               string
	FilterTaxonomy    string
	ShowFilter        string
	Accept            string
	UploadCategory    string
	Locale            i18n.Locale
	ItemsHTML         template.HTML
	Filters           []domain.Term
	PerPage           int
	Columns           int
	MaxPages          int
	UploadMaxSize     int64
	HasItems          bool
	HasMore           bool
	ShowSearch        bool
	UploadEnabled     bool
	UploadKeyRequired bool
	UploadReview      bool
}

// Builder renders gallery fragments with html/template
type Builder struct {
	tmpl   *template.Template
	bundle *i18n.Bundle
}

// NewBuilder parses the embedded templates
func NewBuilder(bundle *i18n.Bundle) (*Builder, error) {
	if bundle == nil {
		bundle = i18n.NewDefaultBundle()
	}
	funcs := template.FuncMap{
		"t": func(locale i18n.Locale, key string) string {
			return bundle.T(locale, key)
		},
	}
	tmpl, err := template.New("io").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Builder{tmpl: tmpl, bundle: bundle}, nil
}

// Thumb renders the opaque thumbnail markup of a media record
func (b *Builder) Thumb(m *domain.Media) (template.HTML, error) {
	src := common.SanitizeURL(m.ThumbURL)
	if src == "" {
		src = common.SanitizeURL(m.SourceURL())
	}
	var buf bytes.Buffer
	err := b.tmpl.ExecuteTemplate(&buf, "thumb", thumbView{
		Src:    src,
		Alt:    m.Alt,
		Width:  m.Width,
		Height: m.Height,
	})
	if err != nil {
		return "", err
	}
	// html/template output is already escaped
	return template.HTML(buf.String()), nil //nolint:gosec
}

// Item builds the view of one media record
func (b *Builder) Item(m *domain.Media, opts Options) (ItemView, error) {
	thumb, err := b.Thumb(m)
	if err != nil {
		return ItemView{}, err
	}
	v := ItemView{
		ID:          m.ID,
		Title:       m.Title,
		Caption:     m.Caption,
		Description: domain.StripTags(m.Description),
		Alt:         m.Alt,
		Src:         common.SanitizeURL(m.SourceURL()),
		Download:    common.SanitizeURL(m.URL),
		Thumb:       thumb,
		ShowTerms:   opts.ShowFilter,
	}
	if opts.ShowFilter {
		v.Terms = strings.Join(TermTokens(m.TermsOf(opts.FilterTaxonomy)), " ")
	}
	return v, nil
}

// Fragment renders the item markup of a result page; no items yields ""
func (b *Builder) Fragment(items []domain.Media, opts Options) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	views := make([]ItemView, 0, len(items))
	for i := range items {
		v, err := b.Item(&items[i], opts)
		if err != nil {
			return "", err
		}
		views = append(views, v)
	}
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, "items", views); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Gallery renders a complete instance: scope attributes, filter bar, grid,
// load-more, search box, live region, upload form and the instance's modal.
// An instance with no items and no upload form renders only the empty notice.
func (b *Builder) Gallery(v GalleryView) (string, error) {
	inst := v.Instance
	opts := Options{FilterTaxonomy: inst.FilterTaxonomy, Locale: v.Locale, ShowFilter: inst.ShowFilter}

	var buf bytes.Buffer
	if len(v.Items) == 0 && !inst.Upload.Enabled {
		if err := b.tmpl.ExecuteTemplate(&buf, "empty", struct{ Locale i18n.Locale }{v.Locale}); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	items, err := b.Fragment(v.Items, opts)
	if err != nil {
		return "", err
	}
	maxPages := v.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	data := galleryData{
		ID:                inst.ID,
		Nonce:             v.Nonce,
		AjaxURL:           v.AjaxURL,
		Categories:        strings.Join(inst.Scope.Categories, ","),
		Tags:              strings.Join(inst.Scope.Tags, ","),
		IDs:               JoinIDs(inst.Scope.IDs),
		FilterTaxonomy:    string(inst.FilterTaxonomy),
		ShowFilter:        strconv.FormatBool(inst.ShowFilter),
		Accept:            strings.Join(v.Accept, ","),
		Locale:            v.Locale,
		ItemsHTML:         template.HTML(items), //nolint:gosec
		PerPage:           inst.PerPage,
		Columns:           inst.Columns,
		MaxPages:          maxPages,
		HasItems:          len(v.Items) > 0,
		HasMore:           maxPages > 1,
		ShowSearch:        inst.ShowSearch,
		UploadEnabled:     inst.Upload.Enabled,
		UploadKeyRequired: inst.Upload.KeyRequired,
		UploadReview:      inst.Upload.ReviewRequired,
		UploadCategory:    inst.Upload.Category,
		UploadMaxSize:     inst.Upload.MaxSize,
	}
	if inst.ShowFilter {
		data.Filters = v.Filters
	}
	if err := b.tmpl.ExecuteTemplate(&buf, "gallery", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page wraps rendered galleries in a minimal HTML document
func (b *Builder) Page(title string, locale i18n.Locale, body string) (string, error) {
	var buf bytes.Buffer
	err := b.tmpl.ExecuteTemplate(&buf, "page", struct {
		Title  string
		Locale i18n.Locale
		Body   template.HTML
	}{title, locale, template.HTML(body)}) //nolint:gosec
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TermTokens namespaced tokens of the terms, in order
func TermTokens(terms []domain.Term) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.Token())
	}
	return out
}

// JoinIDs comma-joined id list
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
