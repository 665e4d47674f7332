package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/modal"
	"github.com/damoang/image-organizer/pkg/i18n"
)

var (
	// ErrNoMorePages the load-more control is retired
	ErrNoMorePages = errors.New("no more pages")
	// ErrBusy the triggering control is disabled while its own request is in flight
	ErrBusy = errors.New("request already in flight")
	// ErrUploadUnavailable the instance has no upload form
	ErrUploadUnavailable = errors.New("gallery has no upload form")
	// ErrUnknownFilter the term is not one of the instance's filter controls
	ErrUnknownFilter = errors.New("unknown filter term")
	// ErrItemNotFound no item with that id is in the collection
	ErrItemNotFound = errors.New("item not in gallery")
)

// State request state of a gallery; uploads run in parallel and are reported by Uploading
type State string

const (
	StateIdle        State = "idle"
	StateLoadingMore State = "loading-more"
	StateSearching   State = "searching"
)

// Options gallery collaborators
type Options struct {
	Transport Transport
	Announcer Announcer    // defaults to a LiveRegion
	Bundle    *i18n.Bundle // defaults to the built-in messages
	Locale    i18n.Locale
	Page      *modal.Page // when set, the gallery owns a dialog on this page
	Clipboard modal.Clipboard
	Fallback  modal.SyncClipboard
}

// UploadDraft current upload form contents
type UploadDraft struct {
	Filename    string
	Title       string
	Alt         string
	Caption     string
	Description string
	UploadKey   string
	Honeypot    string
	File        []byte
}

type entry struct {
	item    Item
	visible bool
}

// snapshot first-page state captured at initial render
type snapshot struct {
	items       []Item
	currentPage int
	maxPages    int
	loadMore    bool
}

// Gallery client state of one gallery instance.
// The item collection is the source of truth; views are projections of it.
// Async completions are applied only if no search replace or clear happened
// since the request was fired (generation); searches are additionally ordered
// by their own epoch.
type Gallery struct {
	mu          sync.Mutex
	inst        Instance
	transport   Transport
	status      Announcer
	msg         messages
	modal       *modal.Modal
	entries     []entry
	ids         map[int64]bool
	filter      Filter
	draft       UploadDraft
	initial     snapshot
	currentPage int
	maxPages    int
	epoch       uint64
	generation  uint64
	loadMore    bool // load-more control present
	loadingMore bool // load-more control disabled
	searching   bool
	uploading   bool // submit control disabled
	searchMode  bool
}

// New builds the client state of a rendered instance
func New(inst Instance, opts Options) *Gallery {
	if opts.Bundle == nil {
		opts.Bundle = i18n.NewDefaultBundle()
	}
	if opts.Locale == "" {
		opts.Locale = i18n.DefaultLocale()
	}
	if opts.Announcer == nil {
		opts.Announcer = &LiveRegion{}
	}

	g := &Gallery{
		inst:      inst,
		transport: opts.Transport,
		status:    opts.Announcer,
		msg:       messages{bundle: opts.Bundle, locale: opts.Locale},
		filter:    Filter{Term: domain.FilterAll},
	}
	g.initial = snapshot{
		items:       append([]Item(nil), inst.Items...),
		currentPage: inst.CurrentPage,
		maxPages:    inst.MaxPages,
		loadMore:    inst.HasLoadMore && inst.CurrentPage < inst.MaxPages,
	}
	g.inst.Items = nil
	g.restore()

	if opts.Page != nil {
		g.modal = opts.Page.NewModal(inst.ID, modal.Config{
			Announcer: opts.Announcer,
			Translate: func(key string) string { return g.msg.t(key) },
			Clipboard: opts.Clipboard,
			Fallback:  opts.Fallback,
		})
	}
	return g
}

// restore resets the collection to the initial snapshot
func (g *Gallery) restore() {
	g.entries = nil
	g.ids = make(map[int64]bool)
	g.filter = Filter{Term: domain.FilterAll}
	g.currentPage = g.initial.currentPage
	g.maxPages = g.initial.maxPages
	g.loadMore = g.initial.loadMore
	g.loadingMore = false
	g.searching = false
	g.searchMode = false
	g.appendItems(g.initial.items)
}

// appendItems adds items not yet present and computes visibility for them only
func (g *Gallery) appendItems(items []Item) int {
	added := 0
	for _, it := range items {
		if g.ids[it.ID] {
			continue
		}
		g.ids[it.ID] = true
		g.entries = append(g.entries, entry{item: it, visible: Visible(it, g.filter)})
		added++
	}
	return added
}

// recomputeAll re-derives visibility of every item from the filter
func (g *Gallery) recomputeAll() int {
	n := 0
	for i := range g.entries {
		g.entries[i].visible = Visible(g.entries[i].item, g.filter)
		if g.entries[i].visible {
			n++
		}
	}
	return n
}

func (g *Gallery) retireLoadMore() {
	g.loadMore = false
	g.loadingMore = false
}

func (g *Gallery) scopeParams() ScopeParams {
	return ScopeParams{
		Scope:          g.inst.Scope,
		FilterTaxonomy: g.inst.FilterTaxonomy,
		ShowFilter:     g.inst.ShowFilter,
	}
}

// LoadMore appends the next page. It returns the number of items added.
func (g *Gallery) LoadMore(ctx context.Context) (int, error) {
	g.mu.Lock()
	if !g.loadMore {
		g.mu.Unlock()
		return 0, ErrNoMorePages
	}
	if g.loadingMore {
		g.mu.Unlock()
		return 0, ErrBusy
	}
	if g.currentPage >= g.maxPages {
		g.retireLoadMore()
		g.status.Announce(g.msg.t("status.no_more"))
		g.mu.Unlock()
		return 0, ErrNoMorePages
	}
	g.loadingMore = true
	gen := g.generation
	page := g.currentPage + 1
	params := LoadMoreParams{
		Nonce:       g.inst.Nonce,
		Instance:    g.inst.ID,
		ScopeParams: g.scopeParams(),
		Page:        page,
		PerPage:     g.inst.PerPage,
		Columns:     g.inst.Columns,
	}
	g.mu.Unlock()

	resp, err := g.transport.LoadMore(ctx, params)
	var items []Item
	if err == nil {
		if items, err = ParseFragment(resp.HTML); err != nil {
			err = fmt.Errorf("%w: %v", common.ErrTransientNetwork, err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation {
		return 0, common.ErrStaleResponse
	}
	g.loadingMore = false
	if err != nil {
		g.status.Announce(g.msg.t("status.load_error"))
		return 0, err
	}

	added := g.appendItems(items)
	g.currentPage = page
	if resp.MaxPages > g.maxPages {
		g.maxPages = resp.MaxPages
	}
	if resp.HasMore && g.maxPages <= page {
		g.maxPages = page + 1
	}
	if !resp.HasMore {
		g.maxPages = page
	}
	if g.currentPage >= g.maxPages {
		g.retireLoadMore()
	}

	if added == 0 && !g.loadMore {
		g.status.Announce(g.msg.t("status.no_more"))
	} else {
		g.status.Announce(g.msg.n("status.loaded", added))
	}
	return added, nil
}

// Search replaces the collection with the full match set of query.
// Only the most recently fired search is applied; older responses return ErrStaleResponse.
func (g *Gallery) Search(ctx context.Context, query string) (int, error) {
	return g.StartSearch(query)(ctx)
}

// StartSearch fires a search now and returns the request to run, possibly on
// another goroutine. Firing order, not completion order, decides which
// response is applied.
func (g *Gallery) StartSearch(query string) func(ctx context.Context) (int, error) {
	g.mu.Lock()
	g.epoch++
	ep := g.epoch
	g.searching = true
	params := SearchParams{
		Nonce:       g.inst.Nonce,
		Instance:    g.inst.ID,
		Query:       query,
		ScopeParams: g.scopeParams(),
	}
	g.mu.Unlock()

	return func(ctx context.Context) (int, error) {
		return g.finishSearch(ctx, ep, params)
	}
}

func (g *Gallery) finishSearch(ctx context.Context, ep uint64, params SearchParams) (int, error) {
	query := params.Query
	resp, err := g.transport.Search(ctx, params)
	var items []Item
	if err == nil {
		if items, err = ParseFragment(resp.HTML); err != nil {
			err = fmt.Errorf("%w: %v", common.ErrTransientNetwork, err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if ep != g.epoch {
		return 0, common.ErrStaleResponse
	}
	g.searching = false
	if err != nil {
		g.status.Announce(g.msg.t("status.search_error"))
		return 0, err
	}

	g.generation++
	g.searchMode = true
	g.retireLoadMore()
	g.entries = nil
	g.ids = make(map[int64]bool)
	g.filter.Query = strings.TrimSpace(query)
	g.appendItems(items)
	g.recomputeAll()

	n := len(g.entries)
	if g.filter.Query == "" {
		g.status.Announce(g.msg.n("status.search_all", n))
	} else {
		g.status.Announce(g.msg.n("status.search_match", n))
	}
	return n, nil
}

// ClearSearch restores the initially rendered state: first page, pagination and filter.
// Requests still in flight are discarded when they complete.
func (g *Gallery) ClearSearch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epoch++
	g.generation++
	g.restore()
	g.status.Announce(g.msg.n("status.filter", g.recomputeAll()))
}

// ToggleFilter activates exactly one term (or "all") and recomputes every item's visibility
func (g *Gallery) ToggleFilter(term string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if term == "" {
		term = domain.FilterAll
	}
	if term != domain.FilterAll && !g.hasFilter(term) {
		return 0, ErrUnknownFilter
	}
	g.filter.Term = term
	n := g.recomputeAll()
	g.status.Announce(g.msg.n("status.filter", n))
	return n, nil
}

func (g *Gallery) hasFilter(term string) bool {
	for _, f := range g.inst.Filters {
		if f.Token == term {
			return true
		}
	}
	return false
}

// Upload submits the current draft. On success the item is inserted first and the draft reset.
func (g *Gallery) Upload(ctx context.Context) (*domain.UploadResponse, error) {
	g.mu.Lock()
	up := g.inst.Upload
	if up == nil {
		g.mu.Unlock()
		return nil, ErrUploadUnavailable
	}
	if g.uploading {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	d := g.draft
	if len(d.File) == 0 {
		g.status.Announce(g.msg.t("upload.no_file"))
		g.mu.Unlock()
		return nil, common.NewValidationError("file", "upload.no_file")
	}
	if up.MaxSize > 0 && int64(len(d.File)) > up.MaxSize {
		mb := (up.MaxSize + (1 << 20) - 1) >> 20
		g.status.Announce(g.msg.t("upload.too_large", mb))
		g.mu.Unlock()
		return nil, common.NewValidationError("file", "upload.too_large", mb).WithStatus(http.StatusRequestEntityTooLarge)
	}
	g.uploading = true
	gen := g.generation
	params := UploadParams{
		Nonce:       g.inst.Nonce,
		Instance:    g.inst.ID,
		Filename:    d.Filename,
		Title:       d.Title,
		Alt:         d.Alt,
		Caption:     d.Caption,
		Description: d.Description,
		UploadKey:   d.UploadKey,
		Category:    up.Category,
		Honeypot:    d.Honeypot,
		File:        d.File,
		MaxSize:     up.MaxSize,
		Review:      up.Review,
	}
	g.mu.Unlock()

	resp, err := g.transport.Upload(ctx, params)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.uploading = false
	if err != nil {
		msg := g.msg.t("upload.error")
		var re *RequestError
		if errors.As(err, &re) && re.Message != "" {
			msg = re.Message
		}
		g.status.Announce(msg)
		return nil, err
	}

	g.draft = UploadDraft{}
	if gen == g.generation && !g.ids[resp.ID] {
		it := ItemFromUpload(resp)
		g.ids[it.ID] = true
		g.entries = append([]entry{{item: it, visible: Visible(it, g.filter)}}, g.entries...)
	}
	if resp.Pending {
		g.status.Announce(g.msg.t("upload.pending"))
	} else {
		g.status.Announce(g.msg.t("upload.accepted"))
	}
	return resp, nil
}

// SetDraft replaces the upload form contents
func (g *Gallery) SetDraft(d UploadDraft) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.draft = d
}

// Draft returns the upload form contents
func (g *Gallery) Draft() UploadDraft {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draft
}

// Open shows item id in the instance's dialog; opener receives focus back on close
func (g *Gallery) Open(id int64, opener string) error {
	if g.modal == nil {
		return modal.ErrClosed
	}
	it, ok := g.Item(id)
	if !ok {
		return ErrItemNotFound
	}
	g.modal.Open(opener, modal.Metadata{
		Title:       it.Title,
		Caption:     it.Caption,
		Description: it.Description,
		Alt:         it.Alt,
		Src:         it.Src,
		Download:    it.Download,
	})
	return nil
}

// Modal the instance's dialog, nil without a page
func (g *Gallery) Modal() *modal.Modal {
	return g.modal
}

// TriggerID page-unique id of an item's trigger control
func (g *Gallery) TriggerID(id int64) string {
	return "io-gallery-" + g.inst.ID + ":item-" + strconv.FormatInt(id, 10)
}

// ID instance id
func (g *Gallery) ID() string {
	return g.inst.ID
}

// Instance instance settings (without items)
func (g *Gallery) Instance() Instance {
	return g.inst
}

// Items the whole collection in display order
func (g *Gallery) Items() []Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Item, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.item
	}
	return out
}

// VisibleItems the visible subset in display order
func (g *Gallery) VisibleItems() []Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Item
	for _, e := range g.entries {
		if e.visible {
			out = append(out, e.item)
		}
	}
	return out
}

// IsVisible reports an item's current visibility
func (g *Gallery) IsVisible(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entries {
		if e.item.ID == id {
			return e.visible
		}
	}
	return false
}

// Item returns one item of the collection
func (g *Gallery) Item(id int64) (Item, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entries {
		if e.item.ID == id {
			return e.item, true
		}
	}
	return Item{}, false
}

// Filter active filter state
func (g *Gallery) Filter() Filter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter
}

// Filters filter bar controls
func (g *Gallery) Filters() []FilterOption {
	return g.inst.Filters
}

// Page returns (current_page, max_pages)
func (g *Gallery) Page() (current, last int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentPage, g.maxPages
}

// LoadMoreVisible reports whether the load-more control is present
func (g *Gallery) LoadMoreVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadMore
}

// LoadMoreEnabled reports whether the load-more control accepts activation
func (g *Gallery) LoadMoreEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadMore && !g.loadingMore
}

// SubmitEnabled reports whether the upload submit control accepts activation
func (g *Gallery) SubmitEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inst.Upload != nil && !g.uploading
}

// State request state of the gallery
func (g *Gallery) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.searching:
		return StateSearching
	case g.loadingMore:
		return StateLoadingMore
	}
	return StateIdle
}

// Uploading reports whether an upload is in flight
func (g *Gallery) Uploading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uploading
}

// SearchMode reports whether the collection is a search result
func (g *Gallery) SearchMode() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.searchMode
}
