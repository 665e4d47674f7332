package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/modal"
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Scripted transport ---

// pendingCall one request held until the test releases its response
type pendingCall struct {
	action string
	load   LoadMoreParams
	search SearchParams
	upload UploadParams
	reply  chan reply
}

type reply struct {
	load   *domain.LoadMoreResponse
	search *domain.SearchResponse
	upload *domain.UploadResponse
	err    error
}

type scriptedTransport struct {
	calls chan *pendingCall
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{calls: make(chan *pendingCall, 8)}
}

func (s *scriptedTransport) wait(ctx context.Context, c *pendingCall) (reply, error) {
	s.calls <- c
	select {
	case r := <-c.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (s *scriptedTransport) LoadMore(ctx context.Context, p LoadMoreParams) (*domain.LoadMoreResponse, error) {
	r, err := s.wait(ctx, &pendingCall{action: domain.ActionLoadMore, load: p, reply: make(chan reply, 1)})
	return r.load, err
}

func (s *scriptedTransport) Search(ctx context.Context, p SearchParams) (*domain.SearchResponse, error) {
	r, err := s.wait(ctx, &pendingCall{action: domain.ActionSearch, search: p, reply: make(chan reply, 1)})
	return r.search, err
}

func (s *scriptedTransport) Upload(ctx context.Context, p UploadParams) (*domain.UploadResponse, error) {
	r, err := s.wait(ctx, &pendingCall{action: domain.ActionUpload, upload: p, reply: make(chan reply, 1)})
	return r.upload, err
}

// next returns the next request the gallery sent
func (s *scriptedTransport) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no request sent")
		return nil
	}
}

func (s *scriptedTransport) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case c := <-s.calls:
		t.Fatalf("unexpected %s request", c.action)
	default:
	}
}

type outcome struct {
	n   int
	err error
}

func runAsync(fn func() (int, error)) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		n, err := fn()
		ch <- outcome{n: n, err: err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not complete")
		return outcome{}
	}
}

// --- Fixtures ---

type fixtureItem struct {
	id    int64
	title string
	terms []string
}

func itemsHTML(items ...fixtureItem) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, `<div class="io-gallery-item" data-io-id="%d" data-io-terms="%s">`, it.id, strings.Join(it.terms, " "))
		fmt.Fprintf(&sb, `<button class="io-gallery-trigger" type="button" data-io-title="%s" data-io-alt="alt %d"><img class="io-gallery-thumb" src="/t/%d.jpg" alt="alt %d"></button></div>`, it.title, it.id, it.id, it.id)
	}
	return sb.String()
}

func fixtureItems(items ...fixtureItem) []Item {
	out, err := ParseFragment(itemsHTML(items...))
	if err != nil {
		panic(err)
	}
	return out
}

func plain(ids ...int64) []fixtureItem {
	out := make([]fixtureItem, len(ids))
	for i, id := range ids {
		out[i] = fixtureItem{id: id, title: fmt.Sprintf("Image %d", id)}
	}
	return out
}

func testInstance() Instance {
	return Instance{
		ID:             "g1",
		Nonce:          "tok",
		AjaxURL:        "/gallery/ajax",
		Scope:          domain.GalleryScope{Categories: []string{"nature"}},
		FilterTaxonomy: domain.TaxonomyCategory,
		Filters:        []FilterOption{{Token: "all", Label: "All"}, {Token: "term-5", Label: "Nature"}},
		Items:          fixtureItems(plain(1, 2, 3)...),
		Upload:         &UploadSettings{Category: "guest", MaxSize: 1 << 20},
		PerPage:        3,
		Columns:        3,
		CurrentPage:    1,
		MaxPages:       3,
		ShowFilter:     true,
		ShowSearch:     true,
		HasLoadMore:    true,
	}
}

func newTestGallery(t *testing.T, inst Instance) (*Gallery, *scriptedTransport, *LiveRegion) {
	t.Helper()
	tr := newScriptedTransport()
	live := &LiveRegion{}
	g := New(inst, Options{Transport: tr, Announcer: live, Locale: i18n.LocaleEn, Page: modal.NewPage()})
	return g, tr, live
}

func ids(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func intPtr(v int) *int { return &v }

// --- Load more ---

func TestLoadMore_RetiresAfterLastPage(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	ctx := context.Background()

	done := runAsync(func() (int, error) { return g.LoadMore(ctx) })
	c := tr.next(t)
	assert.Equal(t, domain.ActionLoadMore, c.action)
	assert.Equal(t, 2, c.load.Page)
	assert.Equal(t, 3, c.load.PerPage)
	assert.Equal(t, "tok", c.load.Nonce)
	assert.Equal(t, "g1", c.load.Instance)
	assert.Equal(t, []string{"nature"}, c.load.Scope.Categories)
	c.reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(4, 5, 6)...), HasMore: true, NextPage: intPtr(3), MaxPages: 3, Count: 3}}
	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 3, o.n)
	assert.Equal(t, "3 images loaded.", live.Text())
	assert.True(t, g.LoadMoreVisible())

	done = runAsync(func() (int, error) { return g.LoadMore(ctx) })
	c = tr.next(t)
	assert.Equal(t, 3, c.load.Page)
	c.reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(7, 8)...), MaxPages: 3, Count: 2}}
	o = await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 2, o.n)

	current, last := g.Page()
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, last)
	assert.False(t, g.LoadMoreVisible())
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, ids(g.Items()))

	_, err := g.LoadMore(ctx)
	assert.ErrorIs(t, err, ErrNoMorePages)
	tr.assertIdle(t)
}

func TestLoadMore_SinglePageHasNoControl(t *testing.T) {
	inst := testInstance()
	inst.MaxPages = 1
	inst.HasLoadMore = false
	g, tr, _ := newTestGallery(t, inst)

	assert.False(t, g.LoadMoreVisible())
	_, err := g.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrNoMorePages)
	tr.assertIdle(t)
}

func TestLoadMore_BusyWhileInFlight(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())
	ctx := context.Background()

	done := runAsync(func() (int, error) { return g.LoadMore(ctx) })
	c := tr.next(t)

	assert.Equal(t, StateLoadingMore, g.State())
	assert.False(t, g.LoadMoreEnabled())
	_, err := g.LoadMore(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	tr.assertIdle(t)

	c.reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(4)...), HasMore: true, MaxPages: 3, Count: 1}}
	require.NoError(t, await(t, done).err)
	assert.Equal(t, StateIdle, g.State())
	assert.True(t, g.LoadMoreEnabled())
}

func TestLoadMore_ErrorKeepsControl(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.LoadMore(context.Background()) })
	tr.next(t).reply <- reply{err: fmt.Errorf("%w: connection reset", common.ErrTransientNetwork)}

	o := await(t, done)
	assert.ErrorIs(t, o.err, common.ErrTransientNetwork)
	assert.Equal(t, "Error loading images.", live.Text())
	assert.True(t, g.LoadMoreEnabled())
	current, _ := g.Page()
	assert.Equal(t, 1, current)
	assert.Len(t, g.Items(), 3)
}

func TestLoadMore_SkipsDuplicates(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.LoadMore(context.Background()) })
	tr.next(t).reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(3, 4)...), HasMore: true, MaxPages: 3, Count: 2}}

	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 1, o.n)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(g.Items()))
}

func TestLoadMore_EmptyPageRetires(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.LoadMore(context.Background()) })
	tr.next(t).reply <- reply{load: &domain.LoadMoreResponse{HTML: "", MaxPages: 1}}

	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 0, o.n)
	assert.False(t, g.LoadMoreVisible())
	assert.Equal(t, "No more images to load.", live.Text())
}

func TestLoadMore_ActiveFilterAppliesToAppendedItems(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())

	n, err := g.ToggleFilter("term-5")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	page := plain(10, 11, 12, 13, 14, 15, 16, 17, 18, 19)
	page[1].terms = []string{"term-5"}
	page[4].terms = []string{"term-5", "term-9"}
	page[8].terms = []string{"term-5"}

	done := runAsync(func() (int, error) { return g.LoadMore(context.Background()) })
	tr.next(t).reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(page...), HasMore: true, MaxPages: 3, Count: 10}}
	require.NoError(t, await(t, done).err)

	assert.Len(t, g.Items(), 13)
	assert.Equal(t, []int64{11, 14, 18}, ids(g.VisibleItems()))
	assert.False(t, g.IsVisible(10))

	n, err = g.ToggleFilter("all")
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

// --- Filter ---

func TestToggleFilter(t *testing.T) {
	inst := testInstance()
	inst.Items = fixtureItems(
		fixtureItem{id: 1, title: "One", terms: []string{"term-5"}},
		fixtureItem{id: 2, title: "Two"},
	)
	g, tr, live := newTestGallery(t, inst)

	n, err := g.ToggleFilter("term-5")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "1 image shown.", live.Text())
	assert.Equal(t, "term-5", g.Filter().Term)

	_, err = g.ToggleFilter("term-404")
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Equal(t, "term-5", g.Filter().Term)

	n, err = g.ToggleFilter("")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "all", g.Filter().Term)
	tr.assertIdle(t)
}

// --- Search ---

func TestSearch_ReplacesCollection(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.Search(context.Background(), "  sunset ") })
	c := tr.next(t)
	assert.Equal(t, domain.ActionSearch, c.action)
	assert.Equal(t, "  sunset ", c.search.Query)
	assert.Equal(t, StateSearching, g.State())

	c.reply <- reply{search: &domain.SearchResponse{
		HTML:  itemsHTML(fixtureItem{id: 7, title: "Sunset"}, fixtureItem{id: 9, title: "Red sunset"}),
		Count: 2,
	}}
	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 2, o.n)

	assert.Equal(t, []int64{7, 9}, ids(g.Items()))
	assert.Equal(t, []int64{7, 9}, ids(g.VisibleItems()))
	assert.Equal(t, "sunset", g.Filter().Query)
	assert.True(t, g.SearchMode())
	assert.False(t, g.LoadMoreVisible())
	assert.Equal(t, "2 images match your search.", live.Text())
}

func TestSearch_EmptyQueryAnnouncesAll(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.Search(context.Background(), "") })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(plain(1, 2, 3, 4, 5)...), Count: 5}}

	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 5, o.n)
	assert.Equal(t, "Showing all 5 images.", live.Text())
}

func TestSearch_NoMatches(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.Search(context.Background(), "zzz") })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: "", Count: 0}}

	o := await(t, done)
	require.NoError(t, o.err)
	assert.Empty(t, g.Items())
	assert.Equal(t, "0 images match your search.", live.Text())
}

func TestSearch_LatestQueryWins(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	ctx := context.Background()

	first := runAsync(func() (int, error) { return g.Search(ctx, "sunset") })
	sunset := tr.next(t)
	second := runAsync(func() (int, error) { return g.Search(ctx, "") })
	all := tr.next(t)

	// 두 번째 요청이 먼저 도착
	all.reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(plain(1, 2, 3, 4, 5, 6)...), Count: 6}}
	o := await(t, second)
	require.NoError(t, o.err)
	assert.Equal(t, 6, o.n)

	sunset.reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(fixtureItem{id: 7, title: "Sunset"}), Count: 1}}
	o = await(t, first)
	assert.ErrorIs(t, o.err, common.ErrStaleResponse)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(g.Items()))
	assert.Equal(t, "", g.Filter().Query)
	assert.Equal(t, "Showing all 6 images.", live.Text())
	assert.Equal(t, StateIdle, g.State())
}

func TestStartSearch_FiringOrderDecides(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())
	ctx := context.Background()

	older := g.StartSearch("sun")
	newer := g.StartSearch("sunset")

	// 나중에 발사된 요청이 먼저 실행되어도 결과는 발사 순서로 판정
	second := runAsync(func() (int, error) { return newer(ctx) })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(fixtureItem{id: 7, title: "Sunset"}), Count: 1}}
	require.NoError(t, await(t, second).err)

	first := runAsync(func() (int, error) { return older(ctx) })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(plain(1, 2)...), Count: 2}}
	assert.ErrorIs(t, await(t, first).err, common.ErrStaleResponse)

	assert.Equal(t, []int64{7}, ids(g.Items()))
	assert.Equal(t, "sunset", g.Filter().Query)
}

func TestSearch_ErrorAnnounced(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	done := runAsync(func() (int, error) { return g.Search(context.Background(), "x") })
	tr.next(t).reply <- reply{err: &RequestError{Status: http.StatusForbidden, Code: "REJECTED"}}

	o := await(t, done)
	assert.ErrorIs(t, o.err, common.ErrRejectedRequest)
	assert.Equal(t, "Error searching images.", live.Text())
	assert.Equal(t, []int64{1, 2, 3}, ids(g.Items()))
	assert.False(t, g.SearchMode())
}

func TestSearch_StaleLoadMoreDiscarded(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())
	ctx := context.Background()

	load := runAsync(func() (int, error) { return g.LoadMore(ctx) })
	loadCall := tr.next(t)

	search := runAsync(func() (int, error) { return g.Search(ctx, "lake") })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(fixtureItem{id: 20, title: "Lake"}), Count: 1}}
	require.NoError(t, await(t, search).err)

	loadCall.reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(4, 5, 6)...), HasMore: true, MaxPages: 3, Count: 3}}
	o := await(t, load)
	assert.ErrorIs(t, o.err, common.ErrStaleResponse)

	assert.Equal(t, []int64{20}, ids(g.Items()))
	assert.False(t, g.LoadMoreVisible())
}

func TestClearSearch_RestoresInitialState(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	ctx := context.Background()

	load := runAsync(func() (int, error) { return g.LoadMore(ctx) })
	tr.next(t).reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(4, 5, 6)...), HasMore: true, MaxPages: 3, Count: 3}}
	require.NoError(t, await(t, load).err)

	search := runAsync(func() (int, error) { return g.Search(ctx, "lake") })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(fixtureItem{id: 20, title: "Lake"}), Count: 1}}
	require.NoError(t, await(t, search).err)

	g.ClearSearch()

	assert.Equal(t, []int64{1, 2, 3}, ids(g.Items()))
	current, last := g.Page()
	assert.Equal(t, 1, current)
	assert.Equal(t, 3, last)
	assert.True(t, g.LoadMoreVisible())
	assert.True(t, g.LoadMoreEnabled())
	assert.False(t, g.SearchMode())
	assert.Equal(t, Filter{Term: "all"}, g.Filter())
	assert.Equal(t, "3 images shown.", live.Text())
}

func TestClearSearch_DiscardsInFlightSearch(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())

	search := runAsync(func() (int, error) { return g.Search(context.Background(), "lake") })
	c := tr.next(t)
	g.ClearSearch()
	assert.Equal(t, StateIdle, g.State())

	c.reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(fixtureItem{id: 20, title: "Lake"}), Count: 1}}
	assert.ErrorIs(t, await(t, search).err, common.ErrStaleResponse)
	assert.Equal(t, []int64{1, 2, 3}, ids(g.Items()))
}

// --- Upload ---

func uploadDraft() UploadDraft {
	return UploadDraft{Filename: "a.png", Title: "New", Alt: "new alt", File: []byte("PNGDATA")}
}

func TestUpload_PendingInsertedFirst(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	g.SetDraft(uploadDraft())

	done := runAsync(func() (int, error) {
		resp, err := g.Upload(context.Background())
		if err != nil {
			return 0, err
		}
		return int(resp.ID), nil
	})
	c := tr.next(t)
	assert.Equal(t, domain.ActionUpload, c.action)
	assert.Equal(t, "guest", c.upload.Category)
	assert.Equal(t, int64(1<<20), c.upload.MaxSize)
	assert.Equal(t, "New", c.upload.Title)
	assert.False(t, g.SubmitEnabled())
	assert.True(t, g.Uploading())

	c.reply <- reply{upload: &domain.UploadResponse{ID: 99, Title: "New", Alt: "new alt", Thumb: `<img src="/t/99.jpg">`, Pending: true}}
	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 99, o.n)

	items := g.Items()
	require.Len(t, items, 4)
	assert.Equal(t, int64(99), items[0].ID)
	assert.True(t, g.IsVisible(99))
	assert.Equal(t, "Thanks! Your image was uploaded and is awaiting review.", live.Text())
	assert.Equal(t, UploadDraft{}, g.Draft())
	assert.True(t, g.SubmitEnabled())
}

func TestUpload_AcceptedHiddenByActiveFilter(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	_, err := g.ToggleFilter("term-5")
	require.NoError(t, err)
	g.SetDraft(uploadDraft())

	done := runAsync(func() (int, error) { _, err := g.Upload(context.Background()); return 0, err })
	tr.next(t).reply <- reply{upload: &domain.UploadResponse{ID: 50, Terms: []string{"term-8"}}}
	require.NoError(t, await(t, done).err)

	assert.Equal(t, int64(50), g.Items()[0].ID)
	assert.False(t, g.IsVisible(50))
	assert.Equal(t, "Your image was uploaded.", live.Text())
}

func TestUpload_NoFile(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())

	_, err := g.Upload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidationFailed)
	assert.Equal(t, "Please choose an image to upload.", live.Text())
	tr.assertIdle(t)
}

func TestUpload_TooLargeForForm(t *testing.T) {
	inst := testInstance()
	inst.Upload.MaxSize = 4
	g, tr, live := newTestGallery(t, inst)
	g.SetDraft(uploadDraft())

	_, err := g.Upload(context.Background())
	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, http.StatusRequestEntityTooLarge, ve.Status)
	assert.Equal(t, "The file is too large (max 1 MB).", live.Text())
	tr.assertIdle(t)
	assert.Equal(t, uploadDraft(), g.Draft())
}

func TestUpload_ServerMessageAnnounced(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	g.SetDraft(uploadDraft())

	done := runAsync(func() (int, error) { _, err := g.Upload(context.Background()); return 0, err })
	tr.next(t).reply <- reply{err: &RequestError{Status: http.StatusUnsupportedMediaType, Code: "UNSUPPORTED_TYPE", Message: "This file type is not allowed."}}

	o := await(t, done)
	assert.ErrorIs(t, o.err, common.ErrValidationFailed)
	assert.Equal(t, "This file type is not allowed.", live.Text())
	assert.Equal(t, uploadDraft(), g.Draft())
	assert.True(t, g.SubmitEnabled())
}

func TestUpload_GenericFailure(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	g.SetDraft(uploadDraft())

	done := runAsync(func() (int, error) { _, err := g.Upload(context.Background()); return 0, err })
	tr.next(t).reply <- reply{err: common.ErrTransientNetwork}

	assert.ErrorIs(t, await(t, done).err, common.ErrTransientNetwork)
	assert.Equal(t, "Upload failed. Please try again.", live.Text())
}

func TestUpload_BusyWhileInFlight(t *testing.T) {
	g, tr, _ := newTestGallery(t, testInstance())
	g.SetDraft(uploadDraft())

	done := runAsync(func() (int, error) { _, err := g.Upload(context.Background()); return 0, err })
	c := tr.next(t)

	_, err := g.Upload(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	// 업로드 중에도 더 보기는 독립적으로 동작
	load := runAsync(func() (int, error) { return g.LoadMore(context.Background()) })
	tr.next(t).reply <- reply{load: &domain.LoadMoreResponse{HTML: itemsHTML(plain(4)...), HasMore: true, MaxPages: 3, Count: 1}}
	require.NoError(t, await(t, load).err)

	c.reply <- reply{upload: &domain.UploadResponse{ID: 30}}
	require.NoError(t, await(t, done).err)
	assert.Equal(t, []int64{30, 1, 2, 3, 4}, ids(g.Items()))
}

func TestUpload_CompletedAfterSearchNotInserted(t *testing.T) {
	g, tr, live := newTestGallery(t, testInstance())
	g.SetDraft(uploadDraft())
	ctx := context.Background()

	done := runAsync(func() (int, error) { _, err := g.Upload(ctx); return 0, err })
	upload := tr.next(t)

	search := runAsync(func() (int, error) { return g.Search(ctx, "lake") })
	tr.next(t).reply <- reply{search: &domain.SearchResponse{HTML: itemsHTML(fixtureItem{id: 20, title: "Lake"}), Count: 1}}
	require.NoError(t, await(t, search).err)

	upload.reply <- reply{upload: &domain.UploadResponse{ID: 31, Pending: true}}
	require.NoError(t, await(t, done).err)

	assert.Equal(t, []int64{20}, ids(g.Items()))
	assert.Equal(t, "Thanks! Your image was uploaded and is awaiting review.", live.Text())
	assert.Equal(t, UploadDraft{}, g.Draft())
}

func TestUpload_Unavailable(t *testing.T) {
	inst := testInstance()
	inst.Upload = nil
	g, _, _ := newTestGallery(t, inst)

	_, err := g.Upload(context.Background())
	assert.ErrorIs(t, err, ErrUploadUnavailable)
	assert.False(t, g.SubmitEnabled())
}

// --- Dialog ---

func TestOpen_FocusRestoredToTrigger(t *testing.T) {
	g, _, live := newTestGallery(t, testInstance())
	page := modalPage(g)

	trigger := g.TriggerID(2)
	assert.Equal(t, "io-gallery-g1:item-2", trigger)
	require.NoError(t, g.Open(2, trigger))

	s, ok := g.Modal().Session()
	require.True(t, ok)
	assert.Equal(t, "Image 2", s.Item.Title)
	assert.Equal(t, "alt 2", s.Item.Alt)
	assert.Equal(t, g.Modal().ControlID(modal.ControlDialog), page.Focused())

	assert.True(t, g.Modal().Close())
	assert.Equal(t, trigger, page.Focused())

	assert.ErrorIs(t, g.Open(404, trigger), ErrItemNotFound)
	assert.Empty(t, live.History())
}

func TestOpen_WithoutPage(t *testing.T) {
	g := New(testInstance(), Options{Transport: newScriptedTransport(), Locale: i18n.LocaleEn})
	assert.Nil(t, g.Modal())
	assert.ErrorIs(t, g.Open(1, "x"), modal.ErrClosed)
}

// modalPage returns the page owning the gallery's dialog
func modalPage(g *Gallery) *modal.Page {
	return g.Modal().Page()
}
