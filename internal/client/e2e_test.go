package client_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damoang/image-organizer/internal/client"
	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/handler"
	"github.com/damoang/image-organizer/internal/middleware"
	"github.com/damoang/image-organizer/internal/migration"
	"github.com/damoang/image-organizer/internal/render"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/internal/routes"
	"github.com/damoang/image-organizer/internal/service"
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/damoang/image-organizer/pkg/nonce"
	"github.com/damoang/image-organizer/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// GalleryE2ESuite drives client galleries against the real router
type GalleryE2ESuite struct {
	suite.Suite
	server *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func TestGalleryE2ESuite(t *testing.T) {
	suite.Run(t, new(GalleryE2ESuite))
}

func (s *GalleryE2ESuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(migration.Run(db))
	s.Require().NoError(migration.SeedDemo(db))

	cfg := config.Default()
	cfg.Gallery.ThumbnailWidth = 20
	cfg.Gallery.LargeWidth = 40
	cfg.Gallery.Instances = []config.InstanceConfig{
		{ID: "demo", Limit: 3, ShowFilter: true, FilterTaxonomy: "category"},
		{ID: "guestbook", Limit: 3, Upload: config.InstanceUploadConfig{Enabled: true, Category: "guest", MaxSizeMB: 1}},
	}

	bundle := i18n.NewDefaultBundle()
	builder, err := render.NewBuilder(bundle)
	s.Require().NoError(err)
	store, err := storage.NewLocalStorage(s.T().TempDir(), "/uploads")
	s.Require().NoError(err)
	nonces := nonce.NewManager("e2e-secret", time.Hour)

	mediaRepo := repository.NewMediaRepository(db)
	gallerySvc := service.NewGalleryService(mediaRepo, builder, nil, nil, nonces, cfg.Gallery, "/gallery/ajax")
	uploadSvc := service.NewUploadService(mediaRepo, repository.NewTermRepository(db),
		repository.NewUploadKeyStore(nil), store, builder, nil, nil, cfg.Gallery)

	router := gin.New()
	routes.Setup(router,
		handler.NewGalleryHandler(gallerySvc, uploadSvc, builder, bundle, cfg.Gallery),
		handler.NewAdminHandler(uploadSvc),
		nonces, middleware.NewRateLimiter(nil, middleware.DefaultUploadRateLimitConfig()), bundle, cfg)

	s.server = httptest.NewServer(router)
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
}

func (s *GalleryE2ESuite) TearDownTest() {
	s.cancel()
	s.server.Close()
}

func (s *GalleryE2ESuite) open(instance string) (*client.Gallery, *client.LiveRegion) {
	insts, err := client.FetchPage(s.ctx, s.server.Client(), s.server.URL+"/gallery?instance="+instance, i18n.LocaleEn)
	s.Require().NoError(err)
	s.Require().Len(insts, 1)

	inst := insts[0]
	live := &client.LiveRegion{}
	g := client.New(inst, client.Options{
		Transport: client.NewHTTPTransport(inst.AjaxURL, s.server.Client(), i18n.LocaleEn),
		Announcer: live,
		Locale:    i18n.LocaleEn,
	})
	return g, live
}

func (s *GalleryE2ESuite) TestLoadMoreUntilExhausted() {
	g, live := s.open("demo")
	s.Len(g.Items(), 3)
	s.True(g.LoadMoreVisible())

	n, err := g.LoadMore(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Equal("3 images loaded.", live.Text())

	n, err = g.LoadMore(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	current, last := g.Page()
	s.Equal(3, current)
	s.Equal(3, last)
	s.False(g.LoadMoreVisible())

	seen := map[int64]bool{}
	for _, it := range g.Items() {
		s.False(seen[it.ID], "duplicate item %d", it.ID)
		seen[it.ID] = true
	}
	s.Len(seen, 8)
}

func (s *GalleryE2ESuite) TestFilterAppliesToLoadedPages() {
	g, _ := s.open("demo")

	var nature string
	for _, f := range g.Filters() {
		if f.Label == "Nature" {
			nature = f.Token
		}
	}
	s.Require().NotEmpty(nature)

	_, err := g.ToggleFilter(nature)
	s.Require().NoError(err)
	for g.LoadMoreVisible() {
		_, err := g.LoadMore(s.ctx)
		s.Require().NoError(err)
	}
	s.Len(g.VisibleItems(), 4)
	for _, it := range g.VisibleItems() {
		s.Contains(it.Terms, nature)
	}
}

func (s *GalleryE2ESuite) TestSearchAndClear() {
	g, live := s.open("demo")

	n, err := g.Search(s.ctx, "harbor")
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal("Harbor at dusk", g.Items()[0].Title)
	s.Equal("1 image matches your search.", live.Text())
	s.False(g.LoadMoreVisible())

	n, err = g.Search(s.ctx, "")
	s.Require().NoError(err)
	s.Equal(8, n)
	s.Equal("Showing all 8 images.", live.Text())

	g.ClearSearch()
	s.Len(g.Items(), 3)
	s.True(g.LoadMoreVisible())
}

func (s *GalleryE2ESuite) TestUploadInsertsPendingItemFirst() {
	g, live := s.open("guestbook")
	s.Require().NotNil(g.Instance().Upload)
	before := len(g.Items())

	g.SetDraft(client.UploadDraft{Filename: "harbor.png", Title: "Guest harbor", Alt: "Boats", File: testPNG(s.T())})
	resp, err := g.Upload(s.ctx)
	s.Require().NoError(err)
	s.True(resp.Pending)

	items := g.Items()
	s.Len(items, before+1)
	s.Equal(resp.ID, items[0].ID)
	s.Equal("Guest harbor", items[0].Title)
	s.Equal("Thanks! Your image was uploaded and is awaiting review.", live.Text())
	s.Empty(g.Draft().File)
}

func (s *GalleryE2ESuite) TestUploadTooLargeForInstance() {
	g, live := s.open("guestbook")

	g.SetDraft(client.UploadDraft{Filename: "big.png", File: make([]byte, 2<<20)})
	_, err := g.Upload(s.ctx)
	s.Error(err)
	s.Equal("The file is too large (max 1 MB).", live.Text())
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: 120, B: uint8(y * 7), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
