package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/render"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/pkg/elasticsearch"
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/damoang/image-organizer/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Term{}, &domain.Media{}))
	return db
}

type uploadFixture struct {
	svc   UploadService
	media repository.MediaRepository
	keys  repository.UploadKeyStore
	store *storage.LocalStorage
	cfg   config.GalleryConfig
}

func setupUploadService(t *testing.T, index MediaIndex) *uploadFixture {
	t.Helper()
	db := setupTestDB(t)
	store, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	builder, err := render.NewBuilder(i18n.NewDefaultBundle())
	require.NoError(t, err)

	cfg := config.Default().Gallery
	cfg.MaxUploadSize = 64 * 1024
	cfg.ThumbnailWidth = 40
	cfg.LargeWidth = 80

	f := &uploadFixture{
		media: repository.NewMediaRepository(db),
		keys:  repository.NewUploadKeyStore(nil),
		store: store,
		cfg:   cfg,
	}
	f.svc = NewUploadService(f.media, repository.NewTermRepository(db), f.keys, store, builder, nil, index, cfg)
	return f
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func openPolicy() domain.UploadPolicy {
	return domain.UploadPolicy{Enabled: true}
}

func TestUpload_PublishedWithVariants(t *testing.T) {
	f := setupUploadService(t, nil)
	ctx := context.Background()

	resp, err := f.svc.Upload(ctx, openPolicy(),
		domain.UploadForm{Instance: "g1", Title: "Red dune", Alt: "sand", Description: "<b>hot</b> day"},
		domain.UploadFile{Filename: "dune photo.png", Data: pngBytes(t, 120, 60)},
	)
	require.NoError(t, err)

	assert.False(t, resp.Pending)
	assert.Equal(t, "Red dune", resp.Title)
	assert.Equal(t, "hot day", resp.Description)
	assert.True(t, strings.HasPrefix(resp.Download, "/uploads/gallery/original/"))
	assert.True(t, strings.HasPrefix(resp.Src, "/uploads/gallery/large/"), "wide images get a large variant")
	assert.Contains(t, resp.Thumb, "/uploads/gallery/thumb/")
	assert.Contains(t, resp.Thumb, `alt="sand"`)

	stored, err := f.media.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.Width)
	assert.Equal(t, "image/png", stored.MimeType)

	_, err = os.Stat(filepath.Join(f.store.Root(), stored.StorageKey))
	assert.NoError(t, err, "original is written to storage")

	page, err := f.media.FindPage(ctx, domain.MediaQuery{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestUpload_ReviewRequiredIsPending(t *testing.T) {
	f := setupUploadService(t, nil)
	ctx := context.Background()
	policy := openPolicy()
	policy.ReviewRequired = true

	resp, err := f.svc.Upload(ctx, policy,
		domain.UploadForm{Instance: "g1"},
		domain.UploadFile{Filename: "my_cat-pic.png", Data: pngBytes(t, 10, 10)},
	)
	require.NoError(t, err)
	assert.True(t, resp.Pending)
	assert.Equal(t, "my cat pic", resp.Title, "title defaults to the file name")

	page, err := f.media.FindPage(ctx, domain.MediaQuery{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items, "pending uploads stay out of queries")

	m, err := f.svc.Publish(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaPublished, m.Status)
}

func TestUpload_ClientReviewHintOnlyTightens(t *testing.T) {
	f := setupUploadService(t, nil)

	resp, err := f.svc.Upload(context.Background(), openPolicy(),
		domain.UploadForm{Instance: "g1", Review: "true"},
		domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)},
	)
	require.NoError(t, err)
	assert.True(t, resp.Pending)
}

func TestUpload_CategoryFromPolicyOnly(t *testing.T) {
	f := setupUploadService(t, nil)
	ctx := context.Background()
	policy := openPolicy()
	policy.Category = "guest"

	resp, err := f.svc.Upload(ctx, policy,
		domain.UploadForm{Instance: "g1", Category: "admin-only"},
		domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)},
	)
	require.NoError(t, err)
	require.Len(t, resp.Terms, 1)

	m, err := f.media.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, m.Terms, 1)
	assert.Equal(t, "guest", m.Terms[0].Slug)
	assert.Equal(t, m.Terms[0].Token(), resp.Terms[0])
}

func TestUpload_ValidationFailures(t *testing.T) {
	f := setupUploadService(t, nil)
	ctx := context.Background()
	small := pngBytes(t, 10, 10)

	tests := []struct {
		name    string
		policy  domain.UploadPolicy
		form    domain.UploadForm
		file    domain.UploadFile
		message string
		status  int
	}{
		{
			name:    "no file",
			policy:  openPolicy(),
			form:    domain.UploadForm{Instance: "g1"},
			message: "upload.no_file",
			status:  http.StatusBadRequest,
		},
		{
			name:    "honeypot filled",
			policy:  openPolicy(),
			form:    domain.UploadForm{Instance: "g1", Honeypot: "http://spam"},
			file:    domain.UploadFile{Filename: "a.png", Data: small},
			message: "upload.error",
			status:  http.StatusBadRequest,
		},
		{
			name:    "disallowed type",
			policy:  openPolicy(),
			form:    domain.UploadForm{Instance: "g1"},
			file:    domain.UploadFile{Filename: "a.png", Data: []byte("just some text, not an image")},
			message: "upload.bad_type",
			status:  http.StatusUnsupportedMediaType,
		},
		{
			name:    "over server cap",
			policy:  openPolicy(),
			form:    domain.UploadForm{Instance: "g1"},
			file:    domain.UploadFile{Filename: "a.png", Data: make([]byte, 64*1024+1)},
			message: "upload.too_large",
			status:  http.StatusRequestEntityTooLarge,
		},
		{
			name:    "client hint tightens the cap",
			policy:  openPolicy(),
			form:    domain.UploadForm{Instance: "g1", MaxSizeHint: 16},
			file:    domain.UploadFile{Filename: "a.png", Data: small},
			message: "upload.too_large",
			status:  http.StatusRequestEntityTooLarge,
		},
		{
			name:    "title too long",
			policy:  openPolicy(),
			form:    domain.UploadForm{Instance: "g1", Title: strings.Repeat("x", 300)},
			file:    domain.UploadFile{Filename: "a.png", Data: small},
			message: "error.bad_request",
			status:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tt.policy, tt.form, tt.file)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidationFailed)

			var ve *common.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.message, ve.Message)
			assert.Equal(t, tt.status, common.StatusFor(err))
		})
	}
}

func TestUpload_PolicyMaxSizeCannotBeWidened(t *testing.T) {
	f := setupUploadService(t, nil)
	policy := openPolicy()
	policy.MaxSize = 32

	_, err := f.svc.Upload(context.Background(), policy,
		domain.UploadForm{Instance: "g1", MaxSizeHint: 1 << 30},
		domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)},
	)
	assert.Equal(t, http.StatusRequestEntityTooLarge, common.StatusFor(err))
}

func TestUpload_Disabled(t *testing.T) {
	f := setupUploadService(t, nil)

	_, err := f.svc.Upload(context.Background(), domain.UploadPolicy{},
		domain.UploadForm{Instance: "g1"},
		domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)},
	)
	assert.ErrorIs(t, err, common.ErrUploadDisabled)
}

func TestUpload_UploadKey(t *testing.T) {
	f := setupUploadService(t, nil)
	ctx := context.Background()
	policy := openPolicy()
	policy.KeyRequired = true
	file := domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)}

	_, err := f.svc.Upload(ctx, policy, domain.UploadForm{Instance: "g1", UploadKey: "guess"}, file)
	assert.ErrorIs(t, err, common.ErrUploadKeyMismatch)
	assert.ErrorIs(t, err, common.ErrValidationFailed)

	assert.Error(t, f.svc.SetUploadKey(ctx, "g1", "short"), "keys below the minimum length are rejected")
	require.NoError(t, f.svc.SetUploadKey(ctx, "g1", "correct-horse"))

	_, err = f.svc.Upload(ctx, policy, domain.UploadForm{Instance: "g1", UploadKey: "correct-horse"}, file)
	require.NoError(t, err)

	_, err = f.svc.Upload(ctx, policy, domain.UploadForm{Instance: "g2", UploadKey: "correct-horse"}, file)
	assert.ErrorIs(t, err, common.ErrUploadKeyMismatch, "keys are per instance")

	require.NoError(t, f.svc.DeleteUploadKey(ctx, "g1"))
	_, err = f.svc.Upload(ctx, policy, domain.UploadForm{Instance: "g1", UploadKey: "correct-horse"}, file)
	assert.ErrorIs(t, err, common.ErrUploadKeyMismatch)
}

func TestUpload_IndexesDocument(t *testing.T) {
	index := new(mockIndex)
	f := setupUploadService(t, index)
	index.On("IndexMedia", mock.MatchedBy(func(doc elasticsearch.MediaDocument) bool {
		return doc.Title == "Indexed" && doc.Status == string(domain.MediaPublished)
	})).Return(nil)

	_, err := f.svc.Upload(context.Background(), openPolicy(),
		domain.UploadForm{Instance: "g1", Title: "Indexed"},
		domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)},
	)
	require.NoError(t, err)
	index.AssertExpectations(t)
}

func TestUpload_IndexFailureDoesNotFailUpload(t *testing.T) {
	index := new(mockIndex)
	f := setupUploadService(t, index)
	index.On("IndexMedia", mock.Anything).Return(errors.New("es down"))

	_, err := f.svc.Upload(context.Background(), openPolicy(),
		domain.UploadForm{Instance: "g1"},
		domain.UploadFile{Filename: "a.png", Data: pngBytes(t, 10, 10)},
	)
	assert.NoError(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my-photo_1copy.jpg", sanitizeFilename("../../my-photo_1 (copy).jpeg", ".jpg"))
	assert.Equal(t, "image.png", sanitizeFilename("!!!.png", ".png"))
	assert.Equal(t, "사진.png", sanitizeFilename("사진.png", ".png"))
}

func TestResizeImage_PreservesAspect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	out := resizeImage(img, 50)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())
	assert.Equal(t, img, resizeImage(img, 400))
}
