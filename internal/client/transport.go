package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/pkg/i18n"
)

// maxResponseSize caps ajax response bodies
const maxResponseSize = 16 << 20

// Transport sends gallery ajax requests
type Transport interface {
	LoadMore(ctx context.Context, p LoadMoreParams) (*domain.LoadMoreResponse, error)
	Search(ctx context.Context, p SearchParams) (*domain.SearchResponse, error)
	Upload(ctx context.Context, p UploadParams) (*domain.UploadResponse, error)
}

// ScopeParams instance scope sent with every load-more and search request
type ScopeParams struct {
	Scope          domain.GalleryScope
	FilterTaxonomy domain.Taxonomy
	ShowFilter     bool
}

// LoadMoreParams io_load_more request
type LoadMoreParams struct {
	Nonce    string
	Instance string
	ScopeParams
	Page    int
	PerPage int
	Columns int
}

// SearchParams io_search request
type SearchParams struct {
	Nonce    string
	Instance string
	Query    string
	ScopeParams
}

// UploadParams io_upload request
type UploadParams struct {
	Nonce       string
	Instance    string
	Filename    string
	Title       string
	Alt         string
	Caption     string
	Description string
	UploadKey   string
	Category    string
	Honeypot    string
	File        []byte
	MaxSize     int64
	Review      bool
}

// RequestError failure envelope returned by the server
type RequestError struct {
	Message string
	Code    string
	Status  int
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gallery request failed (%d %s)", e.Status, e.Code)
	}
	return fmt.Sprintf("gallery request failed (%d %s): %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the status to the error taxonomy
func (e *RequestError) Unwrap() error {
	switch e.Status {
	case http.StatusForbidden:
		return common.ErrRejectedRequest
	case http.StatusTooManyRequests:
		return common.ErrRateLimited
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return common.ErrValidationFailed
	default:
		return common.ErrTransientNetwork
	}
}

// HTTPTransport posts to the gallery ajax endpoint
type HTTPTransport struct {
	client   *http.Client
	endpoint string
	locale   i18n.Locale
}

// NewHTTPTransport creates a transport; client may be nil
func NewHTTPTransport(endpoint string, client *http.Client, locale i18n.Locale) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTransport{client: client, endpoint: endpoint, locale: locale}
}

// ResolveEndpoint resolves the wrapper's (possibly relative) ajax url against the page url
func ResolveEndpoint(pageURL, ajaxURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(ajaxURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func scopeValues(v url.Values, s ScopeParams) {
	ids := make([]string, len(s.Scope.IDs))
	for i, id := range s.Scope.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	v.Set("ids", strings.Join(ids, ","))
	v.Set("categories", strings.Join(s.Scope.Categories, ","))
	v.Set("tags", strings.Join(s.Scope.Tags, ","))
	v.Set("filter_taxonomy", string(s.FilterTaxonomy))
	v.Set("show_filter", strconv.FormatBool(s.ShowFilter))
}

// LoadMore requests one later page
func (t *HTTPTransport) LoadMore(ctx context.Context, p LoadMoreParams) (*domain.LoadMoreResponse, error) {
	v := url.Values{}
	v.Set("action", domain.ActionLoadMore)
	v.Set("nonce", p.Nonce)
	v.Set("instance", p.Instance)
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("per_page", strconv.Itoa(p.PerPage))
	v.Set("columns", strconv.Itoa(p.Columns))
	scopeValues(v, p.ScopeParams)

	var out domain.LoadMoreResponse
	if err := t.post(ctx, strings.NewReader(v.Encode()), "application/x-www-form-urlencoded", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search requests the full match set
func (t *HTTPTransport) Search(ctx context.Context, p SearchParams) (*domain.SearchResponse, error) {
	v := url.Values{}
	v.Set("action", domain.ActionSearch)
	v.Set("nonce", p.Nonce)
	v.Set("instance", p.Instance)
	v.Set("query", p.Query)
	scopeValues(v, p.ScopeParams)

	var out domain.SearchResponse
	if err := t.post(ctx, strings.NewReader(v.Encode()), "application/x-www-form-urlencoded", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends the upload form as multipart
func (t *HTTPTransport) Upload(ctx context.Context, p UploadParams) (*domain.UploadResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"action", domain.ActionUpload},
		{"nonce", p.Nonce},
		{"instance", p.Instance},
		{"title", p.Title},
		{"alt", p.Alt},
		{"caption", p.Caption},
		{"description", p.Description},
		{"upload_key", p.UploadKey},
		{"category", p.Category},
		{"review", strconv.FormatBool(p.Review)},
		{"max_size", strconv.FormatInt(p.MaxSize, 10)},
		{"io_website", p.Honeypot},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	fw, err := w.CreateFormFile("file", p.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(p.File); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out domain.UploadResponse
	if err := t.post(ctx, &body, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Success bool            `json:"success"`
}

func (t *HTTPTransport) post(ctx context.Context, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if t.locale != "" {
		req.Header.Set("Accept-Language", string(t.locale))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", common.ErrTransientNetwork, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &RequestError{Status: resp.StatusCode}
		}
		return fmt.Errorf("%w: malformed response: %v", common.ErrTransientNetwork, err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		status := resp.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return &RequestError{Status: status, Code: env.Code, Message: env.Message}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: malformed data: %v", common.ErrTransientNetwork, err)
	}
	return nil
}
