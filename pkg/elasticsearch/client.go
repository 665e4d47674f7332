package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// searchFields are matched case-insensitively as substrings, mirroring the SQL path
var searchFields = []string{"title", "caption", "description"}

// Client wraps the Elasticsearch client with media index helpers
type Client struct {
	es    *elasticsearch.Client
	index string
}

// MediaDocument is the indexed projection of a media record
type MediaDocument struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// NewClient creates a new Elasticsearch client
func NewClient(addresses []string, username, password, index string) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}
	if username != "" {
		cfg.Username = username
		cfg.Password = password
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation failed: %w", err)
	}

	// Ping
	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch connection failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	pkglogger.GetLogger().Info().Str("index", index).Msg("connected to Elasticsearch")
	return &Client{es: es, index: index}, nil
}

// EnsureMediaIndex creates the media index with keyword fields if it is missing
func (c *Client) EnsureMediaIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil // Already exists
	}

	properties := map[string]interface{}{
		"id":     map[string]interface{}{"type": "long"},
		"status": map[string]interface{}{"type": "keyword"},
	}
	for _, f := range searchFields {
		properties[f] = map[string]interface{}{"type": "keyword"}
	}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{"properties": properties},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(mapping); err != nil {
		return fmt.Errorf("failed to encode index mapping: %w", err)
	}

	res, err = c.es.Indices.Create(c.index, c.es.Indices.Create.WithBody(&buf), c.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("create index error [%s]: failed to read response body: %w", res.Status(), err)
		}
		// Ignore "already exists" error
		if !strings.Contains(string(body), "resource_already_exists_exception") {
			return fmt.Errorf("create index error: %s", string(body))
		}
	}
	return nil
}

// IndexMedia indexes a single media document
func (c *Client) IndexMedia(ctx context.Context, doc MediaDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(doc.ID, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("index error [%s]: failed to read response body: %w", res.Status(), err)
		}
		return fmt.Errorf("index error [%s]: %s", res.Status(), string(body))
	}
	return nil
}

// DeleteMedia removes a document from the index
func (c *Client) DeleteMedia(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(id, 10),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// 404 is ok (document already gone)
	if res.IsError() && res.StatusCode != 404 {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("delete error [%s]: failed to read response body: %w", res.Status(), err)
		}
		return fmt.Errorf("delete error [%s]: %s", res.Status(), string(body))
	}
	return nil
}

// SearchMediaIDs returns the ids of published media whose text fields contain
// text, restricted to within when it is non-empty. At most limit ids are
// returned; a full result may be truncated.
func (c *Client) SearchMediaIDs(ctx context.Context, text string, within []int64, limit int) ([]int64, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildMediaQuery(text, within)); err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithSize(limit),
		c.es.Search.WithSource("false"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("search error [%s]: failed to read response body: %w", res.Status(), err)
		}
		return nil, fmt.Errorf("search error [%s]: %s", res.Status(), string(body))
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}

	return parseHitIDs(raw), nil
}

// buildMediaQuery builds a case-insensitive substring query over the text fields
func buildMediaQuery(text string, within []int64) map[string]interface{} {
	pattern := "*" + escapeWildcard(strings.TrimSpace(text)) + "*"
	should := make([]interface{}, 0, len(searchFields))
	for _, f := range searchFields {
		should = append(should, map[string]interface{}{
			"wildcard": map[string]interface{}{
				f: map[string]interface{}{
					"value":            pattern,
					"case_insensitive": true,
				},
			},
		})
	}
	filter := []interface{}{map[string]interface{}{"term": map[string]interface{}{"status": "published"}}}
	if len(within) > 0 {
		values := make([]string, len(within))
		for i, id := range within {
			values[i] = strconv.FormatInt(id, 10)
		}
		filter = append(filter, map[string]interface{}{"ids": map[string]interface{}{"values": values}})
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter":               filter,
				"should":               should,
				"minimum_should_match": 1,
			},
		},
	}
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

func parseHitIDs(raw map[string]interface{}) []int64 {
	ids := []int64{}
	hits, ok := raw["hits"].(map[string]interface{})
	if !ok {
		return ids
	}
	hitList, ok := hits["hits"].([]interface{})
	if !ok {
		return ids
	}
	for _, h := range hitList {
		hit, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(fmt.Sprintf("%v", hit["_id"]), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
