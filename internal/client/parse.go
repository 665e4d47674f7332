package client

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/damoang/image-organizer/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Instance initial state of one server-rendered gallery wrapper
type Instance struct {
	ID             string
	Nonce          string
	AjaxURL        string
	Scope          domain.GalleryScope
	FilterTaxonomy domain.Taxonomy
	Filters        []FilterOption
	Items          []Item
	Upload         *UploadSettings // nil when the instance has no upload form
	PerPage        int
	Columns        int
	CurrentPage    int
	MaxPages       int
	ShowFilter     bool
	ShowSearch     bool
	HasLoadMore    bool
}

// FilterOption one filter bar button
type FilterOption struct {
	Token string // "all" or "term-<id>"
	Label string
}

// UploadSettings upload form attributes
type UploadSettings struct {
	Category    string
	Accept      []string
	MaxSize     int64
	Review      bool
	KeyRequired bool
}

// ParseDocument finds every gallery wrapper in a rendered page
func ParseDocument(r io.Reader) ([]Instance, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse gallery page: %w", err)
	}

	var out []Instance
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, "io-gallery-wrapper") {
			inst, err := parseWrapper(n)
			if err == nil {
				out = append(out, inst)
			}
			return false
		}
		return true
	})
	return out, nil
}

// ParseFragment reads the items of an ajax html fragment; an empty fragment has no items
func ParseFragment(fragment string) ([]Item, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	var items []Item
	for _, n := range nodes {
		var perr error
		walk(n, func(n *html.Node) bool {
			if perr != nil {
				return false
			}
			if n.Type == html.ElementNode && hasClass(n, "io-gallery-item") {
				it, err := parseItem(n)
				if err != nil {
					perr = err
					return false
				}
				items = append(items, it)
				return false
			}
			return true
		})
		if perr != nil {
			return nil, perr
		}
	}
	return items, nil
}

func parseWrapper(n *html.Node) (Instance, error) {
	inst := Instance{
		ID:             attr(n, "data-io-instance"),
		Nonce:          attr(n, "data-io-nonce"),
		AjaxURL:        attr(n, "data-io-ajax-url"),
		PerPage:        atoi(attr(n, "data-io-per-page")),
		Columns:        atoi(attr(n, "data-io-columns")),
		CurrentPage:    atoi(attr(n, "data-io-current-page")),
		MaxPages:       atoi(attr(n, "data-io-max-pages")),
		FilterTaxonomy: domain.ParseTaxonomy(attr(n, "data-io-filter-taxonomy")),
		ShowFilter:     attr(n, "data-io-show-filter") == "true",
		Scope: domain.GalleryScope{
			IDs:        splitIDs(attr(n, "data-io-ids")),
			Categories: splitCSV(attr(n, "data-io-categories")),
			Tags:       splitCSV(attr(n, "data-io-tags")),
		},
	}
	if inst.ID == "" {
		return inst, fmt.Errorf("gallery wrapper without instance id")
	}
	if inst.CurrentPage < 1 {
		inst.CurrentPage = 1
	}
	if inst.MaxPages < inst.CurrentPage {
		inst.MaxPages = inst.CurrentPage
	}

	var err error
	walk(n, func(c *html.Node) bool {
		if c == n || c.Type != html.ElementNode {
			return true
		}
		switch {
		case hasClass(c, "io-gallery-item"):
			it, perr := parseItem(c)
			if perr != nil {
				err = perr
			} else {
				inst.Items = append(inst.Items, it)
			}
			return false
		case hasClass(c, "io-filter-button"):
			inst.Filters = append(inst.Filters, FilterOption{Token: attr(c, "data-io-term"), Label: strings.TrimSpace(text(c))})
			return false
		case hasClass(c, "io-search-input"):
			inst.ShowSearch = true
		case hasClass(c, "io-load-more"):
			inst.HasLoadMore = true
			return false
		case hasClass(c, "io-upload-form"):
			inst.Upload = parseUploadForm(c)
			return false
		case hasClass(c, "io-modal"):
			return false
		}
		return true
	})
	return inst, err
}

func parseUploadForm(n *html.Node) *UploadSettings {
	up := &UploadSettings{
		Category: attr(n, "data-io-category"),
		Review:   attr(n, "data-io-review") == "true",
	}
	up.MaxSize, _ = strconv.ParseInt(attr(n, "data-io-max-size"), 10, 64)
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == atom.Input {
			switch attr(c, "name") {
			case "file":
				up.Accept = splitCSV(attr(c, "accept"))
			case "upload_key":
				up.KeyRequired = true
			}
		}
		return true
	})
	return up
}

func parseItem(n *html.Node) (Item, error) {
	id, err := strconv.ParseInt(attr(n, "data-io-id"), 10, 64)
	if err != nil {
		return Item{}, fmt.Errorf("gallery item without valid id: %w", err)
	}
	it := Item{ID: id, Terms: strings.Fields(attr(n, "data-io-terms"))}

	var trigger *html.Node
	walk(n, func(c *html.Node) bool {
		if trigger == nil && c.Type == html.ElementNode && hasClass(c, "io-gallery-trigger") {
			trigger = c
			return false
		}
		return true
	})
	if trigger == nil {
		return it, nil
	}

	it.Title = attr(trigger, "data-io-title")
	it.Caption = attr(trigger, "data-io-caption")
	it.Description = attr(trigger, "data-io-description")
	it.Alt = attr(trigger, "data-io-alt")
	it.Src = attr(trigger, "data-io-src")
	it.Download = attr(trigger, "data-io-download")

	var buf bytes.Buffer
	for c := trigger.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return it, fmt.Errorf("render thumb: %w", err)
		}
	}
	it.Thumb = buf.String()
	return it, nil
}

// walk visits n and its descendants depth-first; fn returns false to skip children
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func atoi(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitIDs(s string) []int64 {
	var out []int64
	for _, p := range splitCSV(s) {
		if id, err := strconv.ParseInt(p, 10, 64); err == nil && id > 0 {
			out = append(out, id)
		}
	}
	return out
}
