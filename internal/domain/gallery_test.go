package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxPages(t *testing.T) {
	assert.Equal(t, 1, MaxPages(0, 12))
	assert.Equal(t, 1, MaxPages(12, 12))
	assert.Equal(t, 2, MaxPages(13, 12))
	assert.Equal(t, 3, MaxPages(36, 12))
	assert.Equal(t, 1, MaxPages(500, 0), "unbounded query is a single page")
}

func TestGalleryScopeKey(t *testing.T) {
	a := GalleryScope{IDs: []int64{3, 1}, Categories: []string{"b", "a"}}
	b := GalleryScope{IDs: []int64{3, 1}, Categories: []string{"a", "b"}}
	c := GalleryScope{IDs: []int64{1, 3}, Categories: []string{"a", "b"}}

	assert.Equal(t, a.Key(), b.Key(), "slug order is not significant")
	assert.NotEqual(t, a.Key(), c.Key(), "allow-list order is significant")
}

func TestParseTaxonomy(t *testing.T) {
	assert.Equal(t, TaxonomyTag, ParseTaxonomy("Tag"))
	assert.Equal(t, TaxonomyTag, ParseTaxonomy("post_tag"))
	assert.Equal(t, TaxonomyCategory, ParseTaxonomy(""))
	assert.Equal(t, TaxonomyCategory, ParseTaxonomy("weird"))
}

func TestMediaTermsOfAndSource(t *testing.T) {
	m := Media{
		URL: "/u/a.jpg",
		Terms: []Term{
			{ID: 5, Taxonomy: TaxonomyCategory, Slug: "nature"},
			{ID: 7, Taxonomy: TaxonomyTag, Slug: "sunset"},
		},
	}

	cats := m.TermsOf(TaxonomyCategory)
	assert.Len(t, cats, 1)
	assert.Equal(t, "term-5", cats[0].Token())
	assert.Equal(t, "/u/a.jpg", m.SourceURL())

	m.LargeURL = "/u/a-large.jpg"
	assert.Equal(t, "/u/a-large.jpg", m.SourceURL())
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Taken at dusk & edited", StripTags("<p>Taken at <b>dusk</b> &amp; edited</p><script>alert(1)</script>"))
	assert.Equal(t, "", StripTags(""))
	assert.Equal(t, "a b", StripTags("a<br/>b"))
}
