package client

import "github.com/damoang/image-organizer/internal/domain"

// Filter active taxonomy term ("all" or a term token) and free-text query
type Filter struct {
	Term  string
	Query string
}

// Visible is the visibility predicate: taxonomy match AND text match.
// It depends only on the item and the filter.
func Visible(it Item, f Filter) bool {
	return matchesTerm(it, f.Term) && it.matchesText(f.Query)
}

func matchesTerm(it Item, term string) bool {
	if term == "" || term == domain.FilterAll {
		return true
	}
	return it.HasTerm(term)
}
