package client

import (
	"sync"

	"github.com/damoang/image-organizer/pkg/i18n"
)

// Announcer receives live-region status text
type Announcer interface {
	Announce(message string)
}

// LiveRegion in-memory live region keeping the current text and its history
type LiveRegion struct {
	mu      sync.Mutex
	text    string
	history []string
}

// Announce replaces the region text
func (r *LiveRegion) Announce(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = message
	r.history = append(r.history, message)
}

// Text current region text
func (r *LiveRegion) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// History every announcement in order
func (r *LiveRegion) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// messages localized status strings of one gallery
type messages struct {
	bundle *i18n.Bundle
	locale i18n.Locale
}

func (m messages) t(key string, args ...interface{}) string {
	return m.bundle.T(m.locale, key, args...)
}

func (m messages) n(key string, n int) string {
	return m.bundle.N(m.locale, key, n)
}
