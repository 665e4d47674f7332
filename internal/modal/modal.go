// Package modal implements the per-instance metadata dialog: open/close,
// focus restoration, the Tab focus loop and alt-text copy.
package modal

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed the operation needs an open dialog
	ErrClosed = errors.New("modal is not open")
	// ErrNothingToCopy the current item has no alt text
	ErrNothingToCopy = errors.New("no alt text to copy")
	// ErrNoClipboard neither clipboard path is available
	ErrNoClipboard = errors.New("clipboard unavailable")
)

// Focusable controls of a dialog, in tab order. The dialog itself takes focus on open.
const (
	ControlDialog   = "dialog"
	ControlClose    = "close"
	ControlCopyAlt  = "copy-alt"
	ControlDownload = "download"
)

var tabOrder = []string{ControlClose, ControlCopyAlt, ControlDownload}

// Metadata item fields shown in the dialog; missing fields stay empty
type Metadata struct {
	Title       string
	Caption     string
	Description string
	Alt         string
	Src         string
	Download    string
}

// Session one open dialog: the item snapshot and the control that opened it
type Session struct {
	Item   Metadata
	Opener string
}

// Announcer receives live-region status text
type Announcer interface {
	Announce(message string)
}

// Clipboard asynchronous clipboard write (primary path)
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// SyncClipboard synchronous copy used when the primary path is unavailable or fails
type SyncClipboard interface {
	CopyText(text string) error
}

// Config collaborators of a dialog
type Config struct {
	Announcer Announcer
	Translate func(key string) string
	Clipboard Clipboard
	Fallback  SyncClipboard
}

// Page owns keyboard focus and every dialog on the page
type Page struct {
	mu     sync.Mutex
	focus  string
	modals []*Modal
}

// NewPage creates an empty page
func NewPage() *Page {
	return &Page{}
}

// Focus moves focus to a control
func (p *Page) Focus(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focus = id
}

// Focused returns the focused control id
func (p *Page) Focused() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focus
}

// Escape closes every open dialog on the page and returns how many were closed
func (p *Page) Escape() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.modals {
		if m.closeLocked() {
			n++
		}
	}
	return n
}

// Tab moves focus inside the open dialog that holds it. Returns false when no dialog is open.
func (p *Page) Tab(shift bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.modals {
		if m.session != nil && m.owns(p.focus) {
			m.tabLocked(shift)
			return true
		}
	}
	for _, m := range p.modals {
		if m.session != nil {
			m.tabLocked(shift)
			return true
		}
	}
	return false
}

// NewModal registers a dialog for one gallery instance
func (p *Page) NewModal(id string, cfg Config) *Modal {
	if cfg.Translate == nil {
		cfg.Translate = func(key string) string { return key }
	}
	m := &Modal{page: p, id: id, cfg: cfg}
	p.mu.Lock()
	p.modals = append(p.modals, m)
	p.mu.Unlock()
	return m
}

// Modal the metadata dialog of one gallery instance
type Modal struct {
	page    *Page
	session *Session
	cfg     Config
	id      string
}

// Page the page that owns focus for this dialog
func (m *Modal) Page() *Page {
	return m.page
}

// ID gallery instance id of the dialog
func (m *Modal) ID() string {
	return m.id
}

// ControlID page-unique id of one of the dialog's controls
func (m *Modal) ControlID(control string) string {
	return "io-modal-" + m.id + ":" + control
}

func (m *Modal) owns(focus string) bool {
	for _, c := range append([]string{ControlDialog}, tabOrder...) {
		if focus == m.ControlID(c) {
			return true
		}
	}
	return false
}

// Open shows item and moves focus into the dialog. Opening an open dialog
// replaces its session.
func (m *Modal) Open(opener string, item Metadata) {
	m.page.mu.Lock()
	defer m.page.mu.Unlock()
	m.session = &Session{Item: item, Opener: opener}
	m.page.focus = m.ControlID(ControlDialog)
}

// Close closes the dialog (close button or backdrop) and restores focus to the opener
func (m *Modal) Close() bool {
	m.page.mu.Lock()
	defer m.page.mu.Unlock()
	return m.closeLocked()
}

func (m *Modal) closeLocked() bool {
	if m.session == nil {
		return false
	}
	m.page.focus = m.session.Opener
	m.session = nil
	return true
}

// IsOpen reports whether the dialog is open
func (m *Modal) IsOpen() bool {
	m.page.mu.Lock()
	defer m.page.mu.Unlock()
	return m.session != nil
}

// Session returns the current session
func (m *Modal) Session() (Session, bool) {
	m.page.mu.Lock()
	defer m.page.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Tab cycles focus within the dialog
func (m *Modal) Tab(shift bool) string {
	m.page.mu.Lock()
	defer m.page.mu.Unlock()
	if m.session == nil {
		return m.page.focus
	}
	m.tabLocked(shift)
	return m.page.focus
}

func (m *Modal) tabLocked(shift bool) {
	idx := -1
	for i, c := range tabOrder {
		if m.page.focus == m.ControlID(c) {
			idx = i
			break
		}
	}
	last := len(tabOrder) - 1
	switch {
	case idx < 0 && shift:
		idx = last
	case idx < 0:
		idx = 0
	case shift && idx == 0:
		idx = last
	case shift:
		idx--
	case idx == last:
		idx = 0
	default:
		idx++
	}
	m.page.focus = m.ControlID(tabOrder[idx])
}

// CopyAlt copies the current alt text: primary clipboard first, then the
// synchronous fallback in the same call. The outcome is announced.
func (m *Modal) CopyAlt(ctx context.Context) error {
	m.page.mu.Lock()
	if m.session == nil {
		m.page.mu.Unlock()
		return ErrClosed
	}
	alt := m.session.Item.Alt
	m.page.mu.Unlock()

	err := m.copy(ctx, alt)
	if m.cfg.Announcer != nil {
		if err != nil {
			m.cfg.Announcer.Announce(m.cfg.Translate("status.copy_failed"))
		} else {
			m.cfg.Announcer.Announce(m.cfg.Translate("status.copy_ok"))
		}
	}
	return err
}

func (m *Modal) copy(ctx context.Context, text string) error {
	if text == "" {
		return ErrNothingToCopy
	}
	err := ErrNoClipboard
	if m.cfg.Clipboard != nil {
		if err = m.cfg.Clipboard.WriteText(ctx, text); err == nil {
			return nil
		}
	}
	if m.cfg.Fallback != nil {
		return m.cfg.Fallback.CopyText(text)
	}
	return err
}
