// Package tui is a terminal front end for rendered gallery pages. Every
// interaction goes through the client state machine of the instance.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/damoang/image-organizer/internal/client"
	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/modal"
	"github.com/damoang/image-organizer/pkg/i18n"
)

// Messages
type (
	loadedMsg struct {
		pane int
		n    int
		err  error
	}
	searchedMsg struct {
		pane int
		n    int
		err  error
	}
	uploadedMsg struct {
		pane int
		resp *domain.UploadResponse
		err  error
	}
	copiedMsg struct{ err error }
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeUpload
	modeDialog
)

// Pane one gallery instance and its live region
type Pane struct {
	Gallery *client.Gallery
	Live    *client.LiveRegion
}

// Config terminal settings
type Config struct {
	Bundle    *i18n.Bundle
	Locale    i18n.Locale
	Timeout   time.Duration // per request
	Clipboard modal.Clipboard
	Fallback  modal.SyncClipboard
}

// Model is the Bubble Tea model
type Model struct {
	page    *modal.Page
	panes   []Pane
	bundle  *i18n.Bundle
	locale  i18n.Locale
	timeout time.Duration

	active int
	cursor int
	mode   mode
	search textinput.Model
	upload uploadForm

	spinner spinner.Model
	notice  string
	err     error
	width   int
	height  int
}

// NewModel creates a model over galleries that share page
func NewModel(page *modal.Page, panes []Pane, cfg Config) Model {
	if cfg.Bundle == nil {
		cfg.Bundle = i18n.NewDefaultBundle()
	}
	if cfg.Locale == "" {
		cfg.Locale = i18n.DefaultLocale()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = cfg.Bundle.T(cfg.Locale, "gallery.search_label")
	search.CharLimit = 200
	search.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		page:    page,
		panes:   panes,
		bundle:  cfg.Bundle,
		locale:  cfg.Locale,
		timeout: cfg.Timeout,
		search:  search,
		spinner: s,
	}
	m.resetUploadForm()
	return m
}

// Load fetches pageURL and builds one pane per gallery instance on it
func Load(ctx context.Context, httpClient *http.Client, pageURL string, cfg Config) (Model, error) {
	if cfg.Bundle == nil {
		cfg.Bundle = i18n.NewDefaultBundle()
	}
	if cfg.Locale == "" {
		cfg.Locale = i18n.DefaultLocale()
	}

	insts, err := client.FetchPage(ctx, httpClient, pageURL, cfg.Locale)
	if err != nil {
		return Model{}, err
	}
	if len(insts) == 0 {
		return Model{}, fmt.Errorf("no gallery on %s", pageURL)
	}

	page := modal.NewPage()
	panes := make([]Pane, 0, len(insts))
	for _, inst := range insts {
		live := &client.LiveRegion{}
		g := client.New(inst, client.Options{
			Transport: client.NewHTTPTransport(inst.AjaxURL, httpClient, cfg.Locale),
			Announcer: live,
			Bundle:    cfg.Bundle,
			Locale:    cfg.Locale,
			Page:      page,
			Clipboard: cfg.Clipboard,
			Fallback:  cfg.Fallback,
		})
		panes = append(panes, Pane{Gallery: g, Live: live})
	}
	return NewModel(page, panes, cfg), nil
}

func (m *Model) gallery() *client.Gallery {
	return m.panes[m.active].Gallery
}

func (m *Model) resetUploadForm() {
	if len(m.panes) == 0 {
		return
	}
	m.upload = newUploadForm(m.gallery().Instance().Upload)
}

func (m *Model) clampCursor() {
	n := len(m.gallery().VisibleItems())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) loadMore() tea.Cmd {
	pane, g := m.active, m.gallery()
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		n, err := g.LoadMore(ctx)
		return loadedMsg{pane: pane, n: n, err: err}
	}
}

// runSearch fires the search immediately; only the request itself runs in the command
func (m Model) runSearch(query string) tea.Cmd {
	pane, run := m.active, m.gallery().StartSearch(query)
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		n, err := run(ctx)
		return searchedMsg{pane: pane, n: n, err: err}
	}
}

func (m Model) submitUpload() tea.Cmd {
	pane, g := m.active, m.gallery()
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		resp, err := g.Upload(ctx)
		return uploadedMsg{pane: pane, resp: resp, err: err}
	}
}

func (m Model) copyAlt() tea.Cmd {
	d := m.gallery().Modal()
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return copiedMsg{err: d.CopyAlt(ctx)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if len(m.panes) == 0 {
			if msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeUpload:
			return m.updateUpload(msg)
		case modeDialog:
			return m.updateDialog(msg)
		}
		return m.updateBrowse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.err = ignoreStale(msg.err)
		if msg.pane == m.active {
			m.clampCursor()
		}

	case searchedMsg:
		m.err = ignoreStale(msg.err)
		if msg.pane == m.active && msg.err == nil {
			m.cursor = 0
		}

	case uploadedMsg:
		if msg.err == nil {
			m.err = nil
			if msg.pane == m.active {
				m.upload.reset()
				m.cursor = 0
			}
		} else if !errors.Is(msg.err, common.ErrValidationFailed) {
			m.err = msg.err
		}

	case copiedMsg:
		// 결과는 라이브 영역에 안내됨
		if msg.err != nil && !errors.Is(msg.err, modal.ErrNothingToCopy) {
			m.err = msg.err
		}
	}

	return m, nil
}

func ignoreStale(err error) error {
	if errors.Is(err, common.ErrStaleResponse) || errors.Is(err, client.ErrBusy) || errors.Is(err, client.ErrNoMorePages) {
		return nil
	}
	return err
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.gallery()
	m.notice = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "j", "down", "l", "right":
		if m.cursor < len(g.VisibleItems())-1 {
			m.cursor++
		}

	case "k", "up", "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}

	case "tab":
		m.active = (m.active + 1) % len(m.panes)
		m.cursor = 0
		m.resetUploadForm()

	case "shift+tab":
		m.active = (m.active - 1 + len(m.panes)) % len(m.panes)
		m.cursor = 0
		m.resetUploadForm()

	case "enter":
		items := g.VisibleItems()
		if len(items) == 0 || g.Modal() == nil {
			return m, nil
		}
		it := items[m.cursor]
		trigger := g.TriggerID(it.ID)
		m.page.Focus(trigger)
		if err := g.Open(it.ID, trigger); err != nil {
			m.err = err
			return m, nil
		}
		m.mode = modeDialog

	case "m":
		if g.LoadMoreEnabled() {
			return m, m.loadMore()
		}

	case "f":
		filters := g.Filters()
		if len(filters) == 0 {
			return m, nil
		}
		next := 0
		for i, f := range filters {
			if f.Token == g.Filter().Term {
				next = (i + 1) % len(filters)
			}
		}
		if _, err := g.ToggleFilter(filters[next].Token); err != nil {
			m.err = err
		}
		m.clampCursor()

	case "/":
		if !g.Instance().ShowSearch {
			return m, nil
		}
		m.mode = modeSearch
		return m, m.search.Focus()

	case "x":
		if g.SearchMode() || g.State() == client.StateSearching {
			g.ClearSearch()
			m.search.Reset()
			m.cursor = 0
		}

	case "u":
		if g.Instance().Upload == nil {
			return m, nil
		}
		m.mode = modeUpload
		return m, m.upload.focusField(fieldPath)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		// 입력마다 이미 검색됨
		m.mode = modeBrowse
		m.search.Blur()
		return m, nil
	}
	prev := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != prev {
		return m, tea.Batch(cmd, m.runSearch(v))
	}
	return m, cmd
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		return m, nil
	case "tab", "down":
		return m, m.upload.focusField(m.upload.focus + 1)
	case "shift+tab", "up":
		return m, m.upload.focusField(m.upload.focus - 1)
	case "enter":
		g := m.gallery()
		if !g.SubmitEnabled() {
			return m, nil
		}
		d, err := m.upload.draft()
		if err != nil {
			m.err = err
			return m, nil
		}
		g.SetDraft(d)
		m.mode = modeBrowse
		return m, m.submitUpload()
	}
	return m, m.upload.update(msg)
}

func (m Model) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.gallery().Modal()
	m.notice = ""

	switch msg.String() {
	case "esc", "q":
		m.page.Escape()
		m.mode = modeBrowse
	case "tab":
		m.page.Tab(false)
	case "shift+tab":
		m.page.Tab(true)
	case "c":
		return m, m.copyAlt()
	case "enter", " ":
		switch m.page.Focused() {
		case d.ControlID(modal.ControlClose):
			d.Close()
			m.mode = modeBrowse
		case d.ControlID(modal.ControlCopyAlt):
			return m, m.copyAlt()
		case d.ControlID(modal.ControlDownload):
			if s, ok := d.Session(); ok {
				m.notice = s.Item.Download
			}
		}
	}
	if !d.IsOpen() {
		m.mode = modeBrowse
	}
	return m, nil
}

func (m Model) t(key string, args ...interface{}) string {
	return m.bundle.T(m.locale, key, args...)
}
