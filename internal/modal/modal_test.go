package modal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Announce(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

type fakeClipboard struct {
	err    error
	copied []string
}

func (f *fakeClipboard) WriteText(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.copied = append(f.copied, text)
	return nil
}

type fakeFallback struct {
	err    error
	copied []string
}

func (f *fakeFallback) CopyText(text string) error {
	if f.err != nil {
		return f.err
	}
	f.copied = append(f.copied, text)
	return nil
}

func sampleItem() Metadata {
	return Metadata{Title: "Lake", Caption: "Calm", Description: "Morning", Alt: "A calm lake", Src: "/l.jpg", Download: "/f.jpg"}
}

func TestOpenClose_RestoresFocusEverySession(t *testing.T) {
	page := NewPage()
	m := page.NewModal("g1", Config{})

	closers := []struct {
		name  string
		close func() bool
	}{
		{"close button", m.Close},
		{"backdrop", m.Close},
		{"escape", func() bool { return page.Escape() == 1 }},
	}

	for i := 0; i < 9; i++ {
		c := closers[i%len(closers)]
		opener := fmt.Sprintf("io-gallery-g1:item-%d", i)
		page.Focus(opener)

		m.Open(opener, sampleItem())
		require.True(t, m.IsOpen())
		assert.Equal(t, "io-modal-g1:dialog", page.Focused())

		require.True(t, c.close(), c.name)
		assert.False(t, m.IsOpen())
		assert.Equal(t, opener, page.Focused(), "session %d via %s", i, c.name)
	}
}

func TestClose_WhenClosed(t *testing.T) {
	page := NewPage()
	m := page.NewModal("g1", Config{})
	page.Focus("elsewhere")

	assert.False(t, m.Close())
	assert.Equal(t, 0, page.Escape())
	assert.Equal(t, "elsewhere", page.Focused())
}

func TestOpen_ReplacesSession(t *testing.T) {
	page := NewPage()
	m := page.NewModal("g1", Config{})

	m.Open("trigger-1", sampleItem())
	second := sampleItem()
	second.Title = "Forest"
	m.Open("trigger-2", second)

	s, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, "Forest", s.Item.Title)
	assert.Equal(t, "trigger-2", s.Opener)

	m.Close()
	assert.Equal(t, "trigger-2", page.Focused())
}

func TestTab_LoopsInsideDialog(t *testing.T) {
	page := NewPage()
	m := page.NewModal("g1", Config{})
	m.Open("trigger", sampleItem())

	// 다이얼로그 자체에서 Tab은 첫 컨트롤로
	assert.Equal(t, "io-modal-g1:close", m.Tab(false))
	assert.Equal(t, "io-modal-g1:copy-alt", m.Tab(false))
	assert.Equal(t, "io-modal-g1:download", m.Tab(false))
	assert.Equal(t, "io-modal-g1:close", m.Tab(false))

	assert.Equal(t, "io-modal-g1:download", m.Tab(true))
	assert.Equal(t, "io-modal-g1:copy-alt", m.Tab(true))

	// 포커스가 밖으로 새면 Shift+Tab은 마지막 컨트롤로
	page.Focus("outside")
	assert.Equal(t, "io-modal-g1:download", m.Tab(true))
}

func TestTab_ClosedDialogLeavesFocus(t *testing.T) {
	page := NewPage()
	m := page.NewModal("g1", Config{})
	page.Focus("trigger")

	assert.Equal(t, "trigger", m.Tab(false))
	assert.False(t, page.Tab(false))
}

func TestPage_TabRoutesToFocusedDialog(t *testing.T) {
	page := NewPage()
	a := page.NewModal("a", Config{})
	b := page.NewModal("b", Config{})

	a.Open("trigger-a", sampleItem())
	b.Open("trigger-b", sampleItem())

	require.True(t, page.Tab(false))
	assert.Equal(t, b.ControlID(ControlClose), page.Focused())
}

func TestPage_EscapeClosesEveryDialog(t *testing.T) {
	page := NewPage()
	a := page.NewModal("a", Config{})
	b := page.NewModal("b", Config{})
	c := page.NewModal("c", Config{})

	a.Open("trigger-a", sampleItem())
	b.Open("trigger-b", sampleItem())

	assert.Equal(t, 2, page.Escape())
	assert.False(t, a.IsOpen())
	assert.False(t, b.IsOpen())
	assert.False(t, c.IsOpen())
}

func TestCopyAlt(t *testing.T) {
	translate := func(key string) string { return "t:" + key }

	t.Run("primary", func(t *testing.T) {
		rec := &recorder{}
		primary := &fakeClipboard{}
		fallback := &fakeFallback{}
		m := NewPage().NewModal("g1", Config{Announcer: rec, Translate: translate, Clipboard: primary, Fallback: fallback})
		m.Open("trigger", sampleItem())

		require.NoError(t, m.CopyAlt(context.Background()))
		assert.Equal(t, []string{"A calm lake"}, primary.copied)
		assert.Empty(t, fallback.copied)
		assert.Equal(t, "t:status.copy_ok", rec.last())
	})

	t.Run("fallback after primary failure", func(t *testing.T) {
		rec := &recorder{}
		primary := &fakeClipboard{err: errors.New("no display")}
		fallback := &fakeFallback{}
		m := NewPage().NewModal("g1", Config{Announcer: rec, Translate: translate, Clipboard: primary, Fallback: fallback})
		m.Open("trigger", sampleItem())

		require.NoError(t, m.CopyAlt(context.Background()))
		assert.Equal(t, []string{"A calm lake"}, fallback.copied)
		assert.Equal(t, "t:status.copy_ok", rec.last())
	})

	t.Run("fallback only", func(t *testing.T) {
		rec := &recorder{}
		fallback := &fakeFallback{}
		m := NewPage().NewModal("g1", Config{Announcer: rec, Translate: translate, Fallback: fallback})
		m.Open("trigger", sampleItem())

		require.NoError(t, m.CopyAlt(context.Background()))
		assert.Equal(t, []string{"A calm lake"}, fallback.copied)
	})

	t.Run("both fail", func(t *testing.T) {
		rec := &recorder{}
		fallbackErr := errors.New("denied")
		m := NewPage().NewModal("g1", Config{
			Announcer: rec,
			Translate: translate,
			Clipboard: &fakeClipboard{err: errors.New("no display")},
			Fallback:  &fakeFallback{err: fallbackErr},
		})
		m.Open("trigger", sampleItem())

		assert.ErrorIs(t, m.CopyAlt(context.Background()), fallbackErr)
		assert.Equal(t, "t:status.copy_failed", rec.last())
	})

	t.Run("no clipboard", func(t *testing.T) {
		rec := &recorder{}
		m := NewPage().NewModal("g1", Config{Announcer: rec, Translate: translate})
		m.Open("trigger", sampleItem())

		assert.ErrorIs(t, m.CopyAlt(context.Background()), ErrNoClipboard)
		assert.Equal(t, "t:status.copy_failed", rec.last())
	})

	t.Run("empty alt", func(t *testing.T) {
		rec := &recorder{}
		primary := &fakeClipboard{}
		m := NewPage().NewModal("g1", Config{Announcer: rec, Translate: translate, Clipboard: primary})
		item := sampleItem()
		item.Alt = ""
		m.Open("trigger", item)

		assert.ErrorIs(t, m.CopyAlt(context.Background()), ErrNothingToCopy)
		assert.Empty(t, primary.copied)
		assert.Equal(t, "t:status.copy_failed", rec.last())
	})

	t.Run("closed", func(t *testing.T) {
		rec := &recorder{}
		m := NewPage().NewModal("g1", Config{Announcer: rec, Translate: translate, Clipboard: &fakeClipboard{}})

		assert.ErrorIs(t, m.CopyAlt(context.Background()), ErrClosed)
		assert.Equal(t, "", rec.last())
	})
}
