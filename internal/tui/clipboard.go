package tui

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

var errNoSystemClipboard = errors.New("system clipboard unavailable")

// SystemClipboard writes through the OS clipboard (pbcopy, xclip, xsel, wl-copy)
type SystemClipboard struct{}

// WriteText copies text; the call is abandoned when ctx is done
func (SystemClipboard) WriteText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return errNoSystemClipboard
	}
	done := make(chan error, 1)
	go func() {
		done <- clipboard.WriteAll(text)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TerminalClipboard copies with an OSC 52 escape sequence. Works over SSH
// when the terminal emulator allows it.
type TerminalClipboard struct {
	Out io.Writer // defaults to os.Stderr
	// Tmux wraps the sequence for tmux passthrough
	Tmux bool
}

// CopyText writes the escape sequence synchronously
func (c TerminalClipboard) CopyText(text string) error {
	out := c.Out
	if out == nil {
		out = os.Stderr
	}
	seq := osc52.New(text)
	if c.Tmux {
		seq = seq.Tmux()
	}
	_, err := seq.WriteTo(out)
	return err
}
