package main

import (
	"context"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/damoang/image-organizer/internal/tui"
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		pageURL string
		locale  string
		timeout time.Duration
		tmux    bool
		osc52   bool
	)

	cmd := &cobra.Command{
		Use:           "gallery-tui [page-url]",
		Short:         "Browse, search and upload to a gallery page from the terminal",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				pageURL = args[0]
			}

			if locale == "" {
				locale = os.Getenv("LANG")
			}
			loc := i18n.ParseAcceptLanguage(locale)

			cfg := tui.Config{
				Bundle:   i18n.NewDefaultBundle(),
				Locale:   loc,
				Timeout:  timeout,
				Fallback: tui.TerminalClipboard{Out: os.Stderr, Tmux: tmux},
			}
			// OSC 52만 사용 (원격 세션)
			if !osc52 {
				cfg.Clipboard = tui.SystemClipboard{}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			m, err := tui.Load(ctx, &http.Client{Timeout: timeout}, pageURL, cfg)
			if err != nil {
				return err
			}

			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "http://localhost:8080/gallery?instance=demo", "Gallery page URL")
	cmd.Flags().StringVar(&locale, "locale", "", "Message locale (en, ko, ja); defaults to $LANG")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.Flags().BoolVar(&tmux, "tmux", os.Getenv("TMUX") != "", "Wrap OSC 52 copies for tmux passthrough")
	cmd.Flags().BoolVar(&osc52, "osc52", os.Getenv("SSH_TTY") != "", "Copy only through the terminal (OSC 52)")

	return cmd
}
