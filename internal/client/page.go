package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/pkg/i18n"
)

// FetchPage downloads a rendered gallery page and parses its instances.
// Each instance's AjaxURL is resolved against pageURL.
func FetchPage(ctx context.Context, httpClient *http.Client, pageURL string, locale i18n.Locale) ([]Instance, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	if locale != "" {
		req.Header.Set("Accept-Language", string(locale))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: %s", common.ErrTransientNetwork, pageURL, resp.Status)
	}

	insts, err := ParseDocument(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	for i := range insts {
		ep, err := ResolveEndpoint(pageURL, insts[i].AjaxURL)
		if err != nil {
			return nil, fmt.Errorf("instance %s: ajax url: %w", insts[i].ID, err)
		}
		insts[i].AjaxURL = ep
	}
	return insts, nil
}
