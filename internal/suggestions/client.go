// Package suggestions queries an external games database so users can
// prefill card titles and artwork while typing.
package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/cardfolio/cardfolio/internal/config"
)

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

var (
	ErrQueryRequired = errors.New("query is required")
	ErrUpstream      = errors.New("suggestions upstream unavailable")
)

const pageSize = 10

// Client talks to a RAWG-compatible games API. Requests are rate
// limited so a burst of keystrokes cannot exhaust the upstream quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(cfg config.SuggestionsConfig, logger *slog.Logger) *Client {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:     logger,
	}
}

type searchResponse struct {
	Results []struct {
		Name            string `json:"name"`
		BackgroundImage string `json:"background_image"`
	} `json:"results"`
}

// Search returns up to ten candidates matching query.
func (c *Client) Search(ctx context.Context, query string) ([]Suggestion, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("page_size", fmt.Sprintf("%d", pageSize))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/games?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("suggestions request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("suggestions upstream returned error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}

	out := make([]Suggestion, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		out = append(out, Suggestion{Title: r.Name, Image: r.BackgroundImage})
	}
	return out, nil
}
