// Package search queries Google Custom Search and formats results for chat.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/edgard/groupmate/internal/config"
	apperrors "github.com/edgard/groupmate/internal/errors"
	"github.com/edgard/groupmate/internal/resilience"
)

// DefaultResults is how many results Search asks for when num is not
// positive.
const DefaultResults = 5

// ErrNotConfigured is returned when the API key or engine id is missing.
var ErrNotConfigured = errors.New("search is not configured")

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]Result, error)
}

// Client is a Google Custom Search JSON API client.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	cx       string
	guard    *resilience.Guard
	log      *slog.Logger
}

// New creates a Client. Search calls fail with ErrNotConfigured when cfg
// has no credentials.
func New(cfg config.SearchConfig, logger *slog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		cx:       cfg.CX,
		guard:    resilience.NewGuard(resilience.Config{Name: "search", MaxFailures: 5, Logger: logger}),
		log:      logger.With("component", "search"),
	}
}

type response struct {
	Items []Result `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns up to num results for query.
func (c *Client) Search(ctx context.Context, query string, num int) ([]Result, error) {
	if c.apiKey == "" || c.cx == "" {
		return nil, ErrNotConfigured
	}
	if num <= 0 {
		num = DefaultResults
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	var results []Result
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return apperrors.NewAPIError("search request failed", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return apperrors.NewAPIError("failed to read search response", err)
		}

		var parsed response
		if err := json.Unmarshal(body, &parsed); err != nil {
			return apperrors.NewAPIError(fmt.Sprintf("invalid search response (status %d)", resp.StatusCode), err)
		}
		if resp.StatusCode != http.StatusOK {
			msg := http.StatusText(resp.StatusCode)
			if parsed.Error != nil && parsed.Error.Message != "" {
				msg = parsed.Error.Message
			}
			return apperrors.NewAPIError(fmt.Sprintf("search returned %d: %s", resp.StatusCode, msg), nil)
		}
		results = parsed.Items
		return nil
	})
	if err != nil {
		c.log.WarnContext(ctx, "Search failed", "query", query, "error", err)
		return nil, err
	}

	if len(results) > num {
		results = results[:num]
	}
	c.log.DebugContext(ctx, "Search completed", "query", query, "results", len(results))
	return results, nil
}

// Formatting.
const (
	ResultsHeader = "以下是我找到的信息：\n\n"
	NoResults     = "抱歉，我找不到相关信息。"
	maxFormatted  = 3
)

var domainRe = regexp.MustCompile(`//([^/]+)`)

// Domain returns the host part of link, or link itself when it has none.
func Domain(link string) string {
	if m := domainRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return link
}

// Format renders the first three results as a chat message.
func Format(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}
	var b strings.Builder
	b.WriteString(ResultsHeader)
	for i, r := range results {
		if i == maxFormatted {
			break
		}
		title, snippet, link := r.Title, strings.ReplaceAll(r.Snippet, "\n", " "), r.Link
		if title == "" {
			title = "No Title"
		}
		if snippet == "" {
			snippet = "No Description"
		}
		if link == "" {
			link = "#"
		}
		fmt.Fprintf(&b, "%d. **%s**\n%s\n来源: %s\n\n", i+1, title, snippet, Domain(link))
	}
	return b.String()
}
