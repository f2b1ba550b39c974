package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amishk599/leadradar/internal/model"
)

const (
	redditBaseURL   = "https://www.reddit.com"
	redditUserAgent = "leadradar/1.0 (hiring signal monitor)"
)

// redditListing is the top-level Reddit search.json response.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	CreatedUTC float64 `json:"created_utc"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
}

// RedditSource searches Reddit for posts matching a query, newest first.
type RedditSource struct {
	baseURL   string
	userAgent string
	limit     int
	client    *http.Client
}

// NewRedditSource creates a source against baseURL (empty for reddit.com).
// limit is capped at model.MaxSignalsPerFetch.
func NewRedditSource(baseURL, userAgent string, limit int, client *http.Client) *RedditSource {
	if baseURL == "" {
		baseURL = redditBaseURL
	}
	if userAgent == "" {
		userAgent = redditUserAgent
	}
	if limit <= 0 || limit > model.MaxSignalsPerFetch {
		limit = model.MaxSignalsPerFetch
	}
	return &RedditSource{
		baseURL:   baseURL,
		userAgent: userAgent,
		limit:     limit,
		client:    client,
	}
}

// FetchSignals runs a Reddit search and normalizes each post into a Signal
// whose content is "title: body".
func (s *RedditSource) FetchSignals(ctx context.Context, query string) ([]model.Signal, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("limit", strconv.Itoa(s.limit))
	reqURL := s.baseURL + "/search.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit search %q: %w", query, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("reddit search %q", query),
		}
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("reddit search %q: decode: %w", query, err)
	}

	signals := make([]model.Signal, 0, s.limit)
	for _, child := range listing.Data.Children {
		if len(signals) == s.limit {
			break
		}
		p := child.Data
		link := p.URL
		if link == "" && p.Permalink != "" {
			link = s.baseURL + p.Permalink
		}
		signals = append(signals, model.Signal{
			Content:   extractText(p.Title) + ": " + extractText(p.Selftext),
			Timestamp: p.CreatedUTC,
			SourceURL: link,
		})
	}

	return signals, nil
}
