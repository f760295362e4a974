package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"extrad/internal/services"
)

// MediaType selects the TMDB endpoint family for an item.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Video describes one supplementary video attached to a movie or show.
type Video struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Site        string `json:"site"`
	Size        int    `json:"size"`
	Type        string `json:"type"`
	Official    bool   `json:"official"`
	PublishedAt string `json:"published_at"`
	ISO639      string `json:"iso_639_1"`
	ISO3166     string `json:"iso_3166_1"`
}

// VideosResponse models the TMDB videos payload.
type VideosResponse struct {
	ID      int64   `json:"id"`
	Results []Video `json:"results"`
}

// VideosAPI defines the TMDB operations the candidate resolver uses.
type VideosAPI interface {
	Videos(ctx context.Context, mediaType MediaType, externalID int64, language string) (*VideosResponse, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ VideosAPI = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new", "base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Videos fetches the supplementary videos for an item. An empty language
// queries across all locales.
func (c *Client) Videos(ctx context.Context, mediaType MediaType, externalID int64, language string) (*VideosResponse, error) {
	if mediaType != MediaTypeMovie && mediaType != MediaTypeTV {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
	if externalID <= 0 {
		return nil, errors.New("external id must be positive")
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/%s/%d/videos", c.baseURL, mediaType, externalID))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if language = strings.TrimSpace(language); language != "" {
		params.Set("language", language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tmdb", "videos",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "tmdb", "videos",
			fmt.Sprintf("%s %d has no videos resource", mediaType, externalID), nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "videos", "api key rejected", nil)
	default:
		return nil, services.Wrap(services.ErrTransient, "tmdb", "videos",
			fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload VideosResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	return &payload, nil
}
