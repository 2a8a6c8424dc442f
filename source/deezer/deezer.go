// Package deezer queries the Deezer search API for metadata candidates.
package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.senan.xyz/muse/clientutil"
	"go.senan.xyz/muse/library"
)

const SourceName = "deezer"

const defaultBaseURL = "https://api.deezer.com/search"

type Client struct {
	BaseURL   string
	RateLimit time.Duration
	UserAgent string

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *Client) init() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
		clientutil.WithCache(),
		clientutil.WithUserAgent(c.UserAgent),
		clientutil.WithRateLimit(c.RateLimit),
	))
}

func (c *Client) Search(ctx context.Context, song library.Song) ([]library.MetadataResult, error) {
	c.initOnce.Do(c.init)

	query := fmt.Sprintf("track:%q", song.Title)
	if song.Artist != "" {
		query += fmt.Sprintf(" artist:%q", song.Artist)
	}

	urlV := url.Values{}
	urlV.Set("q", query)
	urlV.Set("limit", "5")

	u, _ := url.Parse(c.BaseURL)
	u.RawQuery = urlV.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search deezer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("deezer returned non 2xx: %d", resp.StatusCode)
	}

	var sr struct {
		Data []struct {
			Title    string `json:"title"`
			Duration int    `json:"duration"` // seconds
			Artist   struct {
				Name string `json:"name"`
			} `json:"artist"`
			Album struct {
				Title    string `json:"title"`
				CoverBig string `json:"cover_big"`
			} `json:"album"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode deezer response: %w", err)
	}

	var results []library.MetadataResult
	for _, r := range sr.Data {
		results = append(results, library.MetadataResult{
			Title:      r.Title,
			Artist:     r.Artist.Name,
			Album:      r.Album.Title,
			DurationMS: r.Duration * 1000,
			ArtworkURI: r.Album.CoverBig,
			SourceName: SourceName,
			Trust:      library.SourceInternet,
		})
	}
	return results, nil
}
