// Package itunes queries the iTunes Search API for metadata candidates.
// Every returned candidate is untrusted; callers score and filter.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"

	"go.senan.xyz/muse/clientutil"
	"go.senan.xyz/muse/library"
)

const SourceName = "itunes"

const defaultBaseURL = "https://itunes.apple.com/search"

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

	term := song.Title
	if artist := song.Artist; artist != "" {
		term += " " + artist
	}

	urlV := url.Values{}
	urlV.Set("term", term)
	urlV.Set("media", "music")
	urlV.Set("entity", "song")
	urlV.Set("limit", "5")

	u, _ := url.Parse(c.BaseURL)
	u.RawQuery = urlV.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search itunes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("itunes returned non 2xx: %d", resp.StatusCode)
	}

	var sr struct {
		Results []struct {
			TrackName        string `json:"trackName"`
			ArtistName       string `json:"artistName"`
			CollectionName   string `json:"collectionName"`
			TrackTimeMillis  int    `json:"trackTimeMillis"`
			ArtworkURL100    string `json:"artworkUrl100"`
			ReleaseDate      string `json:"releaseDate"`
			PrimaryGenreName string `json:"primaryGenreName"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode itunes response: %w", err)
	}

	var results []library.MetadataResult
	for _, r := range sr.Results {
		results = append(results, library.MetadataResult{
			Title:      r.TrackName,
			Artist:     r.ArtistName,
			Album:      r.CollectionName,
			DurationMS: r.TrackTimeMillis,
			Year:       year(r.ReleaseDate),
			ArtworkURI: upgradeArtwork(r.ArtworkURL100),
			SourceName: SourceName,
			Trust:      library.SourceInternet,
		})
	}
	return results, nil
}

func year(date string) int {
	if date == "" {
		return 0
	}
	t, err := dateparse.ParseAny(date)
	if err != nil {
		return 0
	}
	return t.Year()
}

// upgradeArtwork swaps the 100x100 thumbnail URL for the 600x600 variant.
func upgradeArtwork(u string) string {
	return strings.Replace(u, "100x100", "600x600", 1)
}
