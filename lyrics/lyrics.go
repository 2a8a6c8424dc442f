// Package lyrics fetches song lyrics from remote providers. Providers are
// best effort: a miss is ErrLyricsNotFound, and combinators race providers
// and keep whichever answers first.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"go.senan.xyz/muse/clientutil"
)

var ErrLyricsNotFound = errors.New("lyrics not found")

type Source interface {
	Search(ctx context.Context, artist, song string) (string, error)
}

// FastestSource queries all sources concurrently and returns the first non
// empty result.
type FastestSource []Source

func (fsrc FastestSource) Search(ctx context.Context, artist, song string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lyricData := make(chan string)
	for _, src := range fsrc {
		go func() {
			ld, _ := src.Search(ctx, artist, song)
			select {
			case lyricData <- ld:
			case <-ctx.Done():
			}
		}()
	}

	for range fsrc {
		select {
		case ld := <-lyricData:
			if ld != "" {
				return ld, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", ErrLyricsNotFound
}

var lrclibBaseURL = `https://lrclib.net/api/get`

// LRCLib queries the lrclib.net JSON API.
type LRCLib struct {
	BaseURL   string
	RateLimit time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (l *LRCLib) Search(ctx context.Context, artist, song string) (string, error) {
	l.initOnce.Do(func() {
		if l.BaseURL == "" {
			l.BaseURL = lrclibBaseURL
		}
		if l.HTTPClient == nil {
			l.HTTPClient = &http.Client{Timeout: 10 * time.Second}
		}
		l.HTTPClient = clientutil.Wrap(l.HTTPClient, clientutil.Chain(
			clientutil.WithRateLimit(l.RateLimit),
		))
	})

	urlV := url.Values{}
	urlV.Set("artist_name", artist)
	urlV.Set("track_name", song)

	u, _ := url.Parse(l.BaseURL)
	u.RawQuery = urlV.Encode()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("req lyrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrLyricsNotFound
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("lrclib returned non 2xx: %d", resp.StatusCode)
	}

	var result struct {
		Instrumental bool   `json:"instrumental"`
		PlainLyrics  string `json:"plainLyrics"`
		SyncedLyrics string `json:"syncedLyrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode lyrics: %w", err)
	}

	if result.Instrumental {
		return "", ErrLyricsNotFound
	}
	if result.PlainLyrics != "" {
		return result.PlainLyrics, nil
	}
	if result.SyncedLyrics != "" {
		return result.SyncedLyrics, nil
	}
	return "", ErrLyricsNotFound
}

var geniusBaseURL = `https://genius.com`
var geniusSelectContent = cascadia.MustCompile(`div[class^="Lyrics__Container-"]`)
var geniusEsc = strings.NewReplacer(
	" ", "-",
	"(", "",
	")", "",
	"[", "",
	"]", "",
)

// Genius scrapes lyrics from genius.com pages.
type Genius struct {
	BaseURL   string
	RateLimit time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (g *Genius) Search(ctx context.Context, artist, song string) (string, error) {
	g.initOnce.Do(func() {
		if g.BaseURL == "" {
			g.BaseURL = geniusBaseURL
		}
		if g.HTTPClient == nil {
			g.HTTPClient = &http.Client{Timeout: 10 * time.Second}
		}
		g.HTTPClient = clientutil.Wrap(g.HTTPClient, clientutil.Chain(
			clientutil.WithRateLimit(g.RateLimit),
		))
	})

	// use genius case rules to minimise redirects
	page := fmt.Sprintf("%s-%s-lyrics", artist, song)
	page = strings.ToUpper(string(page[0])) + strings.ToLower(page[1:])

	u, _ := url.Parse(g.BaseURL)
	u = u.JoinPath(geniusEsc.Replace(page))

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("req page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", ErrLyricsNotFound
	}

	node, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var out strings.Builder
	iterText(cascadia.Query(node, geniusSelectContent), func(s string) {
		out.WriteString(s + "\n")
	})
	if out.Len() == 0 {
		return "", ErrLyricsNotFound
	}
	return out.String(), nil
}

func iterText(n *html.Node, f func(string)) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		f(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		iterText(c, f)
	}
}
