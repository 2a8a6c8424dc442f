// Package muse reconciles locally scanned audio files against remote
// metadata candidates and maintains the merged, enriched library snapshot.
// The manager here exclusively owns the mutable song list and the derived
// director tree; collaborators only ever see copies or produce candidates
// that the manager alone applies.
package muse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.senan.xyz/muse/artwork"
	"go.senan.xyz/muse/library"
	"go.senan.xyz/muse/lyrics"
	"go.senan.xyz/muse/score"
	"go.senan.xyz/muse/tags/flac"
	"go.senan.xyz/muse/tags/id3"
	"go.senan.xyz/muse/tags/m4a"
	"go.senan.xyz/muse/tags/tagcommon"
)

var ErrEnrichRunning = errors.New("enrichment already running")

// Scanner enumerates the device and yields raw, unenhanced song records.
// A permission failure must surface here as an error; it is the only failure
// in the system that propagates to a caller.
type Scanner interface {
	ScanDevice(ctx context.Context) ([]library.Song, error)
}

// MetadataSource returns untrusted candidate records for a song. Sources
// that time out or error contribute zero candidates; they must not take the
// scheduler down.
type MetadataSource interface {
	Search(ctx context.Context, song library.Song) ([]library.MetadataResult, error)
}

// CacheWarmer is the playback engine's cache warming entry point. The
// manager only calls it during the audio pre-warm phase and ignores the
// result beyond success or failure.
type CacheWarmer interface {
	Warm(ctx context.Context, uri string) (string, error)
}

// Store persists whole library snapshots.
type Store interface {
	Load() (library.Snapshot, error)
	Save(library.Snapshot) error
}

// Observer receives scheduler events. Implementations must be fast; they are
// invoked synchronously between yield points.
type Observer interface {
	LibraryChanged(snap library.Snapshot)
	EnrichProgress(p Progress)
	EnrichComplete(stats Stats)
}

// Outcome says how one song's enrichment attempt ended.
type Outcome string

const (
	OutcomeManual    Outcome = "manual"
	OutcomeEmbedded  Outcome = "embedded"
	OutcomeMatched   Outcome = "matched"
	OutcomeFolderArt Outcome = "folder-art"
	OutcomeExhausted Outcome = "exhausted"
)

type Progress struct {
	Song    library.Song
	Outcome Outcome
	Source  string
	Score   float64
	Changes []Change
	Done    int
	Total   int
}

type Stats struct {
	Processed int
	Matched   int
	Artwork   int
	Exhausted int
	Warmed    int
}

type Config struct {
	Scanner Scanner
	Sources []MetadataSource
	Lyrics  lyrics.Source
	Warmer  CacheWarmer
	Store   Store
	Artwork *artwork.Cache

	Observer Observer

	// ArtworkClient downloads remote candidate artwork into the cache.
	ArtworkClient *http.Client

	// BatchSize caps how many songs one metadata pass touches.
	BatchSize int
	// YieldDelay is slept after each song so the host stays responsive.
	YieldDelay time.Duration
	// FolderArtMaxFiles is the audio file count above which a shared folder
	// cover is considered unlikely to belong to any one album.
	FolderArtMaxFiles int
	// WarmExts lists URI extensions that need playback cache warming.
	WarmExts []string
}

type Manager struct {
	cfg Config

	mu        sync.Mutex
	songs     []library.Song
	directors []library.MusicDirector

	// attempted ids, suffixed per phase, never cleared within a session
	attempted       map[string]struct{}
	validatedCovers map[string]struct{}

	// remote search results keyed by fingerprint, so duplicate files with
	// identical normalised metadata share one round of network queries
	searchCache map[string][]library.MetadataResult

	busy atomic.Bool
}

func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	if cfg.Artwork == nil {
		return nil, fmt.Errorf("no artwork cache configured")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.YieldDelay == 0 {
		cfg.YieldDelay = 30 * time.Millisecond
	}
	if cfg.FolderArtMaxFiles == 0 {
		cfg.FolderArtMaxFiles = 20
	}
	if cfg.WarmExts == nil {
		cfg.WarmExts = []string{".m4a", ".m4b", ".aac", ".opus"}
	}
	if cfg.ArtworkClient == nil {
		cfg.ArtworkClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	return &Manager{
		cfg:             cfg,
		attempted:       map[string]struct{}{},
		validatedCovers: map[string]struct{}{},
		searchCache:     map[string][]library.MetadataResult{},
	}, nil
}

// Load pulls the persisted snapshot into memory.
func (m *Manager) Load() error {
	snap, err := m.cfg.Store.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.songs = snap.Songs
	m.directors = snap.Directors
	return nil
}

// Snapshot returns a copy of the current library state.
func (m *Manager) Snapshot() library.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return library.Snapshot{
		Timestamp: time.Now().UnixMilli(),
		Songs:     append([]library.Song(nil), m.songs...),
		Directors: append([]library.MusicDirector(nil), m.directors...),
	}
}

// Refresh runs a device scan and merges the results with the current list,
// preserving every enhanced song's enriched fields. The tree is reorganised
// and the snapshot persisted before Refresh returns.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.cfg.Scanner == nil {
		return fmt.Errorf("no scanner configured")
	}

	scanned, err := m.cfg.Scanner.ScanDevice(ctx)
	if err != nil {
		return fmt.Errorf("scan device: %w", err)
	}

	m.mu.Lock()
	m.songs = library.MergeAll(m.songs, scanned)
	m.directors = library.Organize(m.songs)
	m.mu.Unlock()

	return m.persist()
}

// Run is the full cycle: refresh, then drive enrichment to completion.
func (m *Manager) Run(ctx context.Context) (Stats, error) {
	if err := m.Refresh(ctx); err != nil {
		return Stats{}, err
	}
	return m.Enrich(ctx)
}

func (m *Manager) persist() error {
	snap := m.Snapshot()
	if err := m.cfg.Store.Save(snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	m.cfg.Observer.LibraryChanged(snap)
	return nil
}

func (m *Manager) song(id string) (library.Song, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.songs {
		if m.songs[i].ID == id {
			return m.songs[i], true
		}
	}
	return library.Song{}, false
}

func (m *Manager) putSong(s library.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.songs {
		if m.songs[i].ID == s.ID {
			m.songs[i] = s
			return
		}
	}
}

func (m *Manager) parserFor(kind tagcommon.Kind) tagcommon.Parser {
	switch kind {
	case tagcommon.KindID3:
		return &id3.Parser{Artwork: m.cfg.Artwork}
	case tagcommon.KindM4A:
		return &m4a.Parser{Artwork: m.cfg.Artwork}
	case tagcommon.KindFLAC:
		return &flac.Parser{Artwork: m.cfg.Artwork}
	}
	return nil
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func coverExists(coverURI string) bool {
	_, err := os.Stat(localPath(coverURI))
	return err == nil
}

func songDir(s library.Song) string {
	return filepath.Dir(localPath(s.URI))
}

func bestOf(local library.Song, candidates []library.MetadataResult) (library.MetadataResult, score.Result, bool) {
	localTrack := score.Track{
		Title:      local.Title,
		Artist:     local.Artist,
		Album:      local.Album,
		DurationMS: local.DurationMS,
	}

	var best library.MetadataResult
	var bestRes score.Result
	var found bool
	for _, c := range candidates {
		res := score.Verify(localTrack, score.Track{
			Title:      c.Title,
			Artist:     c.Artist,
			Album:      c.Album,
			DurationMS: c.DurationMS,
		})
		if !res.IsMatch {
			continue
		}
		if !found || res.Total > bestRes.Total {
			best, bestRes, found = c, res, true
		}
	}
	return best, bestRes, found
}

type nopObserver struct{}

func (nopObserver) LibraryChanged(library.Snapshot) {}
func (nopObserver) EnrichProgress(Progress)         {}
func (nopObserver) EnrichComplete(Stats)            {}
