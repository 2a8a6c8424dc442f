package muse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.senan.xyz/muse/artwork"
	"go.senan.xyz/muse/fingerprint"
	"go.senan.xyz/muse/library"
	"go.senan.xyz/muse/score"
	"go.senan.xyz/muse/source/overridefile"
	"go.senan.xyz/muse/tags/tagcommon"
)

const (
	attemptMeta = "#meta"
	attemptWarm = "#warm"
)

// Enrich drives the cooperative background queue to completion: first the
// metadata phase in capped batches, then the audio pre-warm phase. One song
// is processed at a time with a short delay after each so a host event loop
// stays responsive. Only one Enrich may run per manager at a time.
//
// Every per song failure is absorbed: the song is marked attempted and the
// queue moves on. A song that fails every strategy still ends enhanced, so
// the scheduler always makes forward progress and never retries within a
// session.
func (m *Manager) Enrich(ctx context.Context) (Stats, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return Stats{}, ErrEnrichRunning
	}
	defer m.busy.Store(false)

	var stats Stats

	for {
		batch := m.nextMetadataBatch()
		if len(batch) == 0 {
			break
		}

		var batchChanged bool
		for i, id := range batch {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			song, ok := m.song(id)
			if !ok {
				m.markAttempted(id, attemptMeta)
				continue
			}

			outcome, sourceName, total, changes, changed := m.enrichSong(ctx, &song)
			song.IsEnhanced = true
			m.putSong(song)
			m.markAttempted(id, attemptMeta)
			batchChanged = batchChanged || changed

			stats.Processed++
			switch outcome {
			case OutcomeMatched:
				stats.Matched++
			case OutcomeExhausted:
				stats.Exhausted++
			}
			if song.CoverURI != "" && changed {
				stats.Artwork++
			}

			m.cfg.Observer.EnrichProgress(Progress{
				Song:    song,
				Outcome: outcome,
				Source:  sourceName,
				Score:   total,
				Changes: changes,
				Done:    i + 1,
				Total:   len(batch),
			})

			if err := sleepCtx(ctx, m.cfg.YieldDelay); err != nil {
				return stats, err
			}
		}

		if batchChanged {
			m.mu.Lock()
			m.directors = library.Organize(m.songs)
			m.mu.Unlock()
			if err := m.persist(); err != nil {
				slog.Error("persist after batch", "err", err)
			}
		}
	}

	// audio pre-warm runs only once no metadata work remains. It never
	// mutates song metadata and never triggers persistence.
	for _, id := range m.nextWarmBatch() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		song, ok := m.song(id)
		m.markAttempted(id, attemptWarm)
		if !ok {
			continue
		}
		if m.cfg.Warmer != nil {
			if _, err := m.cfg.Warmer.Warm(ctx, song.URI); err != nil {
				slog.Debug("warm cache", "uri", song.URI, "err", err)
			} else {
				stats.Warmed++
			}
		}
		if err := sleepCtx(ctx, m.cfg.YieldDelay); err != nil {
			return stats, err
		}
	}

	m.cfg.Observer.EnrichComplete(stats)
	return stats, nil
}

func (m *Manager) markAttempted(id, phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempted[id+phase] = struct{}{}
}

func (m *Manager) nextMetadataBatch() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var batch []string
	for i := range m.songs {
		s := &m.songs[i]
		if _, ok := m.attempted[s.ID+attemptMeta]; ok {
			continue
		}
		if !m.needsMetadata(s) {
			continue
		}
		batch = append(batch, s.ID)
		if len(batch) >= m.cfg.BatchSize {
			break
		}
	}
	return batch
}

func (m *Manager) needsMetadata(s *library.Song) bool {
	if !s.IsEnhanced {
		return true
	}
	if s.CoverURI == "" {
		return false
	}
	// a cover that has not been validated this session may be a ghost, and
	// one outside the durable cache dir is a stale temp path
	if _, ok := m.validatedCovers[s.ID]; !ok {
		return true
	}
	return !m.cfg.Artwork.Contains(s.CoverURI)
}

func (m *Manager) nextWarmBatch() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var batch []string
	for i := range m.songs {
		s := &m.songs[i]
		if _, ok := m.attempted[s.ID+attemptWarm]; ok {
			continue
		}
		ext := strings.ToLower(filepath.Ext(s.URI))
		if !slices.Contains(m.cfg.WarmExts, ext) {
			continue
		}
		batch = append(batch, s.ID)
	}
	return batch
}

// enrichSong attempts the strategies for one song in order: cover
// revalidation, folder level manual override, embedded container metadata,
// remote candidate matching, then shared folder artwork as a last resort.
// All failures are absorbed here; the caller marks the attempt terminal
// either way.
func (m *Manager) enrichSong(ctx context.Context, s *library.Song) (Outcome, string, float64, []Change, bool) {
	var changed bool

	if s.CoverURI != "" {
		changed = m.revalidateCover(s) || changed
	}

	before := *s

	if o := m.applyOverride(s); o {
		changed = true
		return OutcomeManual, "override", 1, changesBetween(before, *s), changed
	}

	if c := m.applyEmbedded(ctx, s); c {
		changed = true
	}

	if s.HasRealTitle() && len(m.cfg.Sources) > 0 {
		if best, res, ok := m.searchSources(ctx, *s); ok {
			m.fetchLyrics(ctx, s, &best)
			best.Score = res.Total
			if library.Apply(s, best) {
				changed = true
			}
			if s.CoverURI == "" && best.ArtworkURI != "" {
				if path := m.downloadArtwork(ctx, *s, best.ArtworkURI); path != "" {
					s.CoverURI = path
					changed = true
				}
			}
			return OutcomeMatched, best.SourceName, res.Total, changesBetween(before, *s), changed
		}
	}

	if s.CoverURI == "" {
		if path := artwork.FindFolderArt(songDir(*s), m.cfg.FolderArtMaxFiles); path != "" {
			if adopted, err := m.cfg.Artwork.Adopt(path, s.URI, s.ID); err == nil {
				s.CoverURI = adopted
				return OutcomeFolderArt, "", 0, changesBetween(before, *s), true
			}
		}
	}

	if changed {
		return OutcomeEmbedded, "", 0, changesBetween(before, *s), true
	}
	return OutcomeExhausted, "", 0, nil, false
}

// revalidateCover performs the once per session ghost check, clearing covers
// whose backing file is gone and adopting ones stranded outside the durable
// cache dir.
func (m *Manager) revalidateCover(s *library.Song) bool {
	m.mu.Lock()
	_, seen := m.validatedCovers[s.ID]
	m.validatedCovers[s.ID] = struct{}{}
	m.mu.Unlock()
	if seen {
		return false
	}

	if !coverExists(s.CoverURI) {
		slog.Debug("ghost cover, clearing", "song", s.ID, "cover", s.CoverURI)
		s.CoverURI = ""
		return true
	}
	if !m.cfg.Artwork.Contains(s.CoverURI) {
		adopted, err := m.cfg.Artwork.Adopt(s.CoverURI, s.URI, s.ID)
		if err != nil {
			slog.Debug("adopt stale cover", "song", s.ID, "err", err)
			return false
		}
		s.CoverURI = adopted
		return true
	}
	return false
}

func (m *Manager) applyOverride(s *library.Song) bool {
	o, err := overridefile.Find(songDir(*s))
	if err != nil {
		slog.Debug("find override file", "song", s.ID, "err", err)
		return false
	}
	if o == nil {
		return false
	}
	return library.Apply(s, o.Result())
}

func (m *Manager) applyEmbedded(ctx context.Context, s *library.Song) bool {
	path := localPath(s.URI)
	f, err := tagcommon.OpenFile(path)
	if err != nil {
		slog.Debug("open for tag parse", "uri", s.URI, "err", err)
		return false
	}
	defer f.Close()

	kind := tagcommon.Resolve(ctx, s.URI, f)
	parser := m.parserFor(kind)
	if parser == nil {
		return false
	}

	md, err := parser.Extract(ctx, f)
	if err != nil {
		slog.Debug("extract tags", "uri", s.URI, "kind", kind, "err", err)
		return false
	}
	if md.Empty() {
		return false
	}

	var changed bool
	if s.CoverURI == "" && md.ArtworkPath != "" {
		s.CoverURI = md.ArtworkPath
		changed = true
	}
	if library.Apply(s, library.MetadataResult{
		Title:      md.Title,
		Artist:     md.Artist,
		Album:      md.Album,
		Composer:   md.Composer,
		SourceName: kind.String(),
		Score:      1,
		Trust:      library.SourceLocal,
	}) {
		changed = true
	}
	return changed
}

// searchSources queries every configured source, scores each candidate
// independently, and keeps the best total among those that individually
// clear the match threshold. A failing source contributes nothing. Results
// are cached by fingerprint for the session, so files that share normalised
// metadata share one round of queries.
func (m *Manager) searchSources(ctx context.Context, s library.Song) (library.MetadataResult, score.Result, bool) {
	key := fingerprint.Key(s.Title, s.Artist, s.DurationMS)

	m.mu.Lock()
	candidates, cached := m.searchCache[key]
	m.mu.Unlock()

	if !cached {
		for _, src := range m.cfg.Sources {
			results, err := src.Search(ctx, s)
			if err != nil {
				slog.Debug("search source", "song", s.ID, "err", err)
				continue
			}
			candidates = append(candidates, results...)
		}
		m.mu.Lock()
		m.searchCache[key] = candidates
		m.mu.Unlock()
	}

	return bestOf(s, candidates)
}

func (m *Manager) fetchLyrics(ctx context.Context, s *library.Song, best *library.MetadataResult) {
	if m.cfg.Lyrics == nil || best.Lyrics != "" {
		return
	}
	artist := best.Artist
	if artist == "" {
		artist = s.Artist
	}
	l, err := m.cfg.Lyrics.Search(ctx, artist, best.Title)
	if err != nil {
		slog.Debug("fetch lyrics", "song", s.ID, "err", err)
		return
	}
	best.Lyrics = l
}

func (m *Manager) downloadArtwork(ctx context.Context, s library.Song, remote string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote, nil)
	if err != nil {
		return ""
	}
	resp, err := m.cfg.ArtworkClient.Do(req)
	if err != nil {
		slog.Debug("download artwork", "song", s.ID, "err", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return ""
	}
	path, err := m.cfg.Artwork.PutForSong(s.URI, s.ID, data, artwork.Sniff(data))
	if err != nil {
		slog.Debug("cache artwork", "song", s.ID, "err", err)
		return ""
	}
	return path
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
