// Package scan enumerates audio files on the device and produces raw,
// unenhanced song records with best effort composer/album guesses derived
// from the file's parent and grandparent path segments.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.senan.xyz/muse/fileutil"
	"go.senan.xyz/muse/library"
	"go.senan.xyz/muse/norm"
)

var audioExts = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".mp4":  {},
	".m4b":  {},
	".aac":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
	".wav":  {},
}

// generic path segments that carry no artist/album information
var genericSegments = map[string]struct{}{
	"download":  {},
	"downloads": {},
	"music":     {},
	"audio":     {},
	"media":     {},
	"sdcard":    {},
	"storage":   {},
	"emulated":  {},
	"0":         {},
}

// FS scans directory roots on the local filesystem.
type FS struct {
	Roots []string
}

func (s *FS) ScanDevice(ctx context.Context) ([]library.Song, error) {
	var mu sync.Mutex
	var songs []library.Song

	var group errgroup.Group
	for _, root := range s.Roots {
		root, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		group.Go(func() error {
			return fileutil.WalkFiles(root, func(path string, d fs.DirEntry) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, ok := audioExts[strings.ToLower(filepath.Ext(path))]; !ok {
					return nil
				}
				info, err := d.Info()
				if err != nil {
					return nil // went away mid walk
				}

				mu.Lock()
				songs = append(songs, newSong(path, info.Size(), info.ModTime().UnixMilli()))
				mu.Unlock()
				return nil
			})
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("scan device: %w", err)
	}

	slices.SortFunc(songs, func(a, b library.Song) int {
		return strings.Compare(a.URI, b.URI)
	})
	return songs, nil
}

func newSong(path string, size, modTime int64) library.Song {
	uri := "file://" + path
	filename := filepath.Base(path)

	parent := filepath.Base(filepath.Dir(path))
	grandparent := filepath.Base(filepath.Dir(filepath.Dir(path)))

	return library.Song{
		ID:               library.NewID(uri, path),
		Title:            norm.CleanFilename(filename),
		Artist:           "",
		Composer:         pathGuess(grandparent),
		Album:            pathGuess(parent),
		URI:              uri,
		Filename:         filename,
		Size:             size,
		ModificationTime: modTime,
		MetadataSource:   library.SourceLocal,
	}
}

// pathGuess turns a path segment into a grouping guess, rejecting generic
// bucket names.
func pathGuess(segment string) string {
	if segment == "" || segment == "." || segment == string(filepath.Separator) {
		return ""
	}
	if _, ok := genericSegments[strings.ToLower(segment)]; ok {
		return ""
	}
	return segment
}
