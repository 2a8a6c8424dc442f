// Package artwork owns the on disk image cache. Only file paths ever travel
// through the rest of the system; image bytes are written here once and
// never held in memory past extraction.
package artwork

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Cache struct {
	Dir string
}

func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artwork cache dir: %w", err)
	}
	return &Cache{Dir: dir}, nil
}

// Put writes parser extracted image bytes under a timestamp+random name and
// returns the file path.
func (c *Cache) Put(data []byte, mime string) (string, error) {
	name := fmt.Sprintf("art-%d-%04d%s", time.Now().UnixNano(), rand.Intn(10000), ExtForMIME(mime))
	path := filepath.Join(c.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return path, nil
}

// PutForSong writes image bytes under a name derived from the song's URI and
// id, so repeated enrichment of the same song overwrites rather than leaks.
func (c *Cache) PutForSong(uri, id string, data []byte, mime string) (string, error) {
	sum := sha1.Sum(fmt.Appendf(nil, "%s|%s", uri, id))
	name := hex.EncodeToString(sum[:])[:20] + ExtForMIME(mime)
	path := filepath.Join(c.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return path, nil
}

// Adopt copies an image from a temporary location into durable cache storage
// under the song's deterministic name.
func (c *Cache) Adopt(tmpPath, uri, id string) (string, error) {
	data, err := os.ReadFile(strings.TrimPrefix(tmpPath, "file://"))
	if err != nil {
		return "", fmt.Errorf("read temp artwork: %w", err)
	}
	return c.PutForSong(uri, id, data, Sniff(data))
}

// Contains reports whether path already lives inside the durable cache dir.
func (c *Cache) Contains(path string) bool {
	path = strings.TrimPrefix(path, "file://")
	rel, err := filepath.Rel(c.Dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8}
)

// Sniff guesses an image MIME from magic bytes, defaulting to JPEG.
func Sniff(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return "image/png"
	}
	if bytes.HasPrefix(data, jpegMagic) {
		return "image/jpeg"
	}
	return "image/jpeg"
}

func ExtForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
