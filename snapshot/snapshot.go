// Package snapshot persists the whole library as one flat JSON file. Every
// save rewrites the file through a rename, trading write efficiency for
// crash consistency: a failed write leaves the previous snapshot intact.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.senan.xyz/muse/library"
)

type File struct {
	Path string
}

// Load reads the snapshot. An absent file is a valid empty library, not an
// error.
func (f *File) Load() (library.Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return library.Snapshot{}, nil
	}
	if err != nil {
		return library.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap library.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return library.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (f *File) Save(snap library.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
