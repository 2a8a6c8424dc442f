// Package tagcommon defines the shared contract between the binary container
// parsers and their callers: bounded byte range reads in, partial metadata
// out, with internal failures surfacing as "nothing recovered" rather than
// errors that could halt a batch.
package tagcommon

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Metadata is the partial result of one container parse. Empty fields were
// not present or not recoverable.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Composer string
	// ArtworkPath is a local file path to the extracted embedded image,
	// written through an ArtworkSink. Never inline bytes.
	ArtworkPath string
}

func (m *Metadata) Empty() bool {
	return m == nil || *m == Metadata{}
}

// RangeReader is the only I/O surface a parser sees. Reads are bounded and
// explicit so a parser can never buffer a whole file by accident. A read past
// EOF returns the available prefix.
type RangeReader interface {
	ReadRange(ctx context.Context, off int64, length int) ([]byte, error)
}

// ArtworkSink persists an extracted image and returns its local path.
type ArtworkSink interface {
	Put(data []byte, mime string) (string, error)
}

// Parser extracts metadata from one container format. Implementations return
// (nil, nil) when the container is unrecognised or malformed; only genuine
// I/O failures produce an error. They never panic past their boundary.
type Parser interface {
	Extract(ctx context.Context, r RangeReader) (*Metadata, error)
}

// File is an os backed RangeReader.
type File struct {
	f    *os.File
	size int64
}

func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, size: info.Size()}, nil
}

func (f *File) ReadRange(ctx context.Context, off int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off >= f.size {
		return nil, nil
	}
	if rem := f.size - off; int64(length) > rem {
		length = int(rem)
	}
	buf := make([]byte, length)
	n, err := f.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (f *File) Close() error {
	return f.f.Close()
}

// Buffer is an in memory RangeReader, used by tests and by parsers issuing
// corrective fetches against an already buffered window.
type Buffer []byte

func (b Buffer) ReadRange(_ context.Context, off int64, length int) ([]byte, error) {
	if off >= int64(len(b)) {
		return nil, nil
	}
	end := off + int64(length)
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	return b[off:end], nil
}

// Kind is the closed set of supported container formats. The format set is
// fixed and small, so dispatch is a tagged value rather than a registry.
type Kind int

const (
	KindUnknown Kind = iota
	KindID3
	KindM4A
	KindFLAC
)

func (k Kind) String() string {
	switch k {
	case KindID3:
		return "id3"
	case KindM4A:
		return "m4a"
	case KindFLAC:
		return "flac"
	}
	return "unknown"
}

var extKinds = map[string]Kind{
	".mp3":  KindID3,
	".m4a":  KindM4A,
	".mp4":  KindM4A,
	".m4b":  KindM4A,
	".aac":  KindM4A,
	".flac": KindFLAC,
}

// Resolve picks the parser kind for a URI, trying the extension first and
// falling back to magic byte sniffing.
func Resolve(ctx context.Context, uri string, r RangeReader) Kind {
	ext := strings.ToLower(filepath.Ext(uri))
	if kind, ok := extKinds[ext]; ok {
		return kind
	}
	if r == nil {
		return KindUnknown
	}
	return Sniff(ctx, r)
}

// Sniff inspects the first few bytes of the file for a known magic.
func Sniff(ctx context.Context, r RangeReader) Kind {
	head, err := r.ReadRange(ctx, 0, 12)
	if err != nil || len(head) < 4 {
		return KindUnknown
	}
	switch {
	case bytes.HasPrefix(head, []byte("ID3")):
		return KindID3
	case bytes.HasPrefix(head, []byte("fLaC")):
		return KindFLAC
	case len(head) >= 8 && string(head[4:8]) == "ftyp":
		return KindM4A
	}
	return KindUnknown
}
