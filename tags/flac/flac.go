// Package flac reads FLAC metadata blocks from a single bounded prefix of
// the file. Well formed files keep their metadata early, so unlike the m4a
// walker no corrective fetch is attempted: a block past the window is logged
// as truncation and parsing stops there.
package flac

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"strings"

	"go.senan.xyz/muse/tags/tagcommon"
)

const prefixCap = 2 << 20

const (
	blockVorbisComment = 4
	blockPicture       = 6
)

type Parser struct {
	Artwork tagcommon.ArtworkSink
}

func (p *Parser) Extract(ctx context.Context, r tagcommon.RangeReader) (*tagcommon.Metadata, error) {
	buf, err := r.ReadRange(ctx, 0, prefixCap)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(buf, []byte("fLaC")) {
		return nil, nil
	}

	var md tagcommon.Metadata

	pos := 4
	for pos+4 <= len(buf) {
		last := buf[pos]&0x80 != 0
		blockType := int(buf[pos] & 0x7F)
		length := int(buf[pos+1])<<16 | int(buf[pos+2])<<8 | int(buf[pos+3])
		pos += 4

		if pos+length > len(buf) {
			slog.Debug("flac: block past buffered window, stopping",
				"type", blockType, "length", length)
			break
		}
		block := buf[pos : pos+length]

		switch blockType {
		case blockVorbisComment:
			parseVorbisComment(block, &md)
		case blockPicture:
			if md.ArtworkPath == "" && p.Artwork != nil {
				md.ArtworkPath = p.extractPicture(block)
			}
		}

		pos += length
		if last {
			break
		}
	}

	if md.Empty() {
		return nil, nil
	}
	return &md, nil
}

// parseVorbisComment walks the little endian length prefixed KEY=VALUE list.
func parseVorbisComment(block []byte, md *tagcommon.Metadata) {
	pos := 0
	read32 := func() (int, bool) {
		if pos+4 > len(block) {
			return 0, false
		}
		v := int(binary.LittleEndian.Uint32(block[pos : pos+4]))
		pos += 4
		return v, true
	}

	vendorLen, ok := read32()
	if !ok || pos+vendorLen > len(block) {
		return
	}
	pos += vendorLen

	count, ok := read32()
	if !ok {
		return
	}

	for i := 0; i < count; i++ {
		commentLen, ok := read32()
		if !ok || pos+commentLen > len(block) {
			return
		}
		comment := string(block[pos : pos+commentLen])
		pos += commentLen

		key, value, found := strings.Cut(comment, "=")
		if !found || value == "" {
			continue
		}
		switch strings.ToUpper(key) {
		case "TITLE":
			setFirst(&md.Title, value)
		case "ARTIST":
			setFirst(&md.Artist, value)
		case "ALBUM":
			setFirst(&md.Album, value)
		}
	}
}

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

// extractPicture reads the big endian PICTURE block layout: picture type,
// MIME, description, dimensions, then the image bytes.
func (p *Parser) extractPicture(block []byte) string {
	pos := 4 // picture type, ignored

	read32 := func() (int, bool) {
		if pos+4 > len(block) {
			return 0, false
		}
		v := int(binary.BigEndian.Uint32(block[pos : pos+4]))
		pos += 4
		return v, true
	}

	mimeLen, ok := read32()
	if !ok || pos+mimeLen > len(block) {
		return ""
	}
	mime := string(block[pos : pos+mimeLen])
	pos += mimeLen

	descLen, ok := read32()
	if !ok || pos+descLen > len(block) {
		return ""
	}
	pos += descLen

	pos += 16 // width, height, depth, colour count

	dataLen, ok := read32()
	if !ok || pos+dataLen > len(block) {
		return ""
	}
	data := block[pos : pos+dataLen]

	if mime == "" {
		mime = "image/jpeg"
		if bytes.HasPrefix(data, pngMagic) {
			mime = "image/png"
		}
	}
	path, err := p.Artwork.Put(data, mime)
	if err != nil {
		slog.Debug("flac: write artwork", "err", err)
		return ""
	}
	return path
}

func setFirst(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
