// Package m4a walks the MP4/M4A atom tree looking for the moov metadata
// subtree. Top level atoms are skipped by header only, so the audio payload
// (mdat) is never read, which is what keeps large files cheap to probe.
package m4a

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"

	"go.senan.xyz/muse/tags/tagcommon"
)

const (
	// ceiling on the initial moov fetch and on any corrective atom fetch
	moovCap = 8 << 20
	atomCap = 8 << 20

	maxDepth = 8

	// atom header plus the data sub-atom's type indicator and locale
	dataHeaderLen = 16
)

type Parser struct {
	Artwork tagcommon.ArtworkSink
}

func (p *Parser) Extract(ctx context.Context, r tagcommon.RangeReader) (*tagcommon.Metadata, error) {
	var off int64
	for {
		head, err := r.ReadRange(ctx, off, 8)
		if err != nil {
			return nil, err
		}
		if len(head) < 8 {
			return nil, nil
		}

		size := int64(binary.BigEndian.Uint32(head[:4]))
		typ := string(head[4:8])
		if size == 1 {
			// 64 bit size extension, unsupported: stop rather than mis-parse
			slog.Debug("m4a: 64 bit atom size, stopping", "type", typ)
			return nil, nil
		}
		if size < 8 {
			return nil, nil
		}

		if typ == "moov" {
			buf, err := r.ReadRange(ctx, off, int(min(size, moovCap)))
			if err != nil {
				return nil, err
			}
			if len(buf) < 8 {
				return nil, nil
			}

			var md tagcommon.Metadata
			p.parseChildren(ctx, r, buf[8:], off+8, &md, 0)
			if md.Empty() {
				return nil, nil
			}
			return &md, nil
		}

		off += size
	}
}

// parseChildren walks the atoms laid out in buf, whose first byte sits at
// absolute file offset abs. When an atom's declared end exceeds the buffered
// window, one bounded corrective fetch pulls the full atom from its absolute
// offset so a capped initial read never loses metadata.
func (p *Parser) parseChildren(ctx context.Context, r tagcommon.RangeReader, buf []byte, abs int64, md *tagcommon.Metadata, depth int) {
	if depth > maxDepth {
		return
	}

	pos := 0
	for pos+8 <= len(buf) {
		size := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		if size == 1 || size < 8 {
			return
		}

		if pos+size > len(buf) {
			full, err := r.ReadRange(ctx, abs+int64(pos), min(size, atomCap))
			if err != nil || len(full) < 8 {
				return
			}
			slog.Debug("m4a: atom past buffered window, refetched",
				"type", string(full[4:8]), "size", size)
			p.handleAtom(ctx, r, full, abs+int64(pos), md, depth)
			return
		}

		p.handleAtom(ctx, r, buf[pos:pos+size], abs+int64(pos), md, depth)
		pos += size
	}
}

func (p *Parser) handleAtom(ctx context.Context, r tagcommon.RangeReader, atom []byte, abs int64, md *tagcommon.Metadata, depth int) {
	typ := string(atom[4:8])
	payload := atom[8:]

	switch typ {
	case "udta", "ilst":
		p.parseChildren(ctx, r, payload, abs+8, md, depth+1)
	case "meta":
		// meta carries an extra 4 byte version/flags field
		if len(payload) > 4 {
			p.parseChildren(ctx, r, payload[4:], abs+12, md, depth+1)
		}
	case "covr":
		if md.ArtworkPath == "" && p.Artwork != nil {
			md.ArtworkPath = p.extractImage(payload)
		}
	default:
		if name, ok := itemName(typ); ok {
			text := itemText(payload)
			switch name {
			case "nam":
				setFirst(&md.Title, text)
			case "ART":
				setFirst(&md.Artist, text)
			case "alb":
				setFirst(&md.Album, text)
			case "wrt":
				setFirst(&md.Composer, text)
			}
		}
	}
}

// itemName maps "©nam" style ilst item types, tolerating a stripped or null
// leading marker byte.
func itemName(typ string) (string, bool) {
	if len(typ) != 4 {
		return "", false
	}
	switch typ[0] {
	case 0xA9, 0x00, ' ':
		return typ[1:], true
	}
	return "", false
}

// itemText pulls the text payload out of an item's nested data atom.
func itemText(payload []byte) string {
	if len(payload) <= dataHeaderLen {
		return ""
	}
	size := int(binary.BigEndian.Uint32(payload[:4]))
	if string(payload[4:8]) != "data" {
		return ""
	}
	end := min(size, len(payload))
	if end <= dataHeaderLen {
		return ""
	}
	return string(bytes.TrimRight(payload[dataHeaderLen:end], "\x00"))
}

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

func (p *Parser) extractImage(payload []byte) string {
	if len(payload) <= dataHeaderLen {
		return ""
	}
	size := int(binary.BigEndian.Uint32(payload[:4]))
	if string(payload[4:8]) != "data" {
		return ""
	}
	end := min(size, len(payload))
	if end <= dataHeaderLen {
		return ""
	}
	data := payload[dataHeaderLen:end]

	mime := "image/jpeg"
	if bytes.HasPrefix(data, pngMagic) {
		mime = "image/png"
	}
	path, err := p.Artwork.Put(data, mime)
	if err != nil {
		slog.Debug("m4a: write artwork", "err", err)
		return ""
	}
	return path
}

func setFirst(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
