// Package id3 parses ID3v2 tags (versions 2.2 through 2.4) out of MP3 files
// using bounded byte range reads.
package id3

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"go.senan.xyz/muse/tags/tagcommon"
)

const (
	// the header probe, the "ID3" magic must appear in the first 128 bytes
	probeSize = 4 << 10
	magicScan = 128
	// ceiling on how much of a declared tag is ever buffered
	tagCap = 4 << 20
)

const (
	encLatin1 = 0
	encUTF16  = 1 // with BOM
	encUTF16B = 2 // big endian, no BOM
	encUTF8   = 3
)

var (
	utf16BOM = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	utf16BE  = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

type Parser struct {
	Artwork tagcommon.ArtworkSink
}

func (p *Parser) Extract(ctx context.Context, r tagcommon.RangeReader) (*tagcommon.Metadata, error) {
	probe, err := r.ReadRange(ctx, 0, probeSize)
	if err != nil {
		return nil, err
	}
	base := bytes.Index(probe[:min(len(probe), magicScan)], []byte("ID3"))
	if base < 0 || len(probe) < base+10 {
		return nil, nil
	}

	header := probe[base:]
	version := int(header[3])
	tagSize := syncsafe(header[6:10])
	if tagSize <= 0 {
		return nil, nil
	}

	buf, err := r.ReadRange(ctx, int64(base+10), min(tagSize, tagCap))
	if err != nil {
		return nil, err
	}

	var md tagcommon.Metadata
	p.walkFrames(buf, version, &md)
	if md.Empty() {
		return nil, nil
	}
	return &md, nil
}

func (p *Parser) walkFrames(buf []byte, version int, md *tagcommon.Metadata) {
	idLen, headerLen := 4, 10
	if version == 2 {
		idLen, headerLen = 3, 6
	}

	pos := 0
	for pos+headerLen <= len(buf) {
		id := string(buf[pos : pos+idLen])
		if id[0] == 0 {
			break // padding region
		}

		var size int
		switch version {
		case 2:
			size = int(buf[pos+3])<<16 | int(buf[pos+4])<<8 | int(buf[pos+5])
		case 4:
			size = syncsafe(buf[pos+4 : pos+8])
		default:
			size = int(buf[pos+4])<<24 | int(buf[pos+5])<<16 | int(buf[pos+6])<<8 | int(buf[pos+7])
		}
		if size < 0 || pos+headerLen+size > len(buf) {
			break
		}
		payload := buf[pos+headerLen : pos+headerLen+size]

		switch id {
		case "TIT2", "TT2":
			setFirst(&md.Title, decodeText(payload))
		case "TPE1", "TP1":
			setFirst(&md.Artist, decodeText(payload))
		case "TALB", "TAL":
			setFirst(&md.Album, decodeText(payload))
		case "TCOM", "TCM":
			setFirst(&md.Composer, decodeText(payload))
		case "APIC", "PIC":
			if md.ArtworkPath == "" && p.Artwork != nil {
				md.ArtworkPath = p.extractImage(payload, version)
			}
		}

		pos += headerLen + size
	}
}

// extractImage walks the APIC/PIC structure: encoding byte, MIME, picture
// type, description, then image bytes. Description termination is frequently
// malformed in the wild, so the computed image offset is cross checked
// against a scan for JPEG/PNG magic before being trusted.
func (p *Parser) extractImage(payload []byte, version int) string {
	if len(payload) < 4 {
		return ""
	}
	enc := payload[0]
	pos := 1

	var mime string
	if version == 2 {
		// v2.2 uses a fixed 3 byte image format instead of a MIME string
		if len(payload) < pos+3 {
			return ""
		}
		mime = "image/" + strings.ToLower(string(payload[pos:pos+3]))
		pos += 3
	} else {
		end := bytes.IndexByte(payload[pos:], 0)
		if end < 0 {
			return ""
		}
		mime = string(payload[pos : pos+end])
		pos += end + 1
	}

	pos++ // picture type

	// null terminated description, two byte wide for UTF-16 encodings
	if enc == encUTF16 || enc == encUTF16B {
		for pos+1 < len(payload) {
			if payload[pos] == 0 && payload[pos+1] == 0 {
				pos += 2
				break
			}
			pos += 2
		}
	} else {
		end := bytes.IndexByte(payload[pos:], 0)
		if end < 0 {
			return ""
		}
		pos += end + 1
	}

	if scanned := scanImageMagic(payload); scanned >= 0 && scanned != pos {
		slog.Debug("id3: artwork offset adjusted", "computed", pos, "scanned", scanned)
		pos = scanned
	}
	if pos >= len(payload) {
		return ""
	}

	data := payload[pos:]
	if m := sniffImageMIME(data); m != "" {
		mime = m
	}
	path, err := p.Artwork.Put(data, mime)
	if err != nil {
		slog.Debug("id3: write artwork", "err", err)
		return ""
	}
	return path
}

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

func scanImageMagic(payload []byte) int {
	jpg := bytes.Index(payload, jpegMagic)
	png := bytes.Index(payload, pngMagic)
	switch {
	case jpg < 0:
		return png
	case png < 0:
		return jpg
	}
	return min(jpg, png)
}

func sniffImageMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "image/png"
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg"
	}
	return ""
}

func decodeText(payload []byte) string {
	if len(payload) < 2 {
		return ""
	}
	enc, data := payload[0], payload[1:]

	var text string
	switch enc {
	case encUTF16:
		out, err := utf16BOM.NewDecoder().Bytes(data)
		if err != nil {
			return ""
		}
		text = string(out)
	case encUTF16B:
		out, err := utf16BE.NewDecoder().Bytes(data)
		if err != nil {
			return ""
		}
		text = string(out)
	default:
		// latin-1 decodes byte per rune, utf-8 passes through
		if enc == encLatin1 && !isASCII(data) {
			runes := make([]rune, 0, len(data))
			for _, b := range data {
				runes = append(runes, rune(b))
			}
			text = string(runes)
		} else {
			text = string(data)
		}
	}

	text = strings.Trim(text, "\x00")
	return strings.TrimSpace(text)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

func setFirst(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// syncsafe decodes a 28 bit big endian integer stored in the low 7 bits of
// each of 4 bytes.
func syncsafe(b []byte) int {
	if len(b) < 4 {
		return -1
	}
	return int(b[0]&0x7F)<<21 | int(b[1]&0x7F)<<14 | int(b[2]&0x7F)<<7 | int(b[3]&0x7F)
}
