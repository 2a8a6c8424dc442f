package id3

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/muse/tags/tagcommon"
)

type sinkFake struct {
	data []byte
	mime string
}

func (s *sinkFake) Put(data []byte, mime string) (string, error) {
	s.data = append([]byte(nil), data...)
	s.mime = mime
	return "/cache/art.bin", nil
}

func syncsafeBytes(n int) []byte {
	return []byte{byte(n>>21) & 0x7F, byte(n>>14) & 0x7F, byte(n>>7) & 0x7F, byte(n) & 0x7F}
}

func tagV(version byte, frames ...[]byte) []byte {
	var body []byte
	for _, f := range frames {
		body = append(body, f...)
	}
	b := []byte("ID3")
	b = append(b, version, 0, 0)
	b = append(b, syncsafeBytes(len(body))...)
	return append(b, body...)
}

func frameV3(id string, payload []byte) []byte {
	b := []byte(id)
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	b = append(b, 0, 0)
	return append(b, payload...)
}

func frameV4(id string, payload []byte) []byte {
	b := []byte(id)
	b = append(b, syncsafeBytes(len(payload))...)
	b = append(b, 0, 0)
	return append(b, payload...)
}

func frameV2(id string, payload []byte) []byte {
	b := []byte(id)
	b = append(b, byte(len(payload)>>16), byte(len(payload)>>8), byte(len(payload)))
	return append(b, payload...)
}

func latin1(text string) []byte {
	return append([]byte{0}, text...)
}

func utf16le(text string) []byte {
	b := []byte{1, 0xFF, 0xFE}
	for _, r := range text {
		b = append(b, byte(r), byte(r>>8))
	}
	return b
}

func TestExtractV3(t *testing.T) {
	buf := tagV(3,
		frameV3("TIT2", latin1("Karma Police")),
		frameV3("TPE1", utf16le("Björk")),
		frameV3("TALB", append([]byte{3}, "OK Computer"...)),
		frameV3("TCOM", []byte{0, 'B', 'e', 'y', 'o', 'n', 'c', 0xE9}),
	)

	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(buf))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "Karma Police", md.Title)
	assert.Equal(t, "Björk", md.Artist)
	assert.Equal(t, "OK Computer", md.Album)
	assert.Equal(t, "Beyoncé", md.Composer)
}

func TestExtractV4SyncsafeFrameSize(t *testing.T) {
	// a payload over 127 bytes decodes differently under syncsafe sizes
	long := strings.Repeat("a", 150)
	buf := tagV(4, frameV4("TIT2", latin1(long)))

	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(buf))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, long, md.Title)
}

func TestExtractV2(t *testing.T) {
	buf := tagV(2,
		frameV2("TT2", latin1("Creep")),
		frameV2("TP1", latin1("Radiohead")),
	)

	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(buf))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "Creep", md.Title)
	assert.Equal(t, "Radiohead", md.Artist)
}

func TestExtractLeadingJunk(t *testing.T) {
	// the magic may sit anywhere in the first 128 bytes
	buf := append(make([]byte, 40), tagV(3, frameV3("TIT2", latin1("Airbag")))...)

	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(buf))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "Airbag", md.Title)
}

func TestExtractNotID3(t *testing.T) {
	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer([]byte("definitely not an mp3 file")))
	require.NoError(t, err)
	assert.Nil(t, md)
}

func TestExtractPaddingStopsWalk(t *testing.T) {
	frames := frameV3("TIT2", latin1("No Surprises"))
	frames = append(frames, make([]byte, 64)...) // padding after the last frame

	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(tagV(3, frames)))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "No Surprises", md.Title)
}

func TestExtractArtworkOffsetCorrection(t *testing.T) {
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "imagedata"...)

	// a stray null between the description terminator and the image bytes,
	// as written by some broken taggers
	apic := []byte{0}
	apic = append(apic, "image/jpeg\x00"...) // wrong MIME on purpose
	apic = append(apic, 3)                   // picture type: front cover
	apic = append(apic, "cover\x00"...)
	apic = append(apic, 0) // stray byte the magic scan must skip
	apic = append(apic, png...)

	var sink sinkFake
	p := &Parser{Artwork: &sink}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(tagV(3,
		frameV3("TIT2", latin1("Lucky")),
		frameV3("APIC", apic),
	)))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "/cache/art.bin", md.ArtworkPath)
	assert.Equal(t, png, sink.data)
	assert.Equal(t, "image/png", sink.mime, "sniffed magic beats the declared MIME")
}

func TestExtractNoSinkSkipsArtwork(t *testing.T) {
	apic := append([]byte{0}, "image/png\x00"...)
	apic = append(apic, 3)
	apic = append(apic, 0) // empty description
	apic = append(apic, 0x89, 0x50, 0x4E, 0x47)

	p := &Parser{}
	md, err := p.Extract(context.Background(), tagcommon.Buffer(tagV(3,
		frameV3("TIT2", latin1("Lucky")),
		frameV3("APIC", apic),
	)))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Empty(t, md.ArtworkPath)
}
