package artwork

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection(t *testing.T) {
	cases := []struct {
		name     string
		covers   []string
		expected string
	}{
		{
			name:     "empty",
			covers:   []string{},
			expected: "",
		},
		{
			name:     "plain numbering",
			covers:   []string{"cover1.jpg", "cover2.png"},
			expected: "cover1.jpg",
		},
		{
			name:     "front beats folder",
			covers:   []string{"folder.jpg", "front.jpg"},
			expected: "front.jpg",
		},
		{
			name:     "png beats jpg at equal rank",
			covers:   []string{"cover.jpg", "cover.png"},
			expected: "cover.png",
		},
		{
			name:     "back never wins over cover",
			covers:   []string{"back.png", "cover.jpg"},
			expected: "cover.jpg",
		},
		{
			name:     "albumart over scan",
			covers:   []string{"scan01.jpg", "albumart.jpg"},
			expected: "albumart.jpg",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var sel Selection
			for _, cover := range c.covers {
				sel.Update(cover)
			}
			assert.Equal(t, c.expected, string(sel))
		})
	}
}

func TestIsCover(t *testing.T) {
	assert.True(t, IsCover("cover.jpg"))
	assert.True(t, IsCover("whatever.PNG"))
	assert.False(t, IsCover("song.mp3"))
	assert.False(t, IsCover("notes.txt"))
}

func TestIsGenericFolder(t *testing.T) {
	assert.True(t, IsGenericFolder("Download"))
	assert.True(t, IsGenericFolder("music"))
	assert.True(t, IsGenericFolder("0"))
	assert.False(t, IsGenericFolder("OK Computer"))
}

func TestFindFolderArt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"01.mp3", "02.mp3", "back.jpg", "cover.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	got := FindFolderArt(dir, 20)
	assert.Equal(t, filepath.Join(dir, "cover.jpg"), got)
}

func TestFindFolderArtTooManyAudioFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("x"), 0o644))
	for i := range 5 {
		name := filepath.Join(dir, string(rune('a'+i))+".mp3")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	assert.NotEmpty(t, FindFolderArt(dir, 5))
	assert.Empty(t, FindFolderArt(dir, 4), "shared bucket folders get no album art")
}

func TestFindFolderArtGenericDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "Download")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("x"), 0o644))

	assert.Empty(t, FindFolderArt(dir, 20))
}
