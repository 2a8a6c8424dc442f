package overridefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/muse/library"
)

func TestFind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "muse.yaml"), []byte(
		"title: Chinna Chinna Aasai\nartist: Minmini\nalbum: Roja\ncomposer: A R Rahman\nyear: 1992\n",
	), 0o644))

	o, err := Find(dir)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "Chinna Chinna Aasai", o.Title)
	assert.Equal(t, 1992, o.Year)

	res := o.Result()
	assert.Equal(t, library.SourceManual, res.Trust)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "override", res.SourceName)
	assert.Equal(t, "Minmini", res.Artist)
}

func TestFindYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "muse.yml"), []byte("title: X\n"), 0o644))

	o, err := Find(dir)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "X", o.Title)
}

func TestFindAbsent(t *testing.T) {
	o, err := Find(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestParseBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "muse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: [unclosed"), 0o644))

	_, err := Parse(path)
	assert.Error(t, err)
}
