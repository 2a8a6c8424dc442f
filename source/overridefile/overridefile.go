// Package overridefile reads folder level muse.yaml files, letting users pin
// metadata for everything in a folder by hand. Overrides are the highest
// trust source and may overwrite enriched values.
package overridefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"go.senan.xyz/muse/fileutil"
	"go.senan.xyz/muse/library"
)

const dirPat = "muse.y*ml"

func Find(dir string) (*OverrideFile, error) {
	matches, err := fileutil.GlobDir(dir, dirPat)
	if err != nil {
		return nil, fmt.Errorf("glob for override file: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	res, err := Parse(matches[0])
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return res, nil
}

func Parse(path string) (*OverrideFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var res OverrideFile
	if err := yaml.NewDecoder(f).Decode(&res); err != nil {
		return nil, fmt.Errorf("parse override file: %w", err)
	}
	return &res, nil
}

type OverrideFile struct {
	Title    string `yaml:"title"`
	Artist   string `yaml:"artist"`
	Album    string `yaml:"album"`
	Composer string `yaml:"composer"`
	Year     int    `yaml:"year"`
}

// Result converts the override into a MANUAL trust candidate.
func (o *OverrideFile) Result() library.MetadataResult {
	return library.MetadataResult{
		Title:      o.Title,
		Artist:     o.Artist,
		Album:      o.Album,
		Composer:   o.Composer,
		Year:       o.Year,
		SourceName: "override",
		Score:      1,
		Trust:      library.SourceManual,
	}
}

func (o *OverrideFile) String() string {
	return fmt.Sprintf("%s - %s (%s)", o.Artist, o.Title, o.Album)
}
