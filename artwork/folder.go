package artwork

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FindFolderArt looks for a shared cover image next to a song, used only as
// a last resort. It refuses generic bucket folders and folders with so many
// audio files that one cover is unlikely to belong to any single album.
func FindFolderArt(dir string, maxAudioFiles int) string {
	if IsGenericFolder(filepath.Base(dir)) {
		return ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var audioCount int
	var best Selection
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if isAudioFile(name) {
			audioCount++
			continue
		}
		if IsCover(name) {
			best.Update(name)
		}
	}
	if best == "" || audioCount > maxAudioFiles {
		return ""
	}
	return filepath.Join(dir, string(best))
}

var genericFolders = map[string]struct{}{
	"download":  {},
	"downloads": {},
	"music":     {},
	"audio":     {},
	"media":     {},
	"sdcard":    {},
	"0":         {},
}

// IsGenericFolder reports whether a folder name is a generic bucket like
// "Download" that groups unrelated files.
func IsGenericFolder(name string) bool {
	_, ok := genericFolders[strings.ToLower(name)]
	return ok
}

var audioExts = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".mp4":  {},
	".m4b":  {},
	".aac":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
	".wav":  {},
}

func isAudioFile(name string) bool {
	_, ok := audioExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsCover reports whether a filename looks like cover art.
func IsCover(p string) bool {
	p = filepath.Ext(p)
	p = strings.ToLower(p)
	_, ok := filetypePriorities[p]
	return ok
}

// Compare ranks two potential cover paths, suitable for [slices.SortFunc].
func Compare(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a, b := artTypePos(a), artTypePos(b); a != b {
		return a - b
	}
	if a, b := num(a), num(b); a != b {
		return a - b
	}
	if a, b := filetypePos(a), filetypePos(b); a != b {
		return a - b
	}
	return 0
}

// Selection tracks the best cover candidate seen so far.
type Selection string

func (h *Selection) Update(other string) {
	if *h == "" {
		*h = Selection(other)
		return
	}
	if Compare(string(*h), other) > 0 {
		*h = Selection(other)
	}
}

var filetypePriorities = map[string]int{
	".png":  2,
	".jpg":  1,
	".jpeg": 1,
	".bmp":  1,
	".gif":  1,
}

func filetypePos(path string) int {
	return -filetypePriorities[filepath.Ext(path)]
}

var artTypePriorities = map[string]int{
	"front":    3,
	"cover":    3,
	"album":    3,
	"folder":   2,
	"albumart": 2,
	"scan":     1,
	"back":     0, // ignore
	"artist":   0, // ignore
}

var artTypeExpr *regexp.Regexp

func init() {
	var quoted []string
	for k := range artTypePriorities {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	artTypeExpr = regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}

func artTypePos(path string) int {
	m := artTypeExpr.FindString(path)
	return -artTypePriorities[strings.ToLower(m)]
}

var numExpr = regexp.MustCompile(`\d+`)

func num(path string) int {
	m := numExpr.FindString(path)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}
