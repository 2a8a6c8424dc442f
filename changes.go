package muse

import (
	"strconv"

	"github.com/sergi/go-diff/diffmatchpatch"

	"go.senan.xyz/muse/library"
)

// Change records one field transition from an enrichment pass, with the
// character level diff so observers can render before and after nicely.
type Change struct {
	Field         string
	Before, After string
	Changes       []diffmatchpatch.Diff
}

func changesBetween(before, after library.Song) []Change {
	dmp := diffmatchpatch.New()

	var changes []Change
	add := func(field, a, b string) {
		if a == b {
			return
		}
		changes = append(changes, Change{
			Field:   field,
			Before:  a,
			After:   b,
			Changes: dmp.DiffMain(a, b, false),
		})
	}

	add("title", before.Title, after.Title)
	add("artist", before.Artist, after.Artist)
	add("album", before.Album, after.Album)
	add("composer", before.Composer, after.Composer)
	add("year", yearStr(before.Year), yearStr(after.Year))
	add("cover", before.CoverURI, after.CoverURI)
	return changes
}

func yearStr(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
}
