package library

import (
	"slices"

	"go.senan.xyz/natcmp"

	"go.senan.xyz/muse/norm"
)

const (
	unknownDirector = "Unknown"
	unknownAlbum    = "Unknown Album"
)

// Organize rebuilds the director → movie tree from scratch. The tree is a
// derived view of the song list, never a source of truth, so a full rebuild
// per pass keeps it trivially consistent.
func Organize(songs []Song) []MusicDirector {
	type movieKey struct{ director, movie string }

	directorTitles := map[string]string{}
	movieTitles := map[movieKey]string{}
	grouped := map[movieKey][]Song{}

	for _, s := range songs {
		dTitle := s.Composer
		if isPlaceholder(dTitle) {
			dTitle = unknownDirector
		}
		mTitle := s.Album
		if isPlaceholder(mTitle) {
			mTitle = unknownAlbum
		}

		dKey := norm.Normalize(dTitle)
		mKey := movieKey{dKey, norm.Normalize(mTitle)}

		if _, ok := directorTitles[dKey]; !ok {
			directorTitles[dKey] = dTitle
		}
		if _, ok := movieTitles[mKey]; !ok {
			movieTitles[mKey] = mTitle
		}
		grouped[mKey] = append(grouped[mKey], s)
	}

	moviesFor := map[string][]Movie{}
	for key, songs := range grouped {
		slices.SortStableFunc(songs, func(a, b Song) int {
			return natcmp.Compare(a.Title, b.Title)
		})

		movie := Movie{
			Name:         key.movie,
			DisplayTitle: movieTitles[key],
			Songs:        songs,
		}
		for _, s := range songs {
			if movie.ArtworkURI == "" {
				movie.ArtworkURI = firstOf(s.CoverURI, s.ArtworkURI)
			}
			if movie.Year == 0 {
				movie.Year = s.Year
			}
		}
		moviesFor[key.director] = append(moviesFor[key.director], movie)
	}

	var directors []MusicDirector
	for dKey, movies := range moviesFor {
		slices.SortStableFunc(movies, func(a, b Movie) int {
			return natcmp.Compare(a.DisplayTitle, b.DisplayTitle)
		})

		director := MusicDirector{
			Name:         dKey,
			DisplayTitle: directorTitles[dKey],
			Movies:       movies,
		}
		for _, m := range movies {
			if m.ArtworkURI != "" {
				director.PhotoURI = m.ArtworkURI
				break
			}
		}
		directors = append(directors, director)
	}

	slices.SortStableFunc(directors, func(a, b MusicDirector) int {
		return natcmp.Compare(a.DisplayTitle, b.DisplayTitle)
	})
	return directors
}

func firstOf(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
