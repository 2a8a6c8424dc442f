package library

// Field names the mergeable metadata fields of a Song.
type Field string

const (
	FieldTitle    Field = "title"
	FieldArtist   Field = "artist"
	FieldAlbum    Field = "album"
	FieldComposer Field = "composer"
	FieldYear     Field = "year"
	FieldArtwork  Field = "artwork"
	FieldLyrics   Field = "lyrics"
)

// Policy decides whether an incoming value may land on a song field.
type Policy int

const (
	// PolicyNever leaves the existing value alone.
	PolicyNever Policy = iota
	// PolicyFillIfDefault only replaces empty or placeholder values, so
	// already good local data survives a lower confidence remote result.
	PolicyFillIfDefault
	// PolicyOverwrite replaces the value whenever the incoming one is set.
	PolicyOverwrite
)

// mergePolicies is the per trust class policy table. Keeping the precedence
// rules as data rather than scattered conditionals makes the central
// invariant auditable in one place: INTERNET never clobbers a real value.
var mergePolicies = map[Source]map[Field]Policy{
	SourceLocal: {
		FieldTitle:    PolicyFillIfDefault,
		FieldArtist:   PolicyFillIfDefault,
		FieldAlbum:    PolicyFillIfDefault,
		FieldComposer: PolicyFillIfDefault,
		FieldYear:     PolicyFillIfDefault,
		FieldArtwork:  PolicyFillIfDefault,
		FieldLyrics:   PolicyNever,
	},
	SourceInternet: {
		FieldTitle:    PolicyFillIfDefault,
		FieldArtist:   PolicyFillIfDefault,
		FieldAlbum:    PolicyFillIfDefault,
		FieldComposer: PolicyFillIfDefault,
		FieldYear:     PolicyFillIfDefault,
		FieldArtwork:  PolicyFillIfDefault,
		FieldLyrics:   PolicyFillIfDefault,
	},
	SourceManual: {
		FieldTitle:    PolicyOverwrite,
		FieldArtist:   PolicyOverwrite,
		FieldAlbum:    PolicyOverwrite,
		FieldComposer: PolicyOverwrite,
		FieldYear:     PolicyOverwrite,
		FieldArtwork:  PolicyOverwrite,
		FieldLyrics:   PolicyOverwrite,
	},
}

// Apply merges an accepted candidate onto a song according to the policy
// table for the candidate's trust class. It reports whether any field
// changed. Confidence and provenance are recorded either way.
func Apply(s *Song, r MetadataResult) bool {
	policies := mergePolicies[r.Trust]
	if policies == nil {
		policies = mergePolicies[SourceInternet]
	}

	var changed bool
	apply := func(field Field, dst *string, v string) {
		if v == "" {
			return
		}
		switch policies[field] {
		case PolicyOverwrite:
		case PolicyFillIfDefault:
			if !isPlaceholder(*dst) {
				return
			}
		default:
			return
		}
		if *dst != v {
			*dst = v
			changed = true
		}
	}

	apply(FieldTitle, &s.Title, r.Title)
	apply(FieldArtist, &s.Artist, r.Artist)
	apply(FieldAlbum, &s.Album, r.Album)
	apply(FieldComposer, &s.Composer, r.Composer)
	apply(FieldArtwork, &s.ArtworkURI, r.ArtworkURI)
	apply(FieldLyrics, &s.Lyrics, r.Lyrics)

	if r.Year != 0 {
		switch policies[FieldYear] {
		case PolicyOverwrite:
			if s.Year != r.Year {
				s.Year = r.Year
				changed = true
			}
		case PolicyFillIfDefault:
			if s.Year == 0 {
				s.Year = r.Year
				changed = true
			}
		}
	}

	if changed || !s.IsEnhanced {
		s.ConfidenceScore = r.Score
		s.MetadataSource = r.Trust
	}
	return changed
}

// Merge reconciles a freshly scanned record with its previous incarnation.
// The scanned record wins on raw filesystem fields, but once a song has been
// enhanced its enriched fields must survive every later rescan.
func Merge(prev *Song, scanned Song) Song {
	if prev == nil {
		return scanned
	}

	merged := scanned
	if !prev.IsEnhanced {
		return merged
	}

	merged.Title = prev.Title
	merged.Artist = prev.Artist
	merged.Album = prev.Album
	merged.Composer = prev.Composer
	merged.Year = prev.Year
	merged.CoverURI = prev.CoverURI
	merged.ArtworkURI = prev.ArtworkURI
	merged.Lyrics = prev.Lyrics
	merged.ConfidenceScore = prev.ConfidenceScore
	merged.MetadataSource = prev.MetadataSource
	merged.IsEnhanced = true
	return merged
}

// MergeAll joins scan results with the previous song list by id. Songs no
// longer present on the device drop out; new songs come in unenhanced.
func MergeAll(prev, scanned []Song) []Song {
	byID := make(map[string]*Song, len(prev))
	for i := range prev {
		byID[prev[i].ID] = &prev[i]
	}

	merged := make([]Song, 0, len(scanned))
	for _, s := range scanned {
		merged = append(merged, Merge(byID[s.ID], s))
	}
	return merged
}
