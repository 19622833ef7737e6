package library

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Tempo band labels exposed in the criteria store. Bounds are inclusive
// below and exclusive above.
const (
	TempoBandVerySlow = "Very Slow (Below 60 BPM)"
	TempoBandSlow     = "Slow (60-90 BPM)"
	TempoBandMedium   = "Medium (90-110 BPM)"
	TempoBandUpbeat   = "Upbeat (110-140 BPM)"
	TempoBandFast     = "Fast (140-160 BPM)"
	TempoBandVeryFast = "Very Fast (160+ BPM)"
)

// sectionSuffix still appears in instrument lists imported from before alias
// normalization; the display facet drops it.
const sectionSuffix = " (section)"

// TempoBand buckets a tempo into its browse label.
func TempoBand(bpm int) string {
	switch {
	case bpm < 60:
		return TempoBandVerySlow
	case bpm < 90:
		return TempoBandSlow
	case bpm < 110:
		return TempoBandMedium
	case bpm < 140:
		return TempoBandUpbeat
	case bpm < 160:
		return TempoBandFast
	default:
		return TempoBandVeryFast
	}
}

// Criteria is the on-disk shape of CriteriaDB.json: every facet value the
// library can filter on, sorted case-insensitively and deduplicated.
type Criteria struct {
	Genre              []string `json:"genre"`
	Mood               []string `json:"mood"`
	Instrument         []string `json:"instrument"`
	Vocals             []string `json:"vocals"`
	Theme              []string `json:"theme"`
	TempoBands         []string `json:"tempo_bands"`
	Keys               []string `json:"keys"`
	Artists            []string `json:"artists"`
	ElectronicElements []string `json:"electronic_elements"`
}

// ValueCount reports the total number of facet values across all facets.
func (c Criteria) ValueCount() int {
	total := 0
	for _, list := range [][]string{
		c.Genre, c.Mood, c.Instrument, c.Vocals, c.Theme,
		c.TempoBands, c.Keys, c.Artists, c.ElectronicElements,
	} {
		total += len(list)
	}
	return total
}

// BuildCriteria sweeps every record in the store and collects the facet
// values. The sweep iterates tracks in key order so repeated builds over the
// same store produce identical output.
func BuildCriteria(store MainStore) Criteria {
	genre := newFacet()
	mood := newFacet()
	instrument := newFacet()
	vocals := newFacet()
	theme := newFacet()
	bands := newFacet()
	musicalKeys := newFacet()
	artists := newFacet()
	electronic := newFacet()

	trackKeys := make([]string, 0, len(store.Tracks))
	for key := range store.Tracks {
		trackKeys = append(trackKeys, key)
	}
	sort.Strings(trackKeys)

	for _, key := range trackKeys {
		rec := store.Tracks[key]
		genre.add(rec.Creative.Genre...)
		mood.add(rec.Creative.Mood...)
		vocals.add(rec.Creative.Vocals...)
		theme.add(rec.Creative.Theme...)
		for _, inst := range EffectiveInstruments(rec) {
			instrument.add(strings.TrimSuffix(inst, sectionSuffix))
		}
		if bpm := rec.BPM(); bpm > 0 {
			bands.add(TempoBand(bpm))
		}
		musicalKeys.add(rec.Technical.Tags.Key)
		artists.add(rec.Technical.Tags.Artist)
		if ee := rec.Analysis.ElectronicElements; ee != nil {
			if ee.Detected {
				electronic.add("Yes")
			} else {
				electronic.add("No")
			}
		}
	}

	collator := collate.New(language.Und, collate.IgnoreCase)
	return Criteria{
		Genre:              genre.sorted(collator),
		Mood:               mood.sorted(collator),
		Instrument:         instrument.sorted(collator),
		Vocals:             vocals.sorted(collator),
		Theme:              theme.sorted(collator),
		TempoBands:         bands.sorted(collator),
		Keys:               musicalKeys.sorted(collator),
		Artists:            artists.sorted(collator),
		ElectronicElements: electronic.sorted(collator),
	}
}

// facet accumulates values with case-insensitive deduplication, keeping the
// first spelling seen.
type facet struct {
	seen   map[string]struct{}
	values []string
}

func newFacet() *facet {
	return &facet{seen: make(map[string]struct{})}
}

func (f *facet) add(values ...string) {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		lower := strings.ToLower(value)
		if _, ok := f.seen[lower]; ok {
			continue
		}
		f.seen[lower] = struct{}{}
		f.values = append(f.values, value)
	}
}

func (f *facet) sorted(collator *collate.Collator) []string {
	out := make([]string, len(f.values))
	copy(out, f.values)
	collator.SortStrings(out)
	return out
}
