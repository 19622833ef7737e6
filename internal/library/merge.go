package library

import (
	"strings"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/media/tags"
)

// mergeRecords folds a fresh analysis into the record already stored under
// the same key. Scalars are taken from the incoming record when it carries a
// value; the creative taxonomy lists are unioned so a re-run widens rather
// than replaces earlier classifications. Timestamps are left for the caller.
func mergeRecords(existing, incoming analysis.Record) analysis.Record {
	merged := existing
	merged.Key = pickString(existing.Key, incoming.Key)
	merged.Path = pickString(existing.Path, incoming.Path)
	merged.File = pickString(existing.File, incoming.File)
	merged.AnalyzedAt = pickString(existing.AnalyzedAt, incoming.AnalyzedAt)
	if merged.CreatedAt == "" {
		merged.CreatedAt = incoming.CreatedAt
	}
	merged.Technical = mergeTechnical(existing.Technical, incoming.Technical)
	merged.Creative = mergeCreative(existing.Creative, incoming.Creative)
	merged.CreativeStatus = pickString(existing.CreativeStatus, incoming.CreativeStatus)
	merged.Analysis = mergeInstrumentation(existing.Analysis, incoming.Analysis)
	merged.WaveformPNG = pickString(existing.WaveformPNG, incoming.WaveformPNG)
	merged.LegacyFinalInstruments = pickList(existing.LegacyFinalInstruments, incoming.LegacyFinalInstruments)
	merged.LegacyInstruments = pickList(existing.LegacyInstruments, incoming.LegacyInstruments)

	// The denormalized instrument list is resolved over the merged record so
	// the precedence chain sees both old and new sources.
	merged.Creative.Instrument = EffectiveInstruments(merged)
	return merged
}

func mergeTechnical(existing, incoming analysis.TechnicalFacts) analysis.TechnicalFacts {
	merged := existing
	if incoming.DurationSec > 0 {
		merged.DurationSec = incoming.DurationSec
	}
	if incoming.SampleRateHz > 0 {
		merged.SampleRateHz = incoming.SampleRateHz
	}
	if incoming.Channels > 0 {
		merged.Channels = incoming.Channels
	}
	if incoming.BitRate > 0 {
		merged.BitRate = incoming.BitRate
	}
	merged.Codec = pickString(existing.Codec, incoming.Codec)
	if hasProbe(incoming) {
		merged.HasWAVVersion = incoming.HasWAVVersion
	}
	merged.Tags = mergeTags(existing.Tags, incoming.Tags)
	if incoming.EstimatedBPM != nil {
		merged.EstimatedBPM = incoming.EstimatedBPM
	}
	if incoming.BPM != nil {
		merged.BPM = incoming.BPM
		merged.BPMSource = incoming.BPMSource
	}
	if incoming.BPMAltHalf != nil {
		merged.BPMAltHalf = incoming.BPMAltHalf
	}
	if incoming.BPMAltDouble != nil {
		merged.BPMAltDouble = incoming.BPMAltDouble
	}
	return merged
}

// hasProbe reports whether the technical section carries container facts. A
// section without them is a placeholder from an import, and its booleans
// carry no information.
func hasProbe(t analysis.TechnicalFacts) bool {
	return t.DurationSec > 0 || t.SampleRateHz > 0 || t.Channels > 0 || t.BitRate > 0
}

func mergeTags(existing, incoming tags.TagMap) tags.TagMap {
	merged := existing
	merged.Title = pickString(existing.Title, incoming.Title)
	merged.Artist = pickString(existing.Artist, incoming.Artist)
	merged.Album = pickString(existing.Album, incoming.Album)
	if incoming.Year != 0 {
		merged.Year = incoming.Year
	}
	merged.Genre = pickList(existing.Genre, incoming.Genre)
	if incoming.Track != 0 {
		merged.Track = incoming.Track
	}
	merged.Comment = pickString(existing.Comment, incoming.Comment)
	merged.Composer = pickString(existing.Composer, incoming.Composer)
	merged.Copyright = pickString(existing.Copyright, incoming.Copyright)
	merged.TBPM = pickString(existing.TBPM, incoming.TBPM)
	merged.Key = pickString(existing.Key, incoming.Key)
	merged.Mood = pickString(existing.Mood, incoming.Mood)
	return merged
}

func mergeCreative(existing, incoming creative.Facts) creative.Facts {
	merged := creative.Facts{
		Mood:                 unionPreserve(existing.Mood, incoming.Mood),
		Genre:                unionPreserve(existing.Genre, incoming.Genre),
		Theme:                unionPreserve(existing.Theme, incoming.Theme),
		Vocals:               unionPreserve(existing.Vocals, incoming.Vocals),
		SuggestedInstruments: pickList(existing.SuggestedInstruments, incoming.SuggestedInstruments),
		LyricThemes:          pickList(existing.LyricThemes, incoming.LyricThemes),
		Narrative:            pickString(existing.Narrative, incoming.Narrative),
		Confidence:           existing.Confidence,
		Instrument:           existing.Instrument,
	}
	if incoming.Confidence != 0 {
		merged.Confidence = incoming.Confidence
	}
	return merged
}

func mergeInstrumentation(existing, incoming analysis.Instrumentation) analysis.Instrumentation {
	merged := existing
	merged.Instruments = pickList(existing.Instruments, incoming.Instruments)
	merged.FinalInstruments = pickList(existing.FinalInstruments, incoming.FinalInstruments)
	if len(incoming.DecisionTrace) > 0 {
		merged.DecisionTrace = incoming.DecisionTrace
	}
	if hasClassification(incoming) {
		merged.UsedDemucs = incoming.UsedDemucs
	}
	merged.Mode = pickString(existing.Mode, incoming.Mode)
	if incoming.ElectronicElements != nil {
		merged.ElectronicElements = incoming.ElectronicElements
	}
	return merged
}

// hasClassification reports whether the instrumentation section came from an
// actual classifier run rather than a zero value.
func hasClassification(a analysis.Instrumentation) bool {
	return len(a.Instruments) > 0 || len(a.FinalInstruments) > 0 ||
		len(a.DecisionTrace) > 0 || a.Mode != ""
}

// EffectiveInstruments resolves the instrument list for a record, walking
// from the finalized analysis output down through progressively older or
// weaker sources and returning the first list that carries a value.
func EffectiveInstruments(rec analysis.Record) []string {
	for _, source := range [][]string{
		rec.Analysis.FinalInstruments,
		rec.Analysis.Instruments,
		rec.LegacyFinalInstruments,
		rec.LegacyInstruments,
		rec.Creative.SuggestedInstruments,
		rec.Creative.Instrument,
	} {
		if cleaned := compactStrings(source); len(cleaned) > 0 {
			return cleaned
		}
	}
	return nil
}

// unionPreserve merges two lists as a set, keeping the existing order first
// and appending unseen incoming values.
func unionPreserve(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, value := range list {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	return out
}

// compactStrings copies a list without blanks so precedence decisions never
// trip over padding in imported data.
func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func pickString(current, incoming string) string {
	if strings.TrimSpace(incoming) != "" {
		return incoming
	}
	return current
}

func pickList(current, incoming []string) []string {
	if len(incoming) > 0 {
		return incoming
	}
	return current
}
