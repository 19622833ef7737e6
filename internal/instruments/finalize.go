package instruments

import "strings"

// minStringsMembers is how many distinct string-family instruments it takes
// to collapse them into a section token. A lone violin is a violin; two or
// more string voices read as an arrangement. Brass and woodwinds collapse
// from a single member because even one horn in a mix is scored as a
// section by the upstream classifiers.
const minStringsMembers = 2

// Finalize produces the authoritative instrument list from the classifier
// output plus any rescue and booster additions, applied in order after the
// primary list. The pipeline: alias normalization, stable case-insensitive
// dedup (first spelling wins), family collapse into section tokens, the
// strings soft-guard, then ordering with section tokens first.
//
// Finalize is idempotent: feeding its output back in returns the same list.
func Finalize(primary []string, additions ...[]string) []string {
	merged := make([]string, 0, len(primary)+8)
	seen := make(map[string]bool, len(primary)+8)
	add := func(labels []string) {
		for _, raw := range labels {
			label := strings.TrimSpace(raw)
			if label == "" {
				continue
			}
			if canon, ok := Resolve(label); ok {
				label = canon
			}
			key := strings.ToLower(label)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, label)
		}
	}
	add(primary)
	for _, extra := range additions {
		add(extra)
	}

	tokenPresent := make(map[string]bool, 3)
	memberCount := make(map[string]int, 3)
	bowedPresent := false
	padPresent := false
	for _, label := range merged {
		if IsFamilyToken(label) {
			tokenPresent[label] = true
			continue
		}
		if family := FamilyOf(label); family != "" {
			memberCount[family]++
		}
		if bowedStrings[label] {
			bowedPresent = true
		}
		if padLike[label] {
			padPresent = true
		}
	}

	collapsed := map[string]bool{
		FamilyBrass:     tokenPresent[FamilyBrass] || memberCount[FamilyBrass] >= 1,
		FamilyWoodwinds: tokenPresent[FamilyWoodwinds] || memberCount[FamilyWoodwinds] >= 1,
		FamilyStrings:   tokenPresent[FamilyStrings] || memberCount[FamilyStrings] >= minStringsMembers,
	}

	// A strings section with no bowed instrument behind it is usually an
	// organ or synth pad bleeding into the classifiers. Brass in the final
	// mix anchors a real horn-and-strings arrangement, so the token stays
	// when a brass section survives alongside it.
	sectionFinal := map[string]bool{
		FamilyBrass:     collapsed[FamilyBrass],
		FamilyWoodwinds: collapsed[FamilyWoodwinds],
		FamilyStrings:   collapsed[FamilyStrings],
	}
	if sectionFinal[FamilyStrings] && !bowedPresent && padPresent && !sectionFinal[FamilyBrass] {
		sectionFinal[FamilyStrings] = false
	}

	out := make([]string, 0, len(merged))
	for _, family := range []string{FamilyBrass, FamilyWoodwinds, FamilyStrings} {
		if sectionFinal[family] {
			out = append(out, family)
		}
	}
	for _, label := range merged {
		if IsFamilyToken(label) {
			continue
		}
		if family := FamilyOf(label); family != "" && collapsed[family] {
			continue
		}
		out = append(out, label)
	}
	return out
}
