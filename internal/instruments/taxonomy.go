package instruments

import "strings"

// Family section tokens. A section token stands for the whole family and
// replaces its member instruments when a collapse fires.
const (
	FamilyBrass     = "Brass"
	FamilyWoodwinds = "Woodwinds"
	FamilyStrings   = "Strings"
)

// Canonical is the closed instrument vocabulary. Every label that survives
// finalization is one of these, and creative suggestions are filtered
// against the same set.
var Canonical = []string{
	// Keyboards
	"Piano",
	"Grand Piano",
	"Upright Piano",
	"Electric Piano",
	"Rhodes",
	"Wurlitzer",
	"Clavinet",
	"Harpsichord",
	"Organ",
	"Church Organ",
	"Accordion",
	"Melodica",
	"Celesta",
	"Keyboard",
	// Guitars
	"Electric Guitar",
	"Acoustic Guitar",
	"Classical Guitar",
	"Twelve-String Guitar",
	"Slide Guitar",
	"Pedal Steel Guitar",
	"Resonator Guitar",
	"Banjo",
	"Mandolin",
	"Ukulele",
	// Bass
	"Bass Guitar",
	"Upright Bass",
	"Synth Bass",
	// Drums and percussion
	"Drum Kit (acoustic)",
	"Drum Machine",
	"Snare Drum",
	"Kick Drum",
	"Hi-Hat",
	"Toms",
	"Cymbals",
	"Ride Cymbal",
	"Percussion",
	"Congas",
	"Bongos",
	"Timbales",
	"Djembe",
	"Cajon",
	"Tabla",
	"Taiko",
	"Timpani",
	"Tambourine",
	"Shaker",
	"Maracas",
	"Claves",
	"Cowbell",
	"Woodblock",
	"Triangle",
	"Castanets",
	"Handclaps",
	"Finger Snaps",
	"Gong",
	// Mallets and bells
	"Xylophone",
	"Marimba",
	"Vibraphone",
	"Glockenspiel",
	"Tubular Bells",
	"Steel Drums",
	"Kalimba",
	"Music Box",
	// Strings
	FamilyStrings,
	"Violin",
	"Viola",
	"Cello",
	"Double Bass",
	"Fiddle",
	"Harp",
	// Brass
	FamilyBrass,
	"Trumpet",
	"Trumpet (mute)",
	"Trumpet (muted)",
	"Trombone",
	"French Horn",
	"Tuba",
	"Flugelhorn",
	"Cornet",
	// Woodwinds
	FamilyWoodwinds,
	"Saxophone",
	"Alto Saxophone",
	"Tenor Saxophone",
	"Baritone Saxophone",
	"Soprano Saxophone",
	"Flute",
	"Clarinet",
	"Oboe",
	"Bassoon",
	"Piccolo",
	"Recorder",
	"Pan Flute",
	"Harmonica",
	"Bagpipes",
	"Tin Whistle",
	// Synths and electronics
	"Synth",
	"Synth Lead",
	"Synth Pad",
	"Synth Strings",
	"Synth Brass",
	"Arpeggiator",
	"Sequencer",
	"Sampler",
	"Turntables",
	"Theremin",
	"Vocoder",
	"Talk Box",
	// World
	"Sitar",
	"Koto",
	"Shamisen",
	"Erhu",
	"Oud",
	"Bouzouki",
	"Balalaika",
	"Charango",
	"Didgeridoo",
	"Bansuri",
	"Duduk",
	"Shakuhachi",
	"Mbira",
	"Zither",
	"Dulcimer",
	"Autoharp",
	"Bells",
	"Whistle",
}

// aliases maps lowercase spellings seen in classifier and model output to
// canonical labels. Lookup is case-insensitive; canonical labels themselves
// always resolve.
var aliases = map[string]string{
	"drums":               "Drum Kit (acoustic)",
	"drum set":            "Drum Kit (acoustic)",
	"drum kit":            "Drum Kit (acoustic)",
	"drumkit":             "Drum Kit (acoustic)",
	"acoustic drum kit":   "Drum Kit (acoustic)",
	"electric organ":      "Organ",
	"hammond organ":       "Organ",
	"hammond b3":          "Organ",
	"strings (section)":   FamilyStrings,
	"string section":      FamilyStrings,
	"brass (section)":     FamilyBrass,
	"brass section":       FamilyBrass,
	"horns":               FamilyBrass,
	"horn section":        FamilyBrass,
	"woodwinds (section)": FamilyWoodwinds,
	"woodwind":            FamilyWoodwinds,
	"woodwind section":    FamilyWoodwinds,
	"guitars":             "Electric Guitar",
	"guitar":              "Electric Guitar",
	"e-guitar":            "Electric Guitar",
	"electric guitars":    "Electric Guitar",
	"acoustic guitars":    "Acoustic Guitar",
	"steel-string guitar": "Acoustic Guitar",
	"nylon guitar":        "Classical Guitar",
	"nylon-string guitar": "Classical Guitar",
	"12-string guitar":    "Twelve-String Guitar",
	"bass":                "Bass Guitar",
	"electric bass":       "Bass Guitar",
	"double-bass":         "Double Bass",
	"contrabass":          "Double Bass",
	"standup bass":        "Upright Bass",
	"sax":                 "Saxophone",
	"alto sax":            "Alto Saxophone",
	"tenor sax":           "Tenor Saxophone",
	"baritone sax":        "Baritone Saxophone",
	"soprano sax":         "Soprano Saxophone",
	"muted trumpet":       "Trumpet (muted)",
	"fender rhodes":       "Rhodes",
	"rhodes piano":        "Rhodes",
	"wurlitzer piano":     "Wurlitzer",
	"synthesizer":         "Synth",
	"synths":              "Synth",
	"keys":                "Keyboard",
	"keyboards":           "Keyboard",
	"vibes":               "Vibraphone",
	"claps":               "Handclaps",
	"hand claps":          "Handclaps",
	"timpani (kettle drums)": "Timpani",
	"kettle drums":        "Timpani",
	"uke":                 "Ukulele",
	"turntable":           "Turntables",
	"dj scratching":       "Turntables",
	"scratching":          "Turntables",
	"beatbox":             "Percussion",
	"shakers":             "Shaker",
	"conga":               "Congas",
	"bongo":               "Bongos",
	"penny whistle":       "Tin Whistle",
	"pennywhistle":        "Tin Whistle",
	"mouth organ":         "Harmonica",
	"blues harp":          "Harmonica",
	"french-horn":         "French Horn",
	"glock":               "Glockenspiel",
	"steel pan":           "Steel Drums",
	"steelpan":            "Steel Drums",
	"steel drum":          "Steel Drums",
}

// familyMembers lists, per section token, the member instruments that count
// toward a collapse and are absorbed by it.
var familyMembers = map[string][]string{
	FamilyBrass: {
		"Trumpet",
		"Trumpet (mute)",
		"Trumpet (muted)",
		"Trombone",
		"French Horn",
		"Tuba",
		"Flugelhorn",
		"Cornet",
	},
	FamilyWoodwinds: {
		"Saxophone",
		"Alto Saxophone",
		"Tenor Saxophone",
		"Baritone Saxophone",
		"Flute",
		"Clarinet",
		"Oboe",
		"Bassoon",
		"Piccolo",
	},
	FamilyStrings: {
		"Violin",
		"Viola",
		"Cello",
		"Double Bass",
		"Harp",
	},
}

// bowedStrings are the members whose presence legitimizes a Strings section
// token. A lone Strings label with none of these behind it is suspect.
var bowedStrings = map[string]bool{
	"Violin":      true,
	"Viola":       true,
	"Cello":       true,
	"Double Bass": true,
}

// padLike are sustained keyboard-adjacent sources that classifiers routinely
// mistake for a string section.
var padLike = map[string]bool{
	"Organ":    true,
	"Keyboard": true,
	"Synth":    true,
}

var canonicalIndex = buildCanonicalIndex()

func buildCanonicalIndex() map[string]string {
	idx := make(map[string]string, len(Canonical))
	for _, name := range Canonical {
		idx[strings.ToLower(name)] = name
	}
	return idx
}

// Resolve maps a raw label to its canonical spelling. The second return is
// false when the label is outside the vocabulary entirely.
func Resolve(label string) (string, bool) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	if canon, ok := aliases[lower]; ok {
		return canon, true
	}
	if canon, ok := canonicalIndex[lower]; ok {
		return canon, true
	}
	return "", false
}

// IsCanonical reports whether label is already a canonical vocabulary entry.
func IsCanonical(label string) bool {
	_, ok := canonicalIndex[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// IsFamilyToken reports whether label is one of the three section tokens.
func IsFamilyToken(label string) bool {
	return label == FamilyBrass || label == FamilyWoodwinds || label == FamilyStrings
}

// FamilyOf returns the section token owning the given canonical member, or
// the empty string for instruments outside the three families. Section
// tokens belong to themselves.
func FamilyOf(canonical string) string {
	if IsFamilyToken(canonical) {
		return canonical
	}
	for family, members := range familyMembers {
		for _, member := range members {
			if member == canonical {
				return family
			}
		}
	}
	return ""
}
