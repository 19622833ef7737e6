// Package tags reads embedded metadata (ID3, MP4 atoms, Vorbis comments,
// AIFF ID3 chunks) behind a narrow adapter. Failures are non-fatal by
// contract; callers continue with empty tags.
package tags

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"rhythmdb/internal/trackkey"
)

// TagMap mirrors the embedded metadata fields consumed downstream.
type TagMap struct {
	Title     string   `json:"title,omitempty"`
	Artist    string   `json:"artist,omitempty"`
	Album     string   `json:"album,omitempty"`
	Year      int      `json:"year,omitempty"`
	Genre     []string `json:"genre,omitempty"`
	Track     int      `json:"track,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	Composer  string   `json:"composer,omitempty"`
	Copyright string   `json:"copyright,omitempty"`
	TBPM      string   `json:"tbpm,omitempty"`
	Key       string   `json:"key,omitempty"`
	Mood      string   `json:"mood,omitempty"`
}

// IsZero reports whether no field carries a value.
func (t TagMap) IsZero() bool {
	return t.Title == "" && t.Artist == "" && t.Album == "" && t.Year == 0 &&
		len(t.Genre) == 0 && t.Track == 0 && t.Comment == "" && t.Composer == "" &&
		t.Copyright == "" && t.TBPM == "" && t.Key == "" && t.Mood == ""
}

// Read parses the embedded tags of the audio file at path. AIFF containers
// are walked chunk by chunk for an embedded ID3 block; everything else goes
// through format detection.
func Read(path string) (TagMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return TagMap{}, fmt.Errorf("open for tags: %w", err)
	}
	defer file.Close()

	var meta tag.Metadata
	switch trackkey.Ext(path) {
	case ".aiff", ".aif", ".aifc":
		meta, err = readAIFF(file)
	default:
		meta, err = tag.ReadFrom(file)
	}
	if err != nil {
		return TagMap{}, fmt.Errorf("parse tags: %w", err)
	}
	return fromMetadata(meta), nil
}

var errNoID3Chunk = errors.New("aiff: no ID3 chunk")

func readAIFF(file *os.File) (tag.Metadata, error) {
	offset, size, err := findID3Chunk(file)
	if err != nil {
		return nil, err
	}
	return tag.ReadID3v2Tags(io.NewSectionReader(file, offset, size))
}

// findID3Chunk walks an AIFF/AIFC FORM container and returns the offset and
// size of the embedded "ID3 " chunk payload.
func findID3Chunk(r io.ReadSeeker) (int64, int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, 0, fmt.Errorf("aiff header: %w", err)
	}
	if string(header[0:4]) != "FORM" {
		return 0, 0, errors.New("aiff: missing FORM header")
	}
	if kind := string(header[8:12]); kind != "AIFF" && kind != "AIFC" {
		return 0, 0, fmt.Errorf("aiff: unexpected form type %q", kind)
	}

	pos := int64(12)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, 0, errNoID3Chunk
			}
			return 0, 0, err
		}
		pos += 8
		size := int64(binary.BigEndian.Uint32(chunk[4:8]))
		if id := string(chunk[0:4]); id == "ID3 " || id == "id3 " {
			return pos, size, nil
		}
		skip := size
		if skip%2 == 1 {
			skip++ // chunks are word aligned
		}
		if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
		pos += skip
	}
}

func fromMetadata(meta tag.Metadata) TagMap {
	out := TagMap{
		Title:    strings.TrimSpace(meta.Title()),
		Artist:   strings.TrimSpace(meta.Artist()),
		Album:    strings.TrimSpace(meta.Album()),
		Year:     meta.Year(),
		Genre:    splitGenres(meta.Genre()),
		Composer: strings.TrimSpace(meta.Composer()),
	}
	if n, _ := meta.Track(); n > 0 {
		out.Track = n
	}

	raw := meta.Raw()
	out.Comment = firstRawText(raw, "COMM", "COM", "comment", "COMMENT", "\xa9cmt")
	out.Copyright = firstRawText(raw, "TCOP", "TCR", "copyright", "COPYRIGHT", "cprt")
	out.TBPM = firstRawText(raw, "TBPM", "TBP", "bpm", "BPM", "tmpo")
	out.Key = firstRawText(raw, "TKEY", "TKE", "initialkey", "INITIALKEY", "key")
	out.Mood = firstRawText(raw, "TMOO", "mood", "MOOD")
	return out
}

// firstRawText returns the first non-empty textual value among the given
// frame or atom names. Frame names are format-specific; callers list the
// ID3v2.3, ID3v2.2, Vorbis, and MP4 spellings they accept.
func firstRawText(raw map[string]interface{}, names ...string) string {
	if len(raw) == 0 {
		return ""
	}
	for _, name := range names {
		value, ok := raw[name]
		if !ok {
			continue
		}
		if text := rawText(value); text != "" {
			return text
		}
	}
	return ""
}

func rawText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case *tag.Comm:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(v.Text)
	case tag.Comm:
		return strings.TrimSpace(v.Text)
	case int:
		if v != 0 {
			return fmt.Sprintf("%d", v)
		}
		return ""
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// splitGenres breaks a free-form genre string into a list. Embedded tags
// commonly join multiple genres with ";", "/", or ",".
func splitGenres(genre string) []string {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil
	}
	parts := strings.FieldsFunc(genre, func(r rune) bool {
		return r == ';' || r == '/' || r == ','
	})
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
