package creative

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// rawPayload tolerates the shapes local models actually produce: lists may
// arrive as a single string, confidence as a number or "85%", and the
// instrument field under several spellings.
type rawPayload struct {
	Mood                 any    `json:"mood"`
	Genre                any    `json:"genre"`
	Theme                any    `json:"theme"`
	Instrument           any    `json:"instrument"`
	Instruments          any    `json:"instruments"`
	SuggestedInstruments any    `json:"suggestedInstruments"`
	Vocals               any    `json:"vocals"`
	LyricThemes          any    `json:"lyricThemes"`
	Narrative            string `json:"narrative"`
	Confidence           any    `json:"confidence"`
}

func (p rawPayload) instrumentField() any {
	for _, v := range []any{p.Instrument, p.Instruments, p.SuggestedInstruments} {
		if v != nil {
			return v
		}
	}
	return nil
}

// decodePayload parses model output: one verbatim attempt, then one after
// the repair chain.
func decodePayload(content string) (rawPayload, error) {
	var payload rawPayload
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return payload, errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), &payload)
	if directErr == nil {
		return payload, nil
	}

	repaired := repairJSONPayload(trimmed)
	if repaired == "" {
		return rawPayload{}, fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	payload = rawPayload{}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return rawPayload{}, fmt.Errorf("%w (repaired payload snippet: %s)", err, summarizePayloadSnippet(repaired))
	}
	return payload, nil
}

var (
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRE       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_\-]*)\s*:`)
	quoteReplacer   = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`,
		"‘", "'", "’", "'",
	)
)

// repairJSONPayload applies the tolerated-damage chain: code fences, curly
// quotes, surrounding prose, trailing commas, bare keys, single-quoted
// strings, control characters. Anything it cannot reduce to a balanced
// object comes back empty.
func repairJSONPayload(content string) string {
	s := stripCodeFenceBlock(content)
	s = quoteReplacer.Replace(s)
	s = largestBalancedObject(s)
	if s == "" {
		return ""
	}
	s = trailingCommaRE.ReplaceAllString(s, "$1")
	s = bareKeyRE.ReplaceAllString(s, `$1"$2":`)
	s = convertSingleQuotes(s)
	s = stripControlChars(s)
	return strings.TrimSpace(s)
}

// largestBalancedObject extracts the largest balanced {...} span, ignoring
// braces inside quoted strings.
func largestBalancedObject(s string) string {
	bestStart, bestEnd := -1, -1
	depth := 0
	start := -1
	inString := false
	var quote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 && (bestStart < 0 || i-start > bestEnd-bestStart) {
				bestStart, bestEnd = start, i
			}
		}
	}
	if bestStart < 0 {
		return ""
	}
	return s[bestStart : bestEnd+1]
}

// convertSingleQuotes rewrites single-quoted strings as double-quoted,
// leaving apostrophes inside double-quoted strings alone.
func convertSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble := false
	inSingle := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			if inSingle && ch == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(ch)
			}
			escaped = false
		case ch == '\\':
			escaped = true
		case inDouble:
			b.WriteByte(ch)
			if ch == '"' {
				inDouble = false
			}
		case inSingle:
			switch ch {
			case '\'':
				b.WriteByte('"')
				inSingle = false
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(ch)
			}
		case ch == '"':
			inDouble = true
			b.WriteByte(ch)
		case ch == '\'':
			inSingle = true
			b.WriteByte('"')
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := strings.Join(strings.Fields(replacer.Replace(trimmed)), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
