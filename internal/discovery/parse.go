package discovery

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sells-group/competitor-research/internal/llm"
)

type generatedRecord struct {
	Name       string   `json:"name"`
	Reason     string   `json:"reason"`
	Industry   string   `json:"industry"`
	Confidence *float64 `json:"confidence"`
}

// parseStructured decodes the first JSON array in text. ok is false when no
// array could be decoded, signalling the text fallback. Only object elements
// that decode as records yield candidates.
func parseStructured(text string) (out []Candidate, ok bool) {
	var elems []json.RawMessage
	if err := llm.ExtractJSONArray(text, &elems); err != nil {
		return nil, false
	}
	for _, raw := range elems {
		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
			continue
		}
		var r generatedRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		name := cleanName(r.Name)
		if name == "" {
			continue
		}
		conf := DefaultConfidence
		if r.Confidence != nil {
			conf = *r.Confidence
		}
		out = append(out, Candidate{
			Name:       name,
			Confidence: conf,
			Source:     SourceStructured,
			Reason:     strings.TrimSpace(r.Reason),
			Industry:   strings.TrimSpace(r.Industry),
		})
	}
	return out, true
}

var (
	numberingRe = regexp.MustCompile(`^\d+\.\s*`)
	bulletRe    = regexp.MustCompile(`^[-*]\s*`)
	leadNameRe  = regexp.MustCompile(`^([^-:]+)`)
)

// parseText extracts one candidate per non-empty line, taking the text
// before the first dash or colon after stripping list markers.
func parseText(text string) []Candidate {
	var out []Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = numberingRe.ReplaceAllString(line, "")
		line = bulletRe.ReplaceAllString(line, "")
		m := leadNameRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := cleanName(m[1])
		if name == "" {
			continue
		}
		out = append(out, Candidate{
			Name:       name,
			Confidence: TextConfidence,
			Source:     SourceText,
		})
	}
	return out
}

// cleanName trims whitespace plus markdown emphasis and quotes.
func cleanName(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `*"'`+"`"))
}
