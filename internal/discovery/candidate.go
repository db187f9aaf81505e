// Package discovery turns a seed company into a ranked list of plausible
// competitor names using a generative text service and a rule-based
// validator.
package discovery

// Source records how a candidate was extracted from a generation response.
type Source string

const (
	// SourceStructured candidates came from a JSON array of records.
	SourceStructured Source = "generated-structured"
	// SourceText candidates came from line-oriented parsing of prose.
	SourceText Source = "generated-text"
)

// Scoring constants.
const (
	DefaultConfidence   = 0.7
	TextConfidence      = 0.6
	VerifyBonus         = 0.2
	KeepUnverifiedAbove = 0.8
	VerifiedFloor       = 0.3
	UnverifiedFloor     = 0.5
)

// Candidate is a competitor-name hypothesis. Each phase builds new values
// rather than mutating the previous phase's slice.
type Candidate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	Verified   bool    `json:"verified"`
	Reason     string  `json:"reason,omitempty"`
	Industry   string  `json:"industry,omitempty"`
}

// floor returns the minimum confidence a candidate needs to survive filtering.
func (c Candidate) floor() float64 {
	if c.Verified {
		return VerifiedFloor
	}
	return UnverifiedFloor
}

// verified returns a copy with the verification outcome applied.
func (c Candidate) verified(ok bool) Candidate {
	out := c
	out.Verified = ok
	if ok {
		out.Confidence += VerifyBonus
	}
	return out
}
