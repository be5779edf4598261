package model

// MatchResult is the outcome of candidate selection for one entry. The zero
// value means no match; Confidence is a normalized similarity in [0,1] and is
// 1.0 for a DOI-equality match.
type MatchResult struct {
	Candidate  *MetadataCandidate `json:"candidate,omitempty"`
	Confidence float64            `json:"confidence"`
}

// NoMatch is the empty result: leave the entry untouched.
var NoMatch = MatchResult{}

// Matched reports whether a candidate was accepted.
func (r MatchResult) Matched() bool { return r.Candidate != nil }
