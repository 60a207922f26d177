package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrVerdictUnparseable is returned when a summary exists but holds no readable verdict.
var ErrVerdictUnparseable = errors.New("could not parse analysis result")

// Fallback reasons used when a call ends without a usable verdict.
const (
	ReasonNoAnalysis  = "No analysis available"
	ReasonUnparseable = "Could not parse analysis result"
)

// SummaryKind tags how the provider delivered the call analysis summary.
type SummaryKind int

const (
	// SummaryAbsent means no summary was attached to the call.
	SummaryAbsent SummaryKind = iota
	// SummaryStructured means the summary was a JSON object.
	SummaryStructured
	// SummaryRawText means the summary was a string that may or may not hold a JSON verdict.
	SummaryRawText
)

// Verdict is the structured form of a call analysis.
type Verdict struct {
	Verified *bool   `json:"verified"`
	Reason   *string `json:"reason"`
}

// Summary is the tagged union for the provider's analysis summary.
type Summary struct {
	Kind       SummaryKind
	Structured Verdict
	Text       string
	// structuredOK is false when an object summary failed to decode.
	structuredOK bool
}

// ParseSummary classifies a raw analysis summary. It never fails; unusable input
// becomes a RawText or Absent summary that resolves to a negative verdict.
func ParseSummary(raw json.RawMessage) Summary {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Summary{Kind: SummaryAbsent}
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return Summary{Kind: SummaryRawText, Text: string(trimmed)}
		}
		return Summary{Kind: SummaryRawText, Text: text}
	case '{':
		var v Verdict
		err := json.Unmarshal(trimmed, &v)
		return Summary{Kind: SummaryStructured, Structured: v, structuredOK: err == nil}
	default:
		return Summary{Kind: SummaryRawText, Text: string(trimmed)}
	}
}

// Verdict decodes the summary. Missing fields default to false and ReasonNoAnalysis.
// A summary that cannot be read returns ErrVerdictUnparseable.
func (s Summary) Verdict() (bool, string, error) {
	switch s.Kind {
	case SummaryStructured:
		if !s.structuredOK {
			return false, ReasonUnparseable, ErrVerdictUnparseable
		}
		verified, reason := s.Structured.resolve()
		return verified, reason, nil
	case SummaryRawText:
		// A pointer so text holding only "null" stays unparseable.
		var v *Verdict
		if err := json.Unmarshal([]byte(stripCodeFence(s.Text)), &v); err != nil || v == nil {
			return false, ReasonUnparseable, ErrVerdictUnparseable
		}
		verified, reason := v.resolve()
		return verified, reason, nil
	default:
		return false, ReasonNoAnalysis, nil
	}
}

// Resolve is Verdict with the error folded into a negative result.
func (s Summary) Resolve() (bool, string) {
	verified, reason, _ := s.Verdict()
	return verified, reason
}

func (v Verdict) resolve() (bool, string) {
	verified := v.Verified != nil && *v.Verified
	reason := ReasonNoAnalysis
	if v.Reason != nil {
		reason = *v.Reason
	}
	return verified, reason
}

// stripCodeFence removes a surrounding ``` or ```json fence that language models often add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
