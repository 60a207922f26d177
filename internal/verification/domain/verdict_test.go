package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSummary_Resolve(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		wantKind     SummaryKind
		wantVerified bool
		wantReason   string
	}{
		{"absent", ``, SummaryAbsent, false, ReasonNoAnalysis},
		{"null", `null`, SummaryAbsent, false, ReasonNoAnalysis},
		{"json string verdict", `"{\"verified\": true, \"reason\": \"match\"}"`, SummaryRawText, true, "match"},
		{"json string negative", `"{\"verified\": false, \"reason\": \"wrong digits\"}"`, SummaryRawText, false, "wrong digits"},
		{"fenced json string", "\"```json\\n{\\\"verified\\\": true, \\\"reason\\\": \\\"ok\\\"}\\n```\"", SummaryRawText, true, "ok"},
		{"prose string", `"The caller repeated the code."`, SummaryRawText, false, ReasonUnparseable},
		{"string holding null", `"null"`, SummaryRawText, false, ReasonUnparseable},
		{"fenced null", "\"```json\\nnull\\n```\"", SummaryRawText, false, ReasonUnparseable},
		{"object", `{"verified": true, "reason": "structured"}`, SummaryStructured, true, "structured"},
		{"object without reason", `{"verified": true}`, SummaryStructured, true, ReasonNoAnalysis},
		{"object without verified", `{"reason": "unclear"}`, SummaryStructured, false, "unclear"},
		{"object wrong types", `{"verified": "yes"}`, SummaryStructured, false, ReasonUnparseable},
		{"number", `42`, SummaryRawText, false, ReasonUnparseable},
		{"array", `[true]`, SummaryRawText, false, ReasonUnparseable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := ParseSummary(json.RawMessage(tc.raw))
			if s.Kind != tc.wantKind {
				t.Errorf("Kind = %v, want %v", s.Kind, tc.wantKind)
			}
			verified, reason := s.Resolve()
			if verified != tc.wantVerified || reason != tc.wantReason {
				t.Errorf("Resolve = (%v, %q), want (%v, %q)", verified, reason, tc.wantVerified, tc.wantReason)
			}
		})
	}
}

func TestSummary_VerdictError(t *testing.T) {
	if _, _, err := ParseSummary(json.RawMessage(`"not json"`)).Verdict(); !errors.Is(err, ErrVerdictUnparseable) {
		t.Errorf("raw text err = %v, want ErrVerdictUnparseable", err)
	}
	if _, _, err := ParseSummary(nil).Verdict(); err != nil {
		t.Errorf("absent summary err = %v, want nil", err)
	}
}

func TestFailed(t *testing.T) {
	o := Failed("nope")
	if o.Verified || o.Reason != "nope" || o.Transcript != nil {
		t.Errorf("Failed = %+v", o)
	}
}
