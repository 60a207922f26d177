package voice

import "encoding/json"

// Call statuses reported by the provider.
const (
	StatusQueued     = "queued"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusForwarding = "forwarding"
	StatusEnded      = "ended"
)

// Assistant is the scripted agent configuration sent to POST /assistant.
type Assistant struct {
	Name                  string        `json:"name"`
	Model                 Model         `json:"model"`
	FirstMessage          string        `json:"firstMessage"`
	FirstMessageMode      string        `json:"firstMessageMode,omitempty"`
	SilenceTimeoutSeconds int           `json:"silenceTimeoutSeconds,omitempty"`
	MaxDurationSeconds    int           `json:"maxDurationSeconds,omitempty"`
	EndCallPhrases        []string      `json:"endCallPhrases,omitempty"`
	ArtifactPlan          *ArtifactPlan `json:"artifactPlan,omitempty"`
	AnalysisPlan          *AnalysisPlan `json:"analysisPlan,omitempty"`
}

// Model selects the language model driving the assistant.
type Model struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Temperature float64        `json:"temperature"`
	Messages    []ModelMessage `json:"messages"`
}

// ModelMessage is a prompt message (usually the system prompt).
type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ArtifactPlan controls what the provider keeps after the call.
type ArtifactPlan struct {
	RecordingEnabled bool            `json:"recordingEnabled"`
	TranscriptPlan   *TranscriptPlan `json:"transcriptPlan,omitempty"`
}

// TranscriptPlan toggles transcript generation.
type TranscriptPlan struct {
	Enabled bool `json:"enabled"`
}

// AnalysisPlan asks the provider to summarize the call when it ends.
type AnalysisPlan struct {
	SummaryPrompt string `json:"summaryPrompt,omitempty"`
}

// AssistantRef is the subset of the created assistant the caller needs.
type AssistantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CallRequest is the body of POST /call.
type CallRequest struct {
	AssistantID   string   `json:"assistantId"`
	PhoneNumberID string   `json:"phoneNumberId"`
	Customer      Customer `json:"customer"`
}

// Customer is the party being called.
type Customer struct {
	Number string `json:"number"`
}

// Call is a provider call session.
type Call struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	EndedReason string    `json:"endedReason,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	Analysis    *Analysis `json:"analysis,omitempty"`
}

// Ended reports whether the call reached its terminal status.
func (c *Call) Ended() bool {
	return c != nil && c.Status == StatusEnded
}

// Summary returns the raw analysis summary, or nil when none was produced.
func (c *Call) Summary() json.RawMessage {
	if c == nil || c.Analysis == nil {
		return nil
	}
	return c.Analysis.Summary
}

// Message is one transcript entry. The provider uses "message" for spoken turns
// and "content" for prompt turns.
type Message struct {
	Role    string `json:"role"`
	Message string `json:"message,omitempty"`
	Content string `json:"content,omitempty"`
}

// Text returns whichever of Message or Content is set.
func (m Message) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Content
}

// Analysis holds post-call analysis. Summary may be a JSON object or a string.
type Analysis struct {
	Summary json.RawMessage `json:"summary,omitempty"`
}
