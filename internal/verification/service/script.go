package service

import (
	"fmt"

	"github.com/lunchpaillola/docusign-voice/internal/voice"
)

// Closing phrases. The provider ends the call when the assistant says either one.
const (
	ClosingVerified    = "This call is verified. Thank you and have a great day."
	ClosingNotVerified = "This call is not verified. Thank you and have a great day."
)

// ScriptConfig parameterizes the verification assistant.
type ScriptConfig struct {
	AgentName          string
	CompanyName        string
	ModelProvider      string
	Model              string
	Temperature        float64
	SilenceTimeout     int
	MaxDurationSeconds int
}

// DefaultScriptConfig returns the stock assistant settings.
func DefaultScriptConfig() ScriptConfig {
	return ScriptConfig{
		AgentName:          "Jennifer",
		CompanyName:        "DocuVoice",
		ModelProvider:      "openai",
		Model:              "gpt-4",
		Temperature:        0.7,
		SilenceTimeout:     30,
		MaxDurationSeconds: 300,
	}
}

const systemPromptTemplate = `You are a phone verification assistant. Your only job is to verify the code %[1]s.

Follow these exact steps:
1. Listen for the user to say numbers
2. Compare their numbers to %[1]s
3. If they say exactly %[1]s:
   - Say "%[2]s"
   - End call
4. If they say different numbers:
   - Say "Incorrect code. Let me repeat it: %[1]s"
   - Give one more try
   - If second attempt wrong:
     - Say "%[3]s"
     - End call
5. If no clear numbers heard:
   - Say "I need you to say the numbers %[1]s"
   - If still no numbers:
     - Say "%[3]s"
     - End call

Only use these exact ending phrases:
- "%[2]s"
- "%[3]s"`

const summaryPrompt = `Summarize whether the caller repeated the verification code correctly.
Respond with only a JSON object of the form {"verified": true|false, "reason": "<short explanation>"}.
"verified" is true only if the assistant ended the call with "` + ClosingVerified + `".`

// BuildAssistant returns the scripted assistant for code.
func BuildAssistant(cfg ScriptConfig, code string) *voice.Assistant {
	return &voice.Assistant{
		Name: "Phone Verification " + code,
		Model: voice.Model{
			Provider:    cfg.ModelProvider,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Messages: []voice.ModelMessage{{
				Role:    "system",
				Content: fmt.Sprintf(systemPromptTemplate, code, ClosingVerified, ClosingNotVerified),
			}},
		},
		FirstMessage: fmt.Sprintf("Hi, this is %s from %s. I'm calling to verify your phone number for a DocuSign contract. "+
			"Your verification code is: %s. Please repeat this code back to me.", cfg.AgentName, cfg.CompanyName, spaced(code)),
		FirstMessageMode:      "assistant-speaks-first",
		SilenceTimeoutSeconds: cfg.SilenceTimeout,
		MaxDurationSeconds:    cfg.MaxDurationSeconds,
		EndCallPhrases:        []string{ClosingVerified, ClosingNotVerified},
		ArtifactPlan: &voice.ArtifactPlan{
			RecordingEnabled: true,
			TranscriptPlan:   &voice.TranscriptPlan{Enabled: true},
		},
		AnalysisPlan: &voice.AnalysisPlan{SummaryPrompt: summaryPrompt},
	}
}

// spaced separates digits so text-to-speech reads "1 2 3 4" instead of "one thousand...".
func spaced(code string) string {
	out := make([]byte, 0, len(code)*2)
	for i := 0; i < len(code); i++ {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, code[i])
	}
	return string(out)
}
