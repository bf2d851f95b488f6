package judges

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/copperline/arbiter/internal/panel"
	"github.com/copperline/arbiter/pkg/formatting"
)

const narrativeSystemPrompt = `You assess whether the evidence attached to a payment dispute plausibly supports the declared dispute reason. Return ONLY a JSON object with these fields:
- "pass": boolean, true when the evidence is plausible and internally consistent for the reason
- "confidence": number in [0,1], your confidence in the assessment
- "reason": one short sentence explaining the assessment

Rules:
- Judge plausibility only; do not re-check structural requirements like missing fields
- Contradictions between evidence entries lower confidence and may fail the check
- Return valid JSON only, no markdown fencing or explanation`

// narrativeResponse is the model's wire format.
type narrativeResponse struct {
	Pass       bool    `json:"pass"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Narrative is the model-backed plausibility check. Non-critical: it
// informs confidence (and thereby the oversight tier) but cannot veto a
// case on its own.
type Narrative struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewNarrative creates the narrative judge with the given API key and model.
func NewNarrative(apiKey, model string) *Narrative {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Narrative{
		api:   &client,
		model: anthropic.Model(model),
	}
}

func (n *Narrative) Name() string   { return "narrative" }
func (n *Narrative) Critical() bool { return false }

func (n *Narrative) Score(ctx context.Context, input panel.Input) (panel.Verdict, error) {
	msg, err := n.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     n.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: narrativeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildNarrativePrompt(input))),
		},
	})
	if err != nil {
		return panel.Verdict{}, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return panel.Verdict{}, fmt.Errorf("no text content in API response")
	}

	response, err := formatting.Parse[narrativeResponse](text)
	if err != nil {
		return panel.Verdict{}, fmt.Errorf("narrative response: %w", err)
	}

	return panel.Verdict{
		Pass:       response.Pass,
		Confidence: clamp(response.Confidence),
		Reason:     response.Reason,
	}, nil
}

func buildNarrativePrompt(input panel.Input) string {
	kinds := make([]string, 0, len(input.Evidence))
	for kind := range input.Evidence {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dispute reason: %s\n", input.Reason)
	fmt.Fprintf(&sb, "Amount: %d (minor units), currency %s\n\nEvidence:\n", input.Amount, input.Currency)
	for _, kind := range kinds {
		fmt.Fprintf(&sb, "--- %s ---\n%s\n", kind, input.Evidence[kind])
	}
	return sb.String()
}

func clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
