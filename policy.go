package traject

import "context"

// ToolCall is a tool invocation requested by the policy.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// PolicyResponse is the result of one policy invocation: the generated
// action plus its token-level view.
type PolicyResponse struct {
	// Text is the generated text of the action.
	Text string

	// ToolCall is a structured tool call if the inference server parsed
	// one. When nil, the rollout loop falls back to parsing the markup in
	// Text.
	ToolCall *ToolCall

	// PromptTokenIDs are the token ids of the rendered prompt.
	PromptTokenIDs []int

	// TokenIDs and LogProbs are the per-token ids and log-probabilities
	// of the generated action.
	TokenIDs []int
	LogProbs []float64
}

// PolicyClient is the inference collaborator. It accepts the conversation
// state and the available tool schemas and returns the generated action.
// The call is the sole suspension point of the rollout loop and must honor
// context cancellation.
type PolicyClient interface {
	Generate(ctx context.Context, messages []Message, tools []ToolSpec) (*PolicyResponse, error)
}
