package traject

import "context"

// FinishTool is the designated terminal tool. The rollout loop intercepts
// it by name and never executes it; it is registered so the policy sees
// its schema among the advertised capabilities.
type FinishTool struct {
	name string
}

// NewFinishTool creates a terminal tool under the given name. An empty
// name falls back to DefaultFinishTool.
func NewFinishTool(name string) *FinishTool {
	if name == "" {
		name = DefaultFinishTool
	}
	return &FinishTool{name: name}
}

func (t *FinishTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        t.name,
		Description: "Submit the final answer and end the episode. Call this tool exactly once, when the answer is known.",
		Parameters: map[string]*Parameter{
			"answer": {
				Type:        TypeString,
				Description: "The final answer to the given problem.",
			},
		},
		Required: []string{"answer"},
	}
}

// Run only exists to satisfy the Tool interface; the loop terminates the
// episode before execution. It echoes the answer for callers that invoke
// the registry directly.
func (t *FinishTool) Run(ctx context.Context, args map[string]any) (string, error) {
	if answer, ok := args["answer"].(string); ok {
		return answer, nil
	}
	return "", nil
}
