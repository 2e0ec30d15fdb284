package traject

import (
	"github.com/google/uuid"
)

// TerminationReason describes how an episode ended.
type TerminationReason string

const (
	// TerminationToolFinish means the policy called the terminal tool and
	// submitted an answer.
	TerminationToolFinish TerminationReason = "tool_finish"

	// TerminationStepLimit means the step budget was exhausted without a
	// terminal tool call. The answer is unset.
	TerminationStepLimit TerminationReason = "step_limit"

	// TerminationError means the policy invocation itself failed.
	TerminationError TerminationReason = "error"
)

// Transition is one observation/action/reward record. Exactly one
// transition is recorded per policy invocation.
type Transition struct {
	// Observation is the conversation state as it was handed to the
	// policy, in order.
	Observation []Message `json:"observation"`

	// Text is the generated action.
	Text string `json:"text"`

	// ToolCall is the tool invocation parsed from the action, if any.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// PromptTokenIDs, TokenIDs and LogProbs carry the token-level view of
	// the step needed for policy-gradient training. TokenIDs and LogProbs
	// cover the generated action.
	PromptTokenIDs []int     `json:"prompt_token_ids"`
	TokenIDs       []int     `json:"token_ids"`
	LogProbs       []float64 `json:"log_probs"`

	// Reward is unset until the evaluator broadcasts the episode reward.
	Reward *RewardResult `json:"reward,omitempty"`
}

// Trajectory is an ordered sequence of transitions plus terminal
// metadata. Once terminated it is immutable except for the single
// reward-broadcast mutation performed by the evaluator.
type Trajectory struct {
	ID          string            `json:"id"`
	Transitions []*Transition     `json:"transitions"`
	Answer      string            `json:"answer,omitempty"`
	Termination TerminationReason `json:"termination"`

	// Reward is the episode-level reward set by the evaluator, shared by
	// every transition.
	Reward *RewardResult `json:"reward,omitempty"`
}

func newTrajectory() *Trajectory {
	return &Trajectory{
		ID: uuid.New().String(),
	}
}

func (t *Trajectory) record(tr *Transition) {
	t.Transitions = append(t.Transitions, tr)
}

func (t *Trajectory) terminate(reason TerminationReason) {
	if t.Termination == "" {
		t.Termination = reason
	}
}

// Terminated reports whether the episode has ended.
func (t *Trajectory) Terminated() bool {
	return t.Termination != ""
}
