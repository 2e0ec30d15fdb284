package traject

import (
	"math"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// CompareMode selects how the evaluator compares answers against ground
// truth.
type CompareMode string

const (
	// CompareNumeric tries a numeric comparison with a small tolerance
	// first and falls back to string equality. This is the default.
	CompareNumeric CompareMode = "numeric"

	// CompareExact uses normalized string equality only.
	CompareExact CompareMode = "exact"
)

// Comparison methods reported in RewardResult.Method.
const (
	MethodNumeric = "numeric"
	MethodString  = "string"
	// MethodNone means no comparison happened because the episode did not
	// finish via the terminal tool.
	MethodNone = "none"
)

const numericTolerance = 1e-6

// RewardResult is the scalar reward of an episode plus the comparison
// method that produced it.
type RewardResult struct {
	Reward float64 `json:"reward"`
	Method string  `json:"method"`
}

// Evaluator scores finished trajectories against ground truth and
// broadcasts the resulting reward onto every transition of the episode.
type Evaluator struct {
	mode CompareMode
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithCompareMode sets the reward comparison mode. Default is
// CompareNumeric.
func WithCompareMode(mode CompareMode) EvaluatorOption {
	return func(e *Evaluator) {
		e.mode = mode
	}
}

// NewEvaluator creates a trajectory evaluator.
func NewEvaluator(options ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		mode: CompareNumeric,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Evaluate scores the trajectory and attaches the same RewardResult to
// every transition. Episodes that did not end via the terminal tool get
// reward 0 regardless of their conversation content. Evaluating the same
// trajectory twice yields the same result.
func (e *Evaluator) Evaluate(tj *Trajectory, groundTruth string) (*RewardResult, error) {
	if tj == nil {
		return nil, goerr.New("trajectory is required")
	}
	if !tj.Terminated() {
		return nil, goerr.New("trajectory is not terminated", goerr.V("trajectory_id", tj.ID))
	}

	result := e.compare(tj, groundTruth)

	// The single mutation allowed on a terminated trajectory.
	tj.Reward = result
	for _, tr := range tj.Transitions {
		tr.Reward = result
	}

	return result, nil
}

func (e *Evaluator) compare(tj *Trajectory, groundTruth string) *RewardResult {
	if tj.Termination != TerminationToolFinish {
		return &RewardResult{Reward: 0, Method: MethodNone}
	}

	answer := normalizeAnswer(tj.Answer)
	truth := normalizeAnswer(groundTruth)

	if e.mode == CompareNumeric {
		a, errA := strconv.ParseFloat(answer, 64)
		b, errB := strconv.ParseFloat(truth, 64)
		if errA == nil && errB == nil {
			reward := 0.0
			if math.Abs(a-b) < numericTolerance {
				reward = 1
			}
			return &RewardResult{Reward: reward, Method: MethodNumeric}
		}
	}

	reward := 0.0
	if answer != "" && answer == truth {
		reward = 1
	}
	return &RewardResult{Reward: reward, Method: MethodString}
}

func normalizeAnswer(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	return s
}
