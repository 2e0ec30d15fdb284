package traject

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Record is the flattened shape of one transition as consumed by a
// training backend.
type Record struct {
	TrajectoryID   string    `json:"trajectory_id"`
	Step           int       `json:"step"`
	PromptTokenIDs []int     `json:"prompt_token_ids"`
	TokenIDs       []int     `json:"response_token_ids"`
	LogProbs       []float64 `json:"log_probs"`

	// LossMask marks which response tokens participate in the loss.
	LossMask []int `json:"loss_mask"`

	Reward float64 `json:"reward"`
}

// Episode groups the flattened records of one trajectory.
type Episode struct {
	TrajectoryID string    `json:"trajectory_id"`
	Reward       float64   `json:"reward"`
	Records      []*Record `json:"records"`
}

// Backend consumes reward-annotated episodes. Implementations are
// selected by configuration at construction time; the core only emits
// this shape and runs no optimization step itself.
type Backend interface {
	Consume(ctx context.Context, episodes []*Episode) error
}

// Flatten converts an evaluated trajectory into the training-backend
// shape. It fails with ErrNotEvaluated if the reward broadcast has not
// happened yet.
func Flatten(tj *Trajectory) (*Episode, error) {
	if tj == nil {
		return nil, goerr.New("trajectory is required")
	}
	if tj.Reward == nil {
		return nil, goerr.Wrap(ErrNotEvaluated, "flatten requires an evaluated trajectory", goerr.V("trajectory_id", tj.ID))
	}

	episode := &Episode{
		TrajectoryID: tj.ID,
		Reward:       tj.Reward.Reward,
		Records:      make([]*Record, 0, len(tj.Transitions)),
	}

	for i, tr := range tj.Transitions {
		if tr.Reward == nil {
			return nil, goerr.Wrap(ErrNotEvaluated, "transition has no reward", goerr.V("trajectory_id", tj.ID), goerr.V("step", i))
		}

		mask := make([]int, len(tr.TokenIDs))
		for j := range mask {
			mask[j] = 1
		}

		episode.Records = append(episode.Records, &Record{
			TrajectoryID:   tj.ID,
			Step:           i,
			PromptTokenIDs: tr.PromptTokenIDs,
			TokenIDs:       tr.TokenIDs,
			LogProbs:       tr.LogProbs,
			LossMask:       mask,
			Reward:         tr.Reward.Reward,
		})
	}

	return episode, nil
}
