package traject_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/traject"
)

func TestFlatten(t *testing.T) {
	t.Run("unevaluated trajectory is rejected", func(t *testing.T) {
		tj := finishedTrajectory("42", 2)

		_, err := traject.Flatten(tj)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrNotEvaluated))
	})

	t.Run("records mirror the transitions in order", func(t *testing.T) {
		tj := finishedTrajectory("42", 3)
		gt.R1(traject.NewEvaluator().Evaluate(tj, "42")).NoError(t)

		episode := gt.R1(traject.Flatten(tj)).NoError(t)
		gt.Equal(t, tj.ID, episode.TrajectoryID)
		gt.Equal(t, 1.0, episode.Reward)
		gt.Equal(t, len(tj.Transitions), len(episode.Records))

		for i, record := range episode.Records {
			gt.Equal(t, i, record.Step)
			gt.Equal(t, tj.ID, record.TrajectoryID)
			gt.Equal(t, 1.0, record.Reward)
			gt.Equal(t, tj.Transitions[i].TokenIDs, record.TokenIDs)
			gt.Equal(t, tj.Transitions[i].LogProbs, record.LogProbs)
		}
	})

	t.Run("loss mask covers every response token", func(t *testing.T) {
		tj := finishedTrajectory("42", 1)
		tj.Transitions[0].TokenIDs = []int{10, 11, 12, 13}
		tj.Transitions[0].LogProbs = []float64{-0.1, -0.2, -0.3, -0.4}
		gt.R1(traject.NewEvaluator().Evaluate(tj, "42")).NoError(t)

		episode := gt.R1(traject.Flatten(tj)).NoError(t)
		gt.Equal(t, []int{1, 1, 1, 1}, episode.Records[0].LossMask)
	})

	t.Run("zero-reward episode flattens the same way", func(t *testing.T) {
		tj := finishedTrajectory("41", 2)
		gt.R1(traject.NewEvaluator().Evaluate(tj, "42")).NoError(t)

		episode := gt.R1(traject.Flatten(tj)).NoError(t)
		gt.Equal(t, 0.0, episode.Reward)
		for _, record := range episode.Records {
			gt.Equal(t, 0.0, record.Reward)
		}
	})
}
