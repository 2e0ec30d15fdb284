package traject_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/traject"
)

func finishedTrajectory(answer string, steps int) *traject.Trajectory {
	tj := &traject.Trajectory{
		ID:          "test-trajectory",
		Answer:      answer,
		Termination: traject.TerminationToolFinish,
	}
	for i := 0; i < steps; i++ {
		tj.Transitions = append(tj.Transitions, &traject.Transition{
			Text:     "step",
			TokenIDs: []int{1, 2},
			LogProbs: []float64{-0.1, -0.2},
		})
	}
	return tj
}

func TestEvaluatorNumeric(t *testing.T) {
	evaluator := traject.NewEvaluator()

	t.Run("equivalent representations match", func(t *testing.T) {
		tj := finishedTrajectory("42", 1)
		result := gt.R1(evaluator.Evaluate(tj, "42.0")).NoError(t)
		gt.Equal(t, 1.0, result.Reward)
		gt.Equal(t, traject.MethodNumeric, result.Method)
	})

	t.Run("tolerance absorbs float noise", func(t *testing.T) {
		tj := finishedTrajectory("0.30000000001", 1)
		result := gt.R1(evaluator.Evaluate(tj, "0.3")).NoError(t)
		gt.Equal(t, 1.0, result.Reward)
	})

	t.Run("wrong number scores zero", func(t *testing.T) {
		tj := finishedTrajectory("41", 1)
		result := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)
		gt.Equal(t, 0.0, result.Reward)
		gt.Equal(t, traject.MethodNumeric, result.Method)
	})

	t.Run("non-numeric answer falls back to string comparison", func(t *testing.T) {
		tj := finishedTrajectory("eight", 1)
		result := gt.R1(evaluator.Evaluate(tj, "7")).NoError(t)
		gt.Equal(t, 0.0, result.Reward)
		gt.Equal(t, traject.MethodString, result.Method)
	})

	t.Run("string fallback matches after normalization", func(t *testing.T) {
		tj := finishedTrajectory("  Eight ", 1)
		result := gt.R1(evaluator.Evaluate(tj, "eight")).NoError(t)
		gt.Equal(t, 1.0, result.Reward)
		gt.Equal(t, traject.MethodString, result.Method)
	})

	t.Run("thousands separators are stripped", func(t *testing.T) {
		tj := finishedTrajectory("1,000", 1)
		result := gt.R1(evaluator.Evaluate(tj, "1000")).NoError(t)
		gt.Equal(t, 1.0, result.Reward)
	})

	t.Run("empty answer never matches empty truth", func(t *testing.T) {
		tj := finishedTrajectory("", 1)
		result := gt.R1(evaluator.Evaluate(tj, "")).NoError(t)
		gt.Equal(t, 0.0, result.Reward)
	})
}

func TestEvaluatorExact(t *testing.T) {
	evaluator := traject.NewEvaluator(traject.WithCompareMode(traject.CompareExact))

	t.Run("numeric equivalence is not enough", func(t *testing.T) {
		tj := finishedTrajectory("42", 1)
		result := gt.R1(evaluator.Evaluate(tj, "42.0")).NoError(t)
		gt.Equal(t, 0.0, result.Reward)
		gt.Equal(t, traject.MethodString, result.Method)
	})

	t.Run("identical strings match", func(t *testing.T) {
		tj := finishedTrajectory("42", 1)
		result := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)
		gt.Equal(t, 1.0, result.Reward)
	})
}

func TestEvaluatorTermination(t *testing.T) {
	evaluator := traject.NewEvaluator()

	t.Run("step limit scores zero regardless of content", func(t *testing.T) {
		tj := finishedTrajectory("42", 2)
		tj.Termination = traject.TerminationStepLimit
		tj.Answer = ""
		tj.Transitions[1].Text = "the answer is 42"

		result := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)
		gt.Equal(t, 0.0, result.Reward)
		gt.Equal(t, traject.MethodNone, result.Method)
	})

	t.Run("error termination scores zero", func(t *testing.T) {
		tj := finishedTrajectory("", 1)
		tj.Termination = traject.TerminationError

		result := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)
		gt.Equal(t, 0.0, result.Reward)
		gt.Equal(t, traject.MethodNone, result.Method)
	})

	t.Run("unterminated trajectory is rejected", func(t *testing.T) {
		tj := finishedTrajectory("42", 1)
		tj.Termination = ""

		_, err := evaluator.Evaluate(tj, "42")
		gt.Error(t, err)
	})
}

func TestEvaluatorBroadcast(t *testing.T) {
	evaluator := traject.NewEvaluator()

	t.Run("every transition shares the episode reward", func(t *testing.T) {
		tj := finishedTrajectory("42", 3)
		result := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)

		gt.Equal(t, result, tj.Reward)
		for _, tr := range tj.Transitions {
			gt.Equal(t, result, tr.Reward)
		}
	})

	t.Run("evaluation is idempotent", func(t *testing.T) {
		tj := finishedTrajectory("42", 2)
		first := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)
		second := gt.R1(evaluator.Evaluate(tj, "42")).NoError(t)

		gt.Equal(t, first.Reward, second.Reward)
		gt.Equal(t, first.Method, second.Method)
		gt.Equal(t, second, tj.Reward)
	})
}
