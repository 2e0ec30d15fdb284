package jsonl_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/traject"
	"github.com/m-mizutani/traject/backend/jsonl"
)

func testEpisode(id string, steps int, reward float64) *traject.Episode {
	episode := &traject.Episode{
		TrajectoryID: id,
		Reward:       reward,
	}
	for i := 0; i < steps; i++ {
		episode.Records = append(episode.Records, &traject.Record{
			TrajectoryID: id,
			Step:         i,
			TokenIDs:     []int{1, 2, 3},
			LogProbs:     []float64{-0.1, -0.2, -0.3},
			LossMask:     []int{1, 1, 1},
			Reward:       reward,
		})
	}
	return episode
}

func TestConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("one line per record", func(t *testing.T) {
		var buf bytes.Buffer
		backend := jsonl.New(&buf)

		gt.NoError(t, backend.Consume(ctx, []*traject.Episode{
			testEpisode("ep-1", 2, 1),
			testEpisode("ep-2", 3, 0),
		}))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		gt.Equal(t, 5, len(lines))

		var record traject.Record
		gt.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
		gt.Equal(t, "ep-1", record.TrajectoryID)
		gt.Equal(t, 0, record.Step)
		gt.Equal(t, 1.0, record.Reward)

		gt.NoError(t, json.Unmarshal([]byte(lines[4]), &record))
		gt.Equal(t, "ep-2", record.TrajectoryID)
		gt.Equal(t, 2, record.Step)
	})

	t.Run("empty batch writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		backend := jsonl.New(&buf)

		gt.NoError(t, backend.Consume(ctx, nil))
		gt.Equal(t, 0, buf.Len())
	})

	t.Run("cancelled context stops writing", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		var buf bytes.Buffer
		backend := jsonl.New(&buf)

		err := backend.Consume(cancelled, []*traject.Episode{testEpisode("ep-1", 1, 1)})
		gt.Error(t, err)
		gt.Equal(t, 0, buf.Len())
	})
}
