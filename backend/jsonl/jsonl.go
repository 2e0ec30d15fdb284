// Package jsonl is a training backend that appends flattened transition
// records to a writer as JSON lines, one record per line. It is the
// default sink for offline collection: a trainer ingests the file later.
package jsonl

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/traject"
)

// Backend writes records to a single writer. Consume may be called from
// concurrent episode workers; writes are serialized.
type Backend struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a backend writing to w.
func New(w io.Writer) *Backend {
	return &Backend{
		enc: json.NewEncoder(w),
	}
}

func (b *Backend) Consume(ctx context.Context, episodes []*traject.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, episode := range episodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, record := range episode.Records {
			if err := b.enc.Encode(record); err != nil {
				return goerr.Wrap(err, "failed to encode transition record", goerr.V("trajectory_id", episode.TrajectoryID))
			}
		}
	}

	return nil
}
