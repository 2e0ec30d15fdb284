package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/traject"
	"github.com/m-mizutani/traject/backend/jsonl"
	"github.com/m-mizutani/traject/backend/trainer"
	"github.com/m-mizutani/traject/dataset"
	"github.com/m-mizutani/traject/policy/openai"
	"github.com/m-mizutani/traject/tools/calc"
	"github.com/m-mizutani/traject/tools/pyeval"
)

func rolloutCommand() *cli.Command {
	return &cli.Command{
		Name:  "rollout",
		Usage: "run one episode per dataset record and emit annotated transitions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Usage:    "dataset file (JSON lines)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "step budget per episode",
				Value: traject.DefaultMaxSteps,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "number of concurrent episodes",
				Value: 4,
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "policy model name",
				Value:   openai.DefaultModel,
				Sources: cli.EnvVars("TRAJECT_MODEL"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "OpenAI-compatible server base URL (e.g. a local vLLM)",
				Sources: cli.EnvVars("TRAJECT_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the policy server",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "training backend: jsonl or trainer",
				Value: "jsonl",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output file for the jsonl backend",
				Value: "transitions.jsonl",
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "enqueue endpoint for the trainer backend",
				Sources: cli.EnvVars("TRAJECT_TRAINER_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:  "compare",
				Usage: "reward comparison mode: numeric or exact",
				Value: string(traject.CompareNumeric),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Action: runRollout,
	}
}

func runRollout(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool("verbose"))

	records, err := dataset.Load(cmd.String("data"))
	if err != nil {
		return err
	}

	registry := traject.NewRegistry()
	if err := registry.Register(
		traject.NewFinishTool(traject.DefaultFinishTool),
		pyeval.New(),
		calc.New(),
	); err != nil {
		return err
	}

	policy, err := openai.New(cmd.String("api-key"),
		openai.WithModel(cmd.String("model")),
		openai.WithBaseURL(cmd.String("base-url")),
	)
	if err != nil {
		return err
	}

	runner, err := traject.NewRunner(policy, registry,
		traject.WithMaxSteps(int(cmd.Int("max-steps"))),
		traject.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	evaluator := traject.NewEvaluator(
		traject.WithCompareMode(traject.CompareMode(cmd.String("compare"))),
	)

	sink, closeSink, err := newBackend(cmd)
	if err != nil {
		return err
	}
	defer closeSink()

	episodes := collect(ctx, logger, runner, evaluator, records, int(cmd.Int("concurrency")))

	if err := sink.Consume(ctx, episodes); err != nil {
		return err
	}

	var rewardSum float64
	for _, episode := range episodes {
		rewardSum += episode.Reward
	}
	accuracy := 0.0
	if len(episodes) > 0 {
		accuracy = rewardSum / float64(len(episodes))
	}
	logger.Info("rollout complete",
		"records", len(records),
		"episodes", len(episodes),
		"accuracy", accuracy,
	)

	return nil
}

// collect runs one episode per record with a bounded worker pool. Episode
// ordering in the output is not significant; transitions stay ordered
// within each episode.
func collect(ctx context.Context, logger *slog.Logger, runner *traject.Runner, evaluator *traject.Evaluator, records []*dataset.Record, concurrency int) []*traject.Episode {
	if concurrency < 1 {
		concurrency = 1
	}

	jobs := make(chan *dataset.Record)
	results := make(chan *traject.Episode)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				episode, err := runEpisode(ctx, runner, evaluator, record)
				if err != nil {
					logger.Warn("episode failed", "error", err)
				}
				if episode != nil {
					results <- episode
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, record := range records {
			select {
			case jobs <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var episodes []*traject.Episode
	for episode := range results {
		episodes = append(episodes, episode)
	}
	return episodes
}

func runEpisode(ctx context.Context, runner *traject.Runner, evaluator *traject.Evaluator, record *dataset.Record) (*traject.Episode, error) {
	tj, runErr := runner.Run(ctx, record.Instruction())
	if tj == nil {
		return nil, runErr
	}

	// Errored episodes still get evaluated: they carry reward 0 so the
	// aggregate never has to special-case a missing episode.
	if _, err := evaluator.Evaluate(tj, record.GroundTruth); err != nil {
		return nil, err
	}

	episode, err := traject.Flatten(tj)
	if err != nil {
		return nil, err
	}
	return episode, runErr
}

func newBackend(cmd *cli.Command) (traject.Backend, func(), error) {
	switch cmd.String("backend") {
	case "jsonl":
		f, err := os.Create(cmd.String("out"))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create output file", goerr.V("path", cmd.String("out")))
		}
		return jsonl.New(f), func() { _ = f.Close() }, nil

	case "trainer":
		endpoint := cmd.String("endpoint")
		if endpoint == "" {
			return nil, nil, goerr.New("trainer backend requires --endpoint")
		}
		return trainer.New(endpoint), func() {}, nil

	default:
		return nil, nil, goerr.New("unknown backend", goerr.V("backend", cmd.String("backend")))
	}
}
