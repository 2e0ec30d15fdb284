package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/traject/dataset"
)

func datasetCommand() *cli.Command {
	return &cli.Command{
		Name:  "dataset",
		Usage: "generate toy math train/val splits as JSON lines",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "train",
				Usage: "number of training examples",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "val",
				Usage: "number of validation examples",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output directory",
				Value: "data",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "RNG seed (0 uses the current time)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Action: runDataset,
	}
}

func runDataset(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool("verbose"))

	seed := int64(cmd.Int("seed"))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := dataset.NewGenerator(seed)

	outDir := cmd.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	splits := []struct {
		name string
		n    int
	}{
		{"train", int(cmd.Int("train"))},
		{"val", int(cmd.Int("val"))},
	}

	for _, split := range splits {
		records := gen.Generate(split.n)
		path := filepath.Join(outDir, split.name+".jsonl")
		if err := dataset.Save(path, records); err != nil {
			return err
		}
		logger.Info("dataset split written", "split", split.name, "count", len(records), "path", path)
	}

	return nil
}
