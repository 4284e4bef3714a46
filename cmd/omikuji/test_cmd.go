package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baajur/omikuji"
	"github.com/baajur/omikuji/eval"
	"github.com/baajur/omikuji/sparse"
)

type testCmdConfig struct {
	*rootCmdConfig
	modelInput string
	dataInput  string
	maxK       int
	beamSize   int
	threads    int
}

func testCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &testCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the performance of a model",
		Long:  `Test the ranking performance of a model against a labeled test dataset, reporting precision and nDCG at 1..k.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			model, err := loadModel(ctx, config.modelInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}

			ds, err := loadDataset(config.dataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Testing on %d examples ...", len(ds.Examples))

			queries := make([]sparse.Vector, len(ds.Examples))
			truths := make([][]uint32, len(ds.Examples))
			for i, ex := range ds.Examples {
				queries[i] = ex.Features
				truths[i] = ex.Labels
			}

			predictions, err := model.PredictSet(ctx, queries, config.maxK, config.threads,
				omikuji.WithBeamSize(config.beamSize))
			if err != nil {
				fmt.Fprintf(os.Stderr, "predicting: %v\n", err)
				os.Exit(4)
			}

			metrics := eval.Evaluate(predictions, truths, config.maxK)
			for k := 0; k < config.maxK; k++ {
				fmt.Printf("P@%-2d  %.4f    nDCG@%-2d  %.4f\n",
					k+1, metrics.PrecisionAt[k], k+1, metrics.NDCGAt[k])
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.modelInput), "model", "m", "model.bin", "model location (local path, s3:// or minio:// URL)")
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to the test dataset (defaults to STDIN)")
	cmd.PersistentFlags().IntVarP(&(config.maxK), "k", "k", 5, "largest rank cutoff to report")
	cmd.PersistentFlags().IntVar(&(config.beamSize), "beam-size", 10, "beam width for tree search")
	cmd.PersistentFlags().IntVar(&(config.threads), "threads", 0, "worker pool size (0 = all cores)")
	return cmd
}

func loadModel(ctx context.Context, location string) (*omikuji.Model, error) {
	r, err := openBlob(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("opening model %s: %w", location, err)
	}
	defer r.Close()
	model, err := omikuji.Load(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", location, err)
	}
	return model, nil
}
