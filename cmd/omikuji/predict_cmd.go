package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baajur/omikuji"
	"github.com/baajur/omikuji/sparse"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelInput string
	dataInput  string
	output     string
	k          int
	beamSize   int
	threads    int
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict labels with a model",
		Long:  `Predict the top labels for every example in a dataset, writing one "label:score ..." line per example.`,
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

			queries := make([]sparse.Vector, len(ds.Examples))
			for i, ex := range ds.Examples {
				queries[i] = ex.Features
			}

			predictions, err := model.PredictSet(ctx, queries, config.k, config.threads,
				omikuji.WithBeamSize(config.beamSize))
			if err != nil {
				fmt.Fprintf(os.Stderr, "predicting: %v\n", err)
				os.Exit(4)
			}

			out := os.Stdout
			if config.output != "" {
				f, err := os.Create(config.output)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(5)
				}
				defer f.Close()
				out = f
			}

			w := bufio.NewWriter(out)
			for _, results := range predictions {
				for i, r := range results {
					if i > 0 {
						fmt.Fprint(w, " ")
					}
					fmt.Fprintf(w, "%d:%.5f", r.Label, r.Score)
				}
				fmt.Fprintln(w)
			}
			if err := w.Flush(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(6)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.modelInput), "model", "m", "model.bin", "model location (local path, s3:// or minio:// URL)")
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to the input dataset (defaults to STDIN; labels may be empty)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "output file (defaults to STDOUT)")
	cmd.PersistentFlags().IntVarP(&(config.k), "k", "k", 5, "number of labels to predict per example")
	cmd.PersistentFlags().IntVar(&(config.beamSize), "beam-size", 10, "beam width for tree search")
	cmd.PersistentFlags().IntVar(&(config.threads), "threads", 0, "worker pool size (0 = all cores)")
	return cmd
}
