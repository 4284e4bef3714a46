package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/baajur/omikuji"
	"github.com/baajur/omikuji/dataset"
	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/persist"
)

type trainCmdConfig struct {
	*rootCmdConfig
	dataInput        string
	output           string
	nTrees           int
	maxLeafSize      int
	clusterEps       float32
	centroidThresh   float32
	loss             string
	cost             float32
	solverEps        float32
	solverMaxIter    int
	weightThreshold  float32
	maxSparseDensity float32
	threads          int
	seed             int64
	codec            string
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a set of data",
		Long:  `Train a partitioned label tree ensemble from a labeled dataset in extreme-classification text format.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			loss, err := parseLoss(config.loss)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			codec, err := persist.ParseCodec(config.codec)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			ds, err := loadDataset(config.dataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			config.Logf("Training on %d examples, %d features, %d labels ...", len(ds.Examples), ds.NFeatures, ds.NLabels)

			model, err := omikuji.Train(ctx, ds,
				omikuji.WithNumTrees(config.nTrees),
				omikuji.WithMaxLeafSize(config.maxLeafSize),
				omikuji.WithClusterEps(config.clusterEps),
				omikuji.WithCentroidThreshold(config.centroidThresh),
				omikuji.WithLoss(loss),
				omikuji.WithCost(config.cost),
				omikuji.WithSolverEps(config.solverEps),
				omikuji.WithSolverMaxIter(config.solverMaxIter),
				omikuji.WithWeightThreshold(config.weightThreshold),
				omikuji.WithMaxSparseDensity(config.maxSparseDensity),
				omikuji.WithThreads(config.threads),
				omikuji.WithSeed(config.seed),
			)
			if err != nil {
				fmt.Fprintf(os.Stderr, "training the model: %v\n", err)
				os.Exit(3)
			}
			config.Logf("Done")

			err = putBlob(ctx, config.output, func(w io.Writer) error {
				return model.SaveToWriter(w, omikuji.WithCodec(codec))
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "saving the model: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Model saved to %s", config.output)
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to the training dataset (defaults to STDIN)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "model.bin", "model output location (local path, s3:// or minio:// URL)")
	cmd.PersistentFlags().IntVar(&(config.nTrees), "n-trees", 3, "number of trees in the ensemble")
	cmd.PersistentFlags().IntVar(&(config.maxLeafSize), "max-leaf-size", 100, "largest label set per leaf")
	cmd.PersistentFlags().Float32Var(&(config.clusterEps), "cluster-eps", 1e-4, "clustering convergence threshold")
	cmd.PersistentFlags().Float32Var(&(config.centroidThresh), "centroid-threshold", 0, "prune threshold for cluster mean components")
	cmd.PersistentFlags().StringVar(&(config.loss), "loss", "hinge", "classifier loss: hinge or log")
	cmd.PersistentFlags().Float32Var(&(config.cost), "cost", 1.0, "classifier regularization cost C")
	cmd.PersistentFlags().Float32Var(&(config.solverEps), "eps", 0.1, "classifier solver convergence threshold")
	cmd.PersistentFlags().IntVar(&(config.solverMaxIter), "max-iter", 20, "classifier solver iteration cap")
	cmd.PersistentFlags().Float32Var(&(config.weightThreshold), "weight-threshold", 0.1, "prune threshold for fitted weights")
	cmd.PersistentFlags().Float32Var(&(config.maxSparseDensity), "max-sparse-density", 0.15, "density above which weights are stored dense")
	cmd.PersistentFlags().IntVar(&(config.threads), "threads", 0, "worker pool size (0 = all cores)")
	cmd.PersistentFlags().Int64Var(&(config.seed), "seed", 1, "random seed")
	cmd.PersistentFlags().StringVar(&(config.codec), "codec", "zstd", "model compression codec: none, lz4 or zstd")
	return cmd
}

func parseLoss(name string) (linear.Loss, error) {
	switch name {
	case "hinge":
		return linear.Hinge, nil
	case "log":
		return linear.Log, nil
	default:
		return 0, fmt.Errorf("unknown loss %q: want hinge or log", name)
	}
}

func loadDataset(path string) (*dataset.Dataset, error) {
	if path == "" {
		return dataset.Load(os.Stdin)
	}
	return dataset.LoadFile(path)
}
