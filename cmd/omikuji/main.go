package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
	logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omikuji",
		Short: "omikuji trains and applies extreme multi-label classifiers",
		Long:  `A tool to train partitioned label tree ensembles on sparse multi-label data, evaluate them, and use them to make predictions`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		config.logger = logger(config.verbose)
	}
	rootCmd.AddCommand(versionCmd(), trainCmd(config), testCmd(config), predictCmd(config))
	return rootCmd
}
