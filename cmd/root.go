package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tanq16/vidq/internal/utils"
)

var (
	configPath string
	debug      bool
	workers    int
	logFile    string
	outputDir  string
)

var VidqVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "vidq",
	Short:   "vidq queues bilibili and m3u8 downloads and drives the external downloaders",
	Version: VidqVersion,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".vidq", "config.yaml")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Number of downloads to run in parallel (overrides maxRunner)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file while the progress display is shown (default: <dataDir>/"+utils.LogFile+")")

	rootCmd.AddCommand(newBilibiliCmd())
	rootCmd.AddCommand(newM3U8Cmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newServeCmd())
}
