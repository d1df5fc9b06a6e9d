package main

import (
	"fmt"
	"os"

	"github.com/Abraxas-365/relay-match/internal/config"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/spf13/cobra"
)

const app = "relay-match"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "Candidate and job matching engine with recommendation and notification dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML), optional")
	rootCmd.AddCommand(serveCmd, workerCmd, batchCmd, digestCmd)
}

// loadConfig reads the configuration and initializes logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := logx.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func main() {
	defer logx.Sync()
	if err := rootCmd.Execute(); err != nil {
		logx.Errorf("%s: %v", app, err)
		os.Exit(1)
	}
}
