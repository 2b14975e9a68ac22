// Package cmd 定義 debateai 的命令列介面。
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"debateai/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "debateai",
	Short: "AI debate turn service",
	Long: `debateai serves a persona-driven debate API where every AI turn is
streamed from a language model and recorded once it completes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./pkg/config/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute 執行根命令，失敗時以非零狀態結束
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
