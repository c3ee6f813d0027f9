// Package cli implements the jlptdeck CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/japaniel/jlptdeck/pkg/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "jlptdeck",
	Short: "Build JLPT-graded Japanese vocabulary flashcard decks",
	Long: "jlptdeck merges a dictionary archive, a level-tag search service and an\n" +
		"audio provider into importable flashcard decks, one nested deck per JLPT grade.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $CONFIG_PATH or ./config.yaml)")
}

func loadConfig() *config.Config {
	if configPath != "" {
		os.Setenv("CONFIG_PATH", configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
