/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/yamdb/apiserver/config"
	"github.com/yamdb/apiserver/internal/logging"
)

// cfg is loaded once before any subcommand runs.
var cfg config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yamdb",
	Short: "yamdb review catalog API server",
	Long: `yamdb serves a catalog of titles with user reviews, comments and
per-title ratings over a JSON API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.LoadConfig()
		logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
