// Package main provides the CLI entry point for the animated face.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/normanking/cortexface/internal/config"
	"github.com/normanking/cortexface/internal/logging"
)

// version is set at build time
var version = "dev"

func init() {
	// GLFW and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "avatarface",
		Short:        "Animated minimal face with blink, saccade and breath",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.cortexface/config.yaml)")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newSnapshotCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger.
func setup(configPath string) (*config.Loader, *config.Config, *logging.Logger, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(&logging.Config{
		Dir:        cfg.Log.Dir,
		Level:      cfg.Log.Level,
		MaxHistory: cfg.Log.MaxHistory,
		Console:    cfg.Log.Console,
		Out:        os.Stderr,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return loader, cfg, logger, nil
}
