package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/verdant/internal/config"
	"github.com/vango-dev/verdant/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configDir is the --config flag shared by every command.
var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "verdant",
		Short: "Serve cached pages and a typed JSON API",
		Long: `verdant serves pages that render per request, once, or on an
interval, next to a typed JSON API sharing the same route matcher.

Commands run against the project configuration (verdant.json or
verdant.yaml) found in the working directory or its parents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "Directory holding verdant.json or verdant.yaml")

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
		exportCmd(),
		revalidateCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config, or the one
// enclosing the working directory.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configDir != "" {
		cfg, err = config.Load(configDir)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
