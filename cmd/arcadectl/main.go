// Package main provides arcadectl, the operator tool for the arcade server.
//
// Usage:
//
//	arcadectl rebuild <userID>
//	arcadectl rebuild --all
//	arcadectl top --game snake --limit 20
//	arcadectl seed --players 5 --scores 20
//
// Settings come from the same flags, environment and files as the server;
// pass server flags after "--", e.g. arcadectl top -- -store mongo.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/di"
)

var (
	configPath string
	envFile    string
	dataDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "arcadectl",
	Short:         "Operate the arcade score store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to TOML config file")
	flags.StringVar(&envFile, "env-file", ".env", "path to .env file")
	flags.StringVar(&dataDir, "data-dir", "", "data directory of the server")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log at info level")
}

// openContainer loads the server configuration and builds a container.
// Providers are lazy, so commands only start what they invoke. tune may
// adjust the configuration before anything is built.
func openContainer(extra []string, tune func(cfg *config.Config)) (*do.RootScope, error) {
	args := []string{"-env-file", envFile}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	if dataDir != "" {
		args = append(args, "-data-dir", dataDir)
	}
	args = append(args, extra...)

	cfg, err := config.LoadConfig(args)
	if err != nil {
		return nil, err
	}
	if !verbose {
		cfg.Logger.Level = "warn"
	}
	if tune != nil {
		tune(cfg)
	}
	return di.NewContainer(cfg), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
