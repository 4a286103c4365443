package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/deque/internal/cmd/client"
	serverrun "github.com/rzbill/deque/internal/cmd/server"
	cfgpkg "github.com/rzbill/deque/internal/config"
	"github.com/rzbill/deque/pkg/deque"
	logpkg "github.com/rzbill/deque/pkg/log"
)

func main() {
	// CLI output owns stdout; diagnostics go to stderr.
	level, err := logpkg.ParseLevel(os.Getenv("DEQUE_LOG_LEVEL"))
	if err != nil || os.Getenv("DEQUE_LOG_LEVEL") == "" {
		level = logpkg.WarnLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithWriter(os.Stderr),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := clientcmd.NewRoot(clientcmd.ConfigOpener(logger))
	rootCmd.Short = "Reliable queue pairs over Redis, Pebble or SQL"
	rootCmd.Long = "deque moves payloads between a main list and a processing list so that nothing popped is lost before it is committed."
	if v := os.Getenv("DEQUE_CONFIG"); v != "" {
		_ = rootCmd.PersistentFlags().Set("config", v)
	}

	rootCmd.AddCommand(newServerCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), deque.VersionString())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the deque HTTP server",
		Aliases: []string{"run"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(path)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			overlayFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	startCmd.Flags().String("http", "", "HTTP listen address (default from config, :8080)")
	startCmd.Flags().String("backend", "", "Store backend: redis|pebble|sqlite|postgres")
	startCmd.Flags().String("redis-addr", "", "Redis address for the redis backend")
	startCmd.Flags().String("data-dir", "", "Pebble data directory (default: OS application data directory)")
	startCmd.Flags().String("fsync", "", "Pebble fsync mode: always|interval|never")
	startCmd.Flags().String("dsn", "", "Data source name for the sqlite and postgres backends")
	startCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	startCmd.Flags().String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

// overlayFlags applies explicitly set flags on top of file and env config.
func overlayFlags(cmd *cobra.Command, cfg *cfgpkg.Config) {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("http", &cfg.HTTP.Addr)
	set("backend", &cfg.Store.Backend)
	set("redis-addr", &cfg.Store.Redis.Addr)
	set("data-dir", &cfg.Store.Pebble.DataDir)
	set("fsync", &cfg.Store.Pebble.Fsync)
	set("dsn", &cfg.Store.SQL.DSN)
	set("log-level", &cfg.Log.Level)
	set("log-format", &cfg.Log.Format)
}
