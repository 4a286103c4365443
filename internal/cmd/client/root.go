package client

import (
	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/deque/internal/config"
	"github.com/rzbill/deque/internal/runtime"
	logpkg "github.com/rzbill/deque/pkg/log"
)

// Opener returns the runtime a command runs against. The command closes it.
type Opener func(cmd *cobra.Command) (*runtime.Runtime, error)

// ConfigOpener resolves the --config flag (plus DEQUE_* variables) and
// opens the runtime it describes.
func ConfigOpener(logger logpkg.Logger) Opener {
	return func(cmd *cobra.Command) (*runtime.Runtime, error) {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := cfgpkg.Resolve(path)
		if err != nil {
			return nil, err
		}
		return runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	}
}

// NewRoot constructs a root Cobra command holding the queue command group.
func NewRoot(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "deque",
		Short:         "Reliable queue client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (JSON or YAML)")
	root.AddCommand(NewQueueCommand(open))
	return root
}
