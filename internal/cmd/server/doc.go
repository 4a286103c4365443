// Package serverrun exposes the Run entrypoint the CLI uses to start the
// deque HTTP server over the configured store and shut it down on signal.
//
// Example:
//
//	cfg, _ := config.Resolve("deque.yaml")
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg})
package serverrun
