package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/rzbill/deque/internal/config"
	"github.com/rzbill/deque/internal/runtime"
	httpserver "github.com/rzbill/deque/internal/server/http"
	"github.com/rzbill/deque/pkg/deque"
	logpkg "github.com/rzbill/deque/pkg/log"
)

type Options struct {
	// HTTPAddr overrides Config.HTTP.Addr when set.
	HTTPAddr string
	Config   cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
}

// Run opens the configured store, serves HTTP and blocks until ctx is
// cancelled or a termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if opts.HTTPAddr != "" {
		cfg.HTTP.Addr = opts.HTTPAddr
	}

	logger := opts.Logger
	if logger == nil {
		l, err := logpkg.ApplyConfig(&cfg.Log)
		if err != nil {
			return err
		}
		logger = l
	}
	// Pebble and the SQL drivers log through the standard library.
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting deque server",
		logpkg.Str("version", deque.Version),
		logpkg.Str("backend", cfg.Store.Backend),
		logpkg.Str("http", cfg.HTTP.Addr),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	hsrv := httpserver.New(rt, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, cfg.HTTP.Addr) }()

	select {
	case err := <-errCh:
		if sctx.Err() == nil && err != nil {
			logger.Error("http server failed", logpkg.Err(err))
			return err
		}
		return nil
	case <-sctx.Done():
	}
	// Serve drains in-flight requests before the deferred store close.
	<-errCh
	logger.Info("deque server stopped")
	return nil
}
