package httpserver

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/buaazp/fasthttprouter"
	"github.com/valyala/fasthttp"

	"github.com/rzbill/deque/internal/runtime"
	"github.com/rzbill/deque/internal/server/http/controllers"
	"github.com/rzbill/deque/pkg/id"
	logpkg "github.com/rzbill/deque/pkg/log"
)

// RequestIDHeader carries the per-request ID in responses.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
	ids    *id.Generator
	srv    *fasthttp.Server

	mu  sync.Mutex
	lis net.Listener
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	logger = logger.WithComponent("http")
	maxBlock := time.Duration(rt.Config().HTTP.MaxBlockMs) * time.Millisecond

	router := fasthttprouter.New()
	controllers.NewControllerRegistry(rt, logger, maxBlock).RegisterAllRoutes(router)
	router.NotFound = func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}

	s := &Server{rt: rt, logger: logger, ids: id.NewGenerator()}
	s.srv = &fasthttp.Server{
		Handler:               s.middleware(router.Handler),
		Name:                  "deque",
		NoDefaultServerHeader: true,
		NoDefaultDate:         true,
		IdleTimeout:           time.Minute,
	}
	return s
}

// Handler returns the full request handler, middleware included.
func (s *Server) Handler() fasthttp.RequestHandler { return s.srv.Handler }

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		done := make(chan struct{})
		go func() {
			_ = s.srv.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.logger.Warn("http shutdown timed out")
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops accepting connections without waiting for in-flight
// requests; cancel the Serve context for a graceful stop.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// middleware tags requests with an ID, applies CORS and logs the outcome.
func (s *Server) middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		rid := s.ids.Next().String()
		ctx.Response.Header.Set(RequestIDHeader, rid)
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)

		s.logger.Debug("request",
			logpkg.RequestID(rid),
			logpkg.Str("method", string(ctx.Method())),
			logpkg.Str("path", string(ctx.Path())),
			logpkg.Int("status", ctx.Response.StatusCode()),
			logpkg.Dur("elapsed", time.Since(start)),
		)
	}
}
