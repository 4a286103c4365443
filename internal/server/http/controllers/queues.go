package controllers

import (
	"context"
	"time"

	"github.com/buaazp/fasthttprouter"
	"github.com/valyala/fasthttp"

	"github.com/rzbill/deque/internal/runtime"
	"github.com/rzbill/deque/pkg/deque"
	logpkg "github.com/rzbill/deque/pkg/log"
)

// QueuesController exposes queue pair operations. Each request opens a
// fresh Deque over the runtime's store, so last-message state never leaks
// between clients; CommitLast has no HTTP route for that reason.
type QueuesController struct {
	rt       *runtime.Runtime
	logger   logpkg.Logger
	maxBlock time.Duration
}

// NewQueuesController caps blocking pops at maxBlock; zero means no cap.
func NewQueuesController(rt *runtime.Runtime, logger logpkg.Logger, maxBlock time.Duration) *QueuesController {
	return &QueuesController{rt: rt, logger: logger, maxBlock: maxBlock}
}

// RegisterRoutes registers queue routes with the given router.
func (c *QueuesController) RegisterRoutes(router *fasthttprouter.Router) {
	router.GET("/v1/queues/:name", c.handleStats)
	router.DELETE("/v1/queues/:name", c.handleClear)
	router.POST("/v1/queues/:name/push", c.handlePush)
	router.POST("/v1/queues/:name/unshift", c.handleUnshift)
	router.POST("/v1/queues/:name/pop", c.handlePop)
	router.POST("/v1/queues/:name/commit", c.handleCommit)
	router.POST("/v1/queues/:name/commit-all", c.handleCommitAll)
	router.POST("/v1/queues/:name/refill", c.handleRefill)
}

// open builds the Deque named by the :name path parameter, honouring an
// optional process_name query argument.
func (c *QueuesController) open(ctx *fasthttp.RequestCtx, extra ...deque.Option) (*deque.Deque, bool) {
	name, _ := ctx.UserValue("name").(string)
	var opts []deque.Option
	if args := ctx.QueryArgs(); args.Has("process_name") {
		opts = append(opts, deque.WithProcessName(string(args.Peek("process_name"))))
	}
	q, err := c.rt.OpenDeque(name, append(opts, extra...)...)
	if err != nil {
		writeStoreError(ctx, err)
		return nil, false
	}
	return q, true
}

// handleStats reports both list lengths.
// GET /v1/queues/:name
func (c *QueuesController) handleStats(ctx *fasthttp.RequestCtx) {
	q, ok := c.open(ctx)
	if !ok {
		return
	}
	n, err := q.Len(ctx)
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	p, err := q.ProcessingLen(ctx)
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	writeJSON(ctx, queueStats{Name: q.Name(), ProcessName: q.ProcessName(), Length: n, Processing: p})
}

// handlePush inserts the request body at the head of the main list.
// POST /v1/queues/:name/push
func (c *QueuesController) handlePush(ctx *fasthttp.RequestCtx) {
	c.insert(ctx, (*deque.Deque).Push)
}

// handleUnshift inserts the request body at the tail of the main list.
// POST /v1/queues/:name/unshift
func (c *QueuesController) handleUnshift(ctx *fasthttp.RequestCtx) {
	c.insert(ctx, (*deque.Deque).Unshift)
}

type insertFunc func(*deque.Deque, context.Context, []byte) (int64, error)

func (c *QueuesController) insert(ctx *fasthttp.RequestCtx, fn insertFunc) {
	q, ok := c.open(ctx)
	if !ok {
		return
	}
	// the body buffer is reused after the handler returns
	payload := append([]byte(nil), ctx.PostBody()...)
	n, err := fn(q, ctx, payload)
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	writeJSON(ctx, lengthResp{Length: n})
}

// handlePop moves one payload to the processing list and returns it as the
// raw response body, or 204 when none was available.
// POST /v1/queues/:name/pop?block=1&timeout_ms=N
func (c *QueuesController) handlePop(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	block := parseBool(args.Peek("block"))

	var extra []deque.Option
	if block {
		timeout, set, err := parseMillis(args.Peek("timeout_ms"))
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		if !set {
			timeout = time.Duration(c.rt.Config().Queue.TimeoutMs) * time.Millisecond
		}
		if c.maxBlock > 0 && (timeout == 0 || timeout > c.maxBlock) {
			timeout = c.maxBlock
		}
		extra = append(extra, deque.WithTimeout(timeout))
	}

	q, ok := c.open(ctx, extra...)
	if !ok {
		return
	}
	var (
		msg []byte
		err error
	)
	if block {
		msg, ok, err = q.Pop(ctx)
	} else {
		msg, ok, err = q.TryPop(ctx)
	}
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	if !ok {
		writeNoContent(ctx)
		return
	}
	ctx.SetContentType("application/octet-stream")
	ctx.SetBody(msg)
}

// handleCommit removes every copy of the request body from the processing list.
// POST /v1/queues/:name/commit
func (c *QueuesController) handleCommit(ctx *fasthttp.RequestCtx) {
	q, ok := c.open(ctx)
	if !ok {
		return
	}
	n, err := q.Commit(ctx, append([]byte(nil), ctx.PostBody()...))
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	writeJSON(ctx, removedResp{Removed: n})
}

// handleCommitAll drops the processing list.
// POST /v1/queues/:name/commit-all
func (c *QueuesController) handleCommitAll(ctx *fasthttp.RequestCtx) {
	q, ok := c.open(ctx)
	if !ok {
		return
	}
	if err := q.CommitAll(ctx); err != nil {
		writeStoreError(ctx, err)
		return
	}
	writeNoContent(ctx)
}

// handleRefill returns uncommitted payloads to the main list.
// POST /v1/queues/:name/refill
func (c *QueuesController) handleRefill(ctx *fasthttp.RequestCtx) {
	q, ok := c.open(ctx)
	if !ok {
		return
	}
	n, err := q.Refill(ctx)
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	writeJSON(ctx, movedResp{Moved: n})
}

// handleClear deletes the main list, and the processing list with processing=1.
// DELETE /v1/queues/:name
func (c *QueuesController) handleClear(ctx *fasthttp.RequestCtx) {
	q, ok := c.open(ctx)
	if !ok {
		return
	}
	withProcessing := parseBool(ctx.QueryArgs().Peek("processing"))
	if err := q.Clear(ctx, withProcessing); err != nil {
		writeStoreError(ctx, err)
		return
	}
	c.logger.Info("queue cleared", logpkg.Queue(q.Name()), logpkg.Bool("processing", withProcessing))
	writeNoContent(ctx)
}
