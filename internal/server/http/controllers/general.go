package controllers

import (
	"github.com/buaazp/fasthttprouter"
	"github.com/valyala/fasthttp"

	"github.com/rzbill/deque/internal/runtime"
	"github.com/rzbill/deque/pkg/deque"
)

// GeneralController serves health and version endpoints.
type GeneralController struct {
	rt *runtime.Runtime
}

func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given router.
func (c *GeneralController) RegisterRoutes(router *fasthttprouter.Router) {
	router.GET("/v1/healthz", c.handleHealth)
	router.GET("/v1/version", c.handleVersion)
}

// handleHealth returns 200 {"status":"ok"} when the store answers, 503 otherwise.
func (c *GeneralController) handleHealth(ctx *fasthttp.RequestCtx) {
	if err := c.rt.CheckHealth(ctx); err != nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(ctx, map[string]string{"status": "ok", "backend": c.rt.Config().Store.Backend})
}

func (c *GeneralController) handleVersion(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, map[string]string{"version": deque.Version})
}
