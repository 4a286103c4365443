package controllers

import (
	"time"

	"github.com/buaazp/fasthttprouter"

	"github.com/rzbill/deque/internal/runtime"
	logpkg "github.com/rzbill/deque/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	queues  *QueuesController
}

// NewControllerRegistry builds every controller over rt.
func NewControllerRegistry(rt *runtime.Runtime, logger logpkg.Logger, maxBlock time.Duration) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		queues:  NewQueuesController(rt, logger, maxBlock),
	}
}

// RegisterAllRoutes registers all controller routes with the given router.
func (r *ControllerRegistry) RegisterAllRoutes(router *fasthttprouter.Router) {
	r.general.RegisterRoutes(router)
	r.queues.RegisterRoutes(router)
}
