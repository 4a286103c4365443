// Package httpserver exposes queue pairs over a small REST API built on
// fasthttp and fasthttprouter.
//
//	POST   /v1/queues/:name/push          body is the payload
//	POST   /v1/queues/:name/pop?block=1   200 with the payload, 204 when empty
//	POST   /v1/queues/:name/commit        body is the payload to acknowledge
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
