package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/rzbill/deque/pkg/deque"
)

// writeError writes an error response with the given status code and message.
func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(errorResp{Error: message})
}

// writeStoreError maps configuration errors to 400 and everything else
// to 500.
func writeStoreError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, deque.ErrConfiguration) {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
}

// writeJSON writes a JSON response with the given data.
func writeJSON(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(data)
}

func writeNoContent(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// parseBool returns true for "true" or "1".
func parseBool(s []byte) bool {
	v := string(s)
	return v == "true" || v == "1"
}

// parseMillis reads a non-negative millisecond count. ok is false when
// the argument is absent.
func parseMillis(s []byte) (d time.Duration, ok bool, err error) {
	if len(s) == 0 {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil || n < 0 {
		return 0, false, errors.New("timeout_ms must be a non-negative integer")
	}
	return time.Duration(n) * time.Millisecond, true, nil
}
