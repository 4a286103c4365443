// Package id issues sortable 128-bit identifiers. The HTTP server tags
// each request with one and logs it under the request_id key.
//
//	g := id.NewGenerator()
//	rid := g.Next()
//	ctx.Response.Header.Set("X-Request-ID", rid.String())
package id
