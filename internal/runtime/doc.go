// Package runtime opens the list store named by the configuration and
// hands out queue pairs over it. The HTTP server and the CLI both start
// from a Runtime.
//
//	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	if err != nil { /* handle */ }
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	q, _ := rt.OpenDeque("jobs")
//	_, _ = q.Push(context.Background(), []byte("hello"))
package runtime
