// Package redisstore implements deque.Store on Redis lists.
//
// Every Store method maps to a single Redis command, so atomicity is the
// server's: Move is LMOVE, BlockingMove is BLMOVE, Remove is LREM.
//
//	s, err := redisstore.Open(ctx, redisstore.Options{Addr: "localhost:6379"})
//	if err != nil { /* handle */ }
//	defer s.Close()
//	q, _ := deque.New(s, "jobs")
package redisstore
