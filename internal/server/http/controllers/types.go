package controllers

// Response bodies for the queue routes. Request bodies are raw payloads.

// queueStats reports both list lengths of a queue pair.
type queueStats struct {
	Name        string `json:"name"`
	ProcessName string `json:"process_name"`
	Length      int64  `json:"length"`
	Processing  int64  `json:"processing"`
}

// lengthResp is returned by push and unshift.
type lengthResp struct {
	Length int64 `json:"length"`
}

// removedResp is returned by commit.
type removedResp struct {
	Removed int64 `json:"removed"`
}

// movedResp is returned by refill.
type movedResp struct {
	Moved int64 `json:"moved"`
}

// errorResp is the body of every 4xx and 5xx response.
type errorResp struct {
	Error string `json:"error"`
}
