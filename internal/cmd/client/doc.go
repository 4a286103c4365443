// Package client provides the `deque queue` command group.
//
// Queue commands open the configured store directly (see internal/config
// for the file format and DEQUE_* variables); no server is needed.
//
// Usage
//
//	deque queue push --name jobs a b c
//	echo -n payload | deque queue push --name jobs -
//	deque queue pop --name jobs --block --timeout 5s --ack
//	deque queue commit --name jobs a
//	deque queue refill --name jobs
//	deque queue len --name jobs --json
//	deque queue drain --name jobs
//	deque queue clear --name jobs --processing
//
// Notes
//
//   - Each invocation builds a fresh queue pair, so there is no last
//     message carried between commands. `pop --ack` pops and then commits
//     that payload in the same invocation.
//   - Payloads print as text when they are valid UTF-8 and as base64
//     otherwise; --json prints {"payload_text": ...} style objects.
package client
