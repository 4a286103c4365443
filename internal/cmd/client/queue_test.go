package client

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/rzbill/deque/internal/config"
	"github.com/rzbill/deque/internal/runtime"
)

// pebbleOpener reopens the same on-disk store for every command, the way
// separate CLI invocations would.
func pebbleOpener(t *testing.T) Opener {
	cfg := cfgpkg.Default()
	cfg.Store.Backend = cfgpkg.BackendPebble
	cfg.Store.Pebble.DataDir = t.TempDir()
	cfg.Store.Pebble.Fsync = "always"
	return func(*cobra.Command) (*runtime.Runtime, error) {
		return runtime.Open(runtime.Options{Config: cfg})
	}
}

func run(t *testing.T, open Opener, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRoot(open)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, open Opener, args ...string) string {
	t.Helper()
	out, _, err := run(t, open, "", args...)
	require.NoError(t, err, "args: %v", args)
	return out
}

func TestQueueCommandLifecycle(t *testing.T) {
	open := pebbleOpener(t)

	out := mustRun(t, open, "queue", "push", "--name", "jobs", "a", "b", "c")
	assert.Equal(t, "length: 3\n", out)

	out = mustRun(t, open, "queue", "pop", "--name", "jobs")
	assert.Equal(t, "a\n", out)

	out = mustRun(t, open, "queue", "len", "--name", "jobs")
	assert.Equal(t, "jobs: 2\njobs_process: 1\n", out)

	out = mustRun(t, open, "queue", "commit", "--name", "jobs", "a")
	assert.Equal(t, "removed: 1\n", out)

	mustRun(t, open, "queue", "pop", "--name", "jobs")
	out = mustRun(t, open, "queue", "refill", "--name", "jobs")
	assert.Equal(t, "moved: 1\n", out)

	out = mustRun(t, open, "queue", "len", "--name", "jobs", "--json")
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 2, stats["length"])
	assert.EqualValues(t, 0, stats["processing"])
	assert.Equal(t, "jobs_process", stats["process_name"])
}

func TestQueueUnshiftJumpsTheLine(t *testing.T) {
	open := pebbleOpener(t)
	mustRun(t, open, "queue", "push", "--name", "jobs", "first")
	mustRun(t, open, "queue", "unshift", "--name", "jobs", "urgent")

	out := mustRun(t, open, "queue", "pop", "--name", "jobs")
	assert.Equal(t, "urgent\n", out)
}

func TestQueuePopEmpty(t *testing.T) {
	open := pebbleOpener(t)
	out, errOut, err := run(t, open, "", "queue", "pop", "--name", "jobs")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "empty\n", errOut)
}

func TestQueuePopAck(t *testing.T) {
	open := pebbleOpener(t)
	mustRun(t, open, "queue", "push", "--name", "jobs", "x")

	out := mustRun(t, open, "queue", "pop", "--name", "jobs", "--ack", "--json")
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "x", payload["payload_text"])

	out = mustRun(t, open, "queue", "len", "--name", "jobs")
	assert.Equal(t, "jobs: 0\njobs_process: 0\n", out)
}

func TestQueueCustomProcessName(t *testing.T) {
	open := pebbleOpener(t)
	mustRun(t, open, "queue", "push", "--name", "jobs", "x")
	mustRun(t, open, "queue", "pop", "--name", "jobs", "--process-name", "inflight")

	out := mustRun(t, open, "queue", "len", "--name", "jobs", "--process-name", "inflight")
	assert.Equal(t, "jobs: 0\ninflight: 1\n", out)

	mustRun(t, open, "queue", "commit-all", "--name", "jobs", "--process-name", "inflight")
	out = mustRun(t, open, "queue", "len", "--name", "jobs", "--process-name", "inflight")
	assert.Equal(t, "jobs: 0\ninflight: 0\n", out)
}

func TestQueueDrain(t *testing.T) {
	open := pebbleOpener(t)
	mustRun(t, open, "queue", "push", "--name", "jobs", "1", "2", "3")

	out, errOut, err := run(t, open, "", "queue", "drain", "--name", "jobs")
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
	assert.Equal(t, "popped: 3 committed: 3 failed: 0\n", errOut)

	out = mustRun(t, open, "queue", "len", "--name", "jobs")
	assert.Equal(t, "jobs: 0\njobs_process: 0\n", out)
}

func TestQueueClear(t *testing.T) {
	open := pebbleOpener(t)
	mustRun(t, open, "queue", "push", "--name", "jobs", "a", "b")
	mustRun(t, open, "queue", "pop", "--name", "jobs")

	mustRun(t, open, "queue", "clear", "--name", "jobs")
	out := mustRun(t, open, "queue", "len", "--name", "jobs")
	assert.Equal(t, "jobs: 0\njobs_process: 1\n", out)

	mustRun(t, open, "queue", "clear", "--name", "jobs", "--processing")
	out = mustRun(t, open, "queue", "len", "--name", "jobs")
	assert.Equal(t, "jobs: 0\njobs_process: 0\n", out)
}

func TestQueuePushFromStdin(t *testing.T) {
	open := pebbleOpener(t)
	_, _, err := run(t, open, "line one\nline two", "queue", "push", "--name", "jobs", "-")
	require.NoError(t, err)

	out := mustRun(t, open, "queue", "pop", "--name", "jobs", "--json")
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "line one\nline two", payload["payload_text"])
}

func TestQueueRequiresName(t *testing.T) {
	open := pebbleOpener(t)
	_, _, err := run(t, open, "", "queue", "len")
	require.Error(t, err)
}

func TestQueueRejectsSameProcessName(t *testing.T) {
	open := pebbleOpener(t)
	_, _, err := run(t, open, "", "queue", "len", "--name", "jobs", "--process-name", "jobs")
	require.Error(t, err)
}

func TestDecodedPayload(t *testing.T) {
	got := decodedPayload([]byte(`{"id":7}`))
	assert.Equal(t, map[string]any{"id": float64(7)}, got["payload_json"])

	got = decodedPayload([]byte("{not json"))
	assert.Equal(t, "{not json", got["payload_text"])

	got = decodedPayload([]byte{0xff, 0xfe})
	assert.Equal(t, "//4=", got["payload_b64"])
}

func TestPayloadsFromArgs(t *testing.T) {
	got, err := payloadsFromArgs([]string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, got)

	got, err = payloadsFromArgs([]string{"-"}, strings.NewReader("raw"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("raw")}, got)
}
