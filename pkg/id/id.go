package id

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// ID is [8 bytes unix ms][8 bytes sequence], big-endian, so byte order is
// issue order.
type ID [16]byte

// String returns the 32-character hex form used in X-Request-ID headers.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Time returns the millisecond the ID was issued in.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[:8])))
}

// Compare returns -1, 0 or 1.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// Parse decodes the hex form produced by String.
func Parse(s string) (ID, error) {
	var out ID
	if hex.DecodedLen(len(s)) != len(out) {
		return ID{}, fmt.Errorf("id: want %d hex chars, got %d", hex.EncodedLen(len(out)), len(s))
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return ID{}, fmt.Errorf("id: %w", err)
	}
	return out, nil
}

// NowMs is the clock; tests replace it.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Generator issues strictly increasing IDs. A clock that steps backwards
// is ignored: the last seen millisecond is reused with a higher sequence.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms <= g.lastMs {
		ms = g.lastMs
		g.seq++
	} else {
		g.lastMs, g.seq = ms, 0
	}

	var out ID
	binary.BigEndian.PutUint64(out[:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:], g.seq)
	return out
}
