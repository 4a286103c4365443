package pebblestore

import (
	"encoding/binary"
	"errors"
)

// Key layout for lists:
//
//	l/{len:4}{name}m          list metadata (head, tail, count)
//	l/{len:4}{name}i{pos:8}   item at position pos
//
// The name is length-prefixed so that no list's keys fall inside another
// list's range. Positions are signed and flipped into an order-preserving
// unsigned encoding, so head inserts go below zero.
const (
	prefixList = "l/"
	suffixMeta = 'm'
	suffixItem = 'i'
)

func listPrefix(list string) []byte {
	key := make([]byte, 0, len(prefixList)+4+len(list)+1+8)
	key = append(key, prefixList...)
	key = binary.BigEndian.AppendUint32(key, uint32(len(list)))
	key = append(key, list...)
	return key
}

// MetaKey returns the metadata key of list.
func MetaKey(list string) []byte {
	return append(listPrefix(list), suffixMeta)
}

// ItemKey returns the key of the item at pos in list.
func ItemKey(list string, pos int64) []byte {
	key := append(listPrefix(list), suffixItem)
	return binary.BigEndian.AppendUint64(key, encodePos(pos))
}

// itemBounds returns [lower, upper) covering every item key of list.
func itemBounds(list string) (lower, upper []byte) {
	lower = append(listPrefix(list), suffixItem)
	upper = append(listPrefix(list), suffixItem+1)
	return lower, upper
}

// positionFromKey decodes the position suffix of an item key.
func positionFromKey(key []byte) int64 {
	return decodePos(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func encodePos(pos int64) uint64 { return uint64(pos) ^ (1 << 63) }
func decodePos(u uint64) int64   { return int64(u ^ (1 << 63)) }

// listMeta tracks the occupied position window [head, tail) and the number
// of items inside it. Remove can leave gaps, so count may be less than
// tail-head.
type listMeta struct {
	head  int64
	tail  int64
	count int64
}

func (m listMeta) encode() []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:], uint64(m.head))
	binary.BigEndian.PutUint64(buf[8:], uint64(m.tail))
	binary.BigEndian.PutUint64(buf[16:], uint64(m.count))
	return buf
}

var errCorruptMeta = errors.New("pebble: corrupt list metadata")

func decodeMeta(b []byte) (listMeta, error) {
	if len(b) != 24 {
		return listMeta{}, errCorruptMeta
	}
	return listMeta{
		head:  int64(binary.BigEndian.Uint64(b[0:])),
		tail:  int64(binary.BigEndian.Uint64(b[8:])),
		count: int64(binary.BigEndian.Uint64(b[16:])),
	}, nil
}
