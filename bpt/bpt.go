/*
Package bpt bulk-loads a static B+ tree from an array of fixed-width
key/value pairs that is already sorted by key.

Index layout

An index consists of a fixed header followed by the interior levels of the
tree, root first, and finally the leaf level.

    Index layout:
    +----------------+------------+-----+---------------+------------+
    | header (32 b.) | root level | ... | level 1 nodes | leaf nodes |
    +----------------+------------+-----+---------------+------------+

    Header:
    +--------------+------------------+----------------+----------------+-------------------+------------------+
    | magic (4 b.) | block size (4 b.)| key size (4 b.)| val size (4 b.)| item count (8 b.) | reserved (8 b.)  |
    +--------------+------------------+----------------+----------------+-------------------+------------------+

Every node occupies a fixed number of bytes: a 4-byte node header
(is-leaf flag, reserved byte, uint16 slot count) and exactly "block size"
slots, unused slots being zero-filled. Interior slots hold a key followed by
the absolute file offset of the child node, leaf slots hold a key followed
by its value. Keys are zero-padded to the key size.
*/
package bpt

import (
	"encoding/binary"
	"errors"
)

// Magic identifies a B+ tree index.
const Magic uint32 = 0x78CA8C91

// HeaderSize is the byte length of the index header.
const HeaderSize = 32

const nodeHeaderSize = 4

// ErrNotFound is returned by Find when a key cannot be found.
var ErrNotFound = errors.New("bpt: not found")

var (
	errBadMagic     = errors.New("bpt: bad magic")
	errBadBlockSize = errors.New("bpt: block size must be at least 2")
)

// Items is a sorted array of fixed-width key/value pairs.
type Items interface {
	// Len returns the number of items.
	Len() int
	// Key returns the key of the i-th item, at most key size bytes long.
	Key(i int) []byte
	// Value returns the value of the i-th item, exactly value size bytes long.
	Value(i int) []byte
}

type header struct {
	BlockSize int
	KeySize   int
	ValSize   int
	ItemCount int
}

func (h *header) encode(p []byte) {
	binary.LittleEndian.PutUint32(p[0:], Magic)
	binary.LittleEndian.PutUint32(p[4:], uint32(h.BlockSize))
	binary.LittleEndian.PutUint32(p[8:], uint32(h.KeySize))
	binary.LittleEndian.PutUint32(p[12:], uint32(h.ValSize))
	binary.LittleEndian.PutUint64(p[16:], uint64(h.ItemCount))
	binary.LittleEndian.PutUint64(p[24:], 0)
}

func (h *header) decode(p []byte) error {
	if binary.LittleEndian.Uint32(p[0:]) != Magic {
		return errBadMagic
	}
	h.BlockSize = int(binary.LittleEndian.Uint32(p[4:]))
	h.KeySize = int(binary.LittleEndian.Uint32(p[8:]))
	h.ValSize = int(binary.LittleEndian.Uint32(p[12:]))
	h.ItemCount = int(binary.LittleEndian.Uint64(p[16:]))
	return nil
}

func (h *header) indexNodeSize() int64 {
	return int64(nodeHeaderSize + h.BlockSize*(h.KeySize+8))
}

func (h *header) leafNodeSize() int64 {
	return int64(nodeHeaderSize + h.BlockSize*(h.KeySize+h.ValSize))
}

// levels returns the number of tree levels, the leaf level included.
func (h *header) levels() int {
	return countLevels(h.BlockSize, h.ItemCount)
}

// levelNodes returns the number of nodes on the given level, 0 being the leaf level.
func (h *header) levelNodes(level int) int {
	return ceilDiv(h.ItemCount, pow(h.BlockSize, level+1))
}

func countLevels(blockSize, n int) int {
	levels := 1
	for n > blockSize {
		n = ceilDiv(n, blockSize)
		levels++
	}
	return levels
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func pow(x, y int) int {
	n := 1
	for i := 0; i < y; i++ {
		n *= x
	}
	return n
}

func putUint16(p []byte, v uint16) { binary.LittleEndian.PutUint16(p, v) }
func putUint64(p []byte, v uint64) { binary.LittleEndian.PutUint64(p, v) }
