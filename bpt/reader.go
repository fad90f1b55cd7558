package bpt

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Reader looks up keys in an index.
type Reader struct {
	r         io.ReaderAt
	hdr       header
	root      int64
	leafStart int64

	buf []byte
	key []byte // padded search key
}

// NewReader opens the index which starts at offset within r.
func NewReader(r io.ReaderAt, offset int64) (*Reader, error) {
	tmp := make([]byte, HeaderSize)
	if n, err := r.ReadAt(tmp, offset); n < len(tmp) {
		return nil, err
	}

	rd := &Reader{r: r, root: offset + HeaderSize}
	if err := rd.hdr.decode(tmp); err != nil {
		return nil, err
	}

	rd.leafStart = rd.root
	for level := rd.hdr.levels() - 1; level > 0; level-- {
		rd.leafStart += int64(rd.hdr.levelNodes(level)) * rd.hdr.indexNodeSize()
	}
	rd.key = make([]byte, rd.hdr.KeySize)
	return rd, nil
}

// Len returns the number of indexed items.
func (r *Reader) Len() int { return r.hdr.ItemCount }

// KeySize returns the key slot width.
func (r *Reader) KeySize() int { return r.hdr.KeySize }

// Find returns the value of the first item stored under key.
// It may return an ErrNotFound error.
func (r *Reader) Find(key []byte) ([]byte, error) {
	vals, err := r.find(key, 1)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

// FindAll returns the values of all items stored under key, in index order.
// It may return an ErrNotFound error.
func (r *Reader) FindAll(key []byte) ([][]byte, error) {
	return r.find(key, -1)
}

func (r *Reader) find(key []byte, limit int) ([][]byte, error) {
	if r.hdr.ItemCount == 0 || len(key) > r.hdr.KeySize {
		return nil, ErrNotFound
	}
	for i := range r.key {
		r.key[i] = 0
	}
	copy(r.key, key)

	ks := r.hdr.KeySize
	pos := r.root
	for level := r.hdr.levels() - 1; level > 0; level-- {
		node, err := r.readNode(pos, r.hdr.indexNodeSize())
		if err != nil {
			return nil, err
		}

		// descend into the last child whose first key sorts before key,
		// so that the first of several duplicates is never skipped
		child := 0
		for j, n := 1, nodeCount(node); j < n; j++ {
			slot := node[nodeHeaderSize+j*(ks+8):]
			if bytes.Compare(slot[:ks], r.key) >= 0 {
				break
			}
			child = j
		}
		slot := node[nodeHeaderSize+child*(ks+8):]
		pos = int64(binary.LittleEndian.Uint64(slot[ks:]))
	}

	var vals [][]byte
	leafSize := r.hdr.leafNodeSize()
	leafCount := int64(r.hdr.levelNodes(0))
	for leaf := (pos - r.leafStart) / leafSize; leaf < leafCount; leaf++ {
		node, err := r.readNode(r.leafStart+leaf*leafSize, leafSize)
		if err != nil {
			return nil, err
		}

		for j, n := 0, nodeCount(node); j < n; j++ {
			slot := node[nodeHeaderSize+j*(ks+r.hdr.ValSize):]
			switch c := bytes.Compare(slot[:ks], r.key); {
			case c == 0:
				vals = append(vals, append([]byte(nil), slot[ks:ks+r.hdr.ValSize]...))
				if len(vals) == limit {
					return vals, nil
				}
			case c > 0:
				return finish(vals)
			}
		}
	}
	return finish(vals)
}

func (r *Reader) readNode(pos, size int64) ([]byte, error) {
	if int64(cap(r.buf)) < size {
		r.buf = make([]byte, size)
	}
	node := r.buf[:size]
	if n, err := r.r.ReadAt(node, pos); n < len(node) {
		return nil, err
	}
	return node, nil
}

func nodeCount(node []byte) int {
	return int(binary.LittleEndian.Uint16(node[2:]))
}

func finish(vals [][]byte) ([][]byte, error) {
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return vals, nil
}
