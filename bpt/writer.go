package bpt

import (
	"fmt"
	"io"
)

// WriteBulk writes an index over items to w. The offset is the absolute
// position of w within the destination file; child pointers are stored as
// absolute offsets. Items must be sorted by key. The block size is the
// number of slots per node and is lowered to the item count for small
// inputs. An empty items array produces a header-only index.
func WriteBulk(w io.Writer, offset int64, items Items, blockSize, keySize, valSize int) error {
	if blockSize < 2 {
		return errBadBlockSize
	}

	n := items.Len()
	if n > 0 && n < blockSize {
		blockSize = n
	}

	bw := &bulkWriter{
		w:   w,
		pos: offset,
		hdr: header{BlockSize: blockSize, KeySize: keySize, ValSize: valSize, ItemCount: n},
	}
	return bw.write(items)
}

type bulkWriter struct {
	w   io.Writer
	pos int64 // absolute position of the next byte
	hdr header
	buf []byte
}

func (w *bulkWriter) write(items Items) error {
	w.buf = make([]byte, HeaderSize)
	w.hdr.encode(w.buf)
	if err := w.writeRaw(w.buf); err != nil {
		return err
	}
	if w.hdr.ItemCount == 0 {
		return nil
	}

	for level := w.hdr.levels() - 1; level > 0; level-- {
		if err := w.writeIndexLevel(items, level); err != nil {
			return err
		}
	}
	return w.writeLeafLevel(items)
}

func (w *bulkWriter) writeIndexLevel(items Items, level int) error {
	h := &w.hdr
	slotSpan := pow(h.BlockSize, level) // items covered by one slot
	nodeSpan := slotSpan * h.BlockSize  // items covered by one node

	childSize := h.indexNodeSize()
	if level == 1 {
		childSize = h.leafNodeSize()
	}

	levelEnd := w.pos + int64(h.levelNodes(level))*h.indexNodeSize()
	nextChild := levelEnd

	for i := 0; i < h.ItemCount; i += nodeSpan {
		count := ceilDiv(h.ItemCount-i, slotSpan)
		if count > h.BlockSize {
			count = h.BlockSize
		}

		node := w.resetNode(false, count, h.indexNodeSize())
		for j := 0; j < count; j++ {
			slot := node[nodeHeaderSize+j*(h.KeySize+8):]
			if err := w.putKey(slot, items.Key(i+j*slotSpan)); err != nil {
				return err
			}
			putUint64(slot[h.KeySize:], uint64(nextChild))
			nextChild += childSize
		}
		if err := w.writeRaw(node); err != nil {
			return err
		}
	}

	if w.pos != levelEnd {
		return fmt.Errorf("bpt: level %d ended at %d, expected %d", level, w.pos, levelEnd)
	}
	return nil
}

func (w *bulkWriter) writeLeafLevel(items Items) error {
	h := &w.hdr
	for i := 0; i < h.ItemCount; i += h.BlockSize {
		count := h.ItemCount - i
		if count > h.BlockSize {
			count = h.BlockSize
		}

		node := w.resetNode(true, count, h.leafNodeSize())
		for j := 0; j < count; j++ {
			slot := node[nodeHeaderSize+j*(h.KeySize+h.ValSize):]
			if err := w.putKey(slot, items.Key(i+j)); err != nil {
				return err
			}
			val := items.Value(i + j)
			if len(val) != h.ValSize {
				return fmt.Errorf("bpt: value of %d bytes, expected %d", len(val), h.ValSize)
			}
			copy(slot[h.KeySize:], val)
		}
		if err := w.writeRaw(node); err != nil {
			return err
		}
	}
	return nil
}

// resetNode returns a zeroed node buffer with its header filled in.
func (w *bulkWriter) resetNode(leaf bool, count int, size int64) []byte {
	if int64(cap(w.buf)) < size {
		w.buf = make([]byte, size)
	}
	node := w.buf[:size]
	for i := range node {
		node[i] = 0
	}
	if leaf {
		node[0] = 1
	}
	putUint16(node[2:], uint16(count))
	return node
}

func (w *bulkWriter) putKey(slot, key []byte) error {
	if len(key) > w.hdr.KeySize {
		return fmt.Errorf("bpt: key of %d bytes exceeds key size %d", len(key), w.hdr.KeySize)
	}
	copy(slot[:w.hdr.KeySize], key)
	return nil
}

func (w *bulkWriter) writeRaw(p []byte) error {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return err
}
