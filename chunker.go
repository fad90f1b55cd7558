package bigtab

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Locator pinpoints a single row within the container.
type Locator struct {
	Key          []byte
	BlockOffset  uint64 // file offset of the compressed block
	BlockLength  uint32 // compressed length of the block
	RecordOffset uint32 // offset of the row within the decompressed block

	resolved bool // BlockLength is known
}

// Resolved returns true once the block containing the row was written.
func (l *Locator) Resolved() bool { return l.resolved }

// offsetWriter writes to a seekable stream and tracks the absolute
// position of the next byte.
type offsetWriter struct {
	w   io.WriteSeeker
	pos int64
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}

// patch overwrites len(p) bytes at an earlier position. The tracked position
// is not advanced, patching must happen once all data was written.
func (w *offsetWriter) patch(pos int64, p []byte) error {
	if _, err := w.w.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	_, err := w.w.Write(p)
	return err
}

// --------------------------------------------------------------------

// chunker stages rows into blocks of bounded uncompressed size, compresses
// and writes each block once full and back-fills the block length into the
// locators of its rows.
type chunker struct {
	out      *offsetWriter
	comp     Compressor
	capacity int
	log      *zerolog.Logger

	buf     []byte // staging buffer
	snp     []byte // compression buffer
	start   int64  // offset of the current block
	pending []int  // locators in the current block

	locs []Locator

	numBlocks int
	maxBlock  int // largest compressed block
	maxRaw    int // largest uncompressed block
}

func newChunker(out *offsetWriter, comp Compressor, capacity int, log *zerolog.Logger) *chunker {
	return &chunker{
		out:      out,
		comp:     comp,
		capacity: capacity,
		log:      log,
		start:    out.pos,
	}
}

// append stages a row and returns the index of its locator. A row larger
// than the capacity is staged alone and forms a block of its own.
func (c *chunker) append(line, key []byte) (int, error) {
	if len(c.buf)+len(line)+1 > c.capacity {
		if err := c.flush(); err != nil {
			return 0, err
		}
	}

	idx := len(c.locs)
	c.locs = append(c.locs, Locator{
		Key:          append([]byte(nil), key...),
		BlockOffset:  uint64(c.start),
		RecordOffset: uint32(len(c.buf)),
	})
	c.pending = append(c.pending, idx)

	c.buf = append(c.buf, line...)
	c.buf = append(c.buf, RecordSeparator)
	return idx, nil
}

// finish flushes the final block.
func (c *chunker) finish() error {
	if err := c.flush(); err != nil {
		return err
	}
	if len(c.pending) != 0 {
		return errUnresolved
	}
	return nil
}

func (c *chunker) flush() error {
	if len(c.buf) == 0 {
		return nil
	}

	bound := c.comp.MaxEncodedLen(len(c.buf))
	if bound < 0 {
		return fmt.Errorf("%w: block of %d bytes is too large", ErrCompression, len(c.buf))
	}
	if cap(c.snp) < bound {
		c.snp = make([]byte, bound)
	}

	block, err := c.comp.Encode(c.snp[:bound], c.buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCompression, err)
	}
	if len(block) > bound {
		return fmt.Errorf("%w: %d bytes exceed bound of %d", ErrCompression, len(block), bound)
	}

	if _, err := c.out.Write(block); err != nil {
		return fmt.Errorf("%w: write block: %w", ErrIO, err)
	}

	for _, i := range c.pending {
		c.locs[i].BlockLength = uint32(len(block))
		c.locs[i].resolved = true
	}

	c.log.Debug().
		Int64("offset", c.start).
		Int("raw_bytes", len(c.buf)).
		Int("block_bytes", len(block)).
		Int("rows", len(c.pending)).
		Msg("flushed block")

	c.numBlocks++
	if len(block) > c.maxBlock {
		c.maxBlock = len(block)
	}
	if len(c.buf) > c.maxRaw {
		c.maxRaw = len(c.buf)
	}
	c.pending = c.pending[:0]
	c.buf = c.buf[:0]
	c.start = c.out.pos
	return nil
}
