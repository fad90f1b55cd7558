package bigtab

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Limits of writer options.
const (
	MaxBlockSize      = 1 << 30
	MinIndexBlockSize = 2
	MaxIndexBlockSize = 1<<16 - 1
)

// WriterOptions define writer specific options.
type WriterOptions struct {
	// BlockSize is the maximum uncompressed size in bytes of each data block.
	// A single row larger than BlockSize is stored in a block of its own.
	// Default: 64KiB.
	BlockSize int

	// IndexBlockSize is the number of items per index node.
	// Default: 1000.
	IndexBlockSize int

	// The compression codec to use.
	// Default: ZlibCompression.
	Compression Compression

	// Compressor replaces the built-in codec, if set. Compression is still
	// recorded in the header and should identify the custom codec.
	Compressor Compressor

	// IndexBuilder writes the key index.
	// Default: DefaultIndexBuilder.
	IndexBuilder IndexBuilder

	// Delimiter and KeyField are used by Build to read rows.
	// Default: '\t' and 0.
	Delimiter byte
	KeyField  int

	// Logger receives debug and summary logs.
	// Default: no logging.
	Logger *zerolog.Logger
}

func (o *WriterOptions) norm() *WriterOptions {
	var oo WriterOptions
	if o != nil {
		oo = *o
	}

	if oo.BlockSize == 0 {
		oo.BlockSize = 64 << 10
	}
	if oo.IndexBlockSize == 0 {
		oo.IndexBlockSize = 1000
	}
	if oo.IndexBuilder == nil {
		oo.IndexBuilder = DefaultIndexBuilder
	}
	if oo.Delimiter == 0 {
		oo.Delimiter = '\t'
	}
	if oo.Logger == nil {
		nop := zerolog.Nop()
		oo.Logger = &nop
	}

	return &oo
}

func (o *WriterOptions) validate(schema *Schema) error {
	if o.BlockSize < 1 || o.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: block size %d not in range, must be between 1 and %d", ErrConfig, o.BlockSize, MaxBlockSize)
	}
	if o.IndexBlockSize < MinIndexBlockSize || o.IndexBlockSize > MaxIndexBlockSize {
		return fmt.Errorf("%w: index block size %d not in range, must be between %d and %d", ErrConfig, o.IndexBlockSize, MinIndexBlockSize, MaxIndexBlockSize)
	}
	if !o.Compression.isValid() {
		return fmt.Errorf("%w: unknown compression %v", ErrConfig, o.Compression)
	}
	if schema == nil || schema.ColumnCount() == 0 {
		return fmt.Errorf("%w: schema declares no columns", ErrConfig)
	}
	if o.KeyField < 0 || o.KeyField >= schema.ColumnCount() || o.KeyField > MaxIndexBlockSize {
		return fmt.Errorf("%w: key field %d not in range, schema has %d columns", ErrConfig, o.KeyField, schema.ColumnCount())
	}
	return nil
}

// --------------------------------------------------------------------

type writerState int

const (
	stateInit writerState = iota
	stateHeaderPlaceholderWritten
	stateSchemaWritten
	stateDataWritten
	stateIndexDescriptorPlaceholderWritten
	stateIndexWritten
	stateHeaderFinalized
	stateClosed
)

// Writer instances can write a container.
type Writer struct {
	out    *offsetWriter
	o      *WriterOptions
	log    *zerolog.Logger
	schema *Schema

	state writerState
	err   error // first error, sticky
	start int64 // header position

	hdr        header
	desc       indexListEntry
	descOffset int64

	chunks *chunker
	tmp    []byte
}

// NewWriter validates options, then writes a placeholder header and the
// schema to w. The output must be seekable, header and index descriptor
// are patched on Close.
func NewWriter(w io.WriteSeeker, schema *Schema, o *WriterOptions) (*Writer, error) {
	oo := o.norm()
	if err := oo.validate(schema); err != nil {
		return nil, err
	}

	comp := oo.Compressor
	if comp == nil {
		var err error
		if comp, err = oo.Compression.newCompressor(); err != nil {
			return nil, err
		}
	}

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSeekable, err)
	}

	wr := &Writer{
		out:    &offsetWriter{w: w, pos: start},
		o:      oo,
		log:    oo.Logger,
		schema: schema,
		start:  start,
		hdr: header{
			BlockCapacity: uint32(oo.BlockSize),
			IndexCount:    1,
			Codec:         oo.Compression,
		},
		desc: indexListEntry{FieldID: uint16(oo.KeyField)},
		tmp:  make([]byte, HeaderSize),
	}
	if oo.Compression == NoCompression {
		wr.hdr.BlockCapacity = 0
	}

	if err := wr.writeHeader(); err != nil {
		return nil, err
	}
	if err := wr.writeSchema(); err != nil {
		return nil, err
	}

	wr.chunks = newChunker(wr.out, comp, oo.BlockSize, wr.log)
	return wr, nil
}

// Append appends a row. The line must not contain the record separator;
// the key is copied.
func (w *Writer) Append(line, key []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.state != stateSchemaWritten {
		return errClosed
	}

	if _, err := w.chunks.append(line, key); err != nil {
		return w.fail(err)
	}
	return nil
}

// AppendRow appends a row read from a Source.
func (w *Writer) AppendRow(row Row) error {
	return w.Append(row.Line, row.Key)
}

// NumRows returns the number of rows appended.
func (w *Writer) NumRows() int { return len(w.chunks.locs) }

// Close writes the remaining data and the index and patches the header.
// It leaves the stream positioned at the end of the container and does not
// close the underlying writer. After a failure the output is
// incomplete, the header is never finalized and must be discarded.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.state != stateSchemaWritten {
		return errClosed
	}

	if err := w.chunks.finish(); err != nil {
		return w.fail(err)
	}
	w.state = stateDataWritten

	if err := w.writeIndexDescriptor(); err != nil {
		return w.fail(err)
	}
	keySize, err := w.writeIndex()
	if err != nil {
		return w.fail(err)
	}
	if err := w.finalize(); err != nil {
		return w.fail(err)
	}

	w.log.Info().
		Int("rows", len(w.chunks.locs)).
		Int("blocks", w.chunks.numBlocks).
		Int("max_block_bytes", w.chunks.maxBlock).
		Int("key_size", keySize).
		Int64("size", w.out.pos-w.start).
		Msg("container written")

	w.state = stateClosed
	return nil
}

func (w *Writer) writeHeader() error {
	if err := w.hdr.encode(w.tmp[:HeaderSize], false); err != nil {
		return w.fail(err)
	}
	if err := w.writeRaw(w.tmp[:HeaderSize]); err != nil {
		return w.fail(fmt.Errorf("%w: write header: %w", ErrIO, err))
	}
	w.state = stateHeaderPlaceholderWritten
	return nil
}

func (w *Writer) writeSchema() error {
	w.hdr.AutoSQLOffset.resolve(w.out.pos)
	if err := w.writeRaw(w.schema.Text()); err != nil {
		return w.fail(fmt.Errorf("%w: write schema: %w", ErrIO, err))
	}
	if err := w.writeRaw([]byte{0}); err != nil {
		return w.fail(fmt.Errorf("%w: write schema: %w", ErrIO, err))
	}
	w.state = stateSchemaWritten
	return nil
}

func (w *Writer) writeIndexDescriptor() error {
	w.hdr.IndexListOffset.resolve(w.out.pos)
	w.descOffset = w.out.pos

	p := w.tmp[:IndexListEntrySize]
	if err := w.desc.encode(p, false); err != nil {
		return err
	}
	if err := w.writeRaw(p); err != nil {
		return fmt.Errorf("%w: write index list: %w", ErrIO, err)
	}
	w.state = stateIndexDescriptorPlaceholderWritten
	return nil
}

func (w *Writer) writeIndex() (int, error) {
	items, err := assembleIndex(w.chunks.locs)
	if err != nil {
		return 0, err
	}

	w.desc.IndexStart.resolve(w.out.pos)
	if err := w.o.IndexBuilder.WriteIndex(w.out, w.out.pos, items, w.o.IndexBlockSize, items.keySize, LocatorSize); err != nil {
		return 0, fmt.Errorf("%w: write index: %w", ErrIO, err)
	}
	w.state = stateIndexWritten
	return items.keySize, nil
}

// finalize patches the index descriptor and the header in place.
func (w *Writer) finalize() error {
	pos, err := w.out.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if pos != w.out.pos {
		return fmt.Errorf("%w: stream at %d, expected %d", ErrIO, pos, w.out.pos)
	}

	p := w.tmp[:IndexListEntrySize]
	if err := w.desc.encode(p, true); err != nil {
		return err
	}
	if err := w.out.patch(w.descOffset, p); err != nil {
		return fmt.Errorf("%w: patch index list: %w", ErrIO, err)
	}

	// oversized rows widen the capacity readers must allocate
	if w.hdr.BlockCapacity != 0 && w.chunks.maxRaw > int(w.hdr.BlockCapacity) {
		w.hdr.BlockCapacity = uint32(w.chunks.maxRaw)
	}

	p = w.tmp[:HeaderSize]
	if err := w.hdr.encode(p, true); err != nil {
		return err
	}
	if err := w.out.patch(w.start, p); err != nil {
		return fmt.Errorf("%w: patch header: %w", ErrIO, err)
	}
	if _, err := w.out.w.Seek(w.out.pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	w.state = stateHeaderFinalized
	return nil
}

func (w *Writer) writeRaw(p []byte) error {
	_, err := w.out.Write(p)
	return err
}

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	return w.err
}

// --------------------------------------------------------------------

// Build reads a delimited table from r and writes a container to w. It
// stops at the first error, leaving an incomplete container behind which
// the caller must discard.
func Build(ctx context.Context, w io.WriteSeeker, r io.Reader, schema *Schema, o *WriterOptions) error {
	wr, err := NewWriter(w, schema, o)
	if err != nil {
		return err
	}

	src := NewSource(r, schema, &SourceOptions{
		Delimiter: wr.o.Delimiter,
		KeyField:  wr.o.KeyField,
	})
	for {
		if err := ctx.Err(); err != nil {
			return wr.fail(err)
		}

		row, err := src.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return wr.fail(err)
		}

		if err := wr.AppendRow(row); err != nil {
			return err
		}
	}
	return wr.Close()
}
