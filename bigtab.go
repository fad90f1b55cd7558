package bigtab

import (
	"errors"
	"fmt"
	"strings"
)

// Signature identifies bigTab files.
const Signature uint32 = 0x8789F2EB

// Version is the format version written to the header.
const Version uint16 = 2

// RecordSeparator terminates every row within a block.
const RecordSeparator = '\n'

var (
	// ErrSchemaMismatch is returned when a row's field count disagrees with the schema.
	ErrSchemaMismatch = errors.New("bigtab: schema mismatch")
	// ErrCompression is returned when a block cannot be compressed.
	ErrCompression = errors.New("bigtab: compression failed")
	// ErrIO is returned when writing or seeking the output fails.
	ErrIO = errors.New("bigtab: i/o failure")
	// ErrConfig is returned for invalid writer options.
	ErrConfig = errors.New("bigtab: invalid configuration")
	// ErrNotSeekable is returned when the output does not support seeking.
	ErrNotSeekable = errors.New("bigtab: output is not seekable")
)

var (
	errClosed     = errors.New("bigtab: is closed")
	errUnresolved = errors.New("bigtab: locator with unresolved block length")
	errPending    = errors.New("bigtab: header field is still pending")
)

// SchemaMismatchError reports a row with an unexpected number of fields.
type SchemaMismatchError struct {
	Line     int // 1-based input line, 0 if unknown
	Expected int
	Actual   int
}

func (e *SchemaMismatchError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("bigtab: schema mismatch, expected %d fields, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("bigtab: schema mismatch on line %d, expected %d fields, got %d", e.Line, e.Expected, e.Actual)
}

// Unwrap allows errors.Is(err, ErrSchemaMismatch).
func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// --------------------------------------------------------------------

// Compression is the block compression codec.
type Compression byte

// Supported compression codecs. The value is stored in the low byte of the
// header's reserved field, zlib being the zero value.
const (
	ZlibCompression Compression = iota
	SnappyCompression
	ZstdCompression
	NoCompression
	unknownCompression
)

var compressionNames = []string{"zlib", "snappy", "zstd", "none"}

func (c Compression) isValid() bool {
	return c < unknownCompression
}

func (c Compression) String() string {
	if c.isValid() {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", byte(c))
}

// ParseCompression parses a codec name.
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return Compression(i), nil
		}
	}
	return unknownCompression, fmt.Errorf("%w: unknown compression %q", ErrConfig, s)
}
