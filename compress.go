package bigtab

import (
	"bytes"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compressor compresses individual blocks.
type Compressor interface {
	// MaxEncodedLen returns the worst-case encoded size for n input bytes,
	// or a negative value if n is too large to be encoded.
	MaxEncodedLen(n int) int
	// Encode encodes src into dst, which has a capacity of at least
	// MaxEncodedLen(len(src)) bytes, and returns the encoded block.
	Encode(dst, src []byte) ([]byte, error)
}

func (c Compression) newCompressor() (Compressor, error) {
	switch c {
	case ZlibCompression:
		zw, err := zlib.NewWriterLevel(nil, zlib.DefaultCompression)
		if err != nil {
			return nil, err
		}
		return &zlibCompressor{zw: zw}, nil
	case SnappyCompression:
		return snappyCompressor{}, nil
	case ZstdCompression:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return &zstdCompressor{enc: enc}, nil
	case NoCompression:
		return plainCompressor{}, nil
	}
	return nil, fmt.Errorf("%w: unknown compression %v", ErrConfig, c)
}

// --------------------------------------------------------------------

type zlibCompressor struct {
	zw *zlib.Writer
}

// MaxEncodedLen mirrors zlib's compressBound.
func (*zlibCompressor) MaxEncodedLen(n int) int {
	return n + n>>12 + n>>14 + n>>25 + 13
}

func (c *zlibCompressor) Encode(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	c.zw.Reset(buf)
	if _, err := c.zw.Write(src); err != nil {
		return nil, err
	}
	if err := c.zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type snappyCompressor struct{}

func (snappyCompressor) MaxEncodedLen(n int) int { return snappy.MaxEncodedLen(n) }

func (snappyCompressor) Encode(dst, src []byte) ([]byte, error) {
	return snappy.Encode(dst[:cap(dst)], src), nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
}

// MaxEncodedLen mirrors ZSTD_COMPRESSBOUND.
func (*zstdCompressor) MaxEncodedLen(n int) int {
	bound := n + n>>8
	if n < 128<<10 {
		bound += (128<<10 - n) >> 11
	}
	return bound
}

func (c *zstdCompressor) Encode(dst, src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, dst[:0]), nil
}

type plainCompressor struct{}

func (plainCompressor) MaxEncodedLen(n int) int { return n }

func (plainCompressor) Encode(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}
