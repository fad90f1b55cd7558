package bigtab

import (
	"bytes"
	"encoding/binary"
	"io"
	"slices"

	"github.com/bsm/bigtab/bpt"
)

// LocatorSize is the byte width of an index value:
// block offset (8 bytes), block length (4 bytes), record offset (4 bytes).
const LocatorSize = 16

// IndexBuilder writes a retrieval structure over a sorted array of
// fixed-width key/value pairs at the current position of w, which is the
// absolute file offset given.
type IndexBuilder interface {
	WriteIndex(w io.Writer, offset int64, items bpt.Items, blockSize, keySize, valSize int) error
}

// IndexBuilderFunc is an IndexBuilder function.
type IndexBuilderFunc func(w io.Writer, offset int64, items bpt.Items, blockSize, keySize, valSize int) error

// WriteIndex implements IndexBuilder.
func (f IndexBuilderFunc) WriteIndex(w io.Writer, offset int64, items bpt.Items, blockSize, keySize, valSize int) error {
	return f(w, offset, items, blockSize, keySize, valSize)
}

// DefaultIndexBuilder bulk-loads a B+ tree.
var DefaultIndexBuilder IndexBuilder = IndexBuilderFunc(bpt.WriteBulk)

// --------------------------------------------------------------------

// indexItems is a sorted array of zero-padded keys and packed locators.
type indexItems struct {
	keySize int
	keys    []byte
	vals    []byte
}

func (x *indexItems) Len() int { return len(x.vals) / LocatorSize }

func (x *indexItems) Key(i int) []byte {
	return x.keys[i*x.keySize : (i+1)*x.keySize]
}

func (x *indexItems) Value(i int) []byte {
	return x.vals[i*LocatorSize : (i+1)*LocatorSize]
}

// assembleIndex sorts locators by key, preserving input order for equal
// keys, and packs them into fixed-width slots sized by the longest key.
func assembleIndex(locs []Locator) (*indexItems, error) {
	order := make([]int, len(locs))
	keySize := 0
	for i := range locs {
		if !locs[i].resolved {
			return nil, errUnresolved
		}
		if n := len(locs[i].Key); n > keySize {
			keySize = n
		}
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return bytes.Compare(locs[a].Key, locs[b].Key)
	})

	x := &indexItems{
		keySize: keySize,
		keys:    make([]byte, len(locs)*keySize),
		vals:    make([]byte, len(locs)*LocatorSize),
	}
	for i, n := range order {
		loc := &locs[n]
		copy(x.Key(i), loc.Key)

		val := x.Value(i)
		binary.LittleEndian.PutUint64(val[0:], loc.BlockOffset)
		binary.LittleEndian.PutUint32(val[8:], loc.BlockLength)
		binary.LittleEndian.PutUint32(val[12:], loc.RecordOffset)
	}
	return x, nil
}
