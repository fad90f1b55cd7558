package bigtab

import "encoding/binary"

// Fixed sizes of the backpatched structures.
const (
	HeaderSize         = 36
	IndexListEntrySize = 24
)

// Index kinds of an index list entry.
const (
	indexKindBPlusTree uint16 = 0
)

// offset is a file offset that is only known once the data it points to
// has been written. Pending offsets are encoded as zero in placeholders.
type offset struct {
	val      uint64
	resolved bool
}

func (o *offset) resolve(pos int64) {
	o.val = uint64(pos)
	o.resolved = true
}

// --------------------------------------------------------------------

type header struct {
	BlockCapacity   uint32 // 0 for uncompressed blocks
	AutoSQLOffset   offset
	IndexCount      uint16
	IndexListOffset offset
	Codec           Compression
}

// encode writes the header to p. Placeholders encode pending offsets as
// zero, final encodings require all offsets to be resolved.
func (h *header) encode(p []byte, final bool) error {
	if final && (!h.AutoSQLOffset.resolved || !h.IndexListOffset.resolved) {
		return errPending
	}

	binary.LittleEndian.PutUint32(p[0:], Signature)
	binary.LittleEndian.PutUint16(p[4:], Version)
	binary.LittleEndian.PutUint32(p[6:], h.BlockCapacity)
	binary.LittleEndian.PutUint64(p[10:], h.AutoSQLOffset.val)
	binary.LittleEndian.PutUint16(p[18:], h.IndexCount)
	binary.LittleEndian.PutUint64(p[20:], h.IndexListOffset.val)
	binary.LittleEndian.PutUint64(p[28:], uint64(h.Codec))
	return nil
}

type indexListEntry struct {
	FieldID    uint16
	IndexStart offset
}

func (e *indexListEntry) encode(p []byte, final bool) error {
	if final && !e.IndexStart.resolved {
		return errPending
	}

	binary.LittleEndian.PutUint16(p[0:], indexKindBPlusTree)
	binary.LittleEndian.PutUint16(p[2:], 1) // field count
	binary.LittleEndian.PutUint64(p[4:], e.IndexStart.val)
	binary.LittleEndian.PutUint32(p[12:], 0)
	binary.LittleEndian.PutUint16(p[16:], e.FieldID)
	binary.LittleEndian.PutUint16(p[18:], 0)
	binary.LittleEndian.PutUint32(p[20:], 0)
	return nil
}
