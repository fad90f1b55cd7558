package bigtab

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("assembleIndex", func() {
	loc := func(key string, off uint64, length, rec uint32) Locator {
		return Locator{Key: []byte(key), BlockOffset: off, BlockLength: length, RecordOffset: rec, resolved: true}
	}

	It("should sort and pack locators", func() {
		x, err := assembleIndex([]Locator{
			loc("cherry", 100, 50, 14),
			loc("apple", 100, 50, 0),
			loc("fig", 150, 20, 0),
			loc("banana", 100, 50, 6),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(x.Len()).To(Equal(4))
		Expect(x.keySize).To(Equal(6))

		Expect(x.Key(0)).To(Equal([]byte("apple\x00")))
		Expect(x.Key(1)).To(Equal([]byte("banana")))
		Expect(x.Key(2)).To(Equal([]byte("cherry")))
		Expect(x.Key(3)).To(Equal([]byte("fig\x00\x00\x00")))

		val := x.Value(1)
		Expect(val).To(HaveLen(LocatorSize))
		Expect(binary.LittleEndian.Uint64(val[0:])).To(Equal(uint64(100)))
		Expect(binary.LittleEndian.Uint32(val[8:])).To(Equal(uint32(50)))
		Expect(binary.LittleEndian.Uint32(val[12:])).To(Equal(uint32(6)))

		val = x.Value(3)
		Expect(binary.LittleEndian.Uint64(val[0:])).To(Equal(uint64(150)))
		Expect(binary.LittleEndian.Uint32(val[8:])).To(Equal(uint32(20)))
		Expect(binary.LittleEndian.Uint32(val[12:])).To(Equal(uint32(0)))
	})

	It("should keep input order for duplicates", func() {
		x, err := assembleIndex([]Locator{
			loc("b", 0, 1, 0),
			loc("a", 0, 1, 1),
			loc("b", 0, 1, 2),
			loc("a", 0, 1, 3),
			loc("ab", 0, 1, 4),
		})
		Expect(err).NotTo(HaveOccurred())

		var recs []uint32
		for i := 0; i < x.Len(); i++ {
			recs = append(recs, binary.LittleEndian.Uint32(x.Value(i)[12:]))
		}
		Expect(recs).To(Equal([]uint32{1, 3, 4, 0, 2}))
	})

	It("should support empty input", func() {
		x, err := assembleIndex(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(x.Len()).To(Equal(0))
		Expect(x.keySize).To(Equal(0))
	})

	It("should reject unresolved locators", func() {
		_, err := assembleIndex([]Locator{loc("a", 0, 1, 0), {Key: []byte("b")}})
		Expect(err).To(MatchError(errUnresolved))
	})
})

var _ = Describe("header", func() {
	It("should encode placeholders and final values at the same size", func() {
		h := header{BlockCapacity: 1024, IndexCount: 1, Codec: SnappyCompression}

		placeholder := make([]byte, HeaderSize)
		Expect(h.encode(placeholder, false)).To(Succeed())
		Expect(binary.LittleEndian.Uint32(placeholder[0:])).To(Equal(Signature))
		Expect(binary.LittleEndian.Uint16(placeholder[4:])).To(Equal(Version))
		Expect(binary.LittleEndian.Uint32(placeholder[6:])).To(Equal(uint32(1024)))
		Expect(binary.LittleEndian.Uint64(placeholder[10:])).To(BeZero())
		Expect(binary.LittleEndian.Uint16(placeholder[18:])).To(Equal(uint16(1)))
		Expect(binary.LittleEndian.Uint64(placeholder[20:])).To(BeZero())
		Expect(binary.LittleEndian.Uint64(placeholder[28:])).To(Equal(uint64(1)))

		final := make([]byte, HeaderSize)
		Expect(h.encode(final, true)).To(MatchError(errPending))

		h.AutoSQLOffset.resolve(HeaderSize)
		Expect(h.encode(final, true)).To(MatchError(errPending))

		h.IndexListOffset.resolve(4096)
		Expect(h.encode(final, true)).To(Succeed())
		Expect(binary.LittleEndian.Uint64(final[10:])).To(Equal(uint64(HeaderSize)))
		Expect(binary.LittleEndian.Uint64(final[20:])).To(Equal(uint64(4096)))
		Expect(final[:10]).To(Equal(placeholder[:10]))
	})

	It("should encode index list entries", func() {
		e := indexListEntry{FieldID: 3}

		p := make([]byte, IndexListEntrySize)
		Expect(e.encode(p, false)).To(Succeed())
		Expect(e.encode(p, true)).To(MatchError(errPending))

		e.IndexStart.resolve(777)
		Expect(e.encode(p, true)).To(Succeed())
		Expect(binary.LittleEndian.Uint16(p[0:])).To(Equal(uint16(0)))
		Expect(binary.LittleEndian.Uint16(p[2:])).To(Equal(uint16(1)))
		Expect(binary.LittleEndian.Uint64(p[4:])).To(Equal(uint64(777)))
		Expect(binary.LittleEndian.Uint16(p[16:])).To(Equal(uint16(3)))
	})
})
