package bpt_test

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bsm/bigtab/bpt"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader", func() {
	var subject *bpt.Reader

	open := func(n, blockSize int) *bpt.Reader {
		r, offset, err := seedIndex(n, blockSize)
		Expect(err).NotTo(HaveOccurred())

		rd, err := bpt.NewReader(r, offset)
		Expect(err).NotTo(HaveOccurred())
		return rd
	}

	BeforeEach(func() {
		subject = open(1000, 7)
	})

	It("should init", func() {
		Expect(subject.Len()).To(Equal(1000))
		Expect(subject.KeySize()).To(Equal(8))
	})

	It("should find every key", func() {
		for i := 0; i < 1000; i++ {
			val, err := subject.Find([]byte(fmt.Sprintf("key%05d", i)))
			Expect(err).NotTo(HaveOccurred(), "for %d", i)
			Expect(binary.LittleEndian.Uint64(val)).To(Equal(uint64(i)), "for %d", i)
		}
	})

	It("should not find missing keys", func() {
		for _, key := range []string{"", "a", "key", "key0000", "key010000", "key99999", "zzz"} {
			_, err := subject.Find([]byte(key))
			Expect(err).To(MatchError(bpt.ErrNotFound), "for %q", key)
		}
	})

	It("should work with any fan-out", func() {
		for _, bs := range []int{2, 3, 10, 999, 1000, 1001} {
			rd := open(1000, bs)
			for _, i := range []int{0, 1, 499, 998, 999} {
				val, err := rd.Find([]byte(fmt.Sprintf("key%05d", i)))
				Expect(err).NotTo(HaveOccurred(), "for %d/%d", bs, i)
				Expect(binary.LittleEndian.Uint64(val)).To(Equal(uint64(i)), "for %d/%d", bs, i)
			}
		}
	})

	It("should find all duplicates across nodes", func() {
		items := new(testItems)
		items.add("a", 0)
		for i := 1; i <= 5; i++ {
			items.add("b", i)
		}
		items.add("c", 6)

		buf := new(bytes.Buffer)
		Expect(bpt.WriteBulk(buf, 0, items, 2, 1, 8)).To(Succeed())

		rd, err := bpt.NewReader(bytes.NewReader(buf.Bytes()), 0)
		Expect(err).NotTo(HaveOccurred())

		vals, err := rd.FindAll([]byte("b"))
		Expect(err).NotTo(HaveOccurred())
		Expect(vals).To(HaveLen(5))
		for i, val := range vals {
			Expect(binary.LittleEndian.Uint64(val)).To(Equal(uint64(i + 1)))
		}

		first, err := rd.Find([]byte("b"))
		Expect(err).NotTo(HaveOccurred())
		Expect(binary.LittleEndian.Uint64(first)).To(Equal(uint64(1)))
	})

	It("should read empty indexes", func() {
		rd := open(0, 4)
		Expect(rd.Len()).To(Equal(0))
		_, err := rd.Find([]byte("key00000"))
		Expect(err).To(MatchError(bpt.ErrNotFound))
	})
})
