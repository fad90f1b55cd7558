package bigtab

import (
	"errors"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

var _ = Describe("chunker", func() {
	var file *memFile
	var out *offsetWriter
	var subject *chunker

	BeforeEach(func() {
		file = &memFile{buf: []byte("prefix")}
		file.pos = int64(len(file.buf))
		out = &offsetWriter{w: file, pos: file.pos}

		nop := zerolog.Nop()
		subject = newChunker(out, plainCompressor{}, 16, &nop)
	})

	It("should stage rows until the block is full", func() {
		Expect(subject.append([]byte("abc"), []byte("a"))).To(Equal(0))
		Expect(subject.append([]byte("defgh"), []byte("d"))).To(Equal(1))
		Expect(subject.buf).To(Equal([]byte("abc\ndefgh\n")))
		Expect(file.buf).To(Equal([]byte("prefix")))

		// 10 + 7 > 16, flush first
		Expect(subject.append([]byte("ijklmn"), []byte("i"))).To(Equal(2))
		Expect(file.buf).To(Equal([]byte("prefixabc\ndefgh\n")))
		Expect(subject.buf).To(Equal([]byte("ijklmn\n")))
		Expect(subject.start).To(Equal(int64(16)))

		Expect(subject.locs[0]).To(Equal(Locator{Key: []byte("a"), BlockOffset: 6, BlockLength: 10, RecordOffset: 0, resolved: true}))
		Expect(subject.locs[1]).To(Equal(Locator{Key: []byte("d"), BlockOffset: 6, BlockLength: 10, RecordOffset: 4, resolved: true}))
		Expect(subject.locs[2].Resolved()).To(BeFalse())
		Expect(subject.locs[2].BlockOffset).To(Equal(uint64(16)))
		Expect(subject.pending).To(Equal([]int{2}))

		Expect(subject.finish()).To(Succeed())
		Expect(file.buf).To(Equal([]byte("prefixabc\ndefgh\nijklmn\n")))
		Expect(subject.locs[2]).To(Equal(Locator{Key: []byte("i"), BlockOffset: 16, BlockLength: 7, RecordOffset: 0, resolved: true}))
		Expect(subject.pending).To(BeEmpty())
		Expect(subject.numBlocks).To(Equal(2))
		Expect(subject.maxBlock).To(Equal(10))
	})

	It("should copy keys", func() {
		key := []byte("key")
		_, err := subject.append([]byte("row"), key)
		Expect(err).NotTo(HaveOccurred())
		key[0] = 'X'
		Expect(subject.locs[0].Key).To(Equal([]byte("key")))
	})

	It("should finish empty", func() {
		Expect(subject.finish()).To(Succeed())
		Expect(file.buf).To(Equal([]byte("prefix")))
		Expect(subject.numBlocks).To(Equal(0))
	})

	It("should store oversized rows in a block of their own", func() {
		big := []byte("0123456789abcdefghij")
		Expect(subject.append([]byte("abc"), []byte("a"))).To(Equal(0))
		Expect(subject.append(big, []byte("0"))).To(Equal(1))
		Expect(file.buf).To(Equal([]byte("prefixabc\n")))
		Expect(subject.buf).To(Equal(append(big, '\n')))

		Expect(subject.append([]byte("xy"), []byte("x"))).To(Equal(2))
		Expect(file.buf).To(Equal([]byte("prefixabc\n0123456789abcdefghij\n")))
		Expect(subject.finish()).To(Succeed())

		Expect(subject.locs[1]).To(Equal(Locator{Key: []byte("0"), BlockOffset: 10, BlockLength: 21, RecordOffset: 0, resolved: true}))
		Expect(subject.locs[2]).To(Equal(Locator{Key: []byte("x"), BlockOffset: 31, BlockLength: 3, RecordOffset: 0, resolved: true}))
		Expect(subject.numBlocks).To(Equal(3))
		Expect(subject.maxRaw).To(Equal(21))
	})

	It("should fail on compression errors", func() {
		subject.comp = failingCompressor{}
		_, err := subject.append([]byte("abc"), nil)
		Expect(err).NotTo(HaveOccurred())

		err = subject.finish()
		Expect(errors.Is(err, ErrCompression)).To(BeTrue())
		Expect(err).To(MatchError(`bigtab: compression failed: boom`))
		Expect(subject.locs[0].Resolved()).To(BeFalse())
	})

	It("should fail when a codec exceeds its bound", func() {
		subject.comp = overflowingCompressor{}
		_, err := subject.append([]byte("abc"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(subject.finish()).To(MatchError(`bigtab: compression failed: 5 bytes exceed bound of 4`))
	})

	It("should reuse the compression buffer", func() {
		nop := zerolog.Nop()
		subject = newChunker(out, snappyCompressor{}, 16, &nop)
		for _, s := range []string{"aaaaaaaaaa", "bbbbbbbbbb"} {
			_, err := subject.append([]byte(s), nil)
			Expect(err).NotTo(HaveOccurred())
		}
		buf := subject.snp
		Expect(cap(buf)).To(BeNumerically(">=", snappyCompressor{}.MaxEncodedLen(11)))

		Expect(subject.finish()).To(Succeed())
		Expect(&subject.snp[0]).To(BeIdenticalTo(&buf[0]))
	})
})

// --------------------------------------------------------------------

// memFile is an in-memory io.WriteSeeker.
type memFile struct {
	buf []byte
	pos int64
}

func (f *memFile) Write(p []byte) (int, error) {
	if end := int(f.pos) + len(p); end > len(f.buf) {
		f.buf = append(f.buf, make([]byte, end-len(f.buf))...)
	}
	n := copy(f.buf[f.pos:], p)
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = int64(len(f.buf)) + offset
	}
	return f.pos, nil
}

type failingCompressor struct{}

func (failingCompressor) MaxEncodedLen(n int) int { return n }
func (failingCompressor) Encode(_, _ []byte) ([]byte, error) {
	return nil, errors.New("boom")
}

type overflowingCompressor struct{}

func (overflowingCompressor) MaxEncodedLen(n int) int { return n }
func (overflowingCompressor) Encode(dst, src []byte) ([]byte, error) {
	return append(append(dst[:0], src...), 0), nil
}
