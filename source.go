package bigtab

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Row is a single input record.
type Row struct {
	Line []byte // the raw line, without its terminator
	Key  []byte // the value of the indexed field
}

// SourceOptions define source specific options.
type SourceOptions struct {
	// Delimiter separates fields.
	// Default: '\t'.
	Delimiter byte

	// KeyField is the zero-based position of the indexed field.
	// Default: 0.
	KeyField int
}

func (o *SourceOptions) norm() *SourceOptions {
	var oo SourceOptions
	if o != nil {
		oo = *o
	}

	if oo.Delimiter == 0 {
		oo.Delimiter = '\t'
	}
	if oo.KeyField < 0 {
		oo.KeyField = 0
	}
	return &oo
}

// Source reads delimited rows and validates them against a schema.
type Source struct {
	r      *bufio.Reader
	schema *Schema
	o      *SourceOptions

	line   []byte
	lineNo int
}

// NewSource wraps a reader and returns a Source.
func NewSource(r io.Reader, schema *Schema, o *SourceOptions) *Source {
	return &Source{
		r:      bufio.NewReaderSize(r, 64*1024),
		schema: schema,
		o:      o.norm(),
	}
}

// LineNo returns the number of the last line read.
func (s *Source) LineNo() int { return s.lineNo }

// Next returns the next row. A blank line is a row with a single empty
// field. It returns io.EOF once the input is exhausted. The returned row is
// only valid until the next call.
func (s *Source) Next() (Row, error) {
	line, err := s.readLine()
	if err != nil {
		return Row{}, err
	}

	n := bytes.Count(line, []byte{s.o.Delimiter}) + 1
	if err := s.schema.CheckFieldCount(n); err != nil {
		var e *SchemaMismatchError
		if errors.As(err, &e) {
			e.Line = s.lineNo
		}
		return Row{}, err
	}

	return Row{Line: line, Key: s.field(line, s.o.KeyField)}, nil
}

func (s *Source) field(line []byte, pos int) []byte {
	for i := 0; i < pos; i++ {
		n := bytes.IndexByte(line, s.o.Delimiter)
		if n < 0 {
			return nil
		}
		line = line[n+1:]
	}
	if n := bytes.IndexByte(line, s.o.Delimiter); n > -1 {
		return line[:n]
	}
	return line
}

func (s *Source) readLine() ([]byte, error) {
	s.line = s.line[:0]
	for {
		frag, err := s.r.ReadSlice('\n')
		s.line = append(s.line, frag...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(s.line) != 0 {
			break
		}
		if err != nil {
			return nil, err
		}
		break
	}
	s.lineNo++

	line := s.line
	if n := len(line); n != 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n != 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}
