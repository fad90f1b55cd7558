package bigtab

import (
	"bytes"
	"fmt"
	"strings"
)

// Field is a single autoSql column declaration.
type Field struct {
	Type    string // e.g. "string", "uint", "char", "simple point"
	Size    string // array size, e.g. "3" in char[3] or "count" in int[count]
	Name    string
	Comment string
}

// Schema is a parsed autoSql table declaration. Only the column list is
// interpreted, column types are retained as documentation.
type Schema struct {
	Name    string
	Comment string
	Fields  []Field

	text []byte
}

// NewSchema generates an autoSql declaration with plain string columns.
func NewSchema(name string, columns []string) *Schema {
	var b strings.Builder
	fmt.Fprintf(&b, "table %s\n%q\n    (\n", name, name)
	fields := make([]Field, 0, len(columns))
	for _, col := range columns {
		fmt.Fprintf(&b, "    string %s; %q\n", col, col)
		fields = append(fields, Field{Type: "string", Name: col, Comment: col})
	}
	b.WriteString("    )\n")

	return &Schema{Name: name, Comment: name, Fields: fields, text: []byte(b.String())}
}

// ParseSchema parses autoSql text.
func ParseSchema(text []byte) (*Schema, error) {
	p := &schemaParser{src: text, line: 1}
	s, err := p.parse()
	if err != nil {
		return nil, err
	}
	s.text = append([]byte(nil), text...)
	return s, nil
}

// Text returns the autoSql text, as stored in the container.
func (s *Schema) Text() []byte { return s.text }

// ColumnCount returns the number of declared columns.
func (s *Schema) ColumnCount() int { return len(s.Fields) }

// FieldIndex returns the position of the named column or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// CheckFieldCount validates an observed field count against the schema.
func (s *Schema) CheckFieldCount(n int) error {
	if n != len(s.Fields) {
		return &SchemaMismatchError{Expected: len(s.Fields), Actual: n}
	}
	return nil
}

// --------------------------------------------------------------------

type schemaParser struct {
	src  []byte
	pos  int
	line int
}

func (p *schemaParser) parse() (*Schema, error) {
	kind, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "table", "simple", "object":
	default:
		return nil, p.errorf("expected table declaration, got %q", kind)
	}

	s := new(Schema)
	if s.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if p.peek() == '"' {
		s.Comment, _ = p.quoted()
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}

	for p.peek() != ')' {
		if p.peek() == 0 {
			return nil, p.errorf("unexpected end of input")
		}
		f, err := p.field()
		if err != nil {
			return nil, err
		}
		if s.FieldIndex(f.Name) != -1 {
			return nil, p.errorf("duplicate field %q", f.Name)
		}
		s.Fields = append(s.Fields, f)
	}
	p.pos++

	if len(s.Fields) == 0 {
		return nil, p.errorf("table %s declares no fields", s.Name)
	}
	return s, nil
}

// field parses: type ["[" size "]"] ["(" values ")"] name {attribute} ";" [comment]
func (p *schemaParser) field() (f Field, err error) {
	if f.Type, err = p.ident(); err != nil {
		return
	}
	switch f.Type {
	case "simple", "object", "table":
		var obj string
		if obj, err = p.ident(); err != nil {
			return
		}
		f.Type += " " + obj
	}

	if p.peek() == '[' {
		p.pos++
		if f.Size, err = p.ident(); err != nil {
			return
		}
		if err = p.expect(']'); err != nil {
			return
		}
	}
	if p.peek() == '(' { // enum/set values
		if err = p.skipPast(')'); err != nil {
			return
		}
	}

	if f.Name, err = p.ident(); err != nil {
		return
	}
	if err = p.skipPast(';'); err != nil { // primary, unique, index[n], auto
		return
	}
	if p.peek() == '"' {
		f.Comment, err = p.quoted()
	}
	return
}

// peek skips whitespace and comments and returns the next byte or 0 at EOF.
func (p *schemaParser) peek() byte {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; c {
		case '\n':
			p.line++
			p.pos++
		case ' ', '\t', '\r':
			p.pos++
		case '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return c
		}
	}
	return 0
}

func (p *schemaParser) ident() (string, error) {
	if c := p.peek(); c == 0 || isSchemaPunct(c) {
		return "", p.errorf("expected identifier, got %q", string(c))
	}
	start := p.pos
	for p.pos < len(p.src) && !isSchemaSpace(p.src[p.pos]) && !isSchemaPunct(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

func (p *schemaParser) quoted() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	end := bytes.IndexByte(p.src[p.pos:], '"')
	if end < 0 {
		return "", p.errorf("unterminated string")
	}
	s := string(p.src[p.pos : p.pos+end])
	p.line += strings.Count(s, "\n")
	p.pos += end + 1
	return s, nil
}

func (p *schemaParser) expect(c byte) error {
	if got := p.peek(); got != c {
		return p.errorf("expected %q, got %q", string(c), string(got))
	}
	p.pos++
	return nil
}

func (p *schemaParser) skipPast(c byte) error {
	for {
		switch got := p.peek(); got {
		case c:
			p.pos++
			return nil
		case 0, ')', '"':
			if got != c {
				return p.errorf("expected %q, got %q", string(c), string(got))
			}
		}
		p.pos++
	}
}

func (p *schemaParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("bigtab: autoSql line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func isSchemaPunct(c byte) bool {
	switch c {
	case '(', ')', '[', ']', ';', ',', '"', '#':
		return true
	}
	return false
}

func isSchemaSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
