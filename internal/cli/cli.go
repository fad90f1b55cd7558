// Package cli implements the command-line interface for tabtobigtab.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsm/bigtab"
	"github.com/bsm/bigtab/internal/fileutil"
	"github.com/bsm/bigtab/internal/logging"
)

const usage = `tabtobigtab - index a delimited table by one field and write both the
rows and the index to a .bt file

usage:
   tabtobigtab [options] input.tab output.bt

where input.tab has at least one column, "-" reads from stdin.
options:
`

// Run executes the CLI with the given arguments.
func Run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("tabtobigtab", flag.ContinueOnError)
	fs.SetOutput(stderr)
	blockSize := fs.Int("blockSize", 1000, "number of items per index block")
	chunkSize := fs.Int("chunkSize", 64<<10, "maximum uncompressed size of a data block in bytes")
	asFile := fs.String("as", "", "autoSql file describing the columns (default: one string column per field)")
	field := fs.String("field", "0", "name or zero-based position of the indexed field")
	compress := fs.String("compress", "zlib", "block compression: zlib, snappy, zstd or none")
	delim := fs.String("delim", `\t`, "field delimiter")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly log output")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("expected input and output file")
	}
	logging.Init(stderr, *debug, *human)

	opts := &bigtab.WriterOptions{
		BlockSize:      *chunkSize,
		IndexBlockSize: *blockSize,
	}

	var err error
	if opts.Compression, err = bigtab.ParseCompression(*compress); err != nil {
		return err
	}
	if opts.Delimiter, err = parseDelimiter(*delim); err != nil {
		return err
	}

	inPath, outPath := fs.Arg(0), fs.Arg(1)
	in, closeIn, err := openInput(inPath)
	if err != nil {
		return err
	}
	defer closeIn()

	schema, in, err := loadSchema(*asFile, inPath, in, opts.Delimiter)
	if err != nil {
		return err
	}
	if opts.KeyField, err = parseField(schema, *field); err != nil {
		return err
	}

	log := logging.WithPhase("build")
	opts.Logger = &log
	log.Info().
		Str("input", inPath).
		Str("output", outPath).
		Str("key_field", schema.Fields[opts.KeyField].Name).
		Str("compression", opts.Compression.String()).
		Msg("building container")

	return fileutil.WriteTmpThenMove(outPath, func(f *os.File) error {
		return bigtab.Build(ctx, f, in, schema, opts)
	})
}

func openInput(name string) (io.Reader, func() error, error) {
	if name == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

// loadSchema parses the autoSql file, if given. Otherwise it generates a
// schema from the number of fields in the first line of the input and
// returns a reader which replays that line.
func loadSchema(asFile, inPath string, in io.Reader, delim byte) (*bigtab.Schema, io.Reader, error) {
	if asFile != "" {
		text, err := os.ReadFile(asFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read autoSql: %w", err)
		}
		schema, err := bigtab.ParseSchema(text)
		if err != nil {
			return nil, nil, err
		}
		return schema, in, nil
	}

	br := bufio.NewReader(in)
	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}

	line := strings.TrimRight(first, "\r\n")
	if line == "" {
		return nil, nil, errors.New("cannot infer columns from an empty first line, use -as")
	}

	n := strings.Count(line, string(delim)) + 1
	columns := make([]string, n)
	for i := range columns {
		columns[i] = "field" + strconv.Itoa(i+1)
	}

	name := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	if name == "-" || name == "" || name == "." {
		name = "stdin"
	}
	return bigtab.NewSchema(name, columns), io.MultiReader(strings.NewReader(first), br), nil
}

func parseField(schema *bigtab.Schema, s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= schema.ColumnCount() {
			return 0, fmt.Errorf("field %d not in range, table has %d columns", n, schema.ColumnCount())
		}
		return n, nil
	}
	if n := schema.FieldIndex(s); n > -1 {
		return n, nil
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

func parseDelimiter(s string) (byte, error) {
	switch s {
	case `\t`, "\t", "tab":
		return '\t', nil
	case "space":
		return ' ', nil
	}
	if len(s) != 1 || s[0] == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q, must be a single byte", s)
	}
	return s[0], nil
}
