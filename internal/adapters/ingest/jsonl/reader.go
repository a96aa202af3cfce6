package jsonl

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
)

const (
	// DefaultMaxLineBytes caps a single line; longer lines are dropped and
	// reported with ErrLineTooLong
	DefaultMaxLineBytes = 32 * 1024 * 1024
	initialBufBytes     = 512 * 1024
	peekBytes           = 64 * 1024
)

var gzipMagic = []byte{0x1f, 0x8b}

// ErrLineTooLong marks a line whose body exceeded the reader's cap
var ErrLineTooLong = errors.New("line too long")

// Line is one non-blank input line. Bytes is owned by the caller.
// Err is set, and Bytes empty, when the line could not be kept
type Line struct {
	No    int // 1-based physical line number
	Bytes []byte
	Err   error
}

// Stats counts what the reader has consumed so far
type Stats struct {
	Lines    int   // non-blank lines returned, oversized ones included
	Blank    int   // whitespace-only lines skipped
	Oversize int   // lines dropped with ErrLineTooLong
	Bytes    int64 // uncompressed bytes including line breaks
}

// Option configures a Reader
type Option func(*Reader)

// WithMaxLineBytes overrides DefaultMaxLineBytes
func WithMaxLineBytes(n int) Option {
	return func(rd *Reader) {
		if n > 0 {
			rd.max = n
		}
	}
}

// Reader streams lines from a plain or gzip-compressed JSONL source.
// Compression is detected from the gzip signature, never from the file name
type Reader struct {
	r     io.ReadCloser
	gz    *gzip.Reader
	sc    *bufio.Scanner
	max   int
	err   error
	no    int
	stats Stats

	// split state
	dropping bool // inside a line longer than max
	overflow bool // last token stands for a dropped line
	skipLF   bool // previous chunk ended on '\r'
}

// NewReader sniffs r and wraps it in a gzip reader when the signature matches.
// r is closed when construction fails
func NewReader(r io.ReadCloser, opts ...Option) (*Reader, error) {
	rd := &Reader{r: r, max: DefaultMaxLineBytes}
	for _, o := range opts {
		o(rd)
	}

	br := bufio.NewReaderSize(r, peekBytes)
	var src io.Reader = br
	if head, _ := br.Peek(len(gzipMagic)); IsGzip(head) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			if cerr := r.Close(); cerr != nil {
				return nil, errors.Join(err, cerr)
			}
			return nil, err
		}
		rd.gz = gz
		src = gz
	}

	sc := bufio.NewScanner(src)
	buf := make([]byte, min(initialBufBytes, rd.max+1))
	// one byte over the cap so split sees an oversized line before the scanner gives up
	sc.Buffer(buf, rd.max+1)
	sc.Split(rd.split)
	rd.sc = sc
	return rd, nil
}

// Open opens path and returns a Reader over it
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f, opts...)
}

// IsGzip reports whether head starts with the gzip signature 0x1f 0x8b
func IsGzip(head []byte) bool {
	return bytes.HasPrefix(head, gzipMagic)
}

// Compressed reports whether the source was detected as gzip
func (rd *Reader) Compressed() bool { return rd.gz != nil }

// Next returns the next non-blank line; io.EOF when done.
// A line over the cap comes back with Err set to ErrLineTooLong and the
// stream goes on with the following line
func (rd *Reader) Next() (Line, error) {
	if rd.err != nil {
		return Line{}, rd.err
	}
	for {
		if !rd.sc.Scan() {
			if err := rd.sc.Err(); err != nil {
				rd.err = err
				return Line{}, err
			}
			rd.err = io.EOF
			return Line{}, io.EOF
		}
		rd.no++
		if rd.overflow {
			rd.overflow = false
			rd.stats.Lines++
			rd.stats.Oversize++
			return Line{No: rd.no, Err: ErrLineTooLong}, nil
		}
		raw := rd.sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			rd.stats.Blank++
			continue
		}
		rd.stats.Lines++
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return Line{No: rd.no, Bytes: cp}, nil
	}
}

// split is a bufio.SplitFunc ending lines at "\n", "\r\n" or a bare "\r".
// Bodies longer than max are consumed in place and surface as one overflow
// token once their line break (or EOF) arrives
func (rd *Reader) split(data []byte, atEOF bool) (int, []byte, error) {
	if rd.skipLF && len(data) > 0 {
		rd.skipLF = false
		if data[0] == '\n' {
			rd.stats.Bytes++
			return 1, nil, nil
		}
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		adv := i + 1
		if data[i] == '\r' {
			switch {
			case i+1 < len(data) && data[i+1] == '\n':
				adv++
			case i+1 == len(data):
				rd.skipLF = true
			}
		}
		rd.stats.Bytes += int64(adv)
		if rd.dropping || i > rd.max {
			rd.dropping = false
			rd.overflow = true
			return adv, data[:0], nil
		}
		return adv, data[:i], nil
	}
	if atEOF {
		if len(data) == 0 && !rd.dropping {
			return 0, nil, nil
		}
		rd.stats.Bytes += int64(len(data))
		if rd.dropping || len(data) > rd.max {
			rd.dropping = false
			rd.overflow = true
			return len(data), data[:0], nil
		}
		return len(data), data, nil
	}
	if len(data) > rd.max {
		rd.dropping = true
		rd.stats.Bytes += int64(len(data))
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// Stats returns counters for what has been read so far
func (rd *Reader) Stats() Stats { return rd.stats }

// Close closes the decompressor and the underlying reader
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			first = err
		}
		rd.gz = nil
	}
	if rd.r != nil {
		if err := rd.r.Close(); err != nil && first == nil {
			first = err
		}
		rd.r = nil
	}
	return first
}

// TruncateUTF8 returns b as a string of at most max bytes, backing up to a
// rune boundary and appending an ellipsis when cut
func TruncateUTF8(b []byte, max int) string {
	if max <= 0 || len(b) <= max {
		return string(b)
	}
	i := max
	// back up to the start of a rune (0b10xxxxxx is a continuation byte)
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	if i <= 0 {
		i = max
	}
	return string(b[:i]) + "..."
}
