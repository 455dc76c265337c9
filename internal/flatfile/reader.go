// Package flatfile reads comma separated sheets as a core.RowSource.
//
// Input goes through a chain of streaming readers before the CSV decoder
// sees it:
//
//   - bomSkipper: drops the UTF-8 BOM (0xEF 0xBB 0xBF) Excel writes on Windows
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - sizeGuard: fails once more than the configured byte limit was read
//
// Memory stays proportional to the decoder buffer, not the file.
package flatfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrTooLarge is returned when a file exceeds the configured size limit.
var ErrTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkipper drops a leading UTF-8 BOM.
type bomSkipper struct {
	r       *bufio.Reader
	checked bool
}

func newBOMSkipper(r io.Reader) *bomSkipper {
	return &bomSkipper{r: bufio.NewReader(r)}
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			// Discard cannot fail for bytes already peeked.
			_, _ = b.r.Discard(len(utf8BOM))
		}
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?'. A multi-byte rune
// split across reads is held back until the next read completes it.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	atEOF := errors.Is(err, io.EOF)
	if !atEOF {
		if tail := partialRune(p[:n]); tail > 0 {
			s.pending = append(s.pending, p[n-tail:n]...)
			n -= tail
		}
	}
	return sanitize(p[:n]), err
}

// sanitize rewrites data in place and returns the new length. Replacement
// with a single byte keeps the output no longer than the input.
func sanitize(data []byte) int {
	if utf8.Valid(data) {
		return len(data)
	}
	w := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			i++
			continue
		}
		w += copy(data[w:], data[i:i+size])
		i += size
	}
	return w
}

// partialRune returns how many trailing bytes begin a rune that is not yet
// complete.
func partialRune(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if utf8.RuneStart(b) {
			if b < utf8.RuneSelf {
				return 0
			}
			if want := runeLen(b); want > i {
				return i
			}
			return 0
		}
	}
	return 0
}

func runeLen(b byte) int {
	switch {
	case b < 0xC0:
		return 1
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// sizeGuard counts bytes and fails once more than limit were read.
// A limit of zero disables the check.
type sizeGuard struct {
	r     io.Reader
	limit int64
	read  int64
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	g.read += int64(n)
	if g.limit > 0 && g.read > g.limit {
		return n, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, g.limit)
	}
	return n, err
}

// wrap applies the reader chain. The BOM must go before sanitizing or it
// would be read as valid text.
func wrap(r io.Reader, limit int64) *sizeGuard {
	return &sizeGuard{r: newUTF8Sanitizer(newBOMSkipper(r)), limit: limit}
}
