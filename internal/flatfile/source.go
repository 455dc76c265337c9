package flatfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

// Source is a core.RowSource over a CSV stream. Flat files carry no
// fingerprints, so every row they produce counts as modified.
type Source struct {
	r      *csv.Reader
	guard  *sizeGuard
	header []string
	line   int
}

// Option configures a Source.
type Option func(*Source)

// WithDelimiter sets the field separator (default ',').
func WithDelimiter(d rune) Option {
	return func(s *Source) { s.r.Comma = d }
}

// NewSource returns a source reading at most maxBytes from r. A maxBytes of
// zero means no limit.
func NewSource(r io.Reader, maxBytes int64, opts ...Option) *Source {
	guard := wrap(r, maxBytes)
	cr := csv.NewReader(guard)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	s := &Source{r: cr, guard: guard}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Header implements core.RowSource. It returns core.ErrNoHeader when the
// file is empty.
func (s *Source) Header() ([]string, error) {
	if s.header != nil {
		return s.header, nil
	}
	rec, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	s.line = 1
	s.header = rec
	return rec, nil
}

// Next implements core.RowSource.
func (s *Source) Next() (core.RawRow, error) {
	if s.header == nil {
		if _, err := s.Header(); err != nil {
			return core.RawRow{}, err
		}
	}
	rec, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.RawRow{}, io.EOF
		}
		return core.RawRow{}, fmt.Errorf("read csv line %d: %w", s.line+1, err)
	}
	s.line++

	values := make([]core.CellValue, len(rec))
	for i, v := range rec {
		values[i] = core.String(v)
	}
	return core.RawRow{Number: s.line, Values: values}, nil
}

// Live implements core.RowSource.
func (s *Source) Live() bool { return false }

// BytesRead reports how much of the input was consumed.
func (s *Source) BytesRead() int64 { return s.guard.read }
