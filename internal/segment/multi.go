package segment

import (
	"io"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
)

// Multi reads several sources one after another.
type Multi struct {
	sources []Source
	cur     int
}

// NewMulti concatenates sources in order.
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

// Next returns the next segment from the current source, moving on to the
// following source at end of file.
func (m *Multi) Next() (Segment, error) {
	for m.cur < len(m.sources) {
		seg, err := m.sources[m.cur].Next()
		if err == io.EOF {
			m.cur++
			continue
		}
		return seg, err
	}
	return Segment{}, io.EOF
}

func (m *Multi) current() Source {
	if len(m.sources) == 0 {
		return nil
	}
	if m.cur >= len(m.sources) {
		return m.sources[len(m.sources)-1]
	}
	return m.sources[m.cur]
}

// FileName returns the name of the source being read.
func (m *Multi) FileName() string {
	if s := m.current(); s != nil {
		return s.FileName()
	}
	return ""
}

// LineNumber returns the line within the current source.
func (m *Multi) LineNumber() int {
	if s := m.current(); s != nil {
		return s.LineNumber()
	}
	return 0
}

// FirstRef returns the first reference of the most recent segment.
func (m *Multi) FirstRef() bcv.Ref {
	if s := m.current(); s != nil {
		return s.FirstRef()
	}
	return 0
}

// LastRef returns the last reference of the most recent segment.
func (m *Multi) LastRef() bcv.Ref {
	if s := m.current(); s != nil {
		return s.LastRef()
	}
	return 0
}

// WritingSystem returns the current source's writing system or def.
func (m *Multi) WritingSystem(def string) string {
	if s := m.current(); s != nil {
		return s.WritingSystem(def)
	}
	return def
}

// Slice is an in-memory source over prepared segments.
type Slice struct {
	Name     string
	Segments []Segment
	pos      int
	cur      Segment
}

// Next returns the next prepared segment.
func (s *Slice) Next() (Segment, error) {
	if s.pos >= len(s.Segments) {
		return Segment{}, io.EOF
	}
	s.cur = s.Segments[s.pos]
	s.pos++
	if s.cur.Line == 0 {
		s.cur.Line = s.pos
	}
	return s.cur, nil
}

// FileName returns Name.
func (s *Slice) FileName() string { return s.Name }

// LineNumber returns the segment ordinal.
func (s *Slice) LineNumber() int { return s.cur.Line }

// FirstRef returns the current segment's first reference.
func (s *Slice) FirstRef() bcv.Ref { return s.cur.FirstRef }

// LastRef returns the current segment's last reference.
func (s *Slice) LastRef() bcv.Ref { return s.cur.LastRef }

// WritingSystem returns the current segment's writing system or def.
func (s *Slice) WritingSystem(def string) string {
	if s.cur.WS != "" {
		return s.cur.WS
	}
	return def
}
