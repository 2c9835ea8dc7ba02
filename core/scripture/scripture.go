package scripture

import (
	"slices"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

// Scripture is the root of a project: its books in canonical order, the
// annotations attached to each book, and archived versions.
type Scripture struct {
	VernacularWS string          `json:"vernacular_ws"`
	AnalysisWS   string          `json:"analysis_ws"`
	Footnotes    FootnoteMarkers `json:"footnotes"`
	Books        []*Book         `json:"books"`
	Notes        map[int][]*Note `json:"notes,omitempty"`
	Categories   []string        `json:"categories,omitempty"`
	Versions     []*Version      `json:"versions,omitempty"`
}

// New creates an empty project.
func New(vernWS, analysisWS string) *Scripture {
	return &Scripture{VernacularWS: vernWS, AnalysisWS: analysisWS, Notes: map[int][]*Note{}}
}

// FindBook returns the book with the given canonical number, or nil.
func (s *Scripture) FindBook(canonical int) *Book {
	for _, b := range s.Books {
		if b.Canonical == canonical {
			return b
		}
	}
	return nil
}

// InsertBook places b in canonical order. An existing book with the same
// canonical number is replaced and returned.
func (s *Scripture) InsertBook(b *Book) *Book {
	for i, existing := range s.Books {
		if existing.Canonical == b.Canonical {
			s.Books[i] = b
			return existing
		}
	}
	i, _ := slices.BinarySearchFunc(s.Books, b.Canonical, func(e *Book, n int) int { return e.Canonical - n })
	s.Books = slices.Insert(s.Books, i, b)
	return nil
}

// RemoveBook removes and returns the book with the given canonical number.
func (s *Scripture) RemoveBook(canonical int) *Book {
	for i, b := range s.Books {
		if b.Canonical == canonical {
			s.Books = slices.Delete(s.Books, i, i+1)
			return b
		}
	}
	return nil
}

// AddVersion appends an archived version.
func (s *Scripture) AddVersion(v *Version) { s.Versions = append(s.Versions, v) }

// FindVersion returns the version with id, or nil.
func (s *Scripture) FindVersion(id uuid.UUID) *Version {
	for _, v := range s.Versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// RemoveVersion deletes the version with id and reports whether it existed.
func (s *Scripture) RemoveVersion(id uuid.UUID) bool {
	for i, v := range s.Versions {
		if v.ID == id {
			s.Versions = slices.Delete(s.Versions, i, i+1)
			return true
		}
	}
	return false
}

// BookNotes returns the annotations attached to a book.
func (s *Scripture) BookNotes(canonical int) []*Note {
	return s.Notes[canonical]
}

// AddNote attaches a note to the book containing its begin reference.
func (s *Scripture) AddNote(n *Note) {
	if s.Notes == nil {
		s.Notes = map[int][]*Note{}
	}
	book := n.Begin.Book()
	s.Notes[book] = append(s.Notes[book], n)
}

// Location says where in a book a paragraph lives.
type Location int

const (
	InTitle Location = iota
	InHeading
	InContent
)

func (l Location) String() string {
	switch l {
	case InTitle:
		return "title"
	case InHeading:
		return "heading"
	}
	return "content"
}

// ParaPos is one entry of a paragraph walk.
type ParaPos struct {
	Para     *Paragraph
	Where    Location
	Section  *Section
	Sequence int
}

// Paragraphs walks the book's title, then each section's heading and
// content, in document order.
func (b *Book) Paragraphs() []ParaPos {
	var out []ParaPos
	add := func(p *Paragraph, where Location, sec *Section) {
		out = append(out, ParaPos{Para: p, Where: where, Section: sec, Sequence: len(out)})
	}
	for _, p := range b.Title.Paragraphs {
		add(p, InTitle, nil)
	}
	for _, sec := range b.Sections {
		for _, p := range sec.Heading.Paragraphs {
			add(p, InHeading, sec)
		}
		for _, p := range sec.Content.Paragraphs {
			add(p, InContent, sec)
		}
	}
	return out
}

// FindFootnote returns the footnote with id, or nil.
func (b *Book) FindFootnote(id uuid.UUID) *Footnote {
	for _, f := range b.Footnotes {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// FindPicture returns the picture with id, or nil.
func (b *Book) FindPicture(id uuid.UUID) *Picture {
	for _, p := range b.Pictures {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// LastSection returns the final section, or nil.
func (b *Book) LastSection() *Section {
	if len(b.Sections) == 0 {
		return nil
	}
	return b.Sections[len(b.Sections)-1]
}

// FootnotesIn returns the footnotes anchored in s by owning ORCs, in order.
func (b *Book) FootnotesIn(s tss.String) []*Footnote {
	var out []*Footnote
	for _, i := range s.ObjectRuns(tss.ObjOwnedFootnote) {
		if f := b.FindFootnote(s.PropertiesOf(i).Obj.GUID); f != nil {
			out = append(out, f)
		}
	}
	return out
}

// AdjustRefs widens the section's verse range to include r.
func (s *Section) AdjustRefs(r bcv.Ref) {
	if r == 0 {
		return
	}
	if s.VerseMin == 0 || r < s.VerseMin {
		s.VerseMin = r
	}
	if r > s.VerseMax {
		s.VerseMax = r
	}
}

// IsMinor reports whether the section is headed by a minor section head.
func (s *Section) IsMinor() bool {
	p := s.Heading.Last()
	return p != nil && p.Style == StyleSectionHeadMinor
}
