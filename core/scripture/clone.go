package scripture

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of the book. Object ids are preserved so that
// ORC runs in the copy still resolve against the copy's footnotes and
// pictures.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	out := *b
	out.Title = b.Title.Clone()
	out.Sections = make([]*Section, len(b.Sections))
	for i, s := range b.Sections {
		out.Sections[i] = s.Clone()
	}
	out.Footnotes = make([]*Footnote, len(b.Footnotes))
	for i, f := range b.Footnotes {
		out.Footnotes[i] = f.Clone()
	}
	if b.Pictures != nil {
		out.Pictures = make([]*Picture, len(b.Pictures))
		for i, p := range b.Pictures {
			out.Pictures[i] = p.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	out := *s
	out.Heading = s.Heading.Clone()
	out.Content = s.Content.Clone()
	return &out
}

// Clone returns a deep copy of the text.
func (t StText) Clone() StText {
	if t.Paragraphs == nil {
		return StText{}
	}
	out := StText{Paragraphs: make([]*Paragraph, len(t.Paragraphs))}
	for i, p := range t.Paragraphs {
		out.Paragraphs[i] = p.Clone()
	}
	return out
}

// Clone returns a deep copy of the paragraph. tss.String values are
// immutable and are shared.
func (p *Paragraph) Clone() *Paragraph {
	if p == nil {
		return nil
	}
	out := *p
	if p.Translation != nil {
		out.Translation = &Translation{Texts: maps.Clone(p.Translation.Texts)}
	}
	return &out
}

// Clone returns a deep copy of the footnote.
func (f *Footnote) Clone() *Footnote {
	out := *f
	out.Paragraphs = make([]*Paragraph, len(f.Paragraphs))
	for i, p := range f.Paragraphs {
		out.Paragraphs[i] = p.Clone()
	}
	return &out
}

// Clone returns a deep copy of the picture.
func (p *Picture) Clone() *Picture {
	out := *p
	out.Caption = p.Caption.Clone()
	out.Copyright = p.Copyright.Clone()
	return &out
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	out := *n
	out.Categories = slices.Clone(n.Categories)
	out.Discussion = make([]*Paragraph, len(n.Discussion))
	for i, p := range n.Discussion {
		out.Discussion[i] = p.Clone()
	}
	return &out
}
