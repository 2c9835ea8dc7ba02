// Package scripture defines the document model that imports are materialized
// into: books made of sections, sections made of heading and content
// paragraph trees, paragraphs made of runs, with parallel back translations
// kept per writing system on each paragraph.
package scripture

import (
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

// Standard style names the engine and model agree on.
const (
	StyleTitleMain        = "Title Main"
	StyleTitleSecondary   = "Title Secondary"
	StyleIntroSectionHead = "Intro Section Head"
	StyleIntroParagraph   = "Intro Paragraph"
	StyleSectionHead      = "Section Head"
	StyleSectionHeadMinor = "Section Head Minor"
	StyleParagraph        = "Paragraph"
	StyleChapterNumber    = "Chapter Number"
	StyleVerseNumber      = "Verse Number"
	StyleNoteGeneral      = "Note General Paragraph"
	StyleNoteMarker       = "Note Marker"
	StyleCaption          = "Caption"
	StyleFigureCopyright  = "Figure Copyright"
	StyleRemark           = "Remark"
)

// Translation holds the back translations of one paragraph, keyed by writing system.
type Translation struct {
	Texts map[string]tss.String `json:"texts"`
}

// Paragraph is a single paragraph of formatted text.
type Paragraph struct {
	ID          uuid.UUID    `json:"id"`
	Style       string       `json:"style"`
	Contents    tss.String   `json:"contents"`
	Translation *Translation `json:"translation,omitempty"`
}

// NewParagraph creates a paragraph with a fresh id.
func NewParagraph(style string, contents tss.String) *Paragraph {
	return &Paragraph{ID: uuid.New(), Style: style, Contents: contents}
}

// BackTranslation returns the back translation for ws, if any.
func (p *Paragraph) BackTranslation(ws string) (tss.String, bool) {
	if p.Translation == nil {
		return tss.String{}, false
	}
	s, ok := p.Translation.Texts[ws]
	return s, ok
}

// SetBackTranslation stores the back translation for ws.
func (p *Paragraph) SetBackTranslation(ws string, s tss.String) {
	if p.Translation == nil {
		p.Translation = &Translation{Texts: map[string]tss.String{}}
	}
	p.Translation.Texts[ws] = s
}

// StText is an ordered list of paragraphs: a title, a heading, section
// content or a footnote body.
type StText struct {
	Paragraphs []*Paragraph `json:"paragraphs"`
}

// Add appends a paragraph.
func (t *StText) Add(p *Paragraph) { t.Paragraphs = append(t.Paragraphs, p) }

// Len returns the number of paragraphs.
func (t *StText) Len() int { return len(t.Paragraphs) }

// Last returns the final paragraph or nil.
func (t *StText) Last() *Paragraph {
	if len(t.Paragraphs) == 0 {
		return nil
	}
	return t.Paragraphs[len(t.Paragraphs)-1]
}

// Footnote is owned by a book and anchored in a paragraph by an owning ORC.
type Footnote struct {
	ID         uuid.UUID    `json:"id"`
	Marker     string       `json:"marker"`
	Ref        bcv.Ref      `json:"ref,omitempty"`
	Paragraphs []*Paragraph `json:"paragraphs"`
}

// Picture is anchored in a paragraph by a picture ORC.
type Picture struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Caption     *Paragraph `json:"caption,omitempty"`
	Copyright   *Paragraph `json:"copyright,omitempty"`
	Description string     `json:"description,omitempty"`
	LayoutPos   string     `json:"layout_pos,omitempty"`
	RefRange    string     `json:"ref_range,omitempty"`
	Scale       string     `json:"scale,omitempty"`
}

// Section is either an introduction section or a Scripture section.
type Section struct {
	ID       uuid.UUID `json:"id"`
	Heading  StText    `json:"heading"`
	Content  StText    `json:"content"`
	Intro    bool      `json:"intro"`
	VerseMin bcv.Ref   `json:"verse_min"`
	VerseMax bcv.Ref   `json:"verse_max"`
}

// NewSection creates an empty section with a fresh id.
func NewSection(intro bool, ref bcv.Ref) *Section {
	return &Section{ID: uuid.New(), Intro: intro, VerseMin: ref, VerseMax: ref}
}

// Book is one canonical book.
type Book struct {
	ID        uuid.UUID   `json:"id"`
	Canonical int         `json:"canonical"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	IDText    string      `json:"id_text,omitempty"`
	Title     StText      `json:"title"`
	Sections  []*Section  `json:"sections"`
	Footnotes []*Footnote `json:"footnotes"`
	Pictures  []*Picture  `json:"pictures,omitempty"`
}

// NewBook creates an empty book for a canonical number.
func NewBook(canonical int) *Book {
	return &Book{
		ID:        uuid.New(),
		Canonical: canonical,
		Code:      bcv.BookCode(canonical),
		Name:      bcv.BookName(canonical),
	}
}

// BestAbbrev returns the book code, falling back to the canonical table.
func (b *Book) BestAbbrev() string {
	if b.Code != "" {
		return b.Code
	}
	return bcv.BookCode(b.Canonical)
}

// Note is an annotation attached to a Scripture reference range.
type Note struct {
	ID         uuid.UUID    `json:"id"`
	Type       string       `json:"type"`
	Begin      bcv.Ref      `json:"begin"`
	End        bcv.Ref      `json:"end"`
	Categories []string     `json:"categories,omitempty"`
	Quote      string       `json:"quote,omitempty"`
	Discussion []*Paragraph `json:"discussion"`
	Created    time.Time    `json:"created"`
}

// VersionKind distinguishes archived versions.
type VersionKind string

const (
	// VersionSaved holds the originals of books replaced by an import.
	VersionSaved VersionKind = "saved"
	// VersionImported records the books produced by an import.
	VersionImported VersionKind = "imported"
)

// Version is an archived set of books.
type Version struct {
	ID          uuid.UUID   `json:"id"`
	Kind        VersionKind `json:"kind"`
	Description string      `json:"description"`
	Created     time.Time   `json:"created"`
	Books       []*Book     `json:"books"`
}

// FindBook returns the version's copy of a book.
func (v *Version) FindBook(canonical int) *Book {
	for _, b := range v.Books {
		if b.Canonical == canonical {
			return b
		}
	}
	return nil
}

// FootnoteMarkerType controls how footnote markers are assigned.
type FootnoteMarkerType int

const (
	// MarkerAuto assigns sequential letters per book.
	MarkerAuto FootnoteMarkerType = iota
	// MarkerSymbol uses one fixed symbol for every footnote.
	MarkerSymbol
	// MarkerLiteral uses the caller supplied in the source text.
	MarkerLiteral
	// MarkerNone leaves footnotes unmarked.
	MarkerNone
)

// FootnoteMarkers is the marker policy for a project.
type FootnoteMarkers struct {
	Type   FootnoteMarkerType `json:"type" yaml:"type"`
	Symbol string             `json:"symbol,omitempty" yaml:"symbol,omitempty"`
}

// MarkerFor returns the marker for the footnote at 0-based ordinal within
// its book; literal is the caller found in the source, if any.
func (m FootnoteMarkers) MarkerFor(ordinal int, literal string) string {
	switch m.Type {
	case MarkerSymbol:
		if m.Symbol == "" {
			return "*"
		}
		return m.Symbol
	case MarkerLiteral:
		return literal
	case MarkerNone:
		return ""
	}
	return string(rune('a' + ordinal%26))
}
