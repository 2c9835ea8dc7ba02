// Package styles resolves standard-format markers to styles.
//
// A Stylesheet holds the persisted styles of a project. A ProxyList is built
// for one import session from a Stylesheet and a set of marker Mappings; it
// hands out Proxy values that describe how the engine should treat each
// marker, and materializes missing styles into the stylesheet only when
// their formatting is actually needed.
package styles

import (
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// StyleType distinguishes paragraph styles from character styles.
type StyleType int

const (
	Paragraph StyleType = iota
	Character
)

func (t StyleType) String() string {
	if t == Character {
		return "character"
	}
	return "paragraph"
}

// Context is the part of a book a style belongs to.
type Context int

const (
	ContextGeneral Context = iota
	ContextTitle
	ContextIntro
	ContextText
	ContextNote
	ContextAnnotation
	ContextInternal
)

var contextNames = [...]string{"general", "title", "intro", "text", "note", "annotation", "internal"}

func (c Context) String() string {
	if int(c) < len(contextNames) {
		return contextNames[c]
	}
	return "unknown"
}

// Structure says whether a paragraph style heads a section or carries its body.
type Structure int

const (
	StructureUndefined Structure = iota
	StructureHeading
	StructureBody
)

// Function gives special meaning to a style.
type Function int

const (
	FunctionProse Function = iota
	FunctionLine
	FunctionList
	FunctionChapter
	FunctionVerse
	FunctionFootnote
)

// FormatProps are the formatting properties of a style.
type FormatProps struct {
	Bold        bool   `json:"bold,omitempty"`
	Italic      bool   `json:"italic,omitempty"`
	Superscript bool   `json:"superscript,omitempty"`
	FontSize    int    `json:"font_size,omitempty"`
	Alignment   string `json:"alignment,omitempty"`
	FirstIndent int    `json:"first_indent,omitempty"`
}

// Style is a named paragraph or character style.
type Style struct {
	Name      string      `json:"name"`
	Type      StyleType   `json:"type"`
	Context   Context     `json:"context"`
	Structure Structure   `json:"structure"`
	Function  Function    `json:"function"`
	Props     FormatProps `json:"props"`
}

// Stylesheet is a set of styles keyed by normalized name. It is safe for
// concurrent use.
type Stylesheet struct {
	mu     sync.RWMutex
	styles map[string]*Style
}

// NewStylesheet returns an empty stylesheet.
func NewStylesheet() *Stylesheet {
	return &Stylesheet{styles: map[string]*Style{}}
}

// Key normalizes a style or marker name so that composed and decomposed
// spellings compare equal.
func Key(name string) string {
	return norm.NFC.String(name)
}

// Get returns the style with the given name.
func (s *Stylesheet) Get(name string) (*Style, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.styles[Key(name)]
	return st, ok
}

// Put adds or replaces a style.
func (s *Stylesheet) Put(st *Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[Key(st.Name)] = st
}

// Ensure returns the named style, creating it from tmpl when absent. The
// second result reports whether the style was created.
func (s *Stylesheet) Ensure(tmpl Style) (*Style, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := Key(tmpl.Name)
	if st, ok := s.styles[k]; ok {
		return st, false
	}
	st := tmpl
	s.styles[k] = &st
	return &st, true
}

// Len returns the number of styles.
func (s *Stylesheet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.styles)
}

// Names returns all style names, sorted.
func (s *Stylesheet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.styles))
	for _, st := range s.styles {
		names = append(names, st.Name)
	}
	sort.Strings(names)
	return names
}

// Standard style names.
const (
	DefaultParaChars = "Default Paragraph Characters"
	KeyWord          = "Key Word"
)

// DefaultStylesheet returns a stylesheet with the standard Scripture styles.
func DefaultStylesheet() *Stylesheet {
	s := NewStylesheet()
	for _, st := range []Style{
		{Name: "Title Main", Type: Paragraph, Context: ContextTitle, Structure: StructureBody, Props: FormatProps{Bold: true, FontSize: 20, Alignment: "center"}},
		{Name: "Title Secondary", Type: Character, Context: ContextTitle, Props: FormatProps{FontSize: 16}},
		{Name: "Intro Section Head", Type: Paragraph, Context: ContextIntro, Structure: StructureHeading, Props: FormatProps{Bold: true}},
		{Name: "Intro Paragraph", Type: Paragraph, Context: ContextIntro, Structure: StructureBody},
		{Name: "Section Head", Type: Paragraph, Context: ContextText, Structure: StructureHeading, Props: FormatProps{Bold: true, Alignment: "center"}},
		{Name: "Section Head Minor", Type: Paragraph, Context: ContextText, Structure: StructureHeading, Props: FormatProps{Italic: true, Alignment: "center"}},
		{Name: "Paragraph", Type: Paragraph, Context: ContextText, Structure: StructureBody, Props: FormatProps{FirstIndent: 12}},
		{Name: "Line1", Type: Paragraph, Context: ContextText, Structure: StructureBody, Function: FunctionLine},
		{Name: "Line2", Type: Paragraph, Context: ContextText, Structure: StructureBody, Function: FunctionLine, Props: FormatProps{FirstIndent: 24}},
		{Name: "Chapter Number", Type: Character, Context: ContextText, Function: FunctionChapter, Props: FormatProps{Bold: true, FontSize: 20}},
		{Name: "Verse Number", Type: Character, Context: ContextText, Function: FunctionVerse, Props: FormatProps{Superscript: true}},
		{Name: "Note General Paragraph", Type: Paragraph, Context: ContextNote, Function: FunctionFootnote},
		{Name: "Note Marker", Type: Character, Context: ContextNote, Props: FormatProps{Superscript: true}},
		{Name: "Referenced Text", Type: Character, Context: ContextNote, Props: FormatProps{Bold: true}},
		{Name: "Alternate Reading", Type: Character, Context: ContextNote, Props: FormatProps{Italic: true}},
		{Name: KeyWord, Type: Character, Context: ContextGeneral, Props: FormatProps{Bold: true}},
		{Name: "Emphasis", Type: Character, Context: ContextGeneral, Props: FormatProps{Italic: true}},
		{Name: "Caption", Type: Paragraph, Context: ContextInternal},
		{Name: "Figure Copyright", Type: Paragraph, Context: ContextInternal},
		{Name: "Remark", Type: Paragraph, Context: ContextAnnotation},
		{Name: DefaultParaChars, Type: Character, Context: ContextGeneral},
	} {
		s.Put(&st)
	}
	return s
}
