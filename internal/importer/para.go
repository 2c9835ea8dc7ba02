package importer

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

// numberRun is a chapter or verse number run of a vernacular paragraph.
// Back translations mirror these so both texts stay aligned.
type numberRun struct {
	text  string
	style string
	ref   bcv.Ref
}

func isNumberStyle(style string) bool {
	return style == scripture.StyleChapterNumber || style == scripture.StyleVerseNumber
}

// ParaBuilder accumulates the runs of one paragraph in one writing system.
// Every AppendRun starts a new run; runs are never merged across calls.
type ParaBuilder struct {
	id    uuid.UUID
	style string
	ws    string
	b     tss.Builder
}

// NewParaBuilder returns an empty builder for a paragraph of style in ws.
func NewParaBuilder(style, ws string) *ParaBuilder {
	return &ParaBuilder{id: uuid.New(), style: style, ws: ws}
}

// ID is the id the flushed paragraph will carry.
func (p *ParaBuilder) ID() uuid.UUID { return p.id }

// Style returns the paragraph style.
func (p *ParaBuilder) Style() string { return p.style }

// WS returns the builder's default writing system.
func (p *ParaBuilder) WS() string { return p.ws }

// AppendRun appends text as a new run. An empty ws means the builder's
// writing system; an empty charStyle means default paragraph characters.
func (p *ParaBuilder) AppendRun(text, ws, charStyle string) {
	if ws == "" {
		ws = p.ws
	}
	p.b.AppendRun(text, tss.Props{WS: ws, CharStyle: charStyle})
}

// AppendText appends segment text, dropping leading white space at the
// start of the paragraph and right after a chapter or verse number.
func (p *ParaBuilder) AppendText(text, ws, charStyle string) {
	if p.atBoundary() {
		text = strings.TrimLeftFunc(text, unicode.IsSpace)
	}
	p.AppendRun(text, ws, charStyle)
}

// AppendORC anchors an object in the paragraph.
func (p *ParaBuilder) AppendORC(kind tss.ObjKind, id uuid.UUID) {
	p.b.AppendORC(kind, id, p.ws)
}

func (p *ParaBuilder) atBoundary() bool {
	last, ok := p.b.LastRun()
	return !ok || isNumberStyle(last.Props.CharStyle)
}

// lastIsVerse reports whether the final run is a verse number.
func (p *ParaBuilder) lastIsVerse() bool {
	last, ok := p.b.LastRun()
	return ok && last.Props.CharStyle == scripture.StyleVerseNumber
}

// CurrentRunCount returns the number of runs so far.
func (p *ParaBuilder) CurrentRunCount() int { return p.b.RunCount() }

// CurrentLength returns the number of characters so far.
func (p *ParaBuilder) CurrentLength() int { return p.b.Length() }

// IsEmpty reports whether nothing has been appended.
func (p *ParaBuilder) IsEmpty() bool { return p.b.RunCount() == 0 }

// Contents trims trailing white space and returns the runs, leaving the
// builder empty.
func (p *ParaBuilder) Contents() tss.String {
	p.b.TrimTrailingSpace()
	s := p.b.String()
	p.b.Clear()
	return s
}

// Flush finalizes the paragraph. Flushing an empty builder yields an empty
// paragraph.
func (p *ParaBuilder) Flush() *scripture.Paragraph {
	para := &scripture.Paragraph{ID: p.id, Style: p.style, Contents: p.Contents()}
	p.id = uuid.New()
	return para
}
