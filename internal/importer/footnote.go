package importer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

// FootnoteHandle is a footnote whose text is still being collected.
type FootnoteHandle struct {
	Footnote  *scripture.Footnote
	BackTrans bool
	WS        string
	// EndMarker closes the footnote explicitly, e.g. `\f*` or "}".
	EndMarker string

	b *ParaBuilder
}

// Builder returns the builder collecting the footnote text.
func (h *FootnoteHandle) Builder() *ParaBuilder { return h.b }

// FootnoteTracker allocates the footnotes of one book and anchors them.
// Vernacular footnotes are remembered per paragraph so that back
// translation footnotes can be paired with them in order.
type FootnoteTracker struct {
	book    *scripture.Book
	markers scripture.FootnoteMarkers
	vernWS  string
	aligner *Aligner

	para    *ParaBuilder
	open    *FootnoteHandle
	pending []*scripture.Footnote
	paired  map[string]int
}

// NewFootnoteTracker returns a tracker adding footnotes to book. Back
// translation footnote references go to the streams of aligner, which may
// be nil.
func NewFootnoteTracker(book *scripture.Book, markers scripture.FootnoteMarkers, vernWS string, aligner *Aligner) *FootnoteTracker {
	return &FootnoteTracker{book: book, markers: markers, vernWS: vernWS, aligner: aligner, paired: map[string]int{}}
}

// ResetParagraph starts pairing against a new vernacular paragraph. For an
// existing paragraph its footnotes are given; a paragraph being imported is
// given as para and receives the anchors of new footnotes.
func (t *FootnoteTracker) ResetParagraph(existing []*scripture.Footnote, para *ParaBuilder) {
	t.pending = existing
	t.para = para
	clear(t.paired)
}

// Open returns the footnote being collected, or nil.
func (t *FootnoteTracker) Open() *FootnoteHandle { return t.open }

// Pending returns the vernacular footnotes of the current paragraph.
func (t *FootnoteTracker) Pending() []*scripture.Footnote { return t.pending }

// StartFootnote opens a footnote, ending any footnote still open. A
// vernacular footnote is created, added to the book and anchored in the
// current paragraph by an owning ORC run. A back translation footnote is
// paired with the next unpaired vernacular footnote of the paragraph for
// its writing system, and a referencing ORC run is added to that stream.
func (t *FootnoteTracker) StartFootnote(bt bool, ws, caller string) (*FootnoteHandle, error) {
	if t.open != nil {
		t.EndFootnote(t.open)
	}
	h := &FootnoteHandle{BackTrans: bt, WS: ws, b: NewParaBuilder(scripture.StyleNoteGeneral, ws)}
	if !bt {
		fn := &scripture.Footnote{
			ID:         uuid.New(),
			Marker:     t.markers.MarkerFor(len(t.book.Footnotes), caller),
			Paragraphs: []*scripture.Paragraph{scripture.NewParagraph(scripture.StyleNoteGeneral, tss.Empty())},
		}
		t.book.Footnotes = append(t.book.Footnotes, fn)
		t.pending = append(t.pending, fn)
		if t.para != nil {
			t.para.AppendORC(tss.ObjOwnedFootnote, fn.ID)
		}
		h.Footnote = fn
	} else {
		i := t.paired[ws]
		if i >= len(t.pending) {
			ie := errors.NewImport(errors.KindBackTransUnmatchedFootnote, "", "")
			ie.Book = t.book.Canonical
			return nil, ie
		}
		h.Footnote = t.pending[i]
		if t.aligner != nil {
			if err := t.aligner.AppendFootnoteRef(ws, h.Footnote.ID); err != nil {
				return nil, err
			}
		}
		t.paired[ws] = i + 1
	}
	t.open = h
	return h, nil
}

// AppendFootnoteText adds text to an open footnote.
func (t *FootnoteTracker) AppendFootnoteText(h *FootnoteHandle, text, ws, charStyle string) {
	h.b.AppendText(text, ws, charStyle)
}

// EndFootnote stores the collected text in the footnote.
func (t *FootnoteTracker) EndFootnote(h *FootnoteHandle) {
	if h == nil {
		return
	}
	if t.open == h {
		t.open = nil
	}
	s := h.b.Contents()
	para := h.Footnote.Paragraphs[0]
	if !h.BackTrans {
		para.Contents = s
		return
	}
	if !s.IsEmpty() {
		para.SetBackTranslation(h.WS, s)
	}
}

// splitCaller separates a footnote caller from the start of a footnote
// segment's text. "+" and "-" are always callers; any other single
// character is one when it is not a letter, or when literal callers are in
// use.
func splitCaller(text string, literal bool) (caller, rest string) {
	t := strings.TrimLeftFunc(text, unicode.IsSpace)
	tok, after, _ := strings.Cut(t, " ")
	if tok == "" || utf8.RuneCountInString(tok) != 1 {
		return "", text
	}
	r, _ := utf8.DecodeRuneInString(tok)
	if tok == "+" || tok == "-" || literal || !unicode.IsLetter(r) {
		return tok, after
	}
	return "", text
}
