package importer

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
)

// Anchor is the vernacular paragraph back translations are aligned to.
type Anchor struct {
	ParaID uuid.UUID
	Style  string
	// Para is nil while the vernacular paragraph is still being built.
	Para *scripture.Paragraph

	// live anchors receive their number runs as the vernacular is imported;
	// otherwise they are read from an existing paragraph.
	live     bool
	numbers  []numberRun
	seen     int
	pictures []uuid.UUID
	nextPic  int
}

// newExistingAnchor anchors to a paragraph already in the book.
func newExistingAnchor(para *scripture.Paragraph) *Anchor {
	a := &Anchor{ParaID: para.ID, Style: para.Style, Para: para}
	s := para.Contents
	for i := 0; i < s.RunCount(); i++ {
		r := s.Run(i)
		switch {
		case isNumberStyle(r.Props.CharStyle):
			a.numbers = append(a.numbers, numberRun{text: r.Text, style: r.Props.CharStyle})
		case r.Props.Obj.Kind == tss.ObjPicture:
			a.pictures = append(a.pictures, r.Props.Obj.GUID)
		}
	}
	return a
}

// find returns the index of the first number run at or after from that
// matches n, or -1.
func (a *Anchor) find(from int, n numberRun) int {
	for i := from; i < len(a.numbers); i++ {
		if a.numbers[i].style == n.style && a.numbers[i].text == n.text {
			return i
		}
	}
	return -1
}

// Advance moves past the number run matching n. It reports whether one
// was found.
func (a *Anchor) Advance(n numberRun) bool {
	i := a.find(a.seen, n)
	if i < 0 {
		return false
	}
	a.seen = i + 1
	return true
}

// NextPicture returns the next picture anchored in the paragraph.
func (a *Anchor) NextPicture() (uuid.UUID, bool) {
	if a.nextPic >= len(a.pictures) {
		return uuid.Nil, false
	}
	a.nextPic++
	return a.pictures[a.nextPic-1], true
}

type btStream struct {
	b        *ParaBuilder
	synced   int
	explicit bool
}

// Aligner keeps one back translation builder per writing system and binds
// them to the current vernacular paragraph.
type Aligner struct {
	anchor  *Anchor
	streams map[string]*btStream
	order   []string
	unbound *errors.ImportError
}

// NewAligner returns an aligner with no anchor.
func NewAligner() *Aligner {
	return &Aligner{streams: map[string]*btStream{}}
}

// SetAnchor binds subsequent back translation text to a. Streams are
// expected to have been flushed.
func (a *Aligner) SetAnchor(an *Anchor) {
	a.anchor = an
}

// Anchor returns the current anchor, or nil.
func (a *Aligner) Anchor() *Anchor { return a.anchor }

// OpenBtStream opens the stream for ws if it is not open yet.
func (a *Aligner) OpenBtStream(ws string) {
	if _, ok := a.streams[ws]; ok {
		return
	}
	style := ""
	if a.anchor != nil {
		style = a.anchor.Style
	}
	a.streams[ws] = &btStream{b: NewParaBuilder(style, ws)}
	a.order = append(a.order, ws)
}

// GetBuilder returns the builder of an open stream, or nil.
func (a *Aligner) GetBuilder(ws string) *ParaBuilder {
	if s, ok := a.streams[ws]; ok {
		return s.b
	}
	return nil
}

// BindToVernacularParagraph opens the stream for ws against the current
// anchor. A non-empty style must equal the anchor's style.
func (a *Aligner) BindToVernacularParagraph(ws, style string) error {
	if a.anchor == nil {
		if a.unbound == nil {
			a.unbound = errors.NewImport(errors.KindBackTransUnbound, "", "")
		}
		return a.unbound
	}
	if style != "" && styles.Key(style) != styles.Key(a.anchor.Style) {
		ie := errors.NewImport(errors.KindBackTransStyleMismatch, "", "")
		ie.Err = styleMismatch(style, a.anchor.Style)
		return ie
	}
	a.OpenBtStream(ws)
	return nil
}

// ReportUnboundText returns the error for back translation text that could
// not be bound to any vernacular paragraph, or nil.
func (a *Aligner) ReportUnboundText() error {
	if a.unbound == nil {
		return nil
	}
	return a.unbound
}

// AppendNumber records a chapter or verse number appended to the live
// vernacular paragraph.
func (a *Aligner) AppendNumber(n numberRun) {
	if a.anchor == nil || !a.anchor.live {
		return
	}
	a.anchor.numbers = append(a.anchor.numbers, n)
	a.anchor.seen = len(a.anchor.numbers)
}

// sync mirrors the anchor's number runs up to index upto. Two verse numbers
// with no back translation between them are separated by a space.
func (a *Aligner) sync(s *btStream, upto int) {
	if upto > len(a.anchor.numbers) {
		upto = len(a.anchor.numbers)
	}
	for ; s.synced < upto; s.synced++ {
		n := a.anchor.numbers[s.synced]
		if n.style == scripture.StyleVerseNumber && s.b.lastIsVerse() {
			s.b.AppendRun(" ", "", "")
		}
		s.b.AppendRun(n.text, "", n.style)
	}
}

// SyncTo mirrors number runs up to and including the one matching n. It
// reports whether a match was found.
func (a *Aligner) SyncTo(ws string, n numberRun) (bool, error) {
	if err := a.BindToVernacularParagraph(ws, ""); err != nil {
		return false, err
	}
	s := a.streams[ws]
	i := a.anchor.find(s.synced, n)
	if i < 0 {
		return false, nil
	}
	a.sync(s, i+1)
	if i+1 > a.anchor.seen {
		a.anchor.seen = i + 1
	}
	if a.anchor.live {
		s.explicit = true
	}
	return true, nil
}

func (a *Aligner) stream(ws string) (*btStream, error) {
	if err := a.BindToVernacularParagraph(ws, ""); err != nil {
		return nil, err
	}
	s := a.streams[ws]
	if !s.explicit {
		a.sync(s, a.anchor.seen)
	}
	return s, nil
}

// AppendText adds back translation text for ws, first mirroring the
// vernacular numbers it follows.
func (a *Aligner) AppendText(ws, text, charStyle string) error {
	s, err := a.stream(ws)
	if err != nil {
		return err
	}
	s.b.AppendText(text, ws, charStyle)
	return nil
}

// AppendFootnoteRef adds a reference to a vernacular footnote.
func (a *Aligner) AppendFootnoteRef(ws string, id uuid.UUID) error {
	s, err := a.stream(ws)
	if err != nil {
		return err
	}
	s.b.b.AppendORC(tss.ObjFootnoteRef, id, ws)
	return nil
}

// Flush completes every open stream against para and closes them.
func (a *Aligner) Flush(para *scripture.Paragraph) {
	for _, ws := range a.order {
		s := a.streams[ws]
		if a.anchor != nil {
			a.sync(s, len(a.anchor.numbers))
		}
		contents := s.b.Contents()
		if para != nil && !contents.IsEmpty() {
			para.SetBackTranslation(ws, contents)
		}
	}
	clear(a.streams)
	a.order = a.order[:0]
}

// walker steps through the existing paragraphs of a book so that a back
// translation can be attached to them in order.
type walker struct {
	paras     []scripture.ParaPos
	pos       int
	skipIntro bool
}

func newWalker(b *scripture.Book, skipIntro bool) *walker {
	return &walker{paras: b.Paragraphs(), skipIntro: skipIntro}
}

// next returns the next paragraph of the given style. Minor section heads,
// empty implicit headings and, when intros are not imported, intro
// paragraphs are passed over; any other paragraph of a different style is a
// mismatch.
func (w *walker) next(style string) (scripture.ParaPos, error) {
	for w.pos < len(w.paras) {
		p := w.paras[w.pos]
		w.pos++
		if styles.Key(p.Para.Style) == styles.Key(style) {
			return p, nil
		}
		if w.skippable(p) {
			continue
		}
		ie := errors.NewImport(errors.KindBackTransStyleMismatch, "", "")
		ie.Err = styleMismatch(style, p.Para.Style)
		return scripture.ParaPos{}, ie
	}
	return scripture.ParaPos{}, errors.NewImport(errors.KindBackTransUnbound, "", "")
}

// skippable reports whether p may be passed over without a back translation.
func (w *walker) skippable(p scripture.ParaPos) bool {
	switch {
	case p.Para.Style == scripture.StyleSectionHeadMinor:
		return true
	case p.Where == scripture.InHeading && p.Para.Contents.IsEmpty():
		return true
	case w.skipIntro && p.Section != nil && p.Section.Intro:
		return true
	}
	return false
}

// has reports whether next would find a paragraph of the given style
// without a style mismatch. The position is not changed.
func (w *walker) has(style string) bool {
	for _, p := range w.paras[w.pos:] {
		if styles.Key(p.Para.Style) == styles.Key(style) {
			return true
		}
		if !w.skippable(p) {
			return false
		}
	}
	return false
}

func styleMismatch(bt, vern string) error {
	return errors.NewValidation("style", strconv.Quote(bt)+" does not match vernacular "+strconv.Quote(vern))
}

func verseRun(r bcv.Range) numberRun {
	return numberRun{text: r.VerseText(), style: scripture.StyleVerseNumber, ref: r.Min}
}

func chapterRun(r bcv.Ref) numberRun {
	return numberRun{text: strconv.Itoa(r.Chapter()), style: scripture.StyleChapterNumber, ref: r}
}
