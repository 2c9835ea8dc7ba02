package importer

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
	"github.com/FocuswithJustin/ScriptureImport/internal/logging"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
)

func baseMarker(marker string) string {
	base, _, _ := strings.Cut(marker, "_")
	return base
}

func (im *Importer) dispatch(seg segment.Segment) error {
	if baseMarker(seg.Marker) == `\id` {
		return im.startBook(seg)
	}
	if im.state == StateNoBook {
		if seg.Domain == segment.Annotations {
			return im.annotation(seg, im.s.Proxies.Resolve(seg.Marker))
		}
		return errors.NewImport(errors.KindDataBeforeBook, seg.Marker, seg.Text)
	}

	if im.s.Proxies.IsEndMarker(seg.Marker) {
		return im.endMarker(seg)
	}
	p := im.s.Proxies.Resolve(seg.Marker)
	bt := p.IsBackTrans() || seg.Domain == segment.BackTrans

	switch im.mode {
	case modeSkip:
		if im.notesInSkip && p.Domain == styles.DomainNote {
			return im.annotation(seg, p)
		}
		return nil
	case modeNotes:
		return im.annotation(seg, p)
	}

	if !p.Target.IsFigure() {
		if err := im.emitPicture(); err != nil {
			return err
		}
	}

	switch {
	case p.Domain == styles.DomainExcluded:
		im.log.Debug("excluded marker", zap.String("marker", seg.Marker))
		return nil
	case p.Domain == styles.DomainNote:
		return im.annotation(seg, p)
	case p.Target.IsFigure():
		im.pictureField(seg, p, bt)
		return nil
	case p.Target == styles.TargetTitleShort:
		if im.mode == modeVernacular {
			if name := strings.TrimSpace(seg.Text); name != "" {
				im.book.Name = name
			}
		}
		return nil
	case p.Target == styles.TargetChapterLabel:
		logging.SegmentSkipped(im.log, seg.Marker, "chapter labels are not imported")
		return nil
	}

	if h := im.footnotes.Open(); h != nil && (p.IsFootnoteStart() || !p.ContinuesFootnote() || h.BackTrans != bt) {
		im.footnotes.EndFootnote(h)
	}

	if bt {
		if !im.s.Settings.ImportBackTranslation {
			im.log.Debug("back translation not imported", zap.String("marker", seg.Marker))
			return nil
		}
		return im.backTranslation(seg, p)
	}
	if im.mode == modeWalker {
		return im.walkVernacular(seg, p)
	}
	return im.vernacular(seg, p)
}

// startBook closes the current book and opens the one named by an \id
// segment.
func (im *Importer) startBook(seg segment.Segment) error {
	if err := im.closeBook(); err != nil {
		return err
	}
	code, rest, _ := strings.Cut(strings.TrimSpace(seg.Text), " ")
	num := bcv.BookNumber(code)
	if num == 0 {
		return errors.NewImport(errors.KindInvalidReference, seg.Marker, seg.Text)
	}

	st := im.s.Settings
	im.resetBook(num)
	im.state = StateBookOpen

	switch {
	case seg.Domain == segment.Annotations:
		im.mode = modeNotes
		return nil
	case !st.InRange(num):
		im.mode = modeSkip
		logging.SegmentSkipped(im.log, seg.Marker, "book outside import range", zap.String("book", code))
		return nil
	case seg.Domain == segment.BackTrans || (!st.ImportTranslation && st.ImportBackTranslation):
		if !st.ImportBackTranslation {
			im.mode = modeSkip
			return nil
		}
		book, err := im.s.Undo.BookForBackTranslation(num)
		if err != nil {
			return err
		}
		im.book = book
		im.mode = modeWalker
		im.walk = newWalker(book, !st.ImportBookIntros)
		im.section = book.LastSection()
		logging.BookStarted(im.log, num, code, true)
	case st.ImportTranslation:
		book, existed, err := im.s.Undo.CreateBook(num)
		if err != nil {
			return err
		}
		book.IDText = strings.TrimSpace(rest)
		im.book = book
		im.mode = modeVernacular
		logging.BookStarted(im.log, num, code, existed)
	default:
		im.mode = modeSkip
		im.notesInSkip = true
		return nil
	}
	im.footnotes = NewFootnoteTracker(im.book, st.FootnoteMarkers, im.vernWS, im.aligner)
	return nil
}

func (im *Importer) resetBook(num int) {
	im.bookNum = num
	im.book = nil
	im.section = nil
	im.para = nil
	im.skipPara = false
	im.notesInSkip = false
	im.lastChapter = 0
	im.pendingCh = 0
	im.curRef = bcv.New(num, 0, 0)
	im.walk = nil
	im.pic = pictureFields{}
	im.aligner = NewAligner()
	im.footnotes = nil
}

// closeBook flushes whatever is still open and records the book as done.
func (im *Importer) closeBook() error {
	if im.book == nil {
		return nil
	}
	if err := im.emitPicture(); err != nil {
		return err
	}
	if h := im.footnotes.Open(); h != nil {
		im.footnotes.EndFootnote(h)
	}
	im.flushParagraph()
	if err := im.aligner.ReportUnboundText(); err != nil {
		return err
	}
	im.s.Undo.FinishBook(im.book)
	im.book = nil
	im.section = nil
	im.mode = modeNone
	return nil
}

// vernacular handles a vernacular marker while building a new book.
func (im *Importer) vernacular(seg segment.Segment, p *styles.Proxy) error {
	if im.skipPara && !p.IsParagraph() && p.Function != styles.FunctionChapter && p.Function != styles.FunctionVerse {
		return nil
	}
	if h := im.footnotes.Open(); h != nil {
		im.footnotes.AppendFootnoteText(h, seg.Text, "", p.CharStyle())
		return nil
	}
	switch {
	case p.IsFootnoteStart():
		return im.startFootnote(seg, p)
	case p.IsParagraph():
		return im.startParagraph(seg, p)
	case p.Function == styles.FunctionChapter:
		return im.chapter(seg)
	case p.Function == styles.FunctionVerse:
		return im.verse(seg)
	}
	return im.characters(seg, p)
}

func (im *Importer) startParagraph(seg segment.Segment, p *styles.Proxy) error {
	im.flushParagraph()
	if p.Context == styles.ContextIntro && !im.s.Settings.ImportBookIntros {
		im.skipPara = true
		logging.SegmentSkipped(im.log, seg.Marker, "book introductions are not imported")
		return nil
	}
	im.skipPara = false
	im.openParagraph(p)
	im.appendText(seg.Text, "")
	return nil
}

// openParagraph starts a vernacular paragraph of p's style, placing it in
// the title, a section heading or section content.
func (im *Importer) openParagraph(p *styles.Proxy) {
	p.Formatting()
	switch {
	case p.Context == styles.ContextTitle:
		im.dest = destTitle
	case p.Structure == styles.StructureHeading:
		intro := p.Context == styles.ContextIntro
		sec := im.section
		if sec == nil || sec.Content.Len() > 0 || sec.Heading.Len() == 0 || sec.Intro != intro {
			im.newSection(intro, false)
		}
		im.dest = destHeading
	default:
		intro := p.Context == styles.ContextIntro
		if p.Context == styles.ContextGeneral && im.section != nil {
			intro = im.section.Intro
		}
		if im.section == nil || im.section.Intro != intro {
			im.newSection(intro, true)
		}
		im.dest = destContent
	}
	im.para = NewParaBuilder(p.StyleName, im.vernWS)
	im.aligner.SetAnchor(&Anchor{ParaID: im.para.ID(), Style: p.StyleName, live: true})
	im.footnotes.ResetParagraph(nil, im.para)
}

// newSection starts a section. An implicit section gets an empty heading.
func (im *Importer) newSection(intro, implicit bool) {
	sec := scripture.NewSection(intro, 0)
	if implicit {
		style := scripture.StyleSectionHead
		if intro {
			style = scripture.StyleIntroSectionHead
		}
		sec.Heading.Add(scripture.NewParagraph(style, tss.Empty()))
	}
	im.book.Sections = append(im.book.Sections, sec)
	im.section = sec
	im.state = StateSectionOpen
}

// flushParagraph stores the open vernacular paragraph and the back
// translations aligned to it.
func (im *Importer) flushParagraph() {
	if im.mode == modeWalker {
		if an := im.aligner.Anchor(); an != nil {
			im.aligner.Flush(an.Para)
		}
		return
	}
	if im.para == nil {
		return
	}
	para := im.para.Flush()
	switch im.dest {
	case destTitle:
		im.book.Title.Add(para)
	case destHeading:
		im.section.Heading.Add(para)
	default:
		im.section.Content.Add(para)
	}
	im.aligner.Flush(para)
	im.aligner.SetAnchor(nil)
	im.para = nil
}

func (im *Importer) inScripture() bool {
	return im.para != nil && im.dest == destContent && im.section != nil && !im.section.Intro
}

// ensureScripturePara makes sure verse text has a Scripture paragraph to go
// into, opening an implicit one if necessary.
func (im *Importer) ensureScripturePara() {
	if im.inScripture() {
		return
	}
	im.flushParagraph()
	im.skipPara = false
	im.openParagraph(im.s.Proxies.ResolveStyle(scripture.StyleParagraph))
}

// ensurePara makes sure there is a vernacular paragraph to append to.
func (im *Importer) ensurePara() error {
	if im.mode != modeVernacular {
		return errors.NewImport(errors.KindInternal, "", "no vernacular paragraph")
	}
	if im.para == nil {
		im.ensureScripturePara()
	}
	return nil
}

// appendText adds vernacular text, emitting a pending chapter number first
// when the text is Scripture.
func (im *Importer) appendText(text, charStyle string) {
	if strings.TrimSpace(text) == "" && im.para.atBoundary() {
		return
	}
	if im.inScripture() {
		im.emitChapter()
	}
	im.para.AppendText(text, "", charStyle)
}

func (im *Importer) appendNumber(n numberRun) {
	im.para.AppendRun(n.text, "", n.style)
	im.aligner.AppendNumber(n)
}

func (im *Importer) chapter(seg segment.Segment) error {
	if !seg.FirstRef.IsValid() || seg.FirstRef.Chapter() == 0 {
		return errors.NewImport(errors.KindInvalidReference, seg.Marker, seg.Text)
	}
	im.pendingCh = seg.FirstRef
	im.curRef = seg.FirstRef
	if t := strings.TrimSpace(seg.Text); t != "" {
		logging.SegmentSkipped(im.log, seg.Marker, "text after chapter number", zap.String("text", t))
	}
	return nil
}

// emitChapter appends the pending chapter number if the chapter changed.
func (im *Importer) emitChapter() {
	ref := im.pendingCh
	if ref == 0 {
		return
	}
	im.pendingCh = 0
	if ref.Chapter() == im.lastChapter {
		return
	}
	im.lastChapter = ref.Chapter()
	im.appendNumber(chapterRun(ref))
}

func (im *Importer) verse(seg segment.Segment) error {
	rng := seg.Range()
	if !rng.Min.IsValid() || rng.Min.Verse() == 0 {
		return errors.NewImport(errors.KindInvalidReference, seg.Marker, seg.Text)
	}
	im.ensureScripturePara()
	im.skipPara = false
	im.emitChapter()
	im.appendNumber(verseRun(rng))
	im.section.AdjustRefs(rng.Min)
	im.section.AdjustRefs(rng.Max)
	im.s.Undo.NoteRef(rng.Min)
	im.curRef = rng.Max
	im.appendText(seg.Text, "")
	return nil
}

func (im *Importer) characters(seg segment.Segment, p *styles.Proxy) error {
	if err := im.ensurePara(); err != nil {
		return err
	}
	style := p.CharStyle()
	if style != "" {
		p.Formatting()
	}
	im.appendText(seg.Text, style)
	return nil
}

func (im *Importer) startFootnote(seg segment.Segment, p *styles.Proxy) error {
	if err := im.ensurePara(); err != nil {
		return err
	}
	literal := im.s.Settings.FootnoteMarkers.Type == scripture.MarkerLiteral
	caller, rest := splitCaller(seg.Text, literal)
	p.Formatting()
	h, err := im.footnotes.StartFootnote(false, im.vernWS, caller)
	if err != nil {
		return err
	}
	h.EndMarker = p.EndMarker
	h.Footnote.Ref = im.curRef
	im.footnotes.AppendFootnoteText(h, rest, "", "")
	return nil
}

// endMarker handles an end marker such as `\f*`, "}" or `\kw*`. Text after
// it continues in the enclosing context without a character style.
func (im *Importer) endMarker(seg segment.Segment) error {
	if im.mode != modeVernacular && im.mode != modeWalker {
		return nil
	}
	h := im.footnotes.Open()
	if h != nil && closesFootnote(h.EndMarker, seg.Marker) {
		im.footnotes.EndFootnote(h)
		return im.continueAfterEnd(seg, h.BackTrans, h.WS)
	}
	if h != nil {
		im.footnotes.AppendFootnoteText(h, seg.Text, "", "")
		return nil
	}
	opening := im.s.Proxies.Resolve(strings.TrimSuffix(seg.Marker, "*"))
	bt := opening.IsBackTrans() || seg.Domain == segment.BackTrans
	return im.continueAfterEnd(seg, bt, im.btWS(seg, opening))
}

// closesFootnote reports whether marker is the footnote end marker end. A
// writing system suffix on the marker, as in `\btf_de*`, is ignored.
func closesFootnote(end, marker string) bool {
	if end == "" {
		return false
	}
	if styles.Key(end) == styles.Key(marker) {
		return true
	}
	start, ok := strings.CutSuffix(marker, "*")
	if !ok {
		return false
	}
	return styles.Key(baseMarker(start)+"*") == styles.Key(end)
}

// continueAfterEnd adds the text following an end marker. Back translation
// text goes to the stream for btws.
func (im *Importer) continueAfterEnd(seg segment.Segment, bt bool, btws string) error {
	if strings.TrimFunc(seg.Text, unicode.IsSpace) == "" {
		return nil
	}
	if bt {
		if !im.s.Settings.ImportBackTranslation {
			return nil
		}
		return im.aligner.AppendText(btws, seg.Text, "")
	}
	if im.mode != modeVernacular || im.skipPara {
		return nil
	}
	if err := im.ensurePara(); err != nil {
		return err
	}
	im.appendText(seg.Text, "")
	return nil
}

// btWS returns the writing system of back translation text.
func (im *Importer) btWS(seg segment.Segment, p *styles.Proxy) string {
	if seg.Domain == segment.BackTrans {
		if seg.WS != "" {
			return seg.WS
		}
		return im.analysisWS
	}
	if p.IsBackTrans() && p.WS != "" {
		return p.WS
	}
	return im.analysisWS
}

// backTranslation handles a back translation marker, either interleaved
// with the vernacular or from a back translation file.
func (im *Importer) backTranslation(seg segment.Segment, p *styles.Proxy) error {
	ws := im.btWS(seg, p)
	walkerFile := im.mode == modeWalker && seg.Domain == segment.BackTrans

	if im.skipPara && !p.IsParagraph() {
		return nil
	}
	if h := im.footnotes.Open(); h != nil {
		im.footnotes.AppendFootnoteText(h, seg.Text, ws, p.CharStyle())
		return nil
	}

	switch {
	case p.IsFootnoteStart():
		if err := im.aligner.BindToVernacularParagraph(ws, ""); err != nil {
			return err
		}
		literal := im.s.Settings.FootnoteMarkers.Type == scripture.MarkerLiteral
		_, rest := splitCaller(seg.Text, literal)
		h, err := im.footnotes.StartFootnote(true, ws, "")
		if err != nil {
			return err
		}
		h.EndMarker = p.EndMarker
		im.footnotes.AppendFootnoteText(h, rest, ws, "")
		return nil

	case p.IsParagraph():
		if p.Context == styles.ContextIntro && !im.s.Settings.ImportBookIntros {
			im.skipPara = true
			return nil
		}
		im.skipPara = false
		if walkerFile {
			if err := im.advance(seg, p.StyleName); err != nil {
				return err
			}
			if im.skipPara {
				return nil
			}
		} else if err := im.aligner.BindToVernacularParagraph(ws, p.StyleName); err != nil {
			return err
		}
		if strings.TrimSpace(seg.Text) == "" {
			return nil
		}
		return im.aligner.AppendText(ws, seg.Text, "")

	case p.Function == styles.FunctionChapter:
		if seg.FirstRef.IsValid() {
			im.curRef = seg.FirstRef
		}
		return nil

	case p.Function == styles.FunctionVerse:
		rng := seg.Range()
		if rng.Min.IsValid() {
			im.curRef = rng.Max
			found, err := im.aligner.SyncTo(ws, verseRun(rng))
			if err != nil {
				return err
			}
			if !found {
				logging.SegmentSkipped(im.log, seg.Marker, "verse not in vernacular paragraph", zap.Stringer("ref", rng))
			}
		}
		if strings.TrimSpace(seg.Text) == "" {
			return nil
		}
		return im.aligner.AppendText(ws, seg.Text, "")
	}

	if strings.TrimSpace(seg.Text) == "" {
		return im.aligner.BindToVernacularParagraph(ws, "")
	}
	return im.aligner.AppendText(ws, seg.Text, p.CharStyle())
}

// walkVernacular handles a vernacular marker while attaching a back
// translation to an existing book: the vernacular text is not imported, but
// its paragraph and verse markers position the back translation.
func (im *Importer) walkVernacular(seg segment.Segment, p *styles.Proxy) error {
	switch {
	case p.IsParagraph():
		if p.Context == styles.ContextIntro && !im.s.Settings.ImportBookIntros {
			im.skipPara = true
			return nil
		}
		im.skipPara = false
		return im.advance(seg, p.StyleName)
	case p.Function == styles.FunctionChapter:
		if seg.FirstRef.IsValid() {
			im.curRef = seg.FirstRef
		}
	case p.Function == styles.FunctionVerse:
		rng := seg.Range()
		if an := im.aligner.Anchor(); an != nil && rng.Min.IsValid() {
			im.curRef = rng.Max
			an.Advance(verseRun(rng))
		}
	}
	return nil
}

// advance flushes the back translation of the current existing paragraph
// and moves to the next paragraph of the given style. A minor section head
// the existing book does not have is skipped along with its text.
func (im *Importer) advance(seg segment.Segment, style string) error {
	if styles.Key(style) == styles.Key(scripture.StyleSectionHeadMinor) && !im.walk.has(style) {
		im.skipPara = true
		logging.SegmentSkipped(im.log, seg.Marker, "minor section head has no vernacular counterpart", zap.Stringer("ref", im.curRef))
		return nil
	}
	im.flushParagraph()
	im.aligner.SetAnchor(nil)
	pos, err := im.walk.next(style)
	if err != nil {
		return err
	}
	im.aligner.SetAnchor(newExistingAnchor(pos.Para))
	im.footnotes.ResetParagraph(im.book.FootnotesIn(pos.Para.Contents), nil)
	if pos.Section != nil {
		im.section = pos.Section
		im.state = StateSectionOpen
	}
	return nil
}
