package importer

import (
	"slices"
	"testing"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	scrierrors "github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

func TestParaBuilder_AppendText(t *testing.T) {
	p := NewParaBuilder(scripture.StyleParagraph, "qaa")
	p.AppendText("  leading", "", "")
	p.AppendRun("5", "", scripture.StyleVerseNumber)
	p.AppendText(" after verse ", "", "")
	p.AppendText("same props", "", "")

	if got := p.CurrentRunCount(); got != 4 {
		t.Fatalf("CurrentRunCount = %d, want 4", got)
	}
	id := p.ID()
	para := p.Flush()
	want := []string{"leading", "5", "after verse ", "same props"}
	if got := runTexts(para.Contents); !slices.Equal(got, want) {
		t.Errorf("runs = %q, want %q", got, want)
	}
	if para.ID != id {
		t.Errorf("flushed id = %v, want %v", para.ID, id)
	}
	if p.ID() == id {
		t.Error("builder kept the flushed id")
	}
	if !p.IsEmpty() {
		t.Error("builder not empty after Flush")
	}
}

func TestParaBuilder_TrimsTrailingSpace(t *testing.T) {
	p := NewParaBuilder(scripture.StyleParagraph, "qaa")
	p.AppendText("text", "", "")
	p.AppendText("   ", "", "")
	if got := p.CurrentLength(); got != 7 {
		t.Fatalf("CurrentLength = %d, want 7", got)
	}
	if got := p.Contents().Text(); got != "text" {
		t.Errorf("Contents = %q, want %q", got, "text")
	}
}

func TestSplitCaller(t *testing.T) {
	tests := []struct {
		text    string
		literal bool
		caller  string
		rest    string
	}{
		{"+ note", false, "+", "note"},
		{"- note", false, "-", "note"},
		{"* note", false, "*", "note"},
		{"a note", false, "", "a note"},
		{"a note", true, "a", "note"},
		{"note text", true, "", "note text"},
		{"", false, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			caller, rest := splitCaller(tc.text, tc.literal)
			if caller != tc.caller || rest != tc.rest {
				t.Errorf("splitCaller(%q) = %q, %q, want %q, %q", tc.text, caller, rest, tc.caller, tc.rest)
			}
		})
	}
}

func TestFootnoteTracker(t *testing.T) {
	book := scripture.NewBook(2)
	al := NewAligner()
	tr := NewFootnoteTracker(book, scripture.FootnoteMarkers{}, "qaa", al)
	vern := NewParaBuilder(scripture.StyleParagraph, "qaa")
	tr.ResetParagraph(nil, vern)
	al.SetAnchor(&Anchor{ParaID: vern.ID(), Style: scripture.StyleParagraph, live: true})

	h1, err := tr.StartFootnote(false, "qaa", "+")
	if err != nil {
		t.Fatal(err)
	}
	tr.AppendFootnoteText(h1, "first", "", "")
	h2, err := tr.StartFootnote(false, "qaa", "+")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Open() != h2 {
		t.Fatal("second footnote not open")
	}
	tr.AppendFootnoteText(h2, "second", "", "")
	tr.EndFootnote(h2)

	if got := []string{book.Footnotes[0].Marker, book.Footnotes[1].Marker}; !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("markers = %q, want [a b]", got)
	}
	if got := book.Footnotes[0].Paragraphs[0].Contents.Text(); got != "first" {
		t.Errorf("first footnote = %q, want %q", got, "first")
	}
	vc := vern.Contents()
	owned := vc.ObjectRuns(tss.ObjOwnedFootnote)
	if len(owned) != 2 {
		t.Fatalf("owning ORC runs = %d, want 2", len(owned))
	}
	for i, r := range owned {
		if got := vc.Run(r).Props.Obj.GUID; got != book.Footnotes[i].ID {
			t.Errorf("ORC %d = %v, want footnote %v", i, got, book.Footnotes[i].ID)
		}
	}

	for i, want := range []string{"one", "two"} {
		h, err := tr.StartFootnote(true, "en", "")
		if err != nil {
			t.Fatal(err)
		}
		if h.Footnote != book.Footnotes[i] {
			t.Fatalf("BT footnote %d paired with the wrong footnote", i)
		}
		tr.AppendFootnoteText(h, want, "en", "")
		tr.EndFootnote(h)
		bt, _ := book.Footnotes[i].Paragraphs[0].BackTranslation("en")
		if bt.Text() != want {
			t.Errorf("footnote %d BT = %q, want %q", i, bt.Text(), want)
		}
	}
	if _, err := tr.StartFootnote(true, "en", ""); err == nil {
		t.Fatal("third BT footnote paired")
	} else if k, _ := scrierrors.KindOf(err); k != scrierrors.KindBackTransUnmatchedFootnote {
		t.Errorf("kind = %v, want %v", k, scrierrors.KindBackTransUnmatchedFootnote)
	}
	if _, err := tr.StartFootnote(true, "de", ""); err != nil {
		t.Errorf("de stream pairs independently: %v", err)
	}

	en := al.GetBuilder("en").Contents()
	refs := en.ObjectRuns(tss.ObjFootnoteRef)
	if len(refs) != 2 {
		t.Fatalf("en referencing ORC runs = %d, want 2", len(refs))
	}
	for i, r := range refs {
		if got := en.Run(r).Props.Obj.GUID; got != book.Footnotes[i].ID {
			t.Errorf("en ORC %d = %v, want footnote %v", i, got, book.Footnotes[i].ID)
		}
	}
}

func TestAligner_Unbound(t *testing.T) {
	a := NewAligner()
	if err := a.AppendText("en", "text", ""); err == nil {
		t.Fatal("AppendText without anchor succeeded")
	}
	err := a.ReportUnboundText()
	if k, _ := scrierrors.KindOf(err); k != scrierrors.KindBackTransUnbound {
		t.Fatalf("ReportUnboundText kind = %v, want %v", k, scrierrors.KindBackTransUnbound)
	}
}

func TestAligner_ExistingAnchor(t *testing.T) {
	var b tss.Builder
	b.AppendRun("3", tss.Props{WS: "qaa", CharStyle: scripture.StyleChapterNumber})
	b.AppendRun("1", tss.Props{WS: "qaa", CharStyle: scripture.StyleVerseNumber})
	b.AppendRun("one ", tss.Props{WS: "qaa"})
	b.AppendRun("2", tss.Props{WS: "qaa", CharStyle: scripture.StyleVerseNumber})
	b.AppendRun("two", tss.Props{WS: "qaa"})
	para := scripture.NewParagraph(scripture.StyleParagraph, b.String())

	a := NewAligner()
	a.SetAnchor(newExistingAnchor(para))
	if err := a.BindToVernacularParagraph("en", "Line1"); err == nil {
		t.Fatal("style mismatch accepted")
	}
	v := func(n int) numberRun { return verseRun(bcv.Single(bcv.New(2, 3, n))) }
	if ok, err := a.SyncTo("en", v(2)); err != nil || !ok {
		t.Fatalf("SyncTo(2) = %v, %v", ok, err)
	}
	if err := a.AppendText("en", "BT two", ""); err != nil {
		t.Fatal(err)
	}
	if ok, _ := a.SyncTo("en", v(9)); ok {
		t.Error("SyncTo found a verse that is not there")
	}
	a.Flush(para)

	got, ok := para.BackTranslation("en")
	if !ok {
		t.Fatal("no back translation")
	}
	if want := []string{"3", "1", " ", "2", "BT two"}; !slices.Equal(runTexts(got), want) {
		t.Errorf("BT runs = %q, want %q", runTexts(got), want)
	}
	if a.GetBuilder("en") != nil {
		t.Error("stream still open after Flush")
	}
}

func TestWalker_SkipsMinorHeadings(t *testing.T) {
	book := scripture.NewBook(2)
	intro := scripture.NewSection(true, 0)
	intro.Content.Add(scripture.NewParagraph(scripture.StyleIntroParagraph, tss.Plain("intro", "qaa")))
	sec := scripture.NewSection(false, 0)
	sec.Heading.Add(scripture.NewParagraph(scripture.StyleSectionHeadMinor, tss.Plain("minor", "qaa")))
	sec.Content.Add(scripture.NewParagraph(scripture.StyleParagraph, tss.Plain("text", "qaa")))
	book.Sections = append(book.Sections, intro, sec)

	w := newWalker(book, true)
	pos, err := w.next(scripture.StyleParagraph)
	if err != nil {
		t.Fatal(err)
	}
	if pos.Para.Contents.Text() != "text" {
		t.Errorf("next = %q, want %q", pos.Para.Contents.Text(), "text")
	}
	_, err = w.next(scripture.StyleParagraph)
	if k, _ := scrierrors.KindOf(err); k != scrierrors.KindBackTransUnbound {
		t.Errorf("past the end: kind = %v, want %v", k, scrierrors.KindBackTransUnbound)
	}

	w = newWalker(book, false)
	_, err = w.next(scripture.StyleParagraph)
	if k, _ := scrierrors.KindOf(err); k != scrierrors.KindBackTransStyleMismatch {
		t.Errorf("intro kept: kind = %v, want %v", k, scrierrors.KindBackTransStyleMismatch)
	}
}

func TestWalker_Has(t *testing.T) {
	book := scripture.NewBook(2)
	sec := scripture.NewSection(false, 0)
	sec.Heading.Add(scripture.NewParagraph(scripture.StyleSectionHead, tss.Plain("head", "qaa")))
	sec.Content.Add(scripture.NewParagraph(scripture.StyleParagraph, tss.Plain("one", "qaa")))
	minor := scripture.NewSection(false, 0)
	minor.Heading.Add(scripture.NewParagraph(scripture.StyleSectionHeadMinor, tss.Plain("minor", "qaa")))
	minor.Content.Add(scripture.NewParagraph(scripture.StyleParagraph, tss.Plain("two", "qaa")))
	book.Sections = append(book.Sections, sec, minor)

	w := newWalker(book, true)
	if w.has(scripture.StyleSectionHeadMinor) {
		t.Error("has(minor) before the first paragraph")
	}
	if _, err := w.next(scripture.StyleSectionHead); err != nil {
		t.Fatal(err)
	}
	if _, err := w.next(scripture.StyleParagraph); err != nil {
		t.Fatal(err)
	}
	if !w.has(scripture.StyleSectionHeadMinor) {
		t.Error("has(minor) = false with a minor head next")
	}
	if !w.has(scripture.StyleParagraph) {
		t.Error("has(paragraph) = false past a skippable minor head")
	}
	pos, err := w.next(scripture.StyleSectionHeadMinor)
	if err != nil || pos.Para.Contents.Text() != "minor" {
		t.Fatalf("next(minor) = %q, %v", pos.Para.Contents.Text(), err)
	}
}
