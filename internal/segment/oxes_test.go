package segment

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
)

const sampleOXES = `<?xml version="1.0" encoding="UTF-8"?>
<oxes>
 <oxesText xml:lang="qaa">
  <canon>
   <book ID="EXO">
    <titleGroup>
     <title type="main"><trGroup><tr>Kmain Ktitle</tr><bt xml:lang="en">Main Title</bt></trGroup></title>
    </titleGroup>
    <section>
     <sectionHead><trGroup><tr>Head</tr><bt xml:lang="de">Kopf</bt></trGroup></sectionHead>
     <p type="paragraph"><chapterStart ID="EXO.1" n="1"/><verseStart ID="EXO.1.1" n="1"/><trGroup><tr>text<note>fn</note> more</tr><bt xml:lang="en">bt text<note>bt fn</note></bt></trGroup><verseStart ID="EXO.1.2" n="2-3"/><trGroup><tr><keyWord>word</keyWord></tr></trGroup></p>
     <figure src="pic.jpg" scale="50"><caption><trGroup><tr>cap</tr><bt xml:lang="en">bt cap</bt></trGroup></caption></figure>
    </section>
   </book>
  </canon>
  <annotation type="consultant" oxesRef="EXO.1.2">
   <notationQuote>word</notationQuote>
   <notationCategories><category>Discourse:Cohesion</category></notationCategories>
   <notationDiscussion><para>Check this.</para></notationDiscussion>
  </annotation>
 </oxesText>
</oxes>`

func TestOXESSource(t *testing.T) {
	src, err := NewOXESSource(strings.NewReader(sampleOXES), OXESOptions{FileName: "exo.xml", AnalysisWS: "en"})
	if err != nil {
		t.Fatalf("NewOXESSource: %v", err)
	}
	segs := readAll(t, src)

	var got []string
	for _, s := range segs {
		got = append(got, s.Marker+"="+s.Text)
	}
	want := []string{
		`\id=EXO`,
		`\mt=Kmain Ktitle`,
		`\btmt=Main Title`,
		`\s=Head`,
		`\bts_de=Kopf`,
		`\p=`,
		`\c=`,
		`\v=`,
		`\vt=text`,
		`\f=`,
		`\ft=fn`,
		`\f*=`,
		`\vt= more`,
		`\btvt=bt text`,
		`\btf=`,
		`\btft=bt fn`,
		`\btf*=`,
		`\v=`,
		`\kw=word`,
		`\kw*=`,
		`\cat=pic.jpg`,
		`\cap=cap`,
		`\btcap=bt cap`,
		`\figscale=50`,
		`\rem=Check this.`,
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("segments:\n got  %q\n want %q", got, want)
	}

	bridge := segs[17]
	if bridge.FirstRef != bcv.New(2, 1, 2) || bridge.LastRef != bcv.New(2, 1, 3) {
		t.Errorf("bridge refs = %v..%v", bridge.FirstRef, bridge.LastRef)
	}
	note := segs[len(segs)-1]
	if note.Domain != Annotations || note.NoteType != "consultant" || note.Category != "Discourse:Cohesion" || note.Quote != "word" {
		t.Errorf("annotation = %+v", note)
	}
	if note.FirstRef != bcv.New(2, 1, 2) {
		t.Errorf("annotation ref = %v", note.FirstRef)
	}
	if src.FileName() != "exo.xml" || src.LineNumber() != len(segs) {
		t.Errorf("FileName/LineNumber = %q/%d", src.FileName(), src.LineNumber())
	}
}

func TestOXESSource_Errors(t *testing.T) {
	if _, err := NewOXESSource(strings.NewReader("<oxes><canon></oxes>"), OXESOptions{}); err == nil {
		t.Error("malformed XML should fail")
	}
	bad := `<oxes><oxesText><canon><book ID="XYZ"/></canon></oxesText></oxes>`
	if _, err := NewOXESSource(strings.NewReader(bad), OXESOptions{}); err == nil {
		t.Error("unknown book should fail")
	}
}
