package styles

import (
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

func newList(t *testing.T) *ProxyList {
	t.Helper()
	return NewProxyList(DefaultStylesheet(), DefaultMappings(), "qaa", "en", zaptest.NewLogger(t))
}

func TestResolve_StructuralMarkers(t *testing.T) {
	l := newList(t)
	tests := []struct {
		marker    string
		style     string
		typ       StyleType
		domain    Domain
		ws        string
		paragraph bool
	}{
		{`\mt`, "Title Main", Paragraph, DomainDefault, "qaa", true},
		{`\mt2`, "Title Secondary", Character, DomainDefault, "qaa", false},
		{`\s`, "Section Head", Paragraph, DomainDefault, "qaa", true},
		{`\p`, "Paragraph", Paragraph, DomainDefault, "qaa", true},
		{`\q2`, "Line2", Paragraph, DomainDefault, "qaa", true},
		{`\btmt`, "Title Main", Paragraph, DomainBackTrans, "en", true},
		{`\bts2`, "Section Head Minor", Paragraph, DomainBackTrans, "en", true},
		{`\btvt`, DefaultParaChars, Character, DomainBackTrans, "en", false},
		{`\kw`, KeyWord, Character, DomainDefault, "qaa", false},
	}
	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			p := l.Resolve(tt.marker)
			if p.StyleName != tt.style || p.Type != tt.typ || p.Domain != tt.domain || p.WS != tt.ws {
				t.Errorf("Resolve(%s) = {%q %v %v %q}, want {%q %v %v %q}",
					tt.marker, p.StyleName, p.Type, p.Domain, p.WS, tt.style, tt.typ, tt.domain, tt.ws)
			}
			if p.IsParagraph() != tt.paragraph {
				t.Errorf("IsParagraph() = %v, want %v", p.IsParagraph(), tt.paragraph)
			}
		})
	}
}

func TestResolve_Functions(t *testing.T) {
	l := newList(t)
	if l.Resolve(`\c`).Function != FunctionChapter {
		t.Error(`\c should be a chapter marker`)
	}
	if l.Resolve(`\v`).Function != FunctionVerse || l.Resolve(`\btv`).Function != FunctionVerse {
		t.Error(`\v and \btv should be verse markers`)
	}
	for _, m := range []string{`\f`, `|f{`, `\btf`} {
		if !l.Resolve(m).IsFootnoteStart() {
			t.Errorf("%s should start a footnote", m)
		}
	}
	for _, m := range []string{`\ft`, `|ft`, `\fk`, `\btft`} {
		if !l.Resolve(m).ContinuesFootnote() {
			t.Errorf("%s should continue a footnote", m)
		}
	}
	for _, m := range []string{`\v`, `\p`, `\kw`, `\btvt`} {
		if l.Resolve(m).ContinuesFootnote() {
			t.Errorf("%s should not continue a footnote", m)
		}
	}
	if l.Resolve(`\btvt`).CharStyle() != "" || l.Resolve(`\kw`).CharStyle() != KeyWord {
		t.Error("CharStyle mismatch")
	}
}

func TestResolve_WritingSystemSuffix(t *testing.T) {
	l := newList(t)
	de := l.Resolve(`\btvt_de`)
	es := l.Resolve(`\btvt_es`)
	plain := l.Resolve(`\btvt`)

	if de.WS != "de" || es.WS != "es" || plain.WS != "en" {
		t.Errorf("ws = %q %q %q, want de es en", de.WS, es.WS, plain.WS)
	}
	if de.Domain != DomainBackTrans || de.Unknown {
		t.Errorf("suffixed marker lost its mapping: %+v", de)
	}
	if p := l.Resolve(`\btvt_!!`); !p.Unknown {
		t.Error("invalid suffix should resolve as an unknown marker")
	}
}

func TestResolve_UnknownMarkerMaterializes(t *testing.T) {
	l := newList(t)
	before := l.Stylesheet().Len()

	p := l.Resolve(`\zz`)
	if !p.Unknown || p.StyleName != "zz" || !p.IsParagraph() {
		t.Fatalf("unknown proxy = %+v", p)
	}
	if l.Stylesheet().Len() != before {
		t.Fatal("resolving must not create styles")
	}
	p.Formatting()
	if l.Stylesheet().Len() != before+1 {
		t.Errorf("Formatting() did not create the style")
	}
	p.Formatting()
	if l.Stylesheet().Len() != before+1 {
		t.Errorf("Formatting() created the style twice")
	}
	if l.Resolve(`\zz`) != p {
		t.Error("proxies should be cached per session")
	}
}

func TestResolve_NormalizationInsensitive(t *testing.T) {
	composed := "Título"
	decomposed := norm.NFD.String(composed)
	if composed == decomposed {
		t.Fatal("test strings should differ before normalization")
	}

	sheet := DefaultStylesheet()
	sheet.Put(&Style{Name: composed, Type: Paragraph, Context: ContextTitle, Props: FormatProps{Bold: true}})
	l := NewProxyList(sheet, []Mapping{{Marker: `\tít`, Style: decomposed}}, "qaa", "en", nil)

	p := l.Resolve(norm.NFD.String(`\tít`))
	if p.Unknown || p.Context != ContextTitle {
		t.Fatalf("decomposed lookup = %+v", p)
	}
	if !p.Formatting().Bold {
		t.Error("Formatting should find the composed style")
	}
	if _, ok := sheet.Get(decomposed); !ok {
		t.Error("Get should be normalization insensitive")
	}
}

func TestIsEndMarker(t *testing.T) {
	l := newList(t)
	for _, m := range []string{`\f*`, `\kw*`, `}`, `\btf*`} {
		if !l.IsEndMarker(m) {
			t.Errorf("IsEndMarker(%q) = false", m)
		}
	}
	for _, m := range []string{`\f`, `|f{`, `\v`} {
		if l.IsEndMarker(m) {
			t.Errorf("IsEndMarker(%q) = true", m)
		}
	}
}

func TestInlineMappings(t *testing.T) {
	got := newList(t).InlineMappings()
	if len(got) != 2 {
		t.Fatalf("InlineMappings() = %v, want 2", got)
	}
	if got[0].Marker != "|ft" || got[1].Marker != "|f{" || got[1].EndMarker != "}" {
		t.Errorf("InlineMappings() = %+v", got)
	}
}

func TestMapping_YAML(t *testing.T) {
	in := `
- marker: \btvt_de
  domain: backtrans
  target: default_para_chars
- marker: \nt
  style: Remark
  domain: note
  note_type: consultant
  category: "Discourse:Cohesion"
`
	var ms []Mapping
	if err := yaml.Unmarshal([]byte(in), &ms); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ms[0].Domain != DomainBackTrans || ms[0].Target != TargetDefaultParaChars {
		t.Errorf("first mapping = %+v", ms[0])
	}
	if ms[1].Domain != DomainNote || ms[1].Category != "Discourse:Cohesion" {
		t.Errorf("second mapping = %+v", ms[1])
	}

	out, err := yaml.Marshal(ms[1])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Mapping
	if err := yaml.Unmarshal(out, &back); err != nil || back != ms[1] {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}

func TestValidateWS(t *testing.T) {
	if ws, err := ValidateWS("en-us"); err != nil || ws != "en-US" {
		t.Errorf("ValidateWS(en-us) = %q, %v", ws, err)
	}
	if _, err := ValidateWS("not a tag"); err == nil {
		t.Error("ValidateWS should reject garbage")
	}
}
