package segment

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
)

var (
	bookExpr       = xpath.MustCompile("//canon/book")
	annotationExpr = xpath.MustCompile("//annotation")
	trExpr         = xpath.MustCompile("trGroup/tr")
	btExpr         = xpath.MustCompile("trGroup/bt")
)

// paragraph type attribute to marker
var oxesParaMarkers = map[string]string{
	"":               `\p`,
	"paragraph":      `\p`,
	"line1":          `\q`,
	"line2":          `\q2`,
	"introParagraph": `\ip`,
}

// OXESOptions configure an OXESSource.
type OXESOptions struct {
	FileName   string
	Domain     Domain
	AnalysisWS string
	Log        *zap.Logger
}

// OXESSource reads an OXES-style XML document and emits the same marker
// vocabulary as the standard-format source.
type OXESSource struct {
	opts     OXESOptions
	segments []Segment
	pos      int
	cur      Segment
	log      *zap.Logger

	book, chapter, verse, lastVerse int
}

// NewOXESSource parses the whole document from r.
func NewOXESSource(r io.Reader, opts OXESOptions) (*OXESSource, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "OXES", Path: opts.FileName, Message: "invalid XML", Err: err}
	}
	s := &OXESSource{opts: opts, log: opts.Log}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	for _, book := range xmlquery.QuerySelectorAll(root, bookExpr) {
		if err := s.walkBook(book); err != nil {
			return nil, err
		}
	}
	for _, a := range xmlquery.QuerySelectorAll(root, annotationExpr) {
		s.walkAnnotation(a)
	}
	return s, nil
}

// Next returns the next segment, or io.EOF.
func (s *OXESSource) Next() (Segment, error) {
	if s.pos >= len(s.segments) {
		return Segment{}, io.EOF
	}
	s.cur = s.segments[s.pos]
	s.pos++
	return s.cur, nil
}

// FileName returns the document name.
func (s *OXESSource) FileName() string { return s.opts.FileName }

// LineNumber returns the element ordinal of the current segment; XML
// documents have no meaningful line structure once parsed.
func (s *OXESSource) LineNumber() int { return s.cur.Line }

// FirstRef returns the first reference of the current segment.
func (s *OXESSource) FirstRef() bcv.Ref { return s.cur.FirstRef }

// LastRef returns the last reference of the current segment.
func (s *OXESSource) LastRef() bcv.Ref { return s.cur.LastRef }

// WritingSystem returns the writing system of the current segment or def.
func (s *OXESSource) WritingSystem(def string) string {
	if s.cur.WS != "" {
		return s.cur.WS
	}
	return def
}

func (s *OXESSource) emit(marker, text string) {
	first := bcv.New(s.book, s.chapter, s.verse)
	last := bcv.New(s.book, s.chapter, s.lastVerse)
	s.segments = append(s.segments, Segment{
		Marker:   marker,
		Text:     text,
		Domain:   s.opts.Domain,
		FirstRef: first,
		LastRef:  last,
		Line:     len(s.segments) + 1,
	})
}

func (s *OXESSource) walkBook(book *xmlquery.Node) error {
	code := attr(book, "ID")
	s.book = bcv.BookNumber(code)
	if s.book == 0 {
		return errors.NewParse("OXES", s.opts.FileName, fmt.Sprintf("unknown book %q", code))
	}
	s.chapter, s.verse, s.lastVerse = 0, 0, 0
	s.emit(`\id`, code)

	for n := book.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "titleGroup":
			for t := n.FirstChild; t != nil; t = t.NextSibling {
				if t.Type != xmlquery.ElementNode || t.Data != "title" {
					continue
				}
				if attr(t, "type") == "secondary" {
					s.emitGroup(t, `\mt2`, `\btmt2`)
				} else {
					s.emitGroup(t, `\mt`, `\btmt`)
				}
			}
		case "introduction":
			for sec := n.FirstChild; sec != nil; sec = sec.NextSibling {
				if sec.Type == xmlquery.ElementNode && sec.Data == "section" {
					s.walkSection(sec, true)
				}
			}
		case "section":
			s.walkSection(n, false)
		default:
			s.log.Debug("skipping OXES element", zap.String("element", n.Data))
		}
	}
	return nil
}

func (s *OXESSource) walkSection(sec *xmlquery.Node, intro bool) {
	for n := sec.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "sectionHead":
			switch {
			case intro:
				s.emitGroup(n, `\is`, `\btis`)
			case attr(n, "type") == "minor":
				s.emitGroup(n, `\s2`, `\bts2`)
			default:
				s.emitGroup(n, `\s`, `\bts`)
			}
		case "p":
			s.walkParagraph(n, intro)
		case "figure":
			s.walkFigure(n)
		}
	}
}

func (s *OXESSource) walkParagraph(p *xmlquery.Node, intro bool) {
	marker, ok := oxesParaMarkers[attr(p, "type")]
	if !ok {
		marker = `\` + attr(p, "type")
	}
	if intro && marker == `\p` {
		marker = `\ip`
	}
	s.emit(marker, "")

	for n := p.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(n.Data) != "" {
				s.emit(`\vt`, n.Data)
			}
			continue
		case xmlquery.ElementNode:
		default:
			continue
		}
		switch n.Data {
		case "chapterStart":
			if c, _, err := bcv.ParseVerseNumber(attr(n, "n")); err == nil {
				s.chapter, s.verse, s.lastVerse = c, 0, 0
				s.emit(`\c`, "")
			}
		case "verseStart":
			if first, last, err := bcv.ParseVerseNumber(attr(n, "n")); err == nil {
				s.verse, s.lastVerse = first, last
				s.emit(`\v`, "")
			}
		case "trGroup":
			s.walkTrGroup(n)
		case "figure":
			s.walkFigure(n)
		}
	}
}

// walkTrGroup emits vernacular text with inline notes and key words,
// followed by one back translation segment per bt element.
func (s *OXESSource) walkTrGroup(g *xmlquery.Node) {
	for _, tr := range childElements(g, "tr") {
		s.walkInline(tr, `\vt`, `\f`, `\ft`, `\f*`)
	}
	for _, bt := range childElements(g, "bt") {
		suffix := s.wsSuffix(attr(bt, "lang"))
		s.walkInline(bt, `\btvt`+suffix, `\btf`+suffix, `\btft`+suffix, `\btf*`)
	}
}

func (s *OXESSource) walkInline(n *xmlquery.Node, textMarker, noteMarker, noteText, noteEnd string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode:
			if c.Data != "" {
				s.emit(textMarker, c.Data)
			}
		case c.Type == xmlquery.ElementNode && c.Data == "note":
			s.emit(noteMarker, "")
			s.emit(noteText, c.InnerText())
			s.emit(noteEnd, "")
		case c.Type == xmlquery.ElementNode && c.Data == "keyWord":
			s.emit(`\kw`, c.InnerText())
			s.emit(`\kw*`, "")
		}
	}
}

// emitGroup emits a title or heading: the vernacular text under marker and
// each back translation under btMarker.
func (s *OXESSource) emitGroup(n *xmlquery.Node, marker, btMarker string) {
	trs := xmlquery.QuerySelectorAll(n, trExpr)
	if len(trs) == 0 {
		s.emit(marker, n.InnerText())
		return
	}
	for _, tr := range trs {
		s.emit(marker, tr.InnerText())
	}
	for _, bt := range xmlquery.QuerySelectorAll(n, btExpr) {
		s.emit(btMarker+s.wsSuffix(attr(bt, "lang")), bt.InnerText())
	}
}

func (s *OXESSource) walkFigure(f *xmlquery.Node) {
	s.emit(`\cat`, attr(f, "src"))
	for _, c := range []struct{ child, marker, btMarker string }{
		{"caption", `\cap`, `\btcap`},
		{"copyright", `\figcopy`, `\btfigcopy`},
	} {
		if n := xmlquery.FindOne(f, c.child); n != nil {
			s.emitGroup(n, c.marker, c.btMarker)
		}
	}
	if n := xmlquery.FindOne(f, "description"); n != nil {
		s.emit(`\figdesc`, n.InnerText())
	}
	for _, a := range []struct{ name, marker string }{
		{"layoutPos", `\figlaypos`},
		{"refRange", `\figrefrng`},
		{"scale", `\figscale`},
	} {
		if v := attr(f, a.name); v != "" {
			s.emit(a.marker, v)
		}
	}
}

func (s *OXESSource) walkAnnotation(a *xmlquery.Node) {
	begin := parseOXESRef(attr(a, "oxesRef"))
	if begin == 0 {
		s.log.Warn("annotation without a valid reference", zap.String("ref", attr(a, "oxesRef")))
		return
	}
	end := parseOXESRef(attr(a, "oxesRefEnd"))
	if end == 0 {
		end = begin
	}
	var text []string
	for _, para := range xmlquery.Find(a, "notationDiscussion/para") {
		text = append(text, strings.TrimSpace(para.InnerText()))
	}
	seg := Segment{
		Marker:   `\rem`,
		Text:     strings.Join(text, "\n"),
		Domain:   Annotations,
		FirstRef: begin,
		LastRef:  end,
		NoteType: attr(a, "type"),
		Line:     len(s.segments) + 1,
	}
	if q := xmlquery.FindOne(a, "notationQuote"); q != nil {
		seg.Quote = strings.TrimSpace(q.InnerText())
	}
	if c := xmlquery.FindOne(a, "notationCategories/category"); c != nil {
		seg.Category = strings.TrimSpace(c.InnerText())
	}
	s.segments = append(s.segments, seg)
}

func (s *OXESSource) wsSuffix(lang string) string {
	if lang == "" || lang == s.opts.AnalysisWS {
		return ""
	}
	return "_" + lang
}

// parseOXESRef converts "EXO.1.2" to a reference.
func parseOXESRef(ref string) bcv.Ref {
	if ref == "" {
		return 0
	}
	rng, err := bcv.Parse(strings.Replace(ref, ".", " ", 1))
	if err != nil {
		return 0
	}
	return rng.Min
}

// attr returns an attribute by local name, ignoring any namespace prefix.
func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func childElements(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			out = append(out, c)
		}
	}
	return out
}
