package styles

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Proxy describes how one marker is imported. Its style is only written
// into the stylesheet when Formatting is called.
type Proxy struct {
	Marker     string
	EndMarker  string
	StyleName  string
	Type       StyleType
	Context    Context
	Structure  Structure
	Function   Function
	Domain     Domain
	Target     Target
	WS         string
	NoteType   string
	Category   string
	InFootnote bool
	Unknown    bool

	list *ProxyList
}

// IsParagraph reports whether the marker starts a paragraph.
func (p *Proxy) IsParagraph() bool {
	return p.Target == TargetStyle && p.Type == Paragraph && p.Function != FunctionFootnote
}

// IsFootnoteStart reports whether the marker opens a footnote.
func (p *Proxy) IsFootnoteStart() bool {
	return p.Target == TargetStyle && p.Function == FunctionFootnote
}

// ContinuesFootnote reports whether text for this marker belongs inside an
// open footnote.
func (p *Proxy) ContinuesFootnote() bool {
	if p.IsFootnoteStart() {
		return false
	}
	if p.Domain == DomainFootnote || p.InFootnote {
		return true
	}
	return p.Type == Character && p.Context == ContextNote
}

// IsBackTrans reports whether the marker feeds a back translation stream.
func (p *Proxy) IsBackTrans() bool { return p.Domain == DomainBackTrans }

// CharStyle returns the character style to apply to the marker's text, or
// "" for default paragraph characters.
func (p *Proxy) CharStyle() string {
	if p.Target != TargetStyle || p.Type != Character || p.StyleName == DefaultParaChars {
		return ""
	}
	return p.StyleName
}

// Formatting returns the formatting properties of the proxy's style,
// creating the style in the stylesheet if it does not exist yet.
func (p *Proxy) Formatting() FormatProps {
	if p.StyleName == "" || p.list == nil {
		return FormatProps{}
	}
	st, created := p.list.sheet.Ensure(Style{
		Name:      p.StyleName,
		Type:      p.Type,
		Context:   p.Context,
		Structure: p.Structure,
		Function:  p.Function,
	})
	if created {
		p.list.log.Debug("style created", zap.String("style", p.StyleName), zap.String("marker", p.Marker))
	}
	return st.Props
}

// ProxyList resolves markers for one import session.
type ProxyList struct {
	sheet      *Stylesheet
	mappings   map[string]Mapping
	inline     []Mapping
	endMarkers map[string]bool
	proxies    map[string]*Proxy
	vernWS     string
	analysisWS string
	log        *zap.Logger
}

// NewProxyList builds a proxy list over sheet. Later mappings override
// earlier ones with the same marker.
func NewProxyList(sheet *Stylesheet, mappings []Mapping, vernWS, analysisWS string, log *zap.Logger) *ProxyList {
	if log == nil {
		log = zap.NewNop()
	}
	if sheet == nil {
		sheet = DefaultStylesheet()
	}
	l := &ProxyList{
		sheet:      sheet,
		mappings:   map[string]Mapping{},
		endMarkers: map[string]bool{},
		proxies:    map[string]*Proxy{},
		vernWS:     vernWS,
		analysisWS: analysisWS,
		log:        log,
	}
	for _, m := range mappings {
		l.mappings[Key(m.Marker)] = m
	}
	for _, m := range l.mappings {
		if m.EndMarker != "" {
			l.endMarkers[Key(m.EndMarker)] = true
		}
		if m.IsInline() {
			l.inline = append(l.inline, m)
		}
	}
	sort.Slice(l.inline, func(i, j int) bool {
		if len(l.inline[i].Marker) != len(l.inline[j].Marker) {
			return len(l.inline[i].Marker) > len(l.inline[j].Marker)
		}
		return l.inline[i].Marker < l.inline[j].Marker
	})
	return l
}

// Stylesheet returns the stylesheet proxies materialize into.
func (l *ProxyList) Stylesheet() *Stylesheet { return l.sheet }

// Resolve returns the proxy for a marker. Markers that have no mapping
// resolve to a paragraph style named after the marker. A back translation
// marker may carry a writing system suffix ("\btvt_de").
func (l *ProxyList) Resolve(marker string) *Proxy {
	k := Key(marker)
	if p, ok := l.proxies[k]; ok {
		return p
	}

	m, ok := l.mappings[k]
	ws := ""
	if !ok {
		if base, suffix, found := strings.Cut(k, "_"); found {
			if bm, bok := l.mappings[base]; bok {
				if tag, err := language.Parse(suffix); err == nil {
					m, ok, ws = bm, true, tag.String()
				}
			}
		}
	}

	var p *Proxy
	if ok {
		p = l.fromMapping(marker, m)
		if ws != "" {
			p.WS = ws
		}
	} else {
		name := strings.TrimLeft(marker, `\|`)
		p = &Proxy{
			Marker:    marker,
			StyleName: name,
			Type:      Paragraph,
			Context:   ContextGeneral,
			Structure: StructureBody,
			WS:        l.vernWS,
			Unknown:   true,
			list:      l,
		}
		if st, found := l.sheet.Get(name); found {
			p.Type, p.Context, p.Structure, p.Function = st.Type, st.Context, st.Structure, st.Function
			p.Unknown = false
		}
		if p.Unknown {
			l.log.Debug("unmapped marker", zap.String("marker", marker))
		}
	}
	l.proxies[k] = p
	return p
}

// ResolveStyle returns a proxy for an explicit style name.
func (l *ProxyList) ResolveStyle(name string) *Proxy {
	p := &Proxy{StyleName: name, Type: Paragraph, Structure: StructureBody, WS: l.vernWS, list: l}
	if st, ok := l.sheet.Get(name); ok {
		p.Type, p.Context, p.Structure, p.Function = st.Type, st.Context, st.Structure, st.Function
	} else {
		p.Unknown = true
	}
	return p
}

func (l *ProxyList) fromMapping(marker string, m Mapping) *Proxy {
	p := &Proxy{
		Marker:     marker,
		EndMarker:  m.EndMarker,
		StyleName:  m.Style,
		Domain:     m.Domain,
		Target:     m.Target,
		WS:         m.WS,
		NoteType:   m.NoteType,
		Category:   m.Category,
		InFootnote: m.InFootnote,
		Structure:  StructureBody,
		list:       l,
	}
	if m.Target == TargetDefaultParaChars {
		p.StyleName = DefaultParaChars
		p.Type = Character
	}
	if st, ok := l.sheet.Get(p.StyleName); ok {
		p.Type, p.Context, p.Structure, p.Function = st.Type, st.Context, st.Structure, st.Function
	} else if p.StyleName != "" {
		p.Unknown = true
	}
	if p.WS == "" {
		if m.Domain == DomainBackTrans {
			p.WS = l.analysisWS
		} else {
			p.WS = l.vernWS
		}
	}
	return p
}

// IsEndMarker reports whether marker closes a character span or footnote.
func (l *ProxyList) IsEndMarker(marker string) bool {
	if l.endMarkers[Key(marker)] {
		return true
	}
	return strings.HasPrefix(marker, `\`) && strings.HasSuffix(marker, "*")
}

// InlineMappings returns the mappings for in-text delimiters such as "|f{",
// longest marker first.
func (l *ProxyList) InlineMappings() []Mapping {
	out := make([]Mapping, len(l.inline))
	copy(out, l.inline)
	return out
}

// ValidateWS canonicalizes a writing system id.
func ValidateWS(ws string) (string, error) {
	tag, err := language.Parse(ws)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}
