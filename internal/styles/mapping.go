package styles

import "strings"

// Domain says which stream a mapped marker feeds.
type Domain int

const (
	// DomainDefault is vernacular text.
	DomainDefault Domain = iota
	// DomainBackTrans is back translation text.
	DomainBackTrans
	// DomainNote is annotation text.
	DomainNote
	// DomainFootnote is footnote text or a footnote delimiter.
	DomainFootnote
	// DomainExcluded markers and their text are dropped.
	DomainExcluded
)

var domainNames = [...]string{"default", "backtrans", "note", "footnote", "excluded"}

func (d Domain) String() string {
	if int(d) < len(domainNames) {
		return domainNames[d]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (d Domain) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Domain) UnmarshalText(b []byte) error {
	for i, n := range domainNames {
		if strings.EqualFold(n, string(b)) {
			*d = Domain(i)
			return nil
		}
	}
	*d = DomainDefault
	return nil
}

// Target is what a marker's text becomes.
type Target int

const (
	// TargetStyle applies Mapping.Style to the text.
	TargetStyle Target = iota
	// TargetDefaultParaChars appends the text without a character style.
	TargetDefaultParaChars
	TargetFigureFilename
	TargetFigureCaption
	TargetFigureCopyright
	TargetFigureDescription
	TargetFigureLayoutPos
	TargetFigureRefRange
	TargetFigureScale
	TargetTitleShort
	TargetChapterLabel
)

var targetNames = [...]string{
	"style", "default_para_chars", "figure_filename", "figure_caption", "figure_copyright",
	"figure_description", "figure_layout_pos", "figure_ref_range", "figure_scale",
	"title_short", "chapter_label",
}

func (t Target) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(b []byte) error {
	for i, n := range targetNames {
		if n == string(b) {
			*t = Target(i)
			return nil
		}
	}
	*t = TargetStyle
	return nil
}

// IsFigure reports whether the target is a picture field.
func (t Target) IsFigure() bool {
	return t >= TargetFigureFilename && t <= TargetFigureScale
}

// Mapping maps a marker to a style and a stream.
type Mapping struct {
	Marker    string `yaml:"marker" json:"marker"`
	EndMarker string `yaml:"end_marker,omitempty" json:"end_marker,omitempty"`
	Style     string `yaml:"style,omitempty" json:"style,omitempty"`
	Domain    Domain `yaml:"domain,omitempty" json:"domain,omitempty"`
	Target    Target `yaml:"target,omitempty" json:"target,omitempty"`
	WS        string `yaml:"ws,omitempty" json:"ws,omitempty"`
	NoteType  string `yaml:"note_type,omitempty" json:"note_type,omitempty"`
	Category  string `yaml:"category,omitempty" json:"category,omitempty"`

	// InFootnote marks back translation markers that continue a footnote.
	InFootnote bool `yaml:"in_footnote,omitempty" json:"in_footnote,omitempty"`
}

// IsInline reports whether the marker is an in-text delimiter such as
// "|f{" rather than a backslash marker.
func (m Mapping) IsInline() bool {
	return m.Marker != "" && !strings.HasPrefix(m.Marker, `\`)
}

// DefaultMappings returns the standard marker vocabulary.
func DefaultMappings() []Mapping {
	vern := func(marker, style string) Mapping { return Mapping{Marker: marker, Style: style} }
	bt := func(marker, style string) Mapping {
		return Mapping{Marker: marker, Style: style, Domain: DomainBackTrans}
	}
	fig := func(marker string, t Target, d Domain) Mapping { return Mapping{Marker: marker, Target: t, Domain: d} }

	return []Mapping{
		vern(`\mt`, "Title Main"),
		vern(`\mt1`, "Title Main"),
		vern(`\mt2`, "Title Secondary"),
		vern(`\is`, "Intro Section Head"),
		vern(`\ip`, "Intro Paragraph"),
		vern(`\s`, "Section Head"),
		vern(`\s1`, "Section Head"),
		vern(`\s2`, "Section Head Minor"),
		vern(`\p`, "Paragraph"),
		vern(`\q`, "Line1"),
		vern(`\q1`, "Line1"),
		vern(`\q2`, "Line2"),
		vern(`\c`, "Chapter Number"),
		vern(`\v`, "Verse Number"),
		{Marker: `\vt`, Target: TargetDefaultParaChars},
		{Marker: `\kw`, EndMarker: `\kw*`, Style: KeyWord},
		{Marker: `\em`, EndMarker: `\em*`, Style: "Emphasis"},
		{Marker: `\h`, Target: TargetTitleShort},
		{Marker: `\cl`, Target: TargetChapterLabel},

		{Marker: `\f`, EndMarker: `\f*`, Style: "Note General Paragraph", Domain: DomainFootnote},
		{Marker: `\ft`, Target: TargetDefaultParaChars, Domain: DomainFootnote},
		{Marker: `\fk`, Style: "Referenced Text", Domain: DomainFootnote},
		{Marker: `\fq`, Style: "Alternate Reading", Domain: DomainFootnote},
		{Marker: `|f{`, EndMarker: `}`, Style: "Note General Paragraph", Domain: DomainFootnote},
		{Marker: `|ft`, Target: TargetDefaultParaChars, Domain: DomainFootnote},

		fig(`\cat`, TargetFigureFilename, DomainDefault),
		fig(`\cap`, TargetFigureCaption, DomainDefault),
		fig(`\figcopy`, TargetFigureCopyright, DomainDefault),
		fig(`\figdesc`, TargetFigureDescription, DomainDefault),
		fig(`\figlaypos`, TargetFigureLayoutPos, DomainDefault),
		fig(`\figrefrng`, TargetFigureRefRange, DomainDefault),
		fig(`\figscale`, TargetFigureScale, DomainDefault),

		bt(`\btmt`, "Title Main"),
		bt(`\btmt2`, "Title Secondary"),
		bt(`\btis`, "Intro Section Head"),
		bt(`\btip`, "Intro Paragraph"),
		bt(`\bts`, "Section Head"),
		bt(`\bts2`, "Section Head Minor"),
		bt(`\btp`, "Paragraph"),
		bt(`\btq`, "Line1"),
		bt(`\btq2`, "Line2"),
		bt(`\btv`, "Verse Number"),
		{Marker: `\btvt`, Target: TargetDefaultParaChars, Domain: DomainBackTrans},
		{Marker: `\btf`, EndMarker: `\btf*`, Style: "Note General Paragraph", Domain: DomainBackTrans},
		{Marker: `\btft`, Target: TargetDefaultParaChars, Domain: DomainBackTrans, InFootnote: true},
		fig(`\btcap`, TargetFigureCaption, DomainBackTrans),
		fig(`\btfigcopy`, TargetFigureCopyright, DomainBackTrans),

		{Marker: `\rem`, Style: "Remark", Domain: DomainNote, NoteType: "translator"},
		{Marker: `\ntc`, Style: "Remark", Domain: DomainNote, NoteType: "consultant"},

		{Marker: `\ide`, Domain: DomainExcluded},
		{Marker: `\toc1`, Domain: DomainExcluded},
		{Marker: `\toc2`, Domain: DomainExcluded},
		{Marker: `\toc3`, Domain: DomainExcluded},
		{Marker: `\sts`, Domain: DomainExcluded},
	}
}
