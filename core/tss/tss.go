// Package tss implements formatted text as an immutable sequence of runs
// (String) and a mutable Builder used while importing.
//
// Each run carries its text and the properties that apply to the whole run:
// the writing system, an optional character style, and optional object data
// for runs that stand in for an embedded object (footnote or picture). Object
// runs contain exactly one ORC character.
package tss

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ORC is the object replacement character used as the text of object runs.
const ORC = '￼'

// ORCString is ORC as a string.
const ORCString = string(ORC)

// ObjKind identifies what an object run refers to.
type ObjKind int

const (
	ObjNone ObjKind = iota
	// ObjOwnedFootnote anchors a footnote in the vernacular text that owns it.
	ObjOwnedFootnote
	// ObjFootnoteRef refers to a footnote owned elsewhere; used in back translations.
	ObjFootnoteRef
	// ObjPicture anchors a picture.
	ObjPicture
)

func (k ObjKind) String() string {
	switch k {
	case ObjOwnedFootnote:
		return "owned-footnote"
	case ObjFootnoteRef:
		return "footnote-ref"
	case ObjPicture:
		return "picture"
	}
	return "none"
}

// ObjData links an object run to the object it stands for.
type ObjData struct {
	Kind ObjKind   `json:"kind,omitempty"`
	GUID uuid.UUID `json:"guid,omitempty"`
}

// IsZero reports whether no object is attached.
func (o ObjData) IsZero() bool { return o.Kind == ObjNone }

// Props are the properties of a run. Props is comparable.
type Props struct {
	WS        string  `json:"ws"`
	CharStyle string  `json:"style,omitempty"`
	Obj       ObjData `json:"obj,omitempty"`
}

// IsObject reports whether the run is an object (ORC) run.
func (p Props) IsObject() bool { return !p.Obj.IsZero() }

// Run is a maximal span of text with uniform properties.
type Run struct {
	Text  string `json:"text"`
	Props Props  `json:"props"`
}

// Len returns the run length in characters.
func (r Run) Len() int { return utf8.RuneCountInString(r.Text) }

// String is an immutable run sequence.
type String struct {
	runs []Run
}

// Empty returns an empty String.
func Empty() String { return String{} }

// FromRuns builds a String from runs. The slice is copied.
func FromRuns(runs ...Run) String {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		out = append(out, r)
	}
	return String{runs: out}
}

// Plain builds a single-run String in the given writing system.
func Plain(text, ws string) String {
	return FromRuns(Run{Text: text, Props: Props{WS: ws}})
}

// RunCount returns the number of runs.
func (s String) RunCount() int { return len(s.runs) }

// Run returns run i.
func (s String) Run(i int) Run { return s.runs[i] }

// PropertiesOf returns the properties of run i.
func (s String) PropertiesOf(i int) Props { return s.runs[i].Props }

// RunText returns the text of run i.
func (s String) RunText(i int) string { return s.runs[i].Text }

// Runs returns a copy of the runs.
func (s String) Runs() []Run {
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}

// Text returns the concatenated text of all runs.
func (s String) Text() string {
	var sb strings.Builder
	for _, r := range s.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Len returns the length in characters.
func (s String) Len() int {
	n := 0
	for _, r := range s.runs {
		n += r.Len()
	}
	return n
}

// IsEmpty reports whether the string has no text.
func (s String) IsEmpty() bool { return len(s.runs) == 0 }

// ObjectRuns returns the indices of runs of the given kind, in order.
func (s String) ObjectRuns(kind ObjKind) []int {
	var idx []int
	for i, r := range s.runs {
		if r.Props.Obj.Kind == kind {
			idx = append(idx, i)
		}
	}
	return idx
}

// Equal reports whether two strings have identical runs.
func (s String) Equal(o String) bool {
	if len(s.runs) != len(o.runs) {
		return false
	}
	for i := range s.runs {
		if s.runs[i] != o.runs[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the run list.
func (s String) MarshalJSON() ([]byte, error) {
	if s.runs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.runs)
}

// UnmarshalJSON decodes a run list.
func (s *String) UnmarshalJSON(data []byte) error {
	var runs []Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return err
	}
	*s = FromRuns(runs...)
	return nil
}
