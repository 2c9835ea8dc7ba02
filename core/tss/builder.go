package tss

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Builder accumulates runs. A Builder is owned by exactly one writer and is
// converted to an immutable String with String().
type Builder struct {
	runs   []Run
	length int
}

// NewBuilder returns a builder seeded with the runs of s.
func NewBuilder(s String) *Builder {
	b := &Builder{}
	for _, r := range s.runs {
		b.AppendRun(r.Text, r.Props)
	}
	return b
}

// AppendRun appends text as a new run, even when the previous run has the
// same properties. Empty text is ignored.
func (b *Builder) AppendRun(text string, props Props) {
	if text == "" {
		return
	}
	b.runs = append(b.runs, Run{Text: text, Props: props})
	b.length += runeCount(text)
}

// Append appends text, extending the last run when its properties are equal
// and neither is an object run.
func (b *Builder) Append(text string, props Props) {
	if text == "" {
		return
	}
	if n := len(b.runs); n > 0 && b.runs[n-1].Props == props && !props.IsObject() {
		b.runs[n-1].Text += text
		b.length += runeCount(text)
		return
	}
	b.AppendRun(text, props)
}

// AppendORC appends an object run for obj in writing system ws.
func (b *Builder) AppendORC(kind ObjKind, id uuid.UUID, ws string) {
	b.AppendRun(ORCString, Props{WS: ws, Obj: ObjData{Kind: kind, GUID: id}})
}

// RunCount returns the number of runs so far.
func (b *Builder) RunCount() int { return len(b.runs) }

// Length returns the number of characters so far.
func (b *Builder) Length() int { return b.length }

// Run returns run i.
func (b *Builder) Run(i int) Run { return b.runs[i] }

// PropertiesOf returns the properties of run i.
func (b *Builder) PropertiesOf(i int) Props { return b.runs[i].Props }

// LastRun returns the final run and true, or false when the builder is empty.
func (b *Builder) LastRun() (Run, bool) {
	if len(b.runs) == 0 {
		return Run{}, false
	}
	return b.runs[len(b.runs)-1], true
}

// Text returns the text accumulated so far.
func (b *Builder) Text() string {
	var sb strings.Builder
	for _, r := range b.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// TrimTrailingSpace removes trailing white space from the final text runs,
// dropping runs that become empty. Object runs are never trimmed.
func (b *Builder) TrimTrailingSpace() {
	for len(b.runs) > 0 {
		last := &b.runs[len(b.runs)-1]
		if last.Props.IsObject() {
			return
		}
		trimmed := strings.TrimRightFunc(last.Text, unicode.IsSpace)
		b.length -= runeCount(last.Text) - runeCount(trimmed)
		if trimmed != "" {
			last.Text = trimmed
			return
		}
		b.runs = b.runs[:len(b.runs)-1]
	}
}

// String returns an immutable snapshot of the runs.
func (b *Builder) String() String {
	out := make([]Run, len(b.runs))
	copy(out, b.runs)
	return String{runs: out}
}

// Clear removes all runs.
func (b *Builder) Clear() {
	b.runs = nil
	b.length = 0
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
