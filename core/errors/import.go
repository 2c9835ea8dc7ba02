package errors

import (
	"fmt"
	"strings"
)

// ImportErrorKind classifies a fatal import condition.
type ImportErrorKind int

const (
	KindInternal ImportErrorKind = iota
	KindCancelled
	KindBackTransStyleMismatch
	KindBackTransUnbound
	KindBackTransMissingVernBook
	KindBackTransUnmatchedFootnote
	KindDataBeforeBook
	KindInvalidReference
)

var kindNames = map[ImportErrorKind]string{
	KindInternal:                   "internal",
	KindCancelled:                  "cancelled",
	KindBackTransStyleMismatch:     "bt-style-mismatch",
	KindBackTransUnbound:           "bt-unbound",
	KindBackTransMissingVernBook:   "bt-missing-vernacular-book",
	KindBackTransUnmatchedFootnote: "bt-unmatched-footnote",
	KindDataBeforeBook:             "data-before-book",
	KindInvalidReference:           "invalid-reference",
}

func (k ImportErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k ImportErrorKind) sentinel() error {
	switch k {
	case KindCancelled:
		return ErrCancelled
	case KindBackTransStyleMismatch:
		return ErrBackTransStyleMismatch
	case KindBackTransUnbound:
		return ErrBackTransUnbound
	case KindBackTransMissingVernBook:
		return ErrBackTransMissingVernBook
	case KindBackTransUnmatchedFootnote:
		return ErrBackTransUnmatchedFootnote
	case KindDataBeforeBook:
		return ErrDataBeforeBook
	case KindInvalidReference:
		return ErrInvalidReference
	}
	return ErrInternal
}

// ImportError is the single error type raised by the import engine for
// conditions that abort the import. It carries the offending marker and text
// and the reference being processed; message wording is left to Describe.
type ImportError struct {
	Kind        ImportErrorKind
	Marker      string       // offending marker, e.g. `\btq`
	Text        string       // text of the offending segment
	Ref         fmt.Stringer // reference being processed, may be nil
	Book        int          // canonical number of the book being imported, 0 if none
	Interleaved bool         // true when the back translation was interleaved with vernacular
	File        string       // source file, if known
	Line        int          // source line, if known
	Err         error        // underlying error, if any
}

func (e *ImportError) Error() string {
	var sb strings.Builder
	sb.WriteString("import ")
	sb.WriteString(e.Kind.String())
	if e.Ref != nil {
		if s := e.Ref.String(); s != "" {
			sb.WriteString(" at ")
			sb.WriteString(s)
		}
	}
	if e.Marker != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Marker)
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns both the kind sentinel and the underlying cause so either
// can be matched with errors.Is.
func (e *ImportError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// Describe renders a human-readable explanation for display to the user.
func (e *ImportError) Describe() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.sentinel().Error())
	if e.Kind == KindBackTransStyleMismatch || e.Kind == KindBackTransUnmatchedFootnote {
		if e.Interleaved {
			sb.WriteString(" (interleaved back translation)")
		} else {
			sb.WriteString(" (separate back translation file)")
		}
	}
	sb.WriteString(".")
	if e.Marker != "" || e.Text != "" {
		fmt.Fprintf(&sb, "\nMarker: %s", e.Marker)
		if e.Text != "" {
			fmt.Fprintf(&sb, "  Text: %q", e.Text)
		}
	}
	if e.Ref != nil && e.Ref.String() != "" {
		fmt.Fprintf(&sb, "\nReference: %s", e.Ref.String())
	}
	if e.File != "" {
		fmt.Fprintf(&sb, "\nFile: %s", e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, ", line %d", e.Line)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, "\nCause: %v", e.Err)
	}
	return sb.String()
}

// NewImport creates an ImportError of the given kind.
func NewImport(kind ImportErrorKind, marker, text string) *ImportError {
	return &ImportError{Kind: kind, Marker: marker, Text: text}
}

// KindOf returns the kind of the first ImportError in err's chain.
func KindOf(err error) (ImportErrorKind, bool) {
	var ie *ImportError
	if As(err, &ie) {
		return ie.Kind, true
	}
	return KindInternal, false
}
