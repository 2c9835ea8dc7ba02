// Package segment turns import sources into a flat stream of marker/text
// segments carrying the Scripture reference in effect.
package segment

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
)

// Domain is the kind of data a source file holds.
type Domain int

const (
	// Main is vernacular text, possibly with interleaved back translation.
	Main Domain = iota
	// BackTrans is a file holding only back translation.
	BackTrans
	// Annotations is a file of notes.
	Annotations
)

var domainNames = [...]string{"main", "backtrans", "annotations"}

func (d Domain) String() string {
	if int(d) < len(domainNames) {
		return domainNames[d]
	}
	return "unknown"
}

// ParseDomain converts a domain name.
func ParseDomain(s string) (Domain, error) {
	for i, n := range domainNames {
		if strings.EqualFold(n, s) {
			return Domain(i), nil
		}
	}
	return Main, fmt.Errorf("unknown domain %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Domain) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Domain) UnmarshalText(b []byte) error {
	v, err := ParseDomain(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Segment is one marker and the text that follows it.
type Segment struct {
	Marker   string
	Text     string
	Domain   Domain
	FirstRef bcv.Ref
	LastRef  bcv.Ref
	WS       string
	NoteType string
	Line     int

	// Annotation sources may supply a quoted passage and a category path.
	Quote    string
	Category string
}

// Range returns the reference range of the segment.
func (s Segment) Range() bcv.Range {
	return bcv.Range{Min: s.FirstRef, Max: s.LastRef}
}

// Source yields segments in document order. Next returns io.EOF after the
// last segment.
type Source interface {
	Next() (Segment, error)
	FileName() string
	LineNumber() int
	FirstRef() bcv.Ref
	LastRef() bcv.Ref
	WritingSystem(def string) string
}
