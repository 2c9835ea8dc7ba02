// Package bcv provides packed book/chapter/verse Scripture references.
package bcv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/ScriptureImport/core/errors"
)

const (
	bookFactor    = 1_000_000
	chapterFactor = 1_000
)

// Ref is a packed Scripture reference of the form BBCCCVVV.
// The zero value means "no reference".
type Ref int

// New packs a book, chapter and verse into a Ref.
func New(book, chapter, verse int) Ref {
	return Ref(book*bookFactor + chapter*chapterFactor + verse)
}

// Book returns the canonical book number.
func (r Ref) Book() int { return int(r) / bookFactor }

// Chapter returns the chapter number.
func (r Ref) Chapter() int { return int(r) % bookFactor / chapterFactor }

// Verse returns the verse number.
func (r Ref) Verse() int { return int(r) % chapterFactor }

// IsValid reports whether the reference names a known book.
func (r Ref) IsValid() bool {
	b := r.Book()
	return b >= 1 && b <= LastBook && r.Chapter() >= 0 && r.Verse() >= 0
}

// WithChapter returns r with the chapter replaced; the verse is kept.
func (r Ref) WithChapter(chapter int) Ref {
	return New(r.Book(), chapter, r.Verse())
}

// WithVerse returns r with the verse replaced.
func (r Ref) WithVerse(verse int) Ref {
	return New(r.Book(), r.Chapter(), verse)
}

// BookStart returns the first verse of the first chapter of r's book.
func (r Ref) BookStart() Ref {
	return New(r.Book(), 1, 1)
}

// String formats the reference as "EXO 8:20".
func (r Ref) String() string {
	if r == 0 {
		return ""
	}
	code := BookCode(r.Book())
	if code == "" {
		code = strconv.Itoa(r.Book())
	}
	switch {
	case r.Chapter() == 0:
		return code
	case r.Verse() == 0:
		return fmt.Sprintf("%s %d", code, r.Chapter())
	default:
		return fmt.Sprintf("%s %d:%d", code, r.Chapter(), r.Verse())
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*r = 0
		return nil
	}
	rng, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = rng.Min
	return nil
}

// Range is an inclusive span of references, used for verse bridges.
type Range struct {
	Min Ref `json:"min"`
	Max Ref `json:"max"`
}

// Single returns a Range covering exactly one reference.
func Single(r Ref) Range { return Range{Min: r, Max: r} }

// IsBridge reports whether the range spans more than one verse.
func (rr Range) IsBridge() bool { return rr.Min != rr.Max }

// VerseText renders the verse portion of the range: "6" or "6-7".
func (rr Range) VerseText() string {
	if !rr.IsBridge() || rr.Max.Verse() == rr.Min.Verse() {
		return strconv.Itoa(rr.Min.Verse())
	}
	return fmt.Sprintf("%d-%d", rr.Min.Verse(), rr.Max.Verse())
}

// Contains reports whether r lies within the range.
func (rr Range) Contains(r Ref) bool {
	return r >= rr.Min && r <= rr.Max
}

// String formats the range as "GEN 1:6-7".
func (rr Range) String() string {
	if !rr.IsBridge() {
		return rr.Min.String()
	}
	if rr.Min.Book() == rr.Max.Book() && rr.Min.Chapter() == rr.Max.Chapter() {
		return fmt.Sprintf("%s-%d", rr.Min.String(), rr.Max.Verse())
	}
	return rr.Min.String() + "-" + rr.Max.String()
}

// refGrammar accepts "EXO", "EXO 8", "EXO 8:20", "GEN 1:6-7" and "1SA 3.4".
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	Book    string       `@Book`
	Chapter *chapterPart `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter int        `@Int`
	Verse   *versePart `( (":" | ".") @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Verse int  `@Int`
	End   *int `( "-" @Int )?`
}

// refLexer tokenizes references. Book codes may start with a digit ("1SA"),
// so Book is tried before Int.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Book", Pattern: `[0-9][A-Za-z][A-Za-z0-9]*|[A-Za-z][A-Za-z0-9]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[:.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a human reference such as "EXO 8:20" or "GEN 1:6-7".
// A book-only reference yields chapter and verse 0.
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, errors.NewParse("reference", "", "empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return Range{}, &errors.ParseError{Format: "reference", Message: fmt.Sprintf("invalid reference %q", s), Err: err}
	}

	book := BookNumber(parsed.Book)
	if book == 0 {
		return Range{}, errors.NewParse("reference", "", fmt.Sprintf("unknown book %q", parsed.Book))
	}

	ref := New(book, 0, 0)
	if parsed.Chapter == nil {
		return Single(ref), nil
	}
	ref = ref.WithChapter(parsed.Chapter.Chapter)
	if parsed.Chapter.Verse == nil {
		return Single(ref), nil
	}
	ref = ref.WithVerse(parsed.Chapter.Verse.Verse)
	rng := Single(ref)
	if end := parsed.Chapter.Verse.End; end != nil {
		if *end < ref.Verse() {
			return Range{}, errors.NewParse("reference", "", fmt.Sprintf("verse range %q runs backwards", s))
		}
		rng.Max = ref.WithVerse(*end)
	}
	return rng, nil
}

// MustParse is like Parse but panics on error. Intended for tests and tables.
func MustParse(s string) Range {
	rng, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("bcv: %v", err))
	}
	return rng
}

// ParseVerseNumber parses the number that follows a verse marker: "6",
// "6-7", "6a" or "6-7b". Trailing segment letters are ignored.
func ParseVerseNumber(s string) (first, last int, err error) {
	s = strings.TrimSpace(s)
	lo, hi, isBridge := strings.Cut(s, "-")
	if first, err = leadingInt(lo); err != nil {
		return 0, 0, errors.NewParse("verse number", "", fmt.Sprintf("invalid verse number %q", s))
	}
	last = first
	if isBridge {
		if last, err = leadingInt(hi); err != nil || last < first {
			return 0, 0, errors.NewParse("verse number", "", fmt.Sprintf("invalid verse bridge %q", s))
		}
	}
	return first, last, nil
}

func leadingInt(s string) (int, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}
