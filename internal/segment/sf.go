package segment

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
)

var markerRegex = regexp.MustCompile(`^\\[A-Za-z0-9_]+\*?`)

// Delimiter is an in-text marker pair such as "|f{" ... "}". End may be
// empty for markers that run until the next marker.
type Delimiter struct {
	Begin string
	End   string
}

// SFOptions configure an SFSource.
type SFOptions struct {
	FileName string
	Domain   Domain
	WS       string
	NoteType string
	Inline   []Delimiter
	Log      *zap.Logger
}

type token struct {
	marker   string
	text     string
	line     int
	isMarker bool
}

// SFSource reads standard-format text: backslash markers each followed by
// their text. Line breaks inside a segment's text become single spaces.
type SFSource struct {
	opts    SFOptions
	sc      *bufio.Scanner
	line    int
	queue   []token
	done    bool
	open    []string
	book    int
	chapter int
	first   bcv.Ref
	last    bcv.Ref
	segLine int
	log     *zap.Logger
}

// NewSFSource returns a source reading r.
func NewSFSource(r io.Reader, opts SFOptions) *SFSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &SFSource{opts: opts, sc: sc, log: log}
}

// FileName returns the name of the file being read.
func (s *SFSource) FileName() string { return s.opts.FileName }

// LineNumber returns the line of the most recent segment's marker.
func (s *SFSource) LineNumber() int { return s.segLine }

// FirstRef returns the first reference of the most recent segment.
func (s *SFSource) FirstRef() bcv.Ref { return s.first }

// LastRef returns the last reference of the most recent segment.
func (s *SFSource) LastRef() bcv.Ref { return s.last }

// WritingSystem returns the file's writing system, or def when unset.
func (s *SFSource) WritingSystem(def string) string {
	if s.opts.WS != "" {
		return s.opts.WS
	}
	return def
}

// Next returns the next segment, or io.EOF.
func (s *SFSource) Next() (Segment, error) {
	for {
		tok, err := s.pop()
		if err != nil {
			return Segment{}, err
		}
		seg := Segment{
			Domain:   s.opts.Domain,
			WS:       s.opts.WS,
			NoteType: s.opts.NoteType,
			Line:     tok.line,
		}
		var text strings.Builder
		if tok.isMarker {
			seg.Marker = tok.marker
		} else {
			text.WriteString(tok.text)
		}
		for {
			nt, err := s.peek()
			if err == io.EOF {
				break
			}
			if err != nil {
				return Segment{}, err
			}
			if nt.isMarker {
				break
			}
			_, _ = s.pop()
			text.WriteString(nt.text)
		}
		seg.Text = text.String()
		if seg.Marker == "" && strings.TrimSpace(seg.Text) == "" {
			continue
		}
		s.applyRefs(&seg)
		s.segLine = seg.Line
		return seg, nil
	}
}

func (s *SFSource) applyRefs(seg *Segment) {
	base, _, _ := strings.Cut(seg.Marker, "_")
	switch base {
	case `\id`:
		code, _, _ := strings.Cut(strings.TrimSpace(seg.Text), " ")
		s.book = bcv.BookNumber(code)
		s.chapter = 0
		s.first, s.last = bcv.New(s.book, 0, 0), bcv.New(s.book, 0, 0)
		if s.book == 0 {
			s.first, s.last = 0, 0
			s.log.Warn("unknown book code", zap.String("code", code), zap.Int("line", seg.Line))
		}
	case `\c`:
		num, rest := splitNumber(seg.Text)
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 || s.book == 0 {
			seg.FirstRef, seg.LastRef = 0, 0
			return
		}
		seg.Text = rest
		s.chapter = n
		s.first, s.last = bcv.New(s.book, n, 0), bcv.New(s.book, n, 0)
	case `\v`, `\btv`:
		num, rest := splitNumber(seg.Text)
		first, last, err := bcv.ParseVerseNumber(num)
		if err != nil || s.book == 0 {
			seg.FirstRef, seg.LastRef = 0, 0
			return
		}
		seg.Text = rest
		s.first, s.last = bcv.New(s.book, s.chapter, first), bcv.New(s.book, s.chapter, last)
	}
	seg.FirstRef, seg.LastRef = s.first, s.last
}

// splitNumber splits "6-7 text" into "6-7" and "text", consuming one
// separator character.
func splitNumber(text string) (string, string) {
	t := strings.TrimLeftFunc(text, unicode.IsSpace)
	end := strings.IndexFunc(t, unicode.IsSpace)
	if end < 0 {
		return t, ""
	}
	_, size := utf8.DecodeRuneInString(t[end:])
	return t[:end], t[end+size:]
}

func (s *SFSource) peek() (token, error) {
	for len(s.queue) == 0 {
		if err := s.readLine(); err != nil {
			return token{}, err
		}
	}
	return s.queue[0], nil
}

func (s *SFSource) pop() (token, error) {
	t, err := s.peek()
	if err != nil {
		return token{}, err
	}
	s.queue = s.queue[1:]
	return t, nil
}

func (s *SFSource) readLine() error {
	if s.done {
		return io.EOF
	}
	if !s.sc.Scan() {
		s.done = true
		if err := s.sc.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	s.line++
	s.tokenize(s.sc.Text())
	return nil
}

// tokenize splits one line into marker and text tokens. The line break
// itself becomes a trailing space.
func (s *SFSource) tokenize(line string) {
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			s.queue = append(s.queue, token{text: text.String(), line: s.line})
			text.Reset()
		}
	}
	emit := func(marker string) {
		flush()
		s.queue = append(s.queue, token{marker: marker, line: s.line, isMarker: true})
	}

	i := 0
	for i < len(line) {
		rest := line[i:]
		if n := len(s.open); n > 0 && strings.HasPrefix(rest, s.open[n-1]) {
			end := s.open[n-1]
			s.open = s.open[:n-1]
			emit(end)
			i += len(end)
			continue
		}
		if rest[0] == '\\' {
			if loc := markerRegex.FindStringIndex(rest); loc != nil {
				marker := rest[:loc[1]]
				emit(marker)
				i += loc[1]
				if !strings.HasSuffix(marker, "*") {
					i += skipSeparator(line[i:])
				}
				continue
			}
		}
		if d, ok := s.matchInline(rest); ok {
			emit(d.Begin)
			if d.End != "" {
				s.open = append(s.open, d.End)
			}
			i += len(d.Begin)
			i += skipSeparator(line[i:])
			continue
		}
		r, size := utf8.DecodeRuneInString(rest)
		text.WriteRune(r)
		i += size
	}
	text.WriteByte(' ')
	flush()
}

func (s *SFSource) matchInline(rest string) (Delimiter, bool) {
	for _, d := range s.opts.Inline {
		if d.Begin != "" && strings.HasPrefix(rest, d.Begin) {
			return d, true
		}
	}
	return Delimiter{}, false
}

func skipSeparator(s string) int {
	if s != "" && (s[0] == ' ' || s[0] == '\t') {
		return 1
	}
	return 0
}
