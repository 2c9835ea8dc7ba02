// Package settings holds the options of an import: what kind of project the
// sources come from, which files to read, which streams to import and which
// range of books to accept.
package settings

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
	"github.com/FocuswithJustin/ScriptureImport/internal/validation"
)

// ImportType is the kind of project the sources were exported from.
type ImportType int

const (
	TypeOther ImportType = iota
	TypeParatext5
	TypeUnknown
)

var typeNames = [...]string{"other", "paratext5", "unknown"}

func (t ImportType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t ImportType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ImportType) UnmarshalText(b []byte) error {
	for i, n := range typeNames {
		if strings.EqualFold(n, string(b)) {
			*t = ImportType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown import type %q", b)
}

// SourceFile is one file to import and the stream it feeds.
type SourceFile struct {
	Path     string         `yaml:"path"`
	Domain   segment.Domain `yaml:"domain"`
	WS       string         `yaml:"ws,omitempty"`
	NoteType string         `yaml:"note_type,omitempty"`
}

// Settings are the options of one import.
type Settings struct {
	Type    ImportType   `yaml:"type"`
	Sources []SourceFile `yaml:"sources"`

	ImportTranslation     bool `yaml:"import_translation"`
	ImportBackTranslation bool `yaml:"import_back_translation"`
	ImportBookIntros      bool `yaml:"import_book_intros"`
	ImportAnnotations     bool `yaml:"import_annotations"`

	// Without partial books the range is widened to whole books.
	AllowPartialBooks bool    `yaml:"allow_partial_books"`
	StartRef          bcv.Ref `yaml:"start_ref"`
	EndRef            bcv.Ref `yaml:"end_ref"`

	Mappings        []styles.Mapping          `yaml:"mappings,omitempty"`
	FootnoteMarkers scripture.FootnoteMarkers `yaml:"footnote_markers"`
	VernacularWS    string                    `yaml:"vernacular_ws"`
	AnalysisWS      string                    `yaml:"analysis_ws"`
}

// Default returns settings that import everything with the standard markers.
func Default() *Settings {
	return &Settings{
		Type:                  TypeOther,
		ImportTranslation:     true,
		ImportBackTranslation: true,
		ImportBookIntros:      true,
		ImportAnnotations:     true,
		StartRef:              bcv.New(1, 1, 1),
		EndRef:                bcv.New(bcv.LastBook, 1, 1),
		VernacularWS:          "qaa",
		AnalysisWS:            "en",
	}
}

// Parse decodes YAML on top of the defaults. Unknown fields are rejected.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Load reads settings from a YAML file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Marshal encodes the settings as YAML.
func (s *Settings) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings to yaml: %w", err)
	}
	return data, nil
}

// MappingsOrDefault returns the configured mappings, or the standard set.
func (s *Settings) MappingsOrDefault() []styles.Mapping {
	if len(s.Mappings) > 0 {
		return s.Mappings
	}
	return styles.DefaultMappings()
}

// Normalize applies the whole-book policy: unless partial books are allowed
// both ends of the range snap to chapter 1 verse 1 of their book.
func (s *Settings) Normalize() {
	if s.AllowPartialBooks {
		return
	}
	if s.StartRef != 0 {
		s.StartRef = s.StartRef.BookStart()
	}
	if s.EndRef != 0 {
		s.EndRef = s.EndRef.BookStart()
	}
}

// SetRange sets the reference range and normalizes it.
func (s *Settings) SetRange(start, end bcv.Ref) {
	s.StartRef, s.EndRef = start, end
	s.Normalize()
}

// InRange reports whether a book falls inside the reference range. A zero
// end leaves the range open.
func (s *Settings) InRange(book int) bool {
	if s.StartRef != 0 && book < s.StartRef.Book() {
		return false
	}
	if s.EndRef != 0 && book > s.EndRef.Book() {
		return false
	}
	return true
}

// Validate checks the settings, reporting every problem found.
func (s *Settings) Validate() error {
	var err error
	if s.Type == TypeUnknown {
		err = multierr.Append(err, errors.NewValidation("type", "import type is not set"))
	}
	if !s.ImportTranslation && !s.ImportBackTranslation && !s.ImportAnnotations {
		err = multierr.Append(err, errors.NewValidation("import", "nothing selected to import"))
	}
	if s.StartRef != 0 && !s.StartRef.IsValid() {
		err = multierr.Append(err, errors.NewValidation("start_ref", s.StartRef.String()))
	}
	if s.EndRef != 0 && !s.EndRef.IsValid() {
		err = multierr.Append(err, errors.NewValidation("end_ref", s.EndRef.String()))
	}
	if s.StartRef != 0 && s.EndRef != 0 && s.StartRef > s.EndRef {
		err = multierr.Append(err, errors.NewValidation("end_ref", "range ends before it starts"))
	}
	for _, ws := range []struct{ field, value string }{
		{"vernacular_ws", s.VernacularWS},
		{"analysis_ws", s.AnalysisWS},
	} {
		if _, e := styles.ValidateWS(ws.value); e != nil {
			err = multierr.Append(err, errors.NewValidation(ws.field, e.Error()))
		}
	}
	for i, src := range s.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if e := validation.ValidatePath(src.Path); e != nil {
			err = multierr.Append(err, &errors.ValidationError{Field: field, Value: src.Path, Message: e.Error(), Err: e})
		}
		if src.WS != "" {
			if _, e := styles.ValidateWS(src.WS); e != nil {
				err = multierr.Append(err, errors.NewValidation(field+".ws", e.Error()))
			}
		}
	}
	return err
}
