package settings

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	scrierrors "github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
)

func TestRangeRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		partial   bool
		wantStart string
		wantEnd   string
	}{
		// Without partial books the range is stored snapped to whole books, and
		// the snapped values read back unchanged; only partial ranges keep verses.
		{"whole books", false, "EXO 1:1", "RUT 1:1"},
		{"partial books", true, "EXO 8:20", "RUT 2:4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			s.AllowPartialBooks = tt.partial
			s.SetRange(bcv.MustParse("EXO 8:20").Min, bcv.MustParse("RUT 2:4").Min)

			data, err := s.Marshal()
			if err != nil {
				t.Fatal(err)
			}
			back, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse: %v\n%s", err, data)
			}
			if got := back.StartRef.String(); got != tt.wantStart {
				t.Errorf("StartRef = %q, want %q", got, tt.wantStart)
			}
			if got := back.EndRef.String(); got != tt.wantEnd {
				t.Errorf("EndRef = %q, want %q", got, tt.wantEnd)
			}
		})
	}
}

func TestParse_KnownFieldsOnly(t *testing.T) {
	if _, err := Parse([]byte("import_translation: true\nbogus: 1\n")); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestParse_OverlaysDefaults(t *testing.T) {
	s, err := Parse([]byte(`
type: paratext5
import_book_intros: false
footnote_markers:
  type: 1
  symbol: "†"
sources:
  - path: exo.sfm
    domain: main
  - path: exo-de.sfm
    domain: backtrans
    ws: de
mappings:
  - marker: '\mt'
    style: Title Main
`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Type != TypeParatext5 || s.ImportBookIntros || !s.ImportTranslation {
		t.Errorf("settings = %+v", s)
	}
	if s.FootnoteMarkers.Type != scripture.MarkerSymbol || s.FootnoteMarkers.Symbol != "†" {
		t.Errorf("FootnoteMarkers = %+v", s.FootnoteMarkers)
	}
	if len(s.Sources) != 2 || s.Sources[1].Domain != segment.BackTrans || s.Sources[1].WS != "de" {
		t.Errorf("Sources = %+v", s.Sources)
	}
	if len(s.MappingsOrDefault()) != 1 {
		t.Errorf("configured mappings ignored")
	}
	if len(Default().MappingsOrDefault()) != len(styles.DefaultMappings()) {
		t.Errorf("default mappings not used")
	}
}

func TestInRange(t *testing.T) {
	s := Default()
	s.SetRange(bcv.New(2, 1, 1), bcv.New(8, 1, 1))
	for book, want := range map[int]bool{1: false, 2: true, 5: true, 8: true, 9: false} {
		if got := s.InRange(book); got != want {
			t.Errorf("InRange(%d) = %v, want %v", book, got, want)
		}
	}
	s.SetRange(0, 0)
	if !s.InRange(66) {
		t.Error("open range should include every book")
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}

	s := Default()
	s.Type = TypeUnknown
	s.ImportTranslation, s.ImportBackTranslation, s.ImportAnnotations = false, false, false
	s.StartRef, s.EndRef = bcv.New(8, 1, 1), bcv.New(2, 1, 1)
	s.AnalysisWS = "not a language!"
	s.Sources = []SourceFile{{Path: ""}}

	err := s.Validate()
	if !errors.Is(err, scrierrors.ErrInvalidInput) {
		t.Fatalf("Validate() = %v", err)
	}
	for _, want := range []string{"type", "nothing selected", "range ends", "analysis_ws", "sources[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestOpenSources(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("exo.sfm", "\\id EXO\n\\p text |f{note}\n")
	write("exo.xml", `<?xml version="1.0"?><oxes><oxesText><canon><book ID="LEV"/></canon></oxesText></oxes>`)
	write("notes.sfm", "\\rem note\n")

	s := Default()
	s.ImportAnnotations = false
	s.Sources = []SourceFile{
		{Path: "exo.sfm", Domain: segment.Main},
		{Path: "exo.xml", Domain: segment.Main},
		{Path: "notes.sfm", Domain: segment.Annotations},
	}
	pl := styles.NewProxyList(styles.DefaultStylesheet(), styles.DefaultMappings(), "qaa", "en", nil)
	srcs, err := s.OpenSources(dir, Delimiters(pl), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer srcs.Close()

	var markers []string
	for {
		seg, err := srcs.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		markers = append(markers, seg.Marker)
	}
	want := `\id \p |f{ } \id`
	if got := strings.Join(markers, " "); got != want {
		t.Errorf("markers = %q, want %q", got, want)
	}
	if err := srcs.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenSources_Paratext5RejectsXML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.xml"), []byte("<?xml version=\"1.0\"?><oxes/>"), 0644); err != nil {
		t.Fatal(err)
	}
	s := Default()
	s.Type = TypeParatext5
	s.Sources = []SourceFile{{Path: "a.xml"}}
	if _, err := s.OpenSources(dir, nil, nil); !errors.Is(err, scrierrors.ErrInvalidInput) {
		t.Errorf("err = %v, want validation error", err)
	}
	s.Sources = []SourceFile{{Path: "missing.sfm"}}
	if _, err := s.OpenSources(dir, nil, nil); err == nil {
		t.Error("missing file should fail")
	}
}
