package settings

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
	"github.com/FocuswithJustin/ScriptureImport/internal/validation"
)

// Sources is the concatenated segment stream of every source file. Close
// releases the underlying files.
type Sources struct {
	*segment.Multi
	files []*os.File
}

// Paths returns the resolved paths of the opened files.
func (s *Sources) Paths() []string {
	out := make([]string, len(s.files))
	for i, f := range s.files {
		out[i] = f.Name()
	}
	return out
}

// Close closes all open source files.
func (s *Sources) Close() error {
	var err error
	for _, f := range s.files {
		err = multierr.Append(err, f.Close())
	}
	s.files = nil
	return err
}

// Delimiters converts the in-text mappings of a proxy list into scanner
// delimiters.
func Delimiters(pl *styles.ProxyList) []segment.Delimiter {
	var out []segment.Delimiter
	for _, m := range pl.InlineMappings() {
		out = append(out, segment.Delimiter{Begin: m.Marker, End: m.EndMarker})
	}
	return out
}

// OpenSources opens every configured source file in order. Relative paths
// are resolved against baseDir. Files are sniffed to choose between the
// standard-format scanner and the OXES reader; Paratext 5 projects are
// standard format only.
func (s *Settings) OpenSources(baseDir string, inline []segment.Delimiter, log *zap.Logger) (*Sources, error) {
	if log == nil {
		log = zap.NewNop()
	}
	out := &Sources{}
	var list []segment.Source
	fail := func(err error) (*Sources, error) {
		return nil, multierr.Append(err, out.Close())
	}

	for _, src := range s.Sources {
		if src.Domain == segment.Annotations && !s.ImportAnnotations {
			log.Info("skipping annotation file", zap.String("path", src.Path))
			continue
		}
		if src.Domain == segment.BackTrans && !s.ImportBackTranslation {
			log.Info("skipping back translation file", zap.String("path", src.Path))
			continue
		}
		path := src.Path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		if err := validation.ValidatePath(path); err != nil {
			return fail(fmt.Errorf("source %q: %w", src.Path, err))
		}
		f, err := os.Open(path)
		if err != nil {
			return fail(errors.NewIO("open", path, err))
		}
		out.files = append(out.files, f)

		format, err := validation.DetectSourceFormat(f, path)
		if err != nil {
			return fail(err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fail(errors.NewIO("seek", path, err))
		}
		if format == validation.FormatUnknown {
			format = validation.FormatStandard
		}
		if s.Type == TypeParatext5 && format != validation.FormatStandard {
			return fail(errors.NewValidation(src.Path, "Paratext 5 projects must be standard format"))
		}

		name := filepath.Base(path)
		switch format {
		case validation.FormatOXES:
			ox, err := segment.NewOXESSource(f, segment.OXESOptions{
				FileName:   name,
				Domain:     src.Domain,
				AnalysisWS: s.AnalysisWS,
				Log:        log,
			})
			if err != nil {
				return fail(err)
			}
			list = append(list, ox)
		default:
			list = append(list, segment.NewSFSource(f, segment.SFOptions{
				FileName: name,
				Domain:   src.Domain,
				WS:       src.WS,
				NoteType: src.NoteType,
				Inline:   inline,
				Log:      log,
			}))
		}
		log.Debug("opened source", zap.String("path", path), zap.String("format", string(format)), zap.Stringer("domain", src.Domain))
	}
	out.Multi = segment.NewMulti(list...)
	return out, nil
}
