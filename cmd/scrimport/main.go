// Command scrimport imports standard-format and OXES Scripture files into a
// project database.
// It also manages stored import settings and archived versions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/cas"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/internal/archive"
	"github.com/FocuswithJustin/ScriptureImport/internal/importer"
	"github.com/FocuswithJustin/ScriptureImport/internal/logging"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/settings"
	"github.com/FocuswithJustin/ScriptureImport/internal/store"
	"github.com/FocuswithJustin/ScriptureImport/internal/validation"
)

const version = "0.4.0"

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for scrimport.
var CLI struct {
	// Global flags
	DB        string `name:"db" help:"Project database path" default:"project.db" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format" default:"text" enum:"text,json"`

	Import   ImportCmd     `cmd:"" help:"Import source files into the project"`
	Settings SettingsGroup `cmd:"" help:"Stored import settings"`
	Books    BooksGroup    `cmd:"" help:"Books in the project"`
	Versions VersionsGroup `cmd:"" help:"Archived versions"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// SettingsGroup contains settings operations.
type SettingsGroup struct {
	Show     SettingsShowCmd     `cmd:"" help:"Print stored settings as YAML"`
	Load     SettingsLoadCmd     `cmd:"" help:"Store settings from a YAML file"`
	SetRange SettingsSetRangeCmd `cmd:"" name:"set-range" help:"Set the reference range to import"`
}

// BooksGroup contains book operations.
type BooksGroup struct {
	List BooksListCmd `cmd:"" help:"List books"`
	Show BooksShowCmd `cmd:"" help:"Print the text of a book"`
}

// VersionsGroup contains archived version operations.
type VersionsGroup struct {
	List    VersionsListCmd    `cmd:"" help:"List archived versions"`
	Export  VersionsExportCmd  `cmd:"" help:"Export a version to a tar.xz archive"`
	Inspect VersionsInspectCmd `cmd:"" help:"Print the contents of a version archive"`
}

func openStore(ctx context.Context) (*store.Store, error) {
	if err := validation.ValidatePath(CLI.DB); err != nil {
		return nil, errors.Wrap(err, "invalid database path")
	}
	logging.Debug("opening project", "db", CLI.DB)
	return store.Open(ctx, CLI.DB, logging.GetLogger())
}

func loadScripture(ctx context.Context, s *store.Store, st *settings.Settings) (*scripture.Scripture, error) {
	scr, err := s.LoadScripture(ctx)
	if errors.Is(err, errors.ErrNotFound) {
		return scripture.New(st.VernacularWS, st.AnalysisWS), nil
	}
	return scr, err
}

// keepSources copies the imported files into a content-addressed store.
func keepSources(dir string, paths []string) error {
	cs, err := cas.NewStore(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		d, err := cs.PutFile(p)
		if err != nil {
			return errors.Wrapf(err, "keep source %s", p)
		}
		fmt.Fprintf(stdout, "Source %s: sha256 %s\n", d.Name, d.SHA256)
	}
	return nil
}

// loadSettings reads named settings, falling back to the defaults.
func loadSettings(ctx context.Context, s *store.Store, name string) (*settings.Settings, error) {
	st, err := s.LoadSettings(ctx, name)
	if errors.Is(err, errors.ErrNotFound) {
		logging.Warn("no stored settings, using defaults", "name", name)
		return settings.Default(), nil
	}
	return st, err
}

// ImportCmd runs an import.
type ImportCmd struct {
	Sources       []string `arg:"" optional:"" help:"Source files; replace the configured sources" type:"existingfile"`
	Domain        string   `help:"Domain of the source files given as arguments" default:"main" enum:"main,backtrans,annotations"`
	SettingsFile  string   `name:"settings" help:"Settings YAML file; defaults to the stored settings" type:"existingfile"`
	Name          string   `help:"Name of the stored settings" default:"default"`
	Save          bool     `help:"Store the settings used under --name" default:"true" negatable:""`
	BaseDir       string   `name:"base-dir" help:"Directory relative source paths are resolved against" type:"path"`
	Description   string   `help:"Description of the imported version" default:"Imported"`
	BackupArchive string   `name:"backup-archive" help:"Write the saved copies of replaced books to this tar.xz archive" type:"path"`
	SourceStore   string   `name:"source-store" help:"Keep content-addressed copies of the imported source files in this directory" type:"path"`
}

func (c *ImportCmd) Run(ctx context.Context) error {
	ctx = logging.WithSessionID(ctx, uuid.NewString())
	log := logging.FromContext(ctx, logging.GetLogger())
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var st *settings.Settings
	baseDir := c.BaseDir
	if c.SettingsFile != "" {
		if st, err = settings.Load(c.SettingsFile); err != nil {
			return err
		}
		if baseDir == "" {
			baseDir = filepath.Dir(c.SettingsFile)
		}
	} else if st, err = loadSettings(ctx, s, c.Name); err != nil {
		return err
	}
	if len(c.Sources) > 0 {
		domain, err := segment.ParseDomain(c.Domain)
		if err != nil {
			return err
		}
		st.Sources = st.Sources[:0]
		for _, p := range c.Sources {
			st.Sources = append(st.Sources, settings.SourceFile{Path: p, Domain: domain})
		}
	}
	st.Normalize()
	if err := st.Validate(); err != nil {
		return errors.Wrap(err, "invalid settings")
	}

	scr, err := loadScripture(ctx, s, st)
	if err != nil {
		return err
	}
	sess := importer.NewSession(scr, st, nil, nil, log)
	srcs, err := st.OpenSources(baseDir, settings.Delimiters(sess.Proxies), log)
	if err != nil {
		return err
	}
	defer srcs.Close()

	im := importer.New(sess, importer.Options{
		Description: c.Description,
		Progress: func(p importer.Progress) {
			if p.Segments%500 == 0 {
				log.Debug("importing", zap.String("file", p.File), zap.Int("line", p.Line), zap.Stringer("ref", p.Ref))
			}
		},
	})
	res, err := im.Import(ctx, srcs)
	if err != nil {
		var ie *errors.ImportError
		if errors.As(err, &ie) {
			fmt.Fprintln(os.Stderr, ie.Describe())
		}
		return err
	}

	if err := s.SaveScripture(ctx, scr); err != nil {
		return err
	}
	if c.Save {
		if err := s.SaveSettings(ctx, c.Name, st); err != nil {
			return err
		}
	}
	if c.BackupArchive != "" && res.Saved != nil {
		if err := archive.WriteVersion(c.BackupArchive, res.Saved); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved version written to %s\n", c.BackupArchive)
	}

	if c.SourceStore != "" {
		if err := keepSources(c.SourceStore, srcs.Paths()); err != nil {
			return err
		}
	}

	codes := make([]string, len(res.BooksImported))
	for i, n := range res.BooksImported {
		codes[i] = bcv.BookCode(n)
	}
	logging.Info("import committed", "session_id", logging.GetSessionID(ctx), "books", len(codes))
	fmt.Fprintf(stdout, "Imported %d book(s): %s\n", len(codes), strings.Join(codes, " "))
	if res.FirstRef != 0 {
		fmt.Fprintf(stdout, "First reference: %s\n", res.FirstRef)
	}
	inserted, dup := sess.Notes.Counts()
	if inserted+dup > 0 {
		fmt.Fprintf(stdout, "Annotations: %d added, %d duplicates skipped\n", inserted, dup)
	}
	return nil
}

// SettingsShowCmd prints stored settings.
type SettingsShowCmd struct {
	Name string `help:"Name of the stored settings" default:"default"`
}

func (c *SettingsShowCmd) Run(ctx context.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := loadSettings(ctx, s, c.Name)
	if err != nil {
		return err
	}
	data, err := st.Marshal()
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

// SettingsLoadCmd stores settings read from a file.
type SettingsLoadCmd struct {
	Path string `arg:"" help:"Settings YAML file" type:"existingfile"`
	Name string `help:"Name to store the settings under" default:"default"`
}

func (c *SettingsLoadCmd) Run(ctx context.Context) error {
	st, err := settings.Load(c.Path)
	if err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveSettings(ctx, c.Name, st)
}

// SettingsSetRangeCmd changes the reference range of stored settings.
type SettingsSetRangeCmd struct {
	Start   string `arg:"" help:"First reference, e.g. \"EXO 1:1\""`
	End     string `arg:"" help:"Last reference, e.g. \"RUT 4:22\""`
	Name    string `help:"Name of the stored settings" default:"default"`
	Partial bool   `help:"Allow importing part of a book"`
}

func (c *SettingsSetRangeCmd) Run(ctx context.Context) error {
	start, err := bcv.Parse(c.Start)
	if err != nil {
		return errors.Wrap(err, "start")
	}
	end, err := bcv.Parse(c.End)
	if err != nil {
		return errors.Wrap(err, "end")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := loadSettings(ctx, s, c.Name)
	if err != nil {
		return err
	}
	st.AllowPartialBooks = c.Partial
	st.SetRange(start.Min, end.Max)
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.SaveSettings(ctx, c.Name, st); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Range: %s - %s\n", st.StartRef, st.EndRef)
	return nil
}

// BooksListCmd lists the books of the project.
type BooksListCmd struct{}

func (c *BooksListCmd) Run(ctx context.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	scr, err := s.LoadScripture(ctx)
	if err != nil {
		return err
	}
	for _, b := range scr.Books {
		fmt.Fprintf(stdout, "%-4s %-20s sections=%d footnotes=%d notes=%d\n",
			b.BestAbbrev(), b.Name, len(b.Sections), len(b.Footnotes), len(scr.BookNotes(b.Canonical)))
	}
	return nil
}

// BooksShowCmd prints a book.
type BooksShowCmd struct {
	Book string `arg:"" help:"Book code, e.g. EXO"`
	WS   string `name:"ws" help:"Also print the back translation in this writing system"`
}

func (c *BooksShowCmd) Run(ctx context.Context) error {
	n := bcv.BookNumber(c.Book)
	if n == 0 {
		return errors.NewValidation("book", fmt.Sprintf("unknown book code %q", c.Book))
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	scr, err := s.LoadScripture(ctx)
	if err != nil {
		return err
	}
	b := scr.FindBook(n)
	if b == nil {
		return errors.NewNotFound("book", c.Book)
	}
	for _, pos := range b.Paragraphs() {
		fmt.Fprintf(stdout, "[%s] %s\n", pos.Para.Style, pos.Para.Contents.Text())
		if c.WS == "" {
			continue
		}
		if bt, ok := pos.Para.BackTranslation(c.WS); ok {
			fmt.Fprintf(stdout, "    %s: %s\n", c.WS, bt.Text())
		}
	}
	for _, f := range b.Footnotes {
		if len(f.Paragraphs) > 0 {
			fmt.Fprintf(stdout, "(%s) %s %s\n", f.Marker, f.Ref, f.Paragraphs[0].Contents.Text())
		}
	}
	return nil
}

// VersionsListCmd lists archived versions.
type VersionsListCmd struct{}

func (c *VersionsListCmd) Run(ctx context.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	scr, err := s.LoadScripture(ctx)
	if err != nil {
		return err
	}
	for _, v := range scr.Versions {
		codes := make([]string, len(v.Books))
		for i, b := range v.Books {
			codes[i] = b.BestAbbrev()
		}
		fmt.Fprintf(stdout, "%s  %-8s %s  %q  %s\n", v.ID, v.Kind, v.Created.Format("2006-01-02 15:04"), v.Description, strings.Join(codes, " "))
	}
	return nil
}

// VersionsExportCmd writes a version to an archive.
type VersionsExportCmd struct {
	ID  string `arg:"" help:"Version id"`
	Out string `required:"" help:"Output archive path" type:"path"`
}

func (c *VersionsExportCmd) Run(ctx context.Context) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return errors.NewValidation("id", err.Error())
	}
	if err := validation.ValidatePath(c.Out); err != nil {
		return errors.Wrap(err, "invalid output path")
	}
	if err := validation.ValidateFilename(filepath.Base(c.Out)); err != nil {
		return errors.Wrap(err, "invalid archive name")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	scr, err := s.LoadScripture(ctx)
	if err != nil {
		return err
	}
	v := scr.FindVersion(id)
	if v == nil {
		return errors.NewNotFound("version", c.ID)
	}
	if err := archive.WriteVersion(c.Out, v); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d book(s) to %s\n", len(v.Books), c.Out)
	return nil
}

// VersionsInspectCmd prints a version archive.
type VersionsInspectCmd struct {
	Path string `arg:"" help:"Version archive" type:"existingfile"`
}

func (c *VersionsInspectCmd) Run() error {
	v, err := archive.ReadVersion(c.Path)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s %q\n", v.ID, v.Kind, v.Description)
	for _, b := range v.Books {
		fmt.Fprintf(stdout, "  %-4s %s\n", b.BestAbbrev(), b.Name)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "scrimport version %s\n", version)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("scrimport"),
		kong.Description("Interleaved Scripture import"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), format)
	defer logging.GetLogger().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run()
	if err != nil {
		logging.Error("command failed", "command", kctx.Command(), "error", err)
	}
	kctx.FatalIfErrorf(err)
}
