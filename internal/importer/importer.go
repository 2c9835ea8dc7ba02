// Package importer turns a stream of marker/text segments into books of a
// Scripture project.
//
// An Importer consumes segments one at a time. Vernacular text builds new
// books; back translation text, whether interleaved with the vernacular or
// read from its own file, is aligned to the vernacular paragraphs it
// translates. Every change belongs to one undo session: a fatal condition or
// cancellation rolls the whole import back.
package importer

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/internal/logging"
	"github.com/FocuswithJustin/ScriptureImport/internal/notes"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/settings"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
	"github.com/FocuswithJustin/ScriptureImport/internal/undo"
)

// DefaultDescription names the version recording imported books.
const DefaultDescription = "Imported"

// ErrFinished is returned when segments are given to a finished import.
var ErrFinished = fmt.Errorf("import already finished: %w", errors.ErrInvalidInput)

// State is where the importer is in a book.
type State int

const (
	StateNoBook State = iota
	StateBookOpen
	StateSectionOpen
	StateFinalized
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateBookOpen:
		return "book-open"
	case StateSectionOpen:
		return "section-open"
	case StateFinalized:
		return "finalized"
	case StateAborted:
		return "aborted"
	}
	return "no-book"
}

// Session bundles the collaborators scoped to one import.
type Session struct {
	Scripture *scripture.Scripture
	Settings  *settings.Settings
	Proxies   *styles.ProxyList
	Notes     *notes.Manager
	Undo      *undo.Manager
	Log       *zap.Logger
}

// NewSession wires a session importing into scr. A nil sheet uses the
// default stylesheet; a nil clock uses the wall clock.
func NewSession(scr *scripture.Scripture, st *settings.Settings, sheet *styles.Stylesheet, clock undo.Clock, log *zap.Logger) *Session {
	log = logging.OrNop(log)
	if scr.VernacularWS == "" {
		scr.VernacularWS = st.VernacularWS
	}
	if scr.AnalysisWS == "" {
		scr.AnalysisWS = st.AnalysisWS
	}
	u := undo.New(scr, undo.Options{Clock: clock, Log: log})
	return &Session{
		Scripture: scr,
		Settings:  st,
		Proxies:   styles.NewProxyList(sheet, st.MappingsOrDefault(), st.VernacularWS, st.AnalysisWS, log),
		Notes:     notes.NewManager(scr, notes.Options{Tracker: u, Clock: clock, Log: log}),
		Undo:      u,
		Log:       log,
	}
}

// Progress reports how far an import has got.
type Progress struct {
	File     string
	Line     int
	Ref      bcv.Ref
	Segments int
}

// Options configure an Importer.
type Options struct {
	// Progress, if set, is called after every segment.
	Progress func(Progress)
	// Description names the imported version; DefaultDescription if empty.
	Description string
}

// Result summarizes a finished import.
type Result struct {
	BooksImported []int
	Incomplete    []int
	FirstRef      bcv.Ref
	Imported      *scripture.Version
	Saved         *scripture.Version
}

type bookMode int

const (
	modeNone bookMode = iota
	// modeVernacular builds new books, with interleaved back translation.
	modeVernacular
	// modeWalker attaches back translation to an existing book.
	modeWalker
	// modeNotes takes only annotations from the book.
	modeNotes
	// modeSkip ignores the book.
	modeSkip
)

type destKind int

const (
	destTitle destKind = iota
	destHeading
	destContent
)

// Importer is the import state machine.
type Importer struct {
	s    *Session
	opts Options
	log  *zap.Logger
	src  segment.Source

	state    State
	segments int
	result   Result

	vernWS     string
	analysisWS string

	// per book
	mode        bookMode
	notesInSkip bool
	book        *scripture.Book
	bookNum     int
	section     *scripture.Section
	para        *ParaBuilder
	dest        destKind
	skipPara    bool
	lastChapter int
	pendingCh   bcv.Ref
	curRef      bcv.Ref
	footnotes   *FootnoteTracker
	aligner     *Aligner
	walk        *walker
	pic         pictureFields
}

// New returns an importer for one session.
func New(s *Session, opts Options) *Importer {
	if opts.Description == "" {
		opts.Description = DefaultDescription
	}
	return &Importer{
		s:          s,
		opts:       opts,
		log:        logging.OrNop(s.Log),
		vernWS:     s.Settings.VernacularWS,
		analysisWS: s.Settings.AnalysisWS,
		aligner:    NewAligner(),
	}
}

// State returns the current state.
func (im *Importer) State() State { return im.state }

// Book returns the book being imported, or nil.
func (im *Importer) Book() *scripture.Book { return im.book }

// CurrentParagraph returns the vernacular paragraph builder, or nil.
func (im *Importer) CurrentParagraph() *ParaBuilder { return im.para }

// Aligner returns the back translation aligner.
func (im *Importer) Aligner() *Aligner { return im.aligner }

// Result returns the outcome of a finished import.
func (im *Importer) Result() Result { return im.result }

// ProcessSegment consumes one segment. A fatal condition aborts the import,
// rolling back every change, and is returned as an *errors.ImportError.
func (im *Importer) ProcessSegment(seg segment.Segment) error {
	if im.state == StateFinalized || im.state == StateAborted {
		return ErrFinished
	}
	im.segments++
	if err := im.dispatch(seg); err != nil {
		return im.fail(err, seg)
	}
	return nil
}

// FinalizeImport flushes the open book and commits the import. Finalizing
// again is a no-op.
func (im *Importer) FinalizeImport() error {
	switch im.state {
	case StateFinalized:
		return nil
	case StateAborted:
		return ErrFinished
	}
	if err := im.closeBook(); err != nil {
		return im.fail(err, segment.Segment{})
	}
	imported, err := im.s.Undo.Commit(im.opts.Description)
	if err != nil {
		return err
	}
	im.state = StateFinalized
	im.result = Result{
		BooksImported: im.s.Undo.Imported(),
		FirstRef:      im.s.Undo.FirstImportedRef(),
		Imported:      imported,
		Saved:         im.s.Undo.Backup(),
	}
	inserted, dup := im.s.Notes.Counts()
	im.log.Info("import finished",
		zap.Ints("books", im.result.BooksImported),
		zap.Int("segments", im.segments),
		zap.Int("notes", inserted),
		zap.Int("duplicate_notes", dup),
	)
	return nil
}

// Cancel abandons the import and rolls back everything it changed.
func (im *Importer) Cancel() error {
	if im.state == StateFinalized || im.state == StateAborted {
		return nil
	}
	ie := errors.NewImport(errors.KindCancelled, "", "")
	ie.Err = context.Canceled
	return im.abort(ie)
}

// Import reads src to the end and finalizes. ctx is checked between
// segments; cancellation rolls the import back and returns an ImportError
// of kind KindCancelled.
func (im *Importer) Import(ctx context.Context, src segment.Source) (Result, error) {
	im.src = src
	for {
		if err := ctx.Err(); err != nil {
			ie := errors.NewImport(errors.KindCancelled, "", "")
			ie.Err = err
			return im.result, im.fail(ie, segment.Segment{})
		}
		seg, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			ie := errors.NewImport(errors.KindInternal, "", "")
			ie.Err = err
			ie.Line = src.LineNumber()
			return im.result, im.fail(ie, segment.Segment{})
		}
		if err := im.ProcessSegment(seg); err != nil {
			return im.result, err
		}
		if im.opts.Progress != nil {
			im.opts.Progress(Progress{File: src.FileName(), Line: src.LineNumber(), Ref: im.curRef, Segments: im.segments})
		}
	}
	if err := im.FinalizeImport(); err != nil {
		return im.result, err
	}
	return im.result, nil
}

// fail completes an ImportError with what the importer knows and aborts.
func (im *Importer) fail(err error, seg segment.Segment) error {
	var ie *errors.ImportError
	if !errors.As(err, &ie) {
		ie = &errors.ImportError{Kind: errors.KindInternal, Err: err}
	}
	if ie.Marker == "" {
		ie.Marker = seg.Marker
	}
	if ie.Text == "" {
		ie.Text = seg.Text
	}
	if ie.Ref == nil {
		switch {
		case im.curRef != 0:
			ie.Ref = im.curRef
		case seg.FirstRef != 0:
			ie.Ref = seg.FirstRef
		}
	}
	if ie.Book == 0 {
		ie.Book = im.bookNum
	}
	ie.Interleaved = im.mode == modeVernacular
	if ie.File == "" && im.src != nil {
		ie.File = im.src.FileName()
	}
	if ie.Line == 0 {
		ie.Line = seg.Line
	}
	if rbErr := im.abort(ie); rbErr != nil {
		im.log.Error("rollback failed", zap.Error(rbErr))
	}
	return ie
}

func (im *Importer) abort(ie *errors.ImportError) error {
	im.state = StateAborted
	logging.ImportFailed(im.log, ie, zap.Stringer("kind", ie.Kind), zap.Int("book", ie.Book))
	err := im.s.Undo.Rollback()
	im.result = Result{Incomplete: im.s.Undo.Incomplete()}
	im.book, im.para, im.section = nil, nil, nil
	return err
}
