package notes

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

// Tracker is told about every note the manager adds so an import can undo them.
type Tracker interface {
	TrackNote(n *scripture.Note)
}

// Annotation is one note to insert.
type Annotation struct {
	Type       string
	Begin, End bcv.Ref
	Text       string // discussion; lines become paragraphs
	Quote      string
	Categories []string
	WS         string // writing system of the discussion, defaults to the analysis WS
}

// Options configure a Manager.
type Options struct {
	Tracker Tracker
	Clock   func() time.Time
	Log     *zap.Logger
}

// Manager inserts annotations for one import session.
type Manager struct {
	scr     *scripture.Scripture
	cats    *CategoryList
	tracker Tracker
	clock   func() time.Time
	log     *zap.Logger

	inserted int
	skipped  int
}

// NewManager creates a manager over scr.
func NewManager(scr *scripture.Scripture, opts Options) *Manager {
	m := &Manager{
		scr:     scr,
		cats:    NewCategoryList(scr.Categories),
		tracker: opts.Tracker,
		clock:   opts.Clock,
		log:     opts.Log,
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// Categories returns the session's category list.
func (m *Manager) Categories() *CategoryList { return m.cats }

// Insert adds an annotation to the book of its begin reference. When an
// identical note (same references, type and discussion) already exists it is
// returned with added false.
func (m *Manager) Insert(a Annotation) (note *scripture.Note, added bool) {
	if a.End == 0 || a.End < a.Begin {
		a.End = a.Begin
	}
	ws := a.WS
	if ws == "" {
		ws = m.scr.AnalysisWS
	}
	discussion := discussionParagraphs(a.Text, ws)

	book := a.Begin.Book()
	existing := m.scr.Notes[book]
	for _, n := range existing {
		if n.Begin == a.Begin && n.End == a.End && n.Type == a.Type && sameDiscussion(n.Discussion, discussion) {
			m.skipped++
			m.log.Debug("duplicate annotation skipped", zap.Stringer("ref", a.Begin), zap.String("type", a.Type))
			return n, false
		}
	}

	note = &scripture.Note{
		ID:         uuid.New(),
		Type:       a.Type,
		Begin:      a.Begin,
		End:        a.End,
		Quote:      a.Quote,
		Discussion: discussion,
		Created:    m.clock(),
	}
	for _, c := range a.Categories {
		cat, created := m.cats.FindOrCreate(c)
		if cat == nil {
			continue
		}
		note.Categories = append(note.Categories, cat.Path())
		if created {
			m.scr.Categories = m.cats.Paths()
		}
	}

	// keep notes ordered by reference; equal references keep arrival order
	i := slices.IndexFunc(existing, func(n *scripture.Note) bool { return n.Begin > a.Begin })
	if i < 0 {
		i = len(existing)
	}
	if m.scr.Notes == nil {
		m.scr.Notes = map[int][]*scripture.Note{}
	}
	m.scr.Notes[book] = slices.Insert(existing, i, note)
	m.inserted++
	if m.tracker != nil {
		m.tracker.TrackNote(note)
	}
	return note, true
}

// Counts reports how many notes were inserted and how many were duplicates.
func (m *Manager) Counts() (inserted, skipped int) { return m.inserted, m.skipped }

func discussionParagraphs(text, ws string) []*scripture.Paragraph {
	var out []*scripture.Paragraph
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, scripture.NewParagraph(scripture.StyleRemark, tss.Plain(line, ws)))
	}
	if len(out) == 0 {
		out = append(out, scripture.NewParagraph(scripture.StyleRemark, tss.String{}))
	}
	return out
}

func sameDiscussion(a, b []*scripture.Paragraph) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Contents.Text() != b[i].Contents.Text() {
			return false
		}
	}
	return true
}

// Remove deletes a note from scr. It reports whether the note was found.
func Remove(scr *scripture.Scripture, n *scripture.Note) bool {
	book := n.Begin.Book()
	list := scr.Notes[book]
	i := slices.Index(list, n)
	if i < 0 {
		return false
	}
	scr.Notes[book] = slices.Delete(list, i, i+1)
	if len(scr.Notes[book]) == 0 {
		delete(scr.Notes, book)
	}
	return true
}
