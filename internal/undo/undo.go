// Package undo makes one import a single undoable unit. It snapshots books
// before they are replaced or given new back translations, and at the end
// either commits the import (archiving the replaced originals as a saved
// version) or rolls everything back.
package undo

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/internal/notes"
)

// SavedVersionDescription names the version holding replaced originals.
const SavedVersionDescription = "Saved Version"

// Clock supplies timestamps for archived versions.
type Clock func() time.Time

// State is the lifecycle of a Manager.
type State int

const (
	Open State = iota
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	}
	return "open"
}

// ErrClosed is returned when a finished session is used again.
var ErrClosed = fmt.Errorf("import session already finished: %w", errors.ErrInvalidInput)

// Options configure a Manager.
type Options struct {
	Clock Clock
	Log   *zap.Logger
}

// Manager tracks everything an import changes in a Scripture.
type Manager struct {
	scr   *scripture.Scripture
	clock Clock
	log   *zap.Logger
	state State

	// pristine holds the book to put back on rollback; nil for books the
	// session created.
	pristine map[int]*scripture.Book
	order    []int
	backup   *scripture.Version
	imported []int
	notes    []*scripture.Note
	cats     []string
	firstRef bcv.Ref
}

// New starts an import session over scr.
func New(scr *scripture.Scripture, opts Options) *Manager {
	m := &Manager{
		scr:      scr,
		clock:    opts.Clock,
		log:      opts.Log,
		pristine: map[int]*scripture.Book{},
		cats:     slices.Clone(scr.Categories),
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// State returns the session state.
func (m *Manager) State() State { return m.state }

func (m *Manager) tracked(canonical int) bool {
	_, ok := m.pristine[canonical]
	return ok
}

func (m *Manager) track(canonical int, b *scripture.Book) {
	m.pristine[canonical] = b
	m.order = append(m.order, canonical)
}

func (m *Manager) ensureBackup() *scripture.Version {
	if m.backup == nil {
		m.backup = &scripture.Version{
			ID:          uuid.New(),
			Kind:        scripture.VersionSaved,
			Description: SavedVersionDescription,
			Created:     m.clock(),
		}
		m.scr.AddVersion(m.backup)
	}
	return m.backup
}

func (m *Manager) addBackupCopy(b *scripture.Book) *scripture.Book {
	v := m.ensureBackup()
	c := b.Clone()
	i, _ := slices.BinarySearchFunc(v.Books, c.Canonical, func(e *scripture.Book, n int) int { return e.Canonical - n })
	v.Books = slices.Insert(v.Books, i, c)
	return c
}

// CreateBook installs a new empty working book for canonical. An existing
// book is snapshotted first; existed reports whether there was one.
func (m *Manager) CreateBook(canonical int) (book *scripture.Book, existed bool, err error) {
	if m.state != Open {
		return nil, false, ErrClosed
	}
	if bcv.BookCode(canonical) == "" {
		return nil, false, errors.NewValidation("book", fmt.Sprintf("invalid canonical number %d", canonical))
	}
	old := m.scr.FindBook(canonical)
	existed = old != nil
	if !m.tracked(canonical) {
		if existed {
			// the replaced original is never mutated again
			m.addBackupCopy(old)
		}
		m.track(canonical, old)
	}
	book = scripture.NewBook(canonical)
	m.scr.InsertBook(book)
	return book, existed, nil
}

// SnapshotBook archives a copy of an existing book so it can be restored.
// Snapshotting the same book twice returns the first copy.
func (m *Manager) SnapshotBook(canonical int) (*scripture.Book, error) {
	if m.state != Open {
		return nil, ErrClosed
	}
	if m.tracked(canonical) {
		if m.backup != nil {
			if c := m.backup.FindBook(canonical); c != nil {
				return c, nil
			}
		}
		return nil, nil
	}
	b := m.scr.FindBook(canonical)
	if b == nil {
		return nil, errors.NewNotFound("book", bcv.BookCode(canonical))
	}
	c := m.addBackupCopy(b)
	m.track(canonical, c.Clone())
	return c, nil
}

// BookForBackTranslation returns the existing vernacular book that a back
// translation will be attached to, snapshotting it before any change.
func (m *Manager) BookForBackTranslation(canonical int) (*scripture.Book, error) {
	if m.state != Open {
		return nil, ErrClosed
	}
	b := m.scr.FindBook(canonical)
	if b == nil {
		ie := errors.NewImport(errors.KindBackTransMissingVernBook, `\id`, bcv.BookCode(canonical))
		ie.Book = canonical
		return nil, ie
	}
	if _, err := m.SnapshotBook(canonical); err != nil {
		return nil, err
	}
	return b, nil
}

// FinishBook records that a book was imported completely.
func (m *Manager) FinishBook(b *scripture.Book) {
	if !slices.Contains(m.imported, b.Canonical) {
		m.imported = append(m.imported, b.Canonical)
	}
	m.log.Debug("book finished", zap.String("book", b.BestAbbrev()), zap.Int("sections", len(b.Sections)))
}

// TrackNote records a note added by the import.
func (m *Manager) TrackNote(n *scripture.Note) { m.notes = append(m.notes, n) }

// NoteRef records r as the first imported reference if none is set yet.
// Book-level references without a chapter are ignored.
func (m *Manager) NoteRef(r bcv.Ref) {
	if m.firstRef == 0 && r.IsValid() && r.Chapter() > 0 {
		m.firstRef = r
	}
}

// FirstImportedRef returns the first reference imported, or 0.
func (m *Manager) FirstImportedRef() bcv.Ref { return m.firstRef }

// Imported returns the canonical numbers of finished books in import order.
func (m *Manager) Imported() []int { return slices.Clone(m.imported) }

// Incomplete returns the books touched by the import that never finished.
func (m *Manager) Incomplete() []int {
	var out []int
	for _, n := range m.order {
		if !slices.Contains(m.imported, n) {
			out = append(out, n)
		}
	}
	return out
}

// Backup returns the saved version, or nil when nothing was replaced.
func (m *Manager) Backup() *scripture.Version { return m.backup }

// Commit accepts the import. The saved version is kept when it holds any
// book; a version recording the imported books is added and returned.
// Committing twice is a no-op.
func (m *Manager) Commit(description string) (*scripture.Version, error) {
	switch m.state {
	case Committed:
		return nil, nil
	case RolledBack:
		return nil, ErrClosed
	}
	m.state = Committed
	m.pruneBackup()

	if len(m.imported) == 0 {
		return nil, nil
	}
	v := &scripture.Version{
		ID:          uuid.New(),
		Kind:        scripture.VersionImported,
		Description: description,
		Created:     m.clock(),
	}
	for _, n := range m.imported {
		if b := m.scr.FindBook(n); b != nil {
			v.Books = append(v.Books, b.Clone())
		}
	}
	slices.SortFunc(v.Books, func(a, b *scripture.Book) int { return a.Canonical - b.Canonical })
	m.scr.AddVersion(v)
	m.log.Info("import committed", zap.Ints("books", m.imported), zap.Bool("saved_version", m.backup != nil))
	return v, nil
}

// Rollback undoes the import: replaced and modified books are restored,
// created books and notes removed, categories reset and the saved version
// pruned. Rolling back twice is a no-op.
func (m *Manager) Rollback() error {
	switch m.state {
	case RolledBack:
		return nil
	case Committed:
		return ErrClosed
	}
	m.state = RolledBack

	for _, n := range m.order {
		orig := m.pristine[n]
		if orig == nil {
			m.scr.RemoveBook(n)
		} else {
			m.scr.InsertBook(orig)
		}
		if m.backup != nil {
			m.backup.Books = slices.DeleteFunc(m.backup.Books, func(b *scripture.Book) bool { return b.Canonical == n })
		}
	}
	for _, n := range m.notes {
		notes.Remove(m.scr, n)
	}
	m.scr.Categories = m.cats
	m.pruneBackup()
	m.imported = nil
	m.log.Info("import rolled back", zap.Ints("books", m.order))
	return nil
}

func (m *Manager) pruneBackup() {
	if m.backup != nil && len(m.backup.Books) == 0 {
		m.scr.RemoveVersion(m.backup.ID)
		m.backup = nil
	}
}
