// Package store persists a project in a SQLite database: its books,
// annotations, archived versions and named import settings.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/sqlite"
	"github.com/FocuswithJustin/ScriptureImport/internal/settings"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE books (
		canonical INTEGER PRIMARY KEY,
		code      TEXT NOT NULL,
		id        TEXT NOT NULL,
		data      TEXT NOT NULL
	);
	CREATE TABLE notes (
		id        TEXT PRIMARY KEY,
		book      INTEGER NOT NULL,
		begin_ref INTEGER NOT NULL,
		seq       INTEGER NOT NULL,
		data      TEXT NOT NULL
	);
	CREATE INDEX notes_book ON notes(book, seq);
	CREATE TABLE versions (
		id          TEXT PRIMARY KEY,
		seq         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		description TEXT NOT NULL,
		created     TEXT NOT NULL
	);
	CREATE TABLE version_books (
		version_id TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		canonical  INTEGER NOT NULL,
		data       TEXT NOT NULL,
		PRIMARY KEY (version_id, canonical)
	);`,
	`CREATE TABLE settings (
		name    TEXT PRIMARY KEY,
		yaml    TEXT NOT NULL,
		updated TEXT NOT NULL
	);`,
}

// Store is an open project database.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
	now  func() time.Time
}

// Open opens or creates the database at path and brings its schema up to date.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path, log: log, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	_, err := s.db.Exec(`PRAGMA optimize`)
	return multierr.Append(err, s.db.Close())
}

// SchemaVersion returns the number of migrations applied.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v)
	return v, err
}

func (s *Store) migrate(ctx context.Context) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "read schema version")
	}
	for i := current; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return multierr.Append(errors.Wrapf(err, "migration %d", i+1), tx.Rollback())
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return multierr.Append(err, tx.Rollback())
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.log.Debug("applied migration", zap.Int("version", i+1), zap.String("db", s.path))
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	return tx.Commit()
}

type projectMeta struct {
	VernacularWS string                    `json:"vernacular_ws"`
	AnalysisWS   string                    `json:"analysis_ws"`
	Footnotes    scripture.FootnoteMarkers `json:"footnotes"`
	Categories   []string                  `json:"categories,omitempty"`
}

// SaveScripture replaces the stored project with scr.
func (s *Store) SaveScripture(ctx context.Context, scr *scripture.Scripture) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"books", "notes", "versions"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return err
			}
		}
		meta, err := json.Marshal(projectMeta{
			VernacularWS: scr.VernacularWS,
			AnalysisWS:   scr.AnalysisWS,
			Footnotes:    scr.Footnotes,
			Categories:   scr.Categories,
		})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES ('project', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, string(meta)); err != nil {
			return err
		}

		for _, b := range scr.Books {
			data, err := json.Marshal(b)
			if err != nil {
				return errors.Wrapf(err, "encode %s", b.BestAbbrev())
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO books (canonical, code, id, data) VALUES (?, ?, ?, ?)`,
				b.Canonical, b.BestAbbrev(), b.ID.String(), string(data)); err != nil {
				return err
			}
		}
		for book, list := range scr.Notes {
			for i, n := range list {
				data, err := json.Marshal(n)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO notes (id, book, begin_ref, seq, data) VALUES (?, ?, ?, ?, ?)`,
					n.ID.String(), book, int(n.Begin), i, string(data)); err != nil {
					return err
				}
			}
		}
		for i, v := range scr.Versions {
			if err := insertVersion(ctx, tx, i, v); err != nil {
				return err
			}
		}
		s.log.Info("project saved", zap.Int("books", len(scr.Books)), zap.Int("versions", len(scr.Versions)))
		return nil
	})
}

func insertVersion(ctx context.Context, tx *sql.Tx, seq int, v *scripture.Version) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO versions (id, seq, kind, description, created) VALUES (?, ?, ?, ?, ?)`,
		v.ID.String(), seq, string(v.Kind), v.Description, v.Created.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	for _, b := range v.Books {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO version_books (version_id, canonical, data) VALUES (?, ?, ?)`,
			v.ID.String(), b.Canonical, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// LoadScripture reads the stored project. A database that was never saved
// yields a NotFoundError.
func (s *Store) LoadScripture(ctx context.Context) (*scripture.Scripture, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'project'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "project", ID: s.path}
	}
	if err != nil {
		return nil, err
	}
	var meta projectMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, errors.NewParse("project", s.path, err.Error())
	}
	scr := scripture.New(meta.VernacularWS, meta.AnalysisWS)
	scr.Footnotes = meta.Footnotes
	scr.Categories = meta.Categories

	if err := eachJSON(ctx, s.db, `SELECT data FROM books ORDER BY canonical`, nil, func() any {
		b := &scripture.Book{}
		scr.Books = append(scr.Books, b)
		return b
	}); err != nil {
		return nil, errors.Wrap(err, "load books")
	}
	if err := eachJSON(ctx, s.db, `SELECT data FROM notes ORDER BY book, seq`, nil, func() any {
		return &noteSink{scr: scr}
	}); err != nil {
		return nil, errors.Wrap(err, "load notes")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, description, created FROM versions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, kind, desc, created string
		if err := rows.Scan(&id, &kind, &desc, &created); err != nil {
			return nil, err
		}
		v := &scripture.Version{Kind: scripture.VersionKind(kind), Description: desc}
		if err := v.ID.UnmarshalText([]byte(id)); err != nil {
			return nil, err
		}
		if v.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		scr.Versions = append(scr.Versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range scr.Versions {
		if err := eachJSON(ctx, s.db, `SELECT data FROM version_books WHERE version_id = ? ORDER BY canonical`,
			[]any{v.ID.String()}, func() any {
				b := &scripture.Book{}
				v.Books = append(v.Books, b)
				return b
			}); err != nil {
			return nil, errors.Wrapf(err, "load version %s", v.ID)
		}
	}
	return scr, nil
}

// noteSink decodes a note and files it under its book.
type noteSink struct{ scr *scripture.Scripture }

func (n *noteSink) UnmarshalJSON(data []byte) error {
	note := &scripture.Note{}
	if err := json.Unmarshal(data, note); err != nil {
		return err
	}
	n.scr.AddNote(note)
	return nil
}

// eachJSON decodes the single data column of every row into a fresh value.
func eachJSON(ctx context.Context, db *sql.DB, query string, args []any, next func() any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(data), next()); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveSettings stores named import settings.
func (s *Store) SaveSettings(ctx context.Context, name string, st *settings.Settings) error {
	data, err := st.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (name, yaml, updated) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET yaml = excluded.yaml, updated = excluded.updated`,
		name, string(data), s.now().UTC().Format(time.RFC3339))
	return err
}

// LoadSettings reads named import settings.
func (s *Store) LoadSettings(ctx context.Context, name string) (*settings.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT yaml FROM settings WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("settings", name)
	}
	if err != nil {
		return nil, err
	}
	return settings.Parse([]byte(data))
}
