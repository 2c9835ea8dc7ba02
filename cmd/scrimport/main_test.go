package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/FocuswithJustin/ScriptureImport/core/cas"
	"github.com/FocuswithJustin/ScriptureImport/internal/logging"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// setupCLI points the global flags at a fresh database and captures output.
func setupCLI(t *testing.T) (dir string, out *bytes.Buffer) {
	t.Helper()
	dir = t.TempDir()
	out = &bytes.Buffer{}
	oldDB, oldOut := CLI.DB, stdout
	CLI.DB = filepath.Join(dir, "project.db")
	stdout = out
	t.Cleanup(func() { CLI.DB, stdout = oldDB, oldOut })
	return dir, out
}

func newImportCmd(sources ...string) *ImportCmd {
	return &ImportCmd{Sources: sources, Domain: "main", Name: "default", Save: true, Description: "Imported"}
}

const exodus = `\id EXO
\h Exodus
\mt Exodus
\btmt Exodus BT
\c 1
\p
\v 1 These are the names
\btp
\btv 1 BT names
`

func TestImportCmd(t *testing.T) {
	dir, out := setupCLI(t)
	ctx := context.Background()
	src := createTestFile(t, dir, "exo.sfm", exodus)

	if err := newImportCmd(src).Run(ctx); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 1 book(s): EXO") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := (&BooksListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "EXO") {
		t.Errorf("books list = %q", out.String())
	}

	out.Reset()
	if err := (&BooksShowCmd{Book: "EXO", WS: "en"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[Title Main] Exodus", "en: Exodus BT", "These are the names", "BT names"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("books show missing %q:\n%s", want, out.String())
		}
	}
}

func TestImportCmd_ReimportWritesBackupArchive(t *testing.T) {
	dir, out := setupCLI(t)
	ctx := context.Background()
	src := createTestFile(t, dir, "exo.sfm", exodus)
	if err := newImportCmd(src).Run(ctx); err != nil {
		t.Fatal(err)
	}

	backup := filepath.Join(dir, "saved.tar.xz")
	cmd := newImportCmd(src)
	cmd.BackupArchive = backup
	if err := cmd.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup archive: %v", err)
	}

	out.Reset()
	if err := (&VersionsInspectCmd{Path: backup}).Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "EXO") {
		t.Errorf("inspect = %q", out.String())
	}

	out.Reset()
	if err := (&VersionsListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("versions = %d, want 3 (two imports and one saved):\n%s", len(lines), out.String())
	}

	id := strings.Fields(lines[0])[0]
	exported := filepath.Join(dir, "export.tar.xz")
	if err := (&VersionsExportCmd{ID: id, Out: exported}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(exported); err != nil {
		t.Errorf("export: %v", err)
	}
}

func TestImportCmd_SourceStore(t *testing.T) {
	dir, out := setupCLI(t)
	src := createTestFile(t, dir, "exo.sfm", exodus)
	cmd := newImportCmd(src)
	cmd.SourceStore = filepath.Join(dir, "sources")
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	sum := cas.Hash([]byte(exodus))
	if !strings.Contains(out.String(), "Source exo.sfm: sha256 "+sum) {
		t.Errorf("output = %q", out.String())
	}
	cs, err := cas.NewStore(cmd.SourceStore)
	if err != nil {
		t.Fatal(err)
	}
	if !cs.Exists(sum) {
		t.Error("source not kept")
	}
}

func TestImportCmd_LogsSessionID(t *testing.T) {
	dir, _ := setupCLI(t)
	core, logs := observer.New(zapcore.DebugLevel)
	old := logging.GetLogger()
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(old) })

	src := createTestFile(t, dir, "exo.sfm", exodus)
	if err := newImportCmd(src).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	started := logs.FilterMessage("book_started").All()
	if len(started) == 0 {
		t.Fatal("book_started not logged")
	}
	id, _ := started[0].ContextMap()["session_id"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("session_id = %q, want a uuid", id)
	}
	if logs.FilterMessage("import committed").FilterField(zap.String("session_id", id)).Len() != 1 {
		t.Error("import committed not logged with the session id")
	}
}

func TestVersionsExportCmd_RejectsArchiveName(t *testing.T) {
	dir, _ := setupCLI(t)
	cmd := &VersionsExportCmd{ID: uuid.NewString(), Out: filepath.Join(dir, "-export.tar.xz")}
	err := cmd.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid archive name") {
		t.Fatalf("err = %v, want invalid archive name", err)
	}
}

func TestImportCmd_FailureLeavesProjectUnchanged(t *testing.T) {
	dir, _ := setupCLI(t)
	ctx := context.Background()
	good := createTestFile(t, dir, "exo.sfm", exodus)
	if err := newImportCmd(good).Run(ctx); err != nil {
		t.Fatal(err)
	}
	bad := createTestFile(t, dir, "bad.sfm", "\\id EXO\n\\p\n\\v 1 New text\n\\btq mismatch\n")
	if err := newImportCmd(bad).Run(ctx); err == nil {
		t.Fatal("import with mismatched back translation succeeded")
	}

	_, out := setupCLI(t)
	CLI.DB = filepath.Join(dir, "project.db")
	if err := (&BooksShowCmd{Book: "EXO"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "New text") {
		t.Errorf("failed import was saved:\n%s", out.String())
	}
}

func TestSettingsCommands(t *testing.T) {
	dir, out := setupCLI(t)
	ctx := context.Background()

	if err := (&SettingsSetRangeCmd{Start: "EXO 3:4", End: "RUT 2:1", Name: "default"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "Range: EXO 1:1 - RUT 1:1" {
		t.Errorf("set-range = %q", got)
	}

	yml := createTestFile(t, dir, "settings.yaml", "import_annotations: false\nvernacular_ws: fr\n")
	if err := (&SettingsLoadCmd{Path: yml, Name: "other"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := (&SettingsShowCmd{Name: "other"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "vernacular_ws: fr") {
		t.Errorf("settings show = %q", out.String())
	}
}

func TestVersionCmd(t *testing.T) {
	_, out := setupCLI(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), version) {
		t.Errorf("version output = %q", out.String())
	}
}
