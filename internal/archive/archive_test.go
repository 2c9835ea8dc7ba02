package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/ScriptureImport/core/bcv"
	scrierrors "github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
)

func sampleVersion() *scripture.Version {
	exo := scripture.NewBook(2)
	title := scripture.NewParagraph(scripture.StyleTitleMain, tss.Plain("Kmain Ktitle", "qaa"))
	title.SetBackTranslation("en", tss.Plain("Main Title", "en"))
	exo.Title.Add(title)
	sec := scripture.NewSection(false, bcv.New(2, 1, 1))
	sec.Content.Add(scripture.NewParagraph(scripture.StyleParagraph, tss.Plain("text", "qaa")))
	exo.Sections = append(exo.Sections, sec)

	return &scripture.Version{
		ID:          uuid.New(),
		Kind:        scripture.VersionSaved,
		Description: "Saved Version",
		Created:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Books:       []*scripture.Book{scripture.NewBook(1), exo},
	}
}

func TestWriteReadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "saved.tar.xz")
	v := sampleVersion()
	if err := WriteVersion(path, v); err != nil {
		t.Fatalf("WriteVersion: %v", err)
	}

	got, err := ReadVersion(path)
	if err != nil {
		t.Fatalf("ReadVersion: %v", err)
	}
	if got.ID != v.ID || got.Description != v.Description || !got.Created.Equal(v.Created) {
		t.Errorf("header = %+v", got)
	}
	if len(got.Books) != 2 {
		t.Fatalf("books = %d, want 2", len(got.Books))
	}
	exo := got.FindBook(2)
	if exo == nil || exo.Title.Paragraphs[0].Contents.Text() != "Kmain Ktitle" {
		t.Fatalf("EXO = %+v", exo)
	}
	if bt, _ := exo.Title.Paragraphs[0].BackTranslation("en"); bt.Text() != "Main Title" {
		t.Errorf("title BT = %q", bt.Text())
	}

	data, err := ReadFile(path, "books/002-EXO.json")
	if err != nil || len(data) == 0 {
		t.Errorf("ReadFile = %d bytes, %v", len(data), err)
	}
}

func TestWriteVersion_Deterministic(t *testing.T) {
	dir := t.TempDir()
	v := sampleVersion()
	a, b := filepath.Join(dir, "a.tar.xz"), filepath.Join(dir, "b.tar.xz")
	if err := WriteVersion(a, v); err != nil {
		t.Fatal(err)
	}
	if err := WriteVersion(b, v); err != nil {
		t.Fatal(err)
	}
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if string(da) != string(db) {
		t.Error("identical versions produced different archives")
	}
}

// writeTar writes entries to path with the given compressor.
func writeTar(t *testing.T, path string, gz bool, entries map[string][]byte, order []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	var w io.WriteCloser
	if gz {
		w = gzip.NewWriter(f)
	} else {
		xw, err := xz.NewWriter(f)
		if err != nil {
			t.Fatal(err)
		}
		w = xw
	}
	tw := tar.NewWriter(w)
	for _, name := range order {
		data := entries[name]
		if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: 0644, Size: int64(len(data))}); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("write content: %v", err)
		}
	}
	tw.Close()
	w.Close()
}

func TestReadVersion_AcceptsGzip(t *testing.T) {
	dir := t.TempDir()
	xzPath := filepath.Join(dir, "v.tar.xz")
	if err := WriteVersion(xzPath, sampleVersion()); err != nil {
		t.Fatal(err)
	}

	entries := map[string][]byte{}
	var order []string
	if err := Walk(xzPath, func(h *tar.Header, r io.Reader) (bool, error) {
		data, err := io.ReadAll(r)
		entries[h.Name] = data
		order = append(order, h.Name)
		return false, err
	}); err != nil {
		t.Fatal(err)
	}

	// the name says nothing about the compression
	gzPath := filepath.Join(dir, "v.archive")
	writeTar(t, gzPath, true, entries, order)
	v, err := ReadVersion(gzPath)
	if err != nil {
		t.Fatalf("ReadVersion(gzip): %v", err)
	}
	if len(v.Books) != 2 {
		t.Errorf("books = %d", len(v.Books))
	}
}

func TestReadVersion_DigestMismatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tar.xz")
	if err := WriteVersion(good, sampleVersion()); err != nil {
		t.Fatal(err)
	}
	manifest, err := ReadFile(good, ManifestName)
	if err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(dir, "bad.tar.xz")
	writeTar(t, bad, false, map[string][]byte{
		ManifestName:         manifest,
		"books/001-GEN.json": []byte(`{"canonical":1}`),
		"books/002-EXO.json": []byte(`{"canonical":2}`),
	}, []string{ManifestName, "books/001-GEN.json", "books/002-EXO.json"})

	_, err = ReadVersion(bad)
	if !errors.Is(err, scrierrors.ErrInvalidInput) {
		t.Errorf("ReadVersion(tampered) = %v, want validation error", err)
	}
}

func TestReadVersion_MissingManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tar.xz")
	writeTar(t, path, false, map[string][]byte{"x.txt": []byte("x")}, []string{"x.txt"})
	if _, err := ReadVersion(path); !errors.Is(err, scrierrors.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestNewReader_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tar")
	if err := os.WriteFile(path, []byte("not compressed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(path); err == nil {
		t.Error("expected error for uncompressed file")
	}
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReader_StopEarlyAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.tar.xz")
	if err := WriteVersion(path, sampleVersion()); err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	var seen int
	if err := r.Iterate(func(*tar.Header, io.Reader) (bool, error) {
		seen++
		return true, nil
	}); err != nil {
		t.Fatal(err)
	}
	if seen != 1 {
		t.Errorf("visited %d entries, want 1", seen)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
