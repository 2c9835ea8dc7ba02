package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
	"go.uber.org/multierr"

	"github.com/FocuswithJustin/ScriptureImport/core/errors"
	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
)

// FormatVersion is written to every manifest.
const FormatVersion = 1

// ManifestName is the archive entry holding the manifest.
const ManifestName = "manifest.json"

// Manifest describes an archived version.
type Manifest struct {
	Format      int                   `json:"format"`
	ID          uuid.UUID             `json:"id"`
	Kind        scripture.VersionKind `json:"kind"`
	Description string                `json:"description"`
	Created     time.Time             `json:"created"`
	Books       []BookEntry           `json:"books"`
}

// BookEntry locates and fingerprints one book in the archive.
type BookEntry struct {
	Canonical int    `json:"canonical"`
	Code      string `json:"code"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SHA256    string `json:"sha256"`
	BLAKE3    string `json:"blake3"`
}

// Digests returns the hex SHA-256 and BLAKE3 digests of data.
func Digests(data []byte) (sha, b3 string) {
	s := sha256.Sum256(data)
	b := blake3.Sum256(data)
	return hex.EncodeToString(s[:]), hex.EncodeToString(b[:])
}

func bookPath(b *scripture.Book) string {
	return fmt.Sprintf("books/%03d-%s.json", b.Canonical, b.BestAbbrev())
}

// WriteVersion writes v to path as a tar.xz archive holding the manifest
// followed by one JSON file per book.
func WriteVersion(path string, v *scripture.Version) (err error) {
	m := Manifest{
		Format:      FormatVersion,
		ID:          v.ID,
		Kind:        v.Kind,
		Description: v.Description,
		Created:     v.Created,
	}
	bodies := make([][]byte, len(v.Books))
	for i, b := range v.Books {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode %s: %w", b.BestAbbrev(), err)
		}
		sha, b3 := Digests(data)
		m.Books = append(m.Books, BookEntry{
			Canonical: b.Canonical,
			Code:      b.BestAbbrev(),
			Path:      bookPath(b),
			Size:      int64(len(data)),
			SHA256:    sha,
			BLAKE3:    b3,
		})
		bodies[i] = data
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return fmt.Errorf("xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	// timestamps come from the version so identical versions archive identically
	write := func(name string, data []byte) error {
		if err := tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0644,
			Size:     int64(len(data)),
			ModTime:  v.Created,
		}); err != nil {
			return err
		}
		_, err := tw.Write(data)
		return err
	}
	if err := write(ManifestName, manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	for i, e := range m.Books {
		if err := write(e.Path, bodies[i]); err != nil {
			return fmt.Errorf("write %s: %w", e.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("close xz: %w", err)
	}
	return nil
}

// ReadVersion reads an archived version and verifies every book against
// both manifest digests.
func ReadVersion(path string) (*scripture.Version, error) {
	var manifest *Manifest
	files := map[string][]byte{}
	err := Walk(path, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg {
			return false, nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return true, err
		}
		if h.Name == ManifestName {
			manifest = &Manifest{}
			if err := json.Unmarshal(data, manifest); err != nil {
				return true, errors.NewParse("manifest", path, err.Error())
			}
			return false, nil
		}
		files[h.Name] = data
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, errors.NewNotFound("manifest", path)
	}
	if manifest.Format != FormatVersion {
		return nil, errors.NewValidation("format", fmt.Sprintf("unsupported archive format %d", manifest.Format))
	}

	v := &scripture.Version{
		ID:          manifest.ID,
		Kind:        manifest.Kind,
		Description: manifest.Description,
		Created:     manifest.Created,
	}
	for _, e := range manifest.Books {
		data, ok := files[e.Path]
		if !ok {
			return nil, errors.NewNotFound("book", e.Path)
		}
		sha, b3 := Digests(data)
		if sha != e.SHA256 {
			return nil, errors.NewValidation(e.Path, "sha256 digest mismatch")
		}
		if b3 != e.BLAKE3 {
			return nil, errors.NewValidation(e.Path, "blake3 digest mismatch")
		}
		var b scripture.Book
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, errors.NewParse("book", e.Path, err.Error())
		}
		v.Books = append(v.Books, &b)
	}
	return v, nil
}
