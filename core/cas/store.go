// Package cas keeps copies of imported source files addressed by content.
// Files are stored under their SHA-256 digest; a BLAKE3 pointer maps the
// faster digest to the stored blob.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zeebo/blake3"
)

// ErrBlobNotFound is returned when no blob has the given digest.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a digest is not 64 lowercase hex digits.
var ErrInvalidHash = errors.New("invalid hash format")

var hexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Digest identifies one stored source file.
type Digest struct {
	Name   string `json:"name,omitempty"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Store is a directory of content-addressed source blobs.
type Store struct {
	root string
}

// NewStore opens the store at root, creating its layout if needed.
func NewStore(root string) (*Store, error) {
	for _, d := range []string{"sha256", "blake3"} {
		if err := os.MkdirAll(filepath.Join(root, "blobs", d), 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// Put stores data and returns its digests. Storing the same bytes twice
// is a no-op.
func (s *Store) Put(data []byte) (*Digest, error) {
	d := &Digest{Size: int64(len(data)), SHA256: Hash(data), BLAKE3: Blake3Hash(data)}
	if err := writeOnce(s.blobPath(d.SHA256), data); err != nil {
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	ptr, err := json.Marshal(struct {
		SHA256 string `json:"sha256"`
	}{d.SHA256})
	if err != nil {
		return nil, err
	}
	if err := writeOnce(s.pointerPath(d.BLAKE3), ptr); err != nil {
		return nil, fmt.Errorf("failed to write pointer: %w", err)
	}
	return d, nil
}

// PutFile stores the contents of path. The digest is named after the file.
func (s *Store) PutFile(path string) (*Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := s.Put(data)
	if err != nil {
		return nil, err
	}
	d.Name = filepath.Base(path)
	return d, nil
}

// Get returns the blob with the given SHA-256 digest.
func (s *Store) Get(sha string) ([]byte, error) {
	if !hexPattern.MatchString(sha) {
		return nil, ErrInvalidHash
	}
	data, err := os.ReadFile(s.blobPath(sha))
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

// GetByBlake3 resolves a BLAKE3 digest through its pointer and returns the blob.
func (s *Store) GetByBlake3(b3 string) ([]byte, error) {
	if !hexPattern.MatchString(b3) {
		return nil, ErrInvalidHash
	}
	raw, err := os.ReadFile(s.pointerPath(b3))
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	var ptr struct {
		SHA256 string `json:"sha256"`
	}
	if err := json.Unmarshal(raw, &ptr); err != nil {
		return nil, fmt.Errorf("failed to parse pointer: %w", err)
	}
	return s.Get(ptr.SHA256)
}

// Exists reports whether a blob with the SHA-256 digest is stored.
func (s *Store) Exists(sha string) bool {
	if !hexPattern.MatchString(sha) {
		return false
	}
	_, err := os.Stat(s.blobPath(sha))
	return err == nil
}

// Blobs are stored at <root>/blobs/sha256/<first2>/<hash>.
func (s *Store) blobPath(sha string) string {
	return filepath.Join(s.root, "blobs", "sha256", sha[:2], sha)
}

func (s *Store) pointerPath(b3 string) string {
	return filepath.Join(s.root, "blobs", "blake3", b3[:2], b3+".json")
}

// writeOnce writes data to path through a temp file unless path exists.
func writeOnce(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Hash returns the SHA-256 hex digest of data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3Hash returns the BLAKE3 hex digest of data.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
