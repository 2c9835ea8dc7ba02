// Package validation checks user-supplied paths and sniffs the format of
// import source files before they are opened.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on user input.
const (
	// MaxSourceSize is the largest source file accepted (256 MB).
	MaxSourceSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrBinarySource     = errors.New("source file is not text")
)

// ValidatePath checks a path for length limits and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks a bare file name such as an archive export name.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// SourceFormat is the syntax of an import source file.
type SourceFormat string

const (
	FormatStandard SourceFormat = "sf"
	FormatOXES     SourceFormat = "oxes"
	FormatUnknown  SourceFormat = "unknown"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectSourceFormat reads the head of a source file and decides whether it
// is standard-format text or OXES XML. The content wins over the extension;
// the extension only settles files whose content is inconclusive.
func DetectSourceFormat(r io.Reader, filename string) (SourceFormat, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = bytes.TrimPrefix(buf[:n], utf8BOM)
	if len(buf) > 0 && !isLikelyText(buf) {
		return FormatUnknown, fmt.Errorf("%w: %s", ErrBinarySource, filename)
	}

	head := bytes.TrimLeftFunc(buf, unicode.IsSpace)
	switch {
	case bytes.HasPrefix(head, []byte("<?xml")), bytes.HasPrefix(head, []byte("<oxes")):
		return FormatOXES, nil
	case bytes.HasPrefix(head, []byte(`\`)):
		return FormatStandard, nil
	}
	return formatFromExtension(filename), nil
}

func formatFromExtension(filename string) SourceFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml", ".oxes":
		return FormatOXES
	case ".sf", ".sfm", ".usfm", ".ptx", ".txt", ".db":
		return FormatStandard
	}
	return FormatUnknown
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text.
func isLikelyText(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}
	printable, control := 0, 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 lead and continuation bytes are neutral
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
