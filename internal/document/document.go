package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// EncodingUTF8 is the only text encoding the engine accepts. Imported
// documents are validated on load; anything else is a decode failure.
const EncodingUTF8 = "utf-8"

// Document identifies one imported text in the library. Documents are
// immutable once imported: identity is the sha256 of the byte content, so
// an edited file is simply a different document on the next scan.
type Document struct {
	ID       string
	Name     string
	Path     string
	Hash     string
	Encoding string
	ByteSize int64
}

// Load reads and fingerprints the document at path. It fails if the file
// cannot be read or is not valid UTF-8.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("document %s is not valid %s", path, EncodingUTF8)
	}

	sum := sha256.Sum256(data)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return &Document{
		ID:       hex.EncodeToString(sum[:8]),
		Name:     name,
		Path:     path,
		Hash:     hex.EncodeToString(sum[:]),
		Encoding: EncodingUTF8,
		ByteSize: int64(len(data)),
	}, nil
}

// Text returns the full document text. The worker calls this once per
// processing run and holds its own read-only copy for the duration.
// If the file changed since the scan that produced this Document, the
// content no longer matches Hash and the read is rejected; the next scan
// picks the file up under its new identity.
func (d *Document) Text() (string, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", d.Path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document %s is not valid %s", d.Path, EncodingUTF8)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != d.Hash {
		return "", fmt.Errorf("document %s changed on disk since scan", d.Path)
	}
	return string(data), nil
}
