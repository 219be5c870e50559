package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// FileRef points at an externally stored file. The engine never reads file
// bytes; it only carries the metadata the object store reported at upload.
type FileRef struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	SizeByte int64  `json:"size_bytes"`
	MimeType string `json:"mime_type"`
	Position int    `json:"position"`
}

// Validate reports whether the reference carries the minimum metadata.
func (f FileRef) Validate() bool {
	return strings.TrimSpace(f.URL) != "" && strings.TrimSpace(f.Name) != ""
}

// FileRefs is an ordered list of file references persisted as JSONB.
type FileRefs []FileRef

// Value serializes the file list to JSON.
func (f FileRefs) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan decodes JSONB into the file list.
func (f *FileRefs) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded FileRefs
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*f = decoded
	return nil
}

// Clone returns an independent copy, used when an approval is copied to a
// sibling variant or package.
func (f FileRefs) Clone() FileRefs {
	if f == nil {
		return nil
	}
	out := make(FileRefs, len(f))
	copy(out, f)
	return out
}
