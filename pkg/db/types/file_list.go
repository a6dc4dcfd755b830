package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// FileDescriptor describes one uploaded file attached to an order. The list
// is stored inline with the order row; descriptors are not independently
// addressable.
type FileDescriptor struct {
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type"`
	Pages      int    `json:"pages"`
}

// Validate rejects descriptors that should never reach the store.
func (f FileDescriptor) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("file descriptor: name is required")
	}
	if strings.TrimSpace(f.StorageKey) == "" {
		return fmt.Errorf("file descriptor %q: storage key is required", f.Name)
	}
	if f.Size < 0 {
		return fmt.Errorf("file descriptor %q: negative size", f.Name)
	}
	if f.Pages <= 0 {
		return fmt.Errorf("file descriptor %q: pages must be positive", f.Name)
	}
	return nil
}

// FileList is the ordered, order-preserving collection of file descriptors on
// an order. It round-trips through a JSONB column and is validated on every
// read so a hand-edited row cannot smuggle malformed descriptors into the
// mutation logic.
type FileList []FileDescriptor

func (l *FileList) Scan(src any) error {
	if src == nil {
		*l = FileList{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("FileList: unsupported Scan type %T", src)
	}

	if len(raw) == 0 {
		*l = FileList{}
		return nil
	}

	var out []FileDescriptor
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("FileList: decode: %w", err)
	}
	for _, f := range out {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("FileList: %w", err)
		}
	}
	*l = FileList(out)
	return nil
}

func (l FileList) Value() (driver.Value, error) {
	if l == nil {
		l = FileList{}
	}
	for _, f := range l {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("FileList: %w", err)
		}
	}
	raw, err := json.Marshal([]FileDescriptor(l))
	if err != nil {
		return nil, fmt.Errorf("FileList: encode: %w", err)
	}
	return string(raw), nil
}

// TotalPages sums the per-file page counts.
func (l FileList) TotalPages() int {
	total := 0
	for _, f := range l {
		total += f.Pages
	}
	return total
}

// IndexByName returns the position of the named file, or -1.
func (l FileList) IndexByName(name string) int {
	for i, f := range l {
		if f.Name == name {
			return i
		}
	}
	return -1
}
