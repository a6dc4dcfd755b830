package uploads

import "io"

// FilePart is one file from a multipart upload request.
type FilePart struct {
	Name    string
	Size    int64
	Content io.Reader
}

// StoredFile is returned to the client after intake. The client echoes the
// name and storage key back when it creates the order, together with the page
// count it computed locally.
type StoredFile struct {
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type"`
	URL        string `json:"url"`
}
