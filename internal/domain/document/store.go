package document

import "context"

// StoredFile describes where a stored upload landed and how to verify it.
type StoredFile struct {
	Path     string
	Checksum string
	Size     int64
}

// Store persists raw document bytes. Size and MIME validation happen in the
// request usecase before Store is called, not here.
type Store interface {
	Store(ctx context.Context, requestID, docType, filename string, data []byte) (StoredFile, error)
	Remove(ctx context.Context, path string) error
}
