package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"microcredit-backend/internal/domain/document"
	"microcredit-backend/pkg/id"
)

// Local stores uploads on the filesystem under root/<requestID>/. Filenames
// are generated ids so an uploaded name can never traverse outside root.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Store(ctx context.Context, requestID, docType, filename string, data []byte) (document.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return document.StoredFile{}, err
	}

	dir := filepath.Join(l.root, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return document.StoredFile{}, fmt.Errorf("storage: create dir: %w", err)
	}

	ext := filepath.Ext(filename)
	name := fmt.Sprintf("%s_%s%s", docType, id.NewID32(), ext)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return document.StoredFile{}, fmt.Errorf("storage: write: %w", err)
	}

	sum := sha256.Sum256(data)
	return document.StoredFile{
		Path:     path,
		Checksum: hex.EncodeToString(sum[:]),
		Size:     int64(len(data)),
	}, nil
}

func (l *Local) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// refuse paths outside the storage root
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(l.root)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 1 && rel[:2] == ".." {
		return fmt.Errorf("storage: path %q outside root", path)
	}
	err = os.Remove(abs)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
