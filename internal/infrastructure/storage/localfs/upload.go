package localfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

// ReadUploads loads local files as claim uploads for the CLI and tool surfaces.
func ReadUploads(paths []string, maxBytes int64) ([]domain.Upload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	uploads := make([]domain.Upload, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
		}
		if info.IsDir() {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("%s is a directory", path))
		}
		if info.Size() > maxBytes {
			return nil, domain.WrapError(domain.ErrDocumentTooLarge, "read upload", fmt.Errorf("%s is %d bytes, limit %d", path, info.Size(), maxBytes))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		uploads = append(uploads, domain.Upload{Filename: filepath.Base(path), Data: data})
	}
	return uploads, nil
}
