package localfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const DefaultMaxBytes int64 = 50 << 20

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain; charset=utf-8",
}

// Previewer renders the first page of a saved document.
type Previewer interface {
	Preview(ctx context.Context, path string) (string, error)
}

// Storage implements ports.DocumentStore on the local filesystem.
type Storage struct {
	basePath  string
	maxBytes  int64
	previewer Previewer
	logger    *slog.Logger
}

func New(basePath string, maxBytes int64, previewer Previewer, logger *slog.Logger) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/claims"
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath:  basePath,
		maxBytes:  maxBytes,
		previewer: previewer,
		logger:    logger,
	}, nil
}

func (s *Storage) Save(ctx context.Context, upload domain.Upload) (domain.StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredDocument{}, err
	}
	if strings.TrimSpace(upload.Filename) == "" {
		return domain.StoredDocument{}, domain.WrapError(domain.ErrInvalidInput, "save document", errors.New("filename is required"))
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return domain.StoredDocument{}, domain.WrapError(domain.ErrUnsupportedDocument, "save document", fmt.Errorf("extension %q is not accepted", ext))
	}
	if len(upload.Data) == 0 {
		return domain.StoredDocument{}, domain.WrapError(domain.ErrInvalidInput, "save document", fmt.Errorf("%s is empty", upload.Filename))
	}
	if int64(len(upload.Data)) > s.maxBytes {
		return domain.StoredDocument{}, domain.WrapError(domain.ErrDocumentTooLarge, "save document", fmt.Errorf("%s is %d bytes, limit %d", upload.Filename, len(upload.Data), s.maxBytes))
	}
	if upload.ContentType != "" && upload.ContentType != "application/octet-stream" {
		contentType = upload.ContentType
	} else if sniffed := http.DetectContentType(upload.Data); sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/") {
		contentType = sniffed
	}

	key := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(upload.Filename))
	path := filepath.Join(s.basePath, key)
	if err := os.WriteFile(path, upload.Data, 0o644); err != nil {
		return domain.StoredDocument{}, fmt.Errorf("write file: %w", err)
	}

	sum := sha256.Sum256(upload.Data)
	doc := domain.StoredDocument{
		Path:        path,
		Filename:    upload.Filename,
		ContentType: contentType,
		SHA256:      hex.EncodeToString(sum[:]),
		Size:        int64(len(upload.Data)),
	}

	if s.previewer != nil {
		preview, err := s.previewer.Preview(ctx, path)
		if err != nil {
			s.logger.Warn("storage.preview_failed", "filename", upload.Filename, "error", err)
		}
		doc.ContentPreview = preview
	}
	return doc, nil
}

// Allowed reports whether filename has an accepted extension.
func Allowed(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.bin"
	}
	return base
}
