package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

func TestReadUploadsKeepsOrderAndBaseNames(t *testing.T) {
	dir := t.TempDir()
	bill := filepath.Join(dir, "bill.txt")
	discharge := filepath.Join(dir, "discharge.txt")
	if err := os.WriteFile(bill, []byte("TOTAL 10"), 0o600); err != nil {
		t.Fatalf("write bill: %v", err)
	}
	if err := os.WriteFile(discharge, []byte("DIAGNOSIS: flu"), 0o600); err != nil {
		t.Fatalf("write discharge: %v", err)
	}

	uploads, err := ReadUploads([]string{discharge, bill}, 0)
	if err != nil {
		t.Fatalf("ReadUploads() error = %v", err)
	}
	if len(uploads) != 2 || uploads[0].Filename != "discharge.txt" || string(uploads[1].Data) != "TOTAL 10" {
		t.Fatalf("unexpected uploads: %+v", uploads)
	}
}

func TestReadUploadsErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, []byte("0123456789"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ReadUploads([]string{filepath.Join(dir, "missing.pdf")}, 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing file, got %v", err)
	}
	if _, err := ReadUploads([]string{dir}, 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for directory, got %v", err)
	}
	if _, err := ReadUploads([]string{big}, 4); !domain.IsKind(err, domain.ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}
}
