package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Copied("image")
	r.Copied("image")
	r.Copied("shape")
	r.Skipped("image")
	r.CopyFailed("checksum")
	r.ChecksumRetry()

	if got := testutil.ToFloat64(r.filesCopied.WithLabelValues("image")); got != 2 {
		t.Errorf("Expected 2 image copies, got %v", got)
	}
	if got := testutil.ToFloat64(r.filesCopied.WithLabelValues("shape")); got != 1 {
		t.Errorf("Expected 1 shape copy, got %v", got)
	}
	if got := testutil.ToFloat64(r.checksumRetries); got != 1 {
		t.Errorf("Expected 1 checksum retry, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.Copied("image")
	r.Matched("centroid")
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("Expected nil recorder to skip writing, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Matched("identifier")

	path := filepath.Join(t.TempDir(), "renamer.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(data), `shaperenamer_images_matched_total{method="identifier"} 1`) {
		t.Errorf("Expected matched counter in output, got:\n%s", data)
	}
}
