package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"github.com/lehigh-university-libraries/shaperenamer/internal/storage"
)

func seeded(t *testing.T) []Row {
	t.Helper()
	ctx := context.Background()
	store := storage.New()

	access := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	img, err := store.PutImage(ctx, models.ImageRecord{
		OriginalPath: "/images/123456789012_PAN.img",
		Centroid:     &models.Point{X: 10.5, Y: -3},
		LastAccess:   access,
	})
	if err != nil {
		t.Fatalf("PutImage failed: %v", err)
	}
	shape, err := store.PutShape(ctx, models.ShapeRecord{
		OriginalPath: "/shapes/123456789012_PIXEL.shp",
		LastAccess:   access,
	})
	if err != nil {
		t.Fatalf("PutShape failed: %v", err)
	}
	if err := store.SetMatch(ctx, img.ID, shape.ID); err != nil {
		t.Fatalf("SetMatch failed: %v", err)
	}

	rows, err := Rows(ctx, store)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	return rows
}

func TestRows(t *testing.T) {
	rows := seeded(t)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	img, shape := rows[0], rows[1]
	if img.Class != "images" || shape.Class != "shapes" {
		t.Errorf("Unexpected classes %q and %q", img.Class, shape.Class)
	}
	if img.MatchedTo != shape.ID {
		t.Errorf("Expected image matched to %s, got %s", shape.ID, img.MatchedTo)
	}
	if c := img.Centroid(); c == nil || c.X != 10.5 || c.Y != -3 {
		t.Errorf("Unexpected image centroid %v", c)
	}
	if shape.Centroid() != nil {
		t.Error("Expected shape without centroid")
	}
	if img.LastAccess != "2024-03-01T12:00:00Z" {
		t.Errorf("Unexpected last access %q", img.LastAccess)
	}
}

func TestWriteAndLoad(t *testing.T) {
	rows := seeded(t)

	for _, name := range []string{"catalog.parquet", "catalog.jsonl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Write(path, rows); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			loaded, err := NewLoader(path).Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if diff := cmp.Diff(rows, loaded); diff != "" {
				t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	if err := Write(path, nil); err == nil {
		t.Error("Expected error for unsupported export format")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file for unsupported format")
	}
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Expected error for unsupported load format")
	}
}
