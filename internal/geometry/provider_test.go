package geometry

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCentroid(t *testing.T) {
	tests := []struct {
		name   string
		ring   []models.Point
		want   models.Point
		wantOK bool
	}{
		{
			name:   "unit square",
			ring:   Rectangle(0, 0, 2, 2),
			want:   models.Point{X: 1, Y: 1},
			wantOK: true,
		},
		{
			name:   "offset rectangle",
			ring:   Rectangle(10, 20, 14, 30),
			want:   models.Point{X: 12, Y: 25},
			wantOK: true,
		},
		{
			name: "degenerate line",
			ring: []models.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}},
		},
		{
			name: "too few points",
			ring: []models.Point{{X: 0, Y: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := Centroid(tt.ring)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && (!almostEqual(got.X, tt.want.X) || !almostEqual(got.Y, tt.want.Y)) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestWorldFileCandidates(t *testing.T) {
	got := WorldFileCandidates("/data/scene.tif")
	want := []string{"/data/scene.tfw", "/data/scene.tifw", "/data/scene.wld"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, got[i])
		}
	}
}

func TestReadWorldFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.tfw")
	if err := os.WriteFile(path, []byte("1.0\n0.0\nnot-a-number\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if _, err := ReadWorldFile(path); err == nil {
		t.Error("Expected error for invalid world file, got nil")
	}

	if err := os.WriteFile(path, []byte("1.0\n0.0\n0.0\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if _, err := ReadWorldFile(path); err == nil {
		t.Error("Expected error for short world file, got nil")
	}
}

func TestRasterProviderGeometry(t *testing.T) {
	tmpDir := t.TempDir()
	rasterPath := filepath.Join(tmpDir, "scene.png")

	file, err := os.Create(rasterPath)
	if err != nil {
		t.Fatalf("Failed to create raster: %v", err)
	}
	if err := png.Encode(file, image.NewGray(image.Rect(0, 0, 10, 20))); err != nil {
		t.Fatalf("Failed to encode raster: %v", err)
	}
	file.Close()

	// 2 units per pixel, origin at (100, 500), north up
	world := "2.0\n0.0\n0.0\n-2.0\n100.0\n500.0\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "scene.pgw"), []byte(world), 0644); err != nil {
		t.Fatalf("Failed to write world file: %v", err)
	}

	g, err := NewRasterProvider().Geometry(context.Background(), rasterPath)
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}

	if !almostEqual(g.Centroid.X, 110) || !almostEqual(g.Centroid.Y, 480) {
		t.Errorf("Expected centroid (110, 480), got %+v", g.Centroid)
	}
	if len(g.Polygon) != 5 {
		t.Fatalf("Expected closed ring of 5 points, got %d", len(g.Polygon))
	}
	if !almostEqual(g.Polygon[2].X, 120) || !almostEqual(g.Polygon[2].Y, 460) {
		t.Errorf("Expected far corner (120, 460), got %+v", g.Polygon[2])
	}
}

func TestRasterProviderWithoutWorldFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "123456789012_PAN.img")
	if err := os.WriteFile(path, []byte("erdas"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := NewRasterProvider().Geometry(context.Background(), path)
	if !errors.Is(err, ErrGeometryUnavailable) {
		t.Errorf("Expected ErrGeometryUnavailable, got %v", err)
	}
}

func TestShapefileProviderGeometry(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "123456789012_PIXEL_SHAPE.shp")

	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatalf("Failed to create shapefile: %v", err)
	}
	square := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{
		{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0},
	}}))
	writer.Write(&square)
	writer.Close()

	g, err := NewShapefileProvider().Geometry(context.Background(), path)
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}
	if !almostEqual(g.Centroid.X, 2) || !almostEqual(g.Centroid.Y, 2) {
		t.Errorf("Expected centroid (2, 2), got %+v", g.Centroid)
	}
}

func TestShapefileProviderMissingFile(t *testing.T) {
	_, err := NewShapefileProvider().Geometry(context.Background(), "/nonexistent/file.shp")
	if !errors.Is(err, ErrGeometryUnavailable) {
		t.Errorf("Expected ErrGeometryUnavailable, got %v", err)
	}
}

func TestDispatch(t *testing.T) {
	var called string
	d := &Dispatch{
		Shapes: ProviderFunc(func(ctx context.Context, path string) (Geometry, error) {
			called = "shapes"
			return Geometry{}, nil
		}),
		Rasters: ProviderFunc(func(ctx context.Context, path string) (Geometry, error) {
			called = "rasters"
			return Geometry{}, nil
		}),
	}

	tests := map[string]string{
		"a/b/site_PIXEL.shp": "shapes",
		"a/b/site_PIXEL.SHP": "shapes",
		"a/b/site_PAN.img":   "rasters",
		"a/b/site_PAN.tif":   "rasters",
	}
	for path, want := range tests {
		if _, err := d.Geometry(context.Background(), path); err != nil {
			t.Fatalf("Geometry(%s) failed: %v", path, err)
		}
		if called != want {
			t.Errorf("%s: expected %s provider, got %s", path, want, called)
		}
	}
}

func TestWithTimeout(t *testing.T) {
	slow := ProviderFunc(func(ctx context.Context, path string) (Geometry, error) {
		<-ctx.Done()
		return Geometry{}, ctx.Err()
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Geometry(context.Background(), "slow.tif")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, ErrGeometryUnavailable) {
		t.Errorf("Expected timeout to wrap ErrGeometryUnavailable, got %v", err)
	}

	fast := ProviderFunc(func(ctx context.Context, path string) (Geometry, error) {
		return Geometry{Centroid: models.Point{X: 1, Y: 2}}, nil
	})
	g, err := WithTimeout(fast, time.Second).Geometry(context.Background(), "fast.tif")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if g.Centroid.X != 1 || g.Centroid.Y != 2 {
		t.Errorf("Expected centroid (1, 2), got %+v", g.Centroid)
	}
}
