package catalogcmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/lehigh-university-libraries/shaperenamer/internal/geometry"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"github.com/lehigh-university-libraries/shaperenamer/internal/renamer"
	"github.com/lehigh-university-libraries/shaperenamer/internal/report"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

var origin = geometry.ProviderFunc(func(ctx context.Context, path string) (geometry.Geometry, error) {
	return geometry.Geometry{Centroid: models.Point{X: 1, Y: 2}}, nil
})

type scanFixture struct {
	cfg config.Config
	req renamer.RunRequest
}

func scanned(t *testing.T) config.Config {
	t.Helper()
	return scannedFixture(t).cfg
}

func scannedFixture(t *testing.T) scanFixture {
	t.Helper()
	base := t.TempDir()
	req := renamer.RunRequest{
		ImageRoot: filepath.Join(base, "images"),
		ShapeRoot: filepath.Join(base, "shapes"),
		Extension: ".img",
	}
	writeFile(t, filepath.Join(req.ImageRoot, "123456789012_PAN.img"))
	writeFile(t, filepath.Join(req.ImageRoot, "123456789012_PAN.rrd"))
	writeFile(t, filepath.Join(req.ShapeRoot, "123456789012_PIXEL_SHAPE.shp"))
	writeFile(t, filepath.Join(req.ShapeRoot, "123456789012_PIXEL_SHAPE.dbf"))
	writeFile(t, filepath.Join(req.ShapeRoot, "123456789012_SHAPE.shp"))

	cfg := config.Default()
	cfg.CatalogPath = filepath.Join(base, "catalog.db")

	var out bytes.Buffer
	if err := executeScan(context.Background(), cfg, req, true, origin, &out); err != nil {
		t.Fatalf("executeScan failed: %v", err)
	}
	if !strings.Contains(out.String(), "Images:             1 (1 sidecars") {
		t.Errorf("Unexpected scan output:\n%s", out.String())
	}
	return scanFixture{cfg: cfg, req: req}
}

func TestScanMatchStatus(t *testing.T) {
	cfg := scanned(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := executeMatch(ctx, cfg, &out); err != nil {
		t.Fatalf("executeMatch failed: %v", err)
	}
	if !strings.Contains(out.String(), "identifier:       1") {
		t.Errorf("Expected one identifier match, got:\n%s", out.String())
	}

	out.Reset()
	if err := executeStatus(ctx, cfg, "", &out); err != nil {
		t.Fatalf("executeStatus failed: %v", err)
	}

	cat, err := catalog.OpenSQLite(cfg.CatalogPath)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer cat.Close()

	status, err := Collect(ctx, cat)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	want := Status{Images: 1, Shapes: 1, Matched: 1, ImagesComplete: true, ShapesComplete: true}
	if !strings.HasSuffix(status.ImageSource, "images (.img)") || !strings.HasSuffix(status.ShapeSource, "shapes (.shp)") {
		t.Errorf("Unexpected sources %q and %q", status.ImageSource, status.ShapeSource)
	}
	status.ImageSource, status.ShapeSource = "", ""
	if status != want {
		t.Errorf("Expected %+v, got %+v", want, status)
	}
}

func TestMatchRequiresCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.db")

	if err := executeMatch(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for missing catalog")
	}
	if _, err := os.Stat(cfg.CatalogPath); !os.IsNotExist(err) {
		t.Error("Expected missing catalog not to be created")
	}
}

func TestExportAndInspect(t *testing.T) {
	cfg := scanned(t)
	ctx := context.Background()

	for _, name := range []string{"catalog.parquet", "catalog.jsonl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			var out bytes.Buffer
			if err := executeExport(ctx, cfg, path, &out); err != nil {
				t.Fatalf("executeExport failed: %v", err)
			}
			if !strings.Contains(out.String(), "Exported 2 records") {
				t.Errorf("Unexpected export output: %s", out.String())
			}

			out.Reset()
			if err := executeInspect(path, "shapes", 0, &out); err != nil {
				t.Fatalf("executeInspect failed: %v", err)
			}
			got := out.String()
			if !strings.Contains(got, "Loaded 1 records") || !strings.Contains(got, "123456789012_PIXEL_SHAPE.shp") {
				t.Errorf("Unexpected inspect output:\n%s", got)
			}
			if strings.Contains(got, "123456789012_PAN.img") {
				t.Error("Expected image records to be filtered out")
			}
		})
	}
}

func TestRescanRemovesMissingFiles(t *testing.T) {
	f := scannedFixture(t)
	ctx := context.Background()

	if err := os.Remove(filepath.Join(f.req.ImageRoot, "123456789012_PAN.img")); err != nil {
		t.Fatalf("Failed to remove image: %v", err)
	}

	var out bytes.Buffer
	if err := executeScan(ctx, f.cfg, f.req, true, origin, &out); err != nil {
		t.Fatalf("executeScan failed: %v", err)
	}
	if !strings.Contains(out.String(), "Unchanged:          1") || !strings.Contains(out.String(), "Removed:            1") {
		t.Errorf("Expected one kept shape and one removed image, got:\n%s", out.String())
	}
}

func TestStatusShowsLastRun(t *testing.T) {
	cfg := scanned(t)
	output := t.TempDir()

	var out bytes.Buffer
	if err := executeStatus(context.Background(), cfg, output, &out); err != nil {
		t.Fatalf("executeStatus failed: %v", err)
	}
	if !strings.Contains(out.String(), "Last run:           none") {
		t.Errorf("Expected no last run, got:\n%s", out.String())
	}

	if _, err := report.Save(output, report.Summary{Copied: 4}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out.Reset()
	if err := executeStatus(context.Background(), cfg, output, &out); err != nil {
		t.Fatalf("executeStatus failed: %v", err)
	}
	if !strings.Contains(out.String(), "  copied:           4") {
		t.Errorf("Expected last run counts, got:\n%s", out.String())
	}
}
