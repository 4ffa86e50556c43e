package geometry

import (
	"bufio"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	_ "golang.org/x/image/tiff" // register tiff decoder
)

// WorldFile holds the six affine coefficients of an ESRI world file
type WorldFile struct {
	A, D, B, E, C, F float64
}

// Apply maps a pixel (col, row) to world coordinates
func (w WorldFile) Apply(col, row float64) models.Point {
	return models.Point{
		X: w.A*col + w.B*row + w.C,
		Y: w.D*col + w.E*row + w.F,
	}
}

// RasterProvider georeferences rasters through their world file
type RasterProvider struct{}

// NewRasterProvider creates a new raster reader
func NewRasterProvider() *RasterProvider {
	return &RasterProvider{}
}

// Geometry returns the transformed pixel footprint and its center.
// Rasters without a world file or without decodable dimensions are unavailable.
func (p *RasterProvider) Geometry(ctx context.Context, path string) (Geometry, error) {
	if err := ctx.Err(); err != nil {
		return Geometry{}, err
	}

	worldPath, ok := FindWorldFile(path)
	if !ok {
		return Geometry{}, fmt.Errorf("%w: no world file for %s", ErrGeometryUnavailable, path)
	}

	wf, err := ReadWorldFile(worldPath)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", ErrGeometryUnavailable, err)
	}

	width, height, err := rasterSize(path)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", ErrGeometryUnavailable, err)
	}

	w, h := float64(width), float64(height)
	ring := []models.Point{
		wf.Apply(0, 0),
		wf.Apply(w, 0),
		wf.Apply(w, h),
		wf.Apply(0, h),
		wf.Apply(0, 0),
	}

	return Geometry{
		Polygon:  ring,
		Centroid: wf.Apply(w/2, h/2),
	}, nil
}

// WorldFileCandidates lists the conventional world file names for a raster,
// e.g. scene.tif -> scene.tfw, scene.tifw, scene.wld
func WorldFileCandidates(path string) []string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	trimmed := strings.TrimPrefix(ext, ".")

	var candidates []string
	if len(trimmed) >= 2 {
		candidates = append(candidates, base+"."+trimmed[:1]+trimmed[len(trimmed)-1:]+"w")
	}
	if trimmed != "" {
		candidates = append(candidates, base+"."+trimmed+"w")
	}
	candidates = append(candidates, base+".wld")
	return candidates
}

// FindWorldFile returns the first existing world file for path, trying both
// lower and upper case extensions
func FindWorldFile(path string) (string, bool) {
	for _, candidate := range WorldFileCandidates(path) {
		ext := filepath.Ext(candidate)
		upper := strings.TrimSuffix(candidate, ext) + strings.ToUpper(ext)
		for _, name := range []string{candidate, upper} {
			if info, err := os.Stat(name); err == nil && !info.IsDir() {
				return name, true
			}
		}
	}
	return "", false
}

// ReadWorldFile parses the six coefficient lines of a world file
func ReadWorldFile(path string) (WorldFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return WorldFile{}, fmt.Errorf("failed to open world file: %w", err)
	}
	defer file.Close()

	var values []float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() && len(values) < 6 {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return WorldFile{}, fmt.Errorf("invalid world file %s line %d: %w", path, len(values)+1, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return WorldFile{}, fmt.Errorf("invalid world file %s: non-finite coefficient", path)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return WorldFile{}, fmt.Errorf("error reading world file: %w", err)
	}
	if len(values) != 6 {
		return WorldFile{}, fmt.Errorf("world file %s has %d coefficients, expected 6", path, len(values))
	}

	return WorldFile{
		A: values[0],
		D: values[1],
		B: values[2],
		E: values[3],
		C: values[4],
		F: values[5],
	}, nil
}

func rasterSize(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open raster: %w", err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read raster dimensions for %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s raster %s has empty dimensions", format, path)
	}
	return cfg.Width, cfg.Height, nil
}
