package geometry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

var (
	// ErrGeometryUnavailable means no footprint could be computed for a file
	ErrGeometryUnavailable = errors.New("geometry unavailable")
	// ErrTimeout is a retryable geometry failure caused by a slow probe
	ErrTimeout = fmt.Errorf("%w: probe timed out", ErrGeometryUnavailable)
)

// Geometry is the footprint of an image or shapefile
type Geometry struct {
	Polygon  []models.Point
	Centroid models.Point
}

// Provider computes the footprint of a file
type Provider interface {
	Geometry(ctx context.Context, path string) (Geometry, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, path string) (Geometry, error)

func (f ProviderFunc) Geometry(ctx context.Context, path string) (Geometry, error) {
	return f(ctx, path)
}

// Dispatch routes shapefiles to the shapefile reader and everything else to the raster reader
type Dispatch struct {
	Shapes  Provider
	Rasters Provider
}

// NewDispatch returns a provider backed by the default shapefile and raster readers
func NewDispatch() *Dispatch {
	return &Dispatch{
		Shapes:  NewShapefileProvider(),
		Rasters: NewRasterProvider(),
	}
}

func (d *Dispatch) Geometry(ctx context.Context, path string) (Geometry, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return d.Shapes.Geometry(ctx, path)
	}
	return d.Rasters.Geometry(ctx, path)
}

// WithTimeout bounds every call to p. A zero or negative timeout returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return ProviderFunc(func(ctx context.Context, path string) (Geometry, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			g   Geometry
			err error
		}
		done := make(chan result, 1)
		go func() {
			g, err := p.Geometry(ctx, path)
			done <- result{g, err}
		}()

		select {
		case r := <-done:
			if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Geometry{}, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, path)
			}
			return r.g, r.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Geometry{}, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, path)
			}
			return Geometry{}, ctx.Err()
		}
	})
}

// Rectangle returns the closed ring for an axis-aligned bounding box
func Rectangle(minX, minY, maxX, maxY float64) []models.Point {
	return []models.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}
}

// Centroid returns the area-weighted centroid of a ring. ok is false for degenerate rings.
func Centroid(ring []models.Point) (c models.Point, area float64, ok bool) {
	if len(ring) < 3 {
		return models.Point{}, 0, false
	}
	var a, cx, cy float64
	for i := range ring {
		p := ring[i]
		q := ring[(i+1)%len(ring)]
		cross := p.X*q.Y - q.X*p.Y
		a += cross
		cx += (p.X + q.X) * cross
		cy += (p.Y + q.Y) * cross
	}
	a /= 2
	if a == 0 {
		return models.Point{}, 0, false
	}
	return models.Point{X: cx / (6 * a), Y: cy / (6 * a)}, a, true
}
