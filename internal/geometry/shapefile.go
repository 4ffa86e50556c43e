package geometry

import (
	"context"
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

// ShapefileProvider reads footprints from ESRI shapefiles
type ShapefileProvider struct{}

// NewShapefileProvider creates a new shapefile reader
func NewShapefileProvider() *ShapefileProvider {
	return &ShapefileProvider{}
}

// Geometry returns the bounding box ring of the shapefile and the area-weighted
// centroid of all its polygon rings, or the box center when the rings carry no area.
func (p *ShapefileProvider) Geometry(ctx context.Context, path string) (Geometry, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: open shapefile %s: %v", ErrGeometryUnavailable, path, err)
	}
	defer reader.Close()

	box := reader.BBox()
	g := Geometry{
		Polygon: Rectangle(box.MinX, box.MinY, box.MaxX, box.MaxY),
		Centroid: models.Point{
			X: (box.MinX + box.MaxX) / 2,
			Y: (box.MinY + box.MaxY) / 2,
		},
	}

	var sumArea, sumX, sumY float64
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return Geometry{}, err
		}
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		for _, ring := range polygonRings(poly) {
			c, area, ok := Centroid(ring)
			if !ok {
				continue
			}
			sumArea += area
			sumX += c.X * area
			sumY += c.Y * area
		}
	}
	if err := reader.Err(); err != nil {
		return Geometry{}, fmt.Errorf("%w: read shapefile %s: %v", ErrGeometryUnavailable, path, err)
	}

	if sumArea != 0 {
		g.Centroid = models.Point{X: sumX / sumArea, Y: sumY / sumArea}
	}

	return g, nil
}

func polygonRings(poly *shp.Polygon) [][]models.Point {
	var rings [][]models.Point
	for i := 0; i < len(poly.Parts); i++ {
		start := int(poly.Parts[i])
		end := len(poly.Points)
		if i+1 < len(poly.Parts) {
			end = int(poly.Parts[i+1])
		}
		if start < 0 || start >= end || end > len(poly.Points) {
			continue
		}
		ring := make([]models.Point, 0, end-start)
		for _, pt := range poly.Points[start:end] {
			ring = append(ring, models.Point{X: pt.X, Y: pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
