package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

// ErrCatalogIncomplete means a record class has no completion sentinel and must be rebuilt
var ErrCatalogIncomplete = errors.New("catalog incomplete")

// Catalog persists image and shape records between runs.
// Put* upserts on the original path, keeping the existing id and match.
type Catalog interface {
	PutImage(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error)
	PutShape(ctx context.Context, rec models.ShapeRecord) (models.ShapeRecord, error)
	Images(ctx context.Context) ([]models.ImageRecord, error)
	Shapes(ctx context.Context) ([]models.ShapeRecord, error)
	SetMatch(ctx context.Context, imageID, shapeID string) error
	SetOutputPath(ctx context.Context, class models.RecordClass, id, outputPath string) error
	// Remove deletes a record. Removing a shape clears every image match pointing at it.
	Remove(ctx context.Context, class models.RecordClass, id string) error
	// SetSource records the root a class was scanned from; Source returns it, or "" if unknown
	SetSource(ctx context.Context, class models.RecordClass, source string) error
	Source(ctx context.Context, class models.RecordClass) (string, error)
	MarkComplete(ctx context.Context, class models.RecordClass) error
	ClearComplete(ctx context.Context, class models.RecordClass) error
	IsComplete(ctx context.Context, class models.RecordClass) (bool, error)
	Close() error
}

// RequireComplete fails with ErrCatalogIncomplete unless both record classes carry a sentinel
func RequireComplete(ctx context.Context, cat Catalog) error {
	for _, class := range []models.RecordClass{models.ClassImage, models.ClassShape} {
		ok, err := cat.IsComplete(ctx, class)
		if err != nil {
			return fmt.Errorf("failed to check %s sentinel: %w", class, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s scan did not finish, rebuild the catalog", ErrCatalogIncomplete, class)
		}
	}
	return nil
}

// IsEmpty reports whether the catalog holds no records of either class
func IsEmpty(ctx context.Context, cat Catalog) (bool, error) {
	images, err := cat.Images(ctx)
	if err != nil {
		return false, err
	}
	shapes, err := cat.Shapes(ctx)
	if err != nil {
		return false, err
	}
	return len(images) == 0 && len(shapes) == 0, nil
}

// RequireSource fails with ErrCatalogIncomplete when class was scanned from a
// different source than want
func RequireSource(ctx context.Context, cat Catalog, class models.RecordClass, want string) error {
	got, err := cat.Source(ctx, class)
	if err != nil {
		return fmt.Errorf("failed to read %s source: %w", class, err)
	}
	if got != want {
		if got == "" {
			got = "an unknown root"
		}
		return fmt.Errorf("%w: %s were scanned from %s, not %s", ErrCatalogIncomplete, class, got, want)
	}
	return nil
}
