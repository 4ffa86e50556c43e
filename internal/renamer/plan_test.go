package renamer

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lehigh-university-libraries/shaperenamer/internal/copier"
	"github.com/lehigh-university-libraries/shaperenamer/internal/filename"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

func TestBuildPlan(t *testing.T) {
	out := "/out"
	images := []models.ImageRecord{
		{ID: "i2", OriginalPath: "/b/123456789012_pan.img"},
		{ID: "i1", OriginalPath: "/a/123456789012_PAN.img"},
		{ID: "i3", OriginalPath: "/a/scan.img"},
		{ID: "i4", OriginalPath: "/a/999999999999_PSH.img", MatchedTo: "s2"},
	}
	shapes := []models.ShapeRecord{
		{ID: "s1", OriginalPath: "/shp/123456789012_PIXEL.shp"},
		{ID: "s2", OriginalPath: "/shp/999999999999_PIXEL.shp"},
		{ID: "s3", OriginalPath: "/shp/000000000000_PIXEL.shp"},
	}
	results := []models.MatchResult{
		{ImageID: "i1", ShapeID: "s1", Method: models.MatchIdentifier},
		{ImageID: "i2", ShapeID: "s1", Method: models.MatchIdentifier},
	}

	plan := BuildPlan(images, shapes, results, out, nil)

	want := []copier.Item{
		{
			ImageID:              "i1",
			ShapeID:              "s1",
			SourceImagePath:      "/a/123456789012_PAN.img",
			DestinationImagePath: filepath.Join(out, copier.DirPAN, "123456789012_PAN.img"),
			SourceShapePath:      "/shp/123456789012_PIXEL.shp",
			DestinationShapeBase: filepath.Join(out, copier.DirShapes, "123456789012_PAN"),
			Category:             filename.CategoryPAN,
		},
		{
			ImageID:              "i4",
			ShapeID:              "s2",
			SourceImagePath:      "/a/999999999999_PSH.img",
			DestinationImagePath: filepath.Join(out, copier.DirPSH, "999999999999_PSH.img"),
			SourceShapePath:      "/shp/999999999999_PIXEL.shp",
			DestinationShapeBase: filepath.Join(out, copier.DirShapes, "999999999999_PSH"),
			Category:             filename.CategoryPSH,
		},
		{
			ImageID:              "i3",
			SourceImagePath:      "/a/scan.img",
			DestinationImagePath: filepath.Join(out, copier.DirUncategorized, "scan.img"),
			Category:             filename.CategoryUncategorized,
		},
	}
	if diff := cmp.Diff(want, plan.Items); diff != "" {
		t.Errorf("BuildPlan items mismatch (-want +got):\n%s", diff)
	}

	if plan.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", plan.Duplicates)
	}
	if plan.Unmatched != 1 || plan.Uncategorized != 1 {
		t.Errorf("Expected 1 unmatched and 1 uncategorized, got %d and %d", plan.Unmatched, plan.Uncategorized)
	}
	if diff := cmp.Diff([]string{"/shp/000000000000_PIXEL.shp"}, plan.UnusedShapes); diff != "" {
		t.Errorf("UnusedShapes mismatch (-want +got):\n%s", diff)
	}
}
