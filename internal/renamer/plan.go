package renamer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/shaperenamer/internal/copier"
	"github.com/lehigh-university-libraries/shaperenamer/internal/filename"
	"github.com/lehigh-university-libraries/shaperenamer/internal/matcher"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

// Plan is the copy batch derived from the catalog and the match results
type Plan struct {
	Items         []copier.Item
	Unmatched     int
	Uncategorized int
	Duplicates    int
	// UnusedShapes are shapefiles that no image was matched to
	UnusedShapes []string
}

// BuildPlan resolves destinations for every image. Images are ordered by
// original path so the first of two colliding destinations is stable.
func BuildPlan(images []models.ImageRecord, shapes []models.ShapeRecord, results []models.MatchResult, outputRoot string, logger *slog.Logger) Plan {
	if logger == nil {
		logger = slog.Default()
	}

	shapeByID := make(map[string]models.ShapeRecord, len(shapes))
	for _, s := range shapes {
		shapeByID[s.ID] = s
	}
	matchByImage := make(map[string]string, len(results))
	for _, r := range results {
		if r.Matched() {
			matchByImage[r.ImageID] = r.ShapeID
		}
	}

	ordered := make([]models.ImageRecord, len(images))
	copy(ordered, images)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OriginalPath < ordered[j].OriginalPath })

	var plan Plan
	used := make(map[string]bool)
	seen := make(map[string]string)

	for _, img := range ordered {
		shapeID := matchByImage[img.ID]
		if shapeID == "" {
			shapeID = img.MatchedTo
		}
		shape, hasShape := shapeByID[shapeID]

		base := filepath.Base(img.OriginalPath)
		id, err := filename.Classify(img.OriginalPath)
		if err != nil {
			logger.Warn("Could not parse image filename, copying uncategorized", "path", img.OriginalPath, "error", err)
			id = filename.Identity{
				Name:      base,
				Category:  filename.CategoryUncategorized,
				Extension: filepath.Ext(base),
			}
		}

		var destDir string
		switch id.Category {
		case filename.CategoryPAN:
			destDir = filepath.Join(outputRoot, copier.DirPAN)
		case filename.CategoryPSH:
			destDir = filepath.Join(outputRoot, copier.DirPSH)
		default:
			destDir = filepath.Join(outputRoot, copier.DirUncategorized)
			plan.Uncategorized++
			logger.Warn("Could not categorize image", "path", img.OriginalPath)
		}

		item := copier.Item{
			ImageID:              img.ID,
			SourceImagePath:      img.OriginalPath,
			DestinationImagePath: filepath.Join(destDir, id.RenamedName()),
			Category:             id.Category,
		}

		if hasShape {
			item.ShapeID = shape.ID
			item.SourceShapePath = shape.OriginalPath
			item.DestinationShapeBase = filepath.Join(outputRoot, copier.DirShapes, id.RenamedBase())
			used[shape.ID] = true
		} else {
			plan.Unmatched++
			err := fmt.Errorf("%w: %s", matcher.ErrNoMatchFound, img.OriginalPath)
			logger.Warn("Image has no matching shapefile", "path", img.OriginalPath, "error", err)
		}

		key := strings.ToLower(item.DestinationImagePath)
		if first, dup := seen[key]; dup {
			plan.Duplicates++
			logger.Error("Duplicate filename, not copying", "path", img.OriginalPath, "destination", item.DestinationImagePath, "first", first)
			continue
		}
		seen[key] = img.OriginalPath

		plan.Items = append(plan.Items, item)
	}

	for _, s := range shapes {
		if !used[s.ID] {
			plan.UnusedShapes = append(plan.UnusedShapes, s.OriginalPath)
			logger.Error("Could not match image with shapefile", "path", s.OriginalPath)
		}
	}
	sort.Strings(plan.UnusedShapes)

	return plan
}
