package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/filename"
	"github.com/lehigh-university-libraries/shaperenamer/internal/metrics"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

// ErrNoMatchFound marks an image with neither an identifier nor a spatial match
var ErrNoMatchFound = errors.New("no match found")

// Mode selects which passes run
type Mode string

const (
	// ModeAuto runs the identifier pass, then the centroid pass for what is left.
	// An identifier match always wins over a closer centroid.
	ModeAuto       Mode = "auto"
	ModeIdentifier Mode = "identifier"
	ModeCentroid   Mode = "centroid"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeIdentifier, ModeCentroid:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unsupported match mode: %s", s)
	}
}

// Matcher pairs images with shapefiles
type Matcher struct {
	mode    Mode
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// New creates a matcher. logger and rec may be nil.
func New(mode Mode, logger *slog.Logger, rec *metrics.Recorder) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = ModeAuto
	}
	return &Matcher{mode: mode, logger: logger, metrics: rec}
}

// Match returns one result per image, in input order. Shapes are considered in
// id order so ties at the minimum distance resolve to the lowest id. A shape may
// be assigned to any number of images.
func (m *Matcher) Match(images []models.ImageRecord, shapes []models.ShapeRecord) []models.MatchResult {
	sorted := make([]models.ShapeRecord, len(shapes))
	copy(sorted, shapes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	results := make([]models.MatchResult, len(images))
	for i, img := range images {
		results[i] = models.MatchResult{ImageID: img.ID, Method: models.MatchNone}
	}

	if m.mode == ModeAuto || m.mode == ModeIdentifier {
		keys := shapeKeys(sorted)
		for i, img := range images {
			if shapeID, ok := identifierMatch(img, keys); ok {
				results[i].ShapeID = shapeID
				results[i].Method = models.MatchIdentifier
			}
		}
	}

	if m.mode == ModeAuto || m.mode == ModeCentroid {
		for i, img := range images {
			if results[i].Matched() || img.Centroid == nil {
				continue
			}
			if shapeID, dist, ok := nearest(*img.Centroid, sorted); ok {
				d := dist
				results[i].ShapeID = shapeID
				results[i].Distance = &d
				results[i].Method = models.MatchCentroid
			}
		}
	}

	return results
}

// Run matches every image in the catalog whose match is still empty and
// persists the new matches. Already matched images are returned as cached.
func (m *Matcher) Run(ctx context.Context, cat catalog.Catalog) ([]models.MatchResult, error) {
	if err := catalog.RequireComplete(ctx, cat); err != nil {
		return nil, err
	}

	images, err := cat.Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	shapes, err := cat.Shapes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shapes: %w", err)
	}

	var pending []models.ImageRecord
	results := make([]models.MatchResult, 0, len(images))
	for _, img := range images {
		if img.MatchedTo != "" {
			results = append(results, models.MatchResult{
				ImageID: img.ID,
				ShapeID: img.MatchedTo,
				Method:  models.MatchCached,
			})
			continue
		}
		pending = append(pending, img)
	}

	m.logger.Info("Matching images", "mode", m.mode, "pending", len(pending), "cached", len(results), "shapes", len(shapes))

	for _, r := range m.Match(pending, shapes) {
		m.metrics.Matched(string(r.Method))
		if r.Matched() {
			if err := cat.SetMatch(ctx, r.ImageID, r.ShapeID); err != nil {
				return nil, fmt.Errorf("failed to persist match for %s: %w", r.ImageID, err)
			}
			m.logger.Debug("Matched image", "image", r.ImageID, "shape", r.ShapeID, "method", r.Method)
		}
		results = append(results, r)
	}

	return results, nil
}

// shapeKeys maps every 12 digit token to the first shape (by id) carrying it
func shapeKeys(shapes []models.ShapeRecord) map[string]string {
	keys := make(map[string]string)
	for _, s := range shapes {
		id, err := filename.Classify(s.OriginalPath)
		if err != nil || !id.HasPixelMarker() {
			continue
		}
		for _, k := range id.MatchKeys() {
			if _, exists := keys[k]; !exists {
				keys[k] = s.ID
			}
		}
	}
	return keys
}

func identifierMatch(img models.ImageRecord, keys map[string]string) (string, bool) {
	id, err := filename.Classify(img.OriginalPath)
	if err != nil || !filename.IsMatchKey(id.SiteID) {
		return "", false
	}
	shapeID, ok := keys[id.SiteID]
	return shapeID, ok
}

func nearest(c models.Point, shapes []models.ShapeRecord) (string, float64, bool) {
	bestID := ""
	best := math.Inf(1)
	for _, s := range shapes {
		if s.Centroid == nil {
			continue
		}
		d := math.Hypot(c.X-s.Centroid.X, c.Y-s.Centroid.Y)
		if d < best {
			best = d
			bestID = s.ID
		}
	}
	return bestID, best, bestID != ""
}
