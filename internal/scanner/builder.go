package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/filename"
	"github.com/lehigh-university-libraries/shaperenamer/internal/geometry"
	"github.com/lehigh-university-libraries/shaperenamer/internal/metrics"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"golang.org/x/sync/errgroup"
)

// Options describes one scan of a record class
type Options struct {
	Class      models.RecordClass
	Extensions []string // primary extensions that produce a record
	Sidecars   []string // companions of the primary, noted but never probed
	Exclude    []string // directory names skipped with all descendants
	SkipPaths  []string // directories skipped by exact path, e.g. the output root
	// RequirePixelMarker limits records to names carrying the PIXEL token
	RequirePixelMarker bool
	Workers            int
	// Source identifies the scanned root; it is stored with the sentinel
	Source string
	// ReuseGeometry skips the probe for files already cataloged with a centroid
	ReuseGeometry bool
}

// Result summarizes a scan
type Result struct {
	Written  int
	Sidecars int
	Ignored  int
	Reused   int     // cataloged files whose centroid was kept
	Removed  int     // records dropped because their file was not found
	Errors   []error // per-file geometry failures, the records were still written
}

// Builder walks a directory tree and populates a catalog
type Builder struct {
	catalog  catalog.Catalog
	provider geometry.Provider
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewBuilder creates a new catalog builder. logger and rec may be nil.
func NewBuilder(cat catalog.Catalog, provider geometry.Provider, logger *slog.Logger, rec *metrics.Recorder) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		catalog:  cat,
		provider: provider,
		logger:   logger,
		metrics:  rec,
		now:      time.Now,
	}
}

// Scan walks root once and brings the records of opts.Class in line with it:
// new files are probed and written, records of files the walk did not find are
// removed. The class sentinel is cleared first and only written back after the
// whole walk and every catalog write succeeded.
func (b *Builder) Scan(ctx context.Context, root string, opts Options) (Result, error) {
	var result Result

	if err := b.catalog.ClearComplete(ctx, opts.Class); err != nil {
		return result, fmt.Errorf("failed to clear %s sentinel: %w", opts.Class, err)
	}

	b.logger.Info("Scanning directory", "class", opts.Class, "root", root)

	candidates, err := b.walk(ctx, root, opts, &result)
	if err != nil {
		b.logger.Error("Scan aborted, catalog left without sentinel", "class", opts.Class, "root", root, "error", err)
		return result, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	known, err := b.known(ctx, opts.Class)
	if err != nil {
		return result, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for _, path := range candidates {
		if rec, ok := known[path]; ok && opts.ReuseGeometry && rec.located {
			result.Reused++
			continue
		}

		eg.Go(func() error {
			centroid, geomErr := b.probe(egCtx, path, opts.Class)
			if err := b.put(egCtx, opts.Class, path, centroid); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			result.Written++
			if geomErr != nil {
				result.Errors = append(result.Errors, geomErr)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return result, fmt.Errorf("failed to write %s records: %w", opts.Class, err)
	}

	removed, err := b.prune(ctx, opts.Class, known, candidates)
	result.Removed = removed
	if err != nil {
		return result, err
	}

	if err := b.catalog.SetSource(ctx, opts.Class, opts.Source); err != nil {
		return result, fmt.Errorf("failed to write %s source: %w", opts.Class, err)
	}
	if err := b.catalog.MarkComplete(ctx, opts.Class); err != nil {
		return result, fmt.Errorf("failed to write %s sentinel: %w", opts.Class, err)
	}

	b.logger.Info("Scan complete",
		"class", opts.Class,
		"records", result.Written,
		"reused", result.Reused,
		"removed", result.Removed,
		"sidecars", result.Sidecars,
		"ignored", result.Ignored,
		"geometry_errors", len(result.Errors))

	return result, nil
}

type knownRecord struct {
	id      string
	located bool
}

// known indexes the cataloged records of class by original path
func (b *Builder) known(ctx context.Context, class models.RecordClass) (map[string]knownRecord, error) {
	known := make(map[string]knownRecord)
	switch class {
	case models.ClassImage:
		images, err := b.catalog.Images(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read images: %w", err)
		}
		for _, img := range images {
			known[img.OriginalPath] = knownRecord{id: img.ID, located: img.Centroid != nil}
		}
	case models.ClassShape:
		shapes, err := b.catalog.Shapes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read shapes: %w", err)
		}
		for _, shape := range shapes {
			known[shape.OriginalPath] = knownRecord{id: shape.ID, located: shape.Centroid != nil}
		}
	default:
		return nil, fmt.Errorf("unknown record class: %s", class)
	}
	return known, nil
}

// prune removes the records whose path was not produced by the walk
func (b *Builder) prune(ctx context.Context, class models.RecordClass, known map[string]knownRecord, seen []string) (int, error) {
	found := make(map[string]bool, len(seen))
	for _, path := range seen {
		found[path] = true
	}

	removed := 0
	for path, rec := range known {
		if found[path] {
			continue
		}
		if err := b.catalog.Remove(ctx, class, rec.id); err != nil {
			return removed, fmt.Errorf("failed to remove stale %s record %s: %w", class, path, err)
		}
		b.logger.Info("Removed record of missing file", "class", class, "path", path)
		removed++
	}
	return removed, nil
}

// walk collects the primary files under root
func (b *Builder) walk(ctx context.Context, root string, opts Options, result *Result) ([]string, error) {
	var candidates []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && (isExcluded(d.Name(), opts.Exclude) || isSkipped(path, opts.SkipPaths)) {
				b.logger.Debug("Skipping excluded directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		switch {
		case hasExtension(name, opts.Extensions):
		case hasExtension(name, opts.Sidecars):
			b.logger.Info("Found extra file", "path", path)
			result.Sidecars++
			return nil
		default:
			return nil
		}

		if opts.RequirePixelMarker {
			id, err := filename.Classify(name)
			if err != nil || !id.HasPixelMarker() {
				b.logger.Debug("Ignoring shapefile without PIXEL marker", "path", path)
				result.Ignored++
				return nil
			}
		}

		candidates = append(candidates, path)
		return nil
	})

	return candidates, err
}

// probe returns the centroid of path, or nil and the error when geometry is unavailable
func (b *Builder) probe(ctx context.Context, path string, class models.RecordClass) (*models.Point, error) {
	g, err := b.provider.Geometry(ctx, path)
	if err != nil {
		b.metrics.GeometryFailed(string(class))
		b.logger.Warn("Geometry unavailable, recording null centroid", "path", path, "error", err)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c := g.Centroid
	return &c, nil
}

func (b *Builder) put(ctx context.Context, class models.RecordClass, path string, centroid *models.Point) error {
	now := b.now()
	switch class {
	case models.ClassImage:
		if _, err := b.catalog.PutImage(ctx, models.ImageRecord{
			OriginalPath: path,
			Centroid:     centroid,
			LastAccess:   now,
		}); err != nil {
			return err
		}
	case models.ClassShape:
		if _, err := b.catalog.PutShape(ctx, models.ShapeRecord{
			OriginalPath: path,
			Centroid:     centroid,
			LastAccess:   now,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown record class: %s", class)
	}
	b.metrics.Scanned(string(class))
	return nil
}

func isExcluded(name string, exclude []string) bool {
	for _, e := range exclude {
		if strings.EqualFold(name, e) {
			return true
		}
	}
	return false
}

func isSkipped(path string, skip []string) bool {
	clean := filepath.Clean(path)
	for _, s := range skip {
		if s != "" && clean == filepath.Clean(s) {
			return true
		}
	}
	return false
}

// hasExtension matches multi-dot extensions such as .aux.xml by suffix
func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
