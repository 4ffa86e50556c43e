package renamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/lehigh-university-libraries/shaperenamer/internal/copier"
	"github.com/lehigh-university-libraries/shaperenamer/internal/geometry"
	"github.com/lehigh-university-libraries/shaperenamer/internal/matcher"
	"github.com/lehigh-university-libraries/shaperenamer/internal/metrics"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"github.com/lehigh-university-libraries/shaperenamer/internal/report"
	"github.com/lehigh-university-libraries/shaperenamer/internal/scanner"
	"github.com/lehigh-university-libraries/shaperenamer/internal/storage"
)

// ErrDestinationRootMissing aborts a run when the output tree cannot be created
var ErrDestinationRootMissing = errors.New("destination root missing")

// RunRequest is the complete input of a run
type RunRequest struct {
	ImageRoot  string
	ShapeRoot  string
	OutputRoot string
	Extension  string // primary image extension, e.g. .img
}

// RunResult is the complete output of a run
type RunResult struct {
	Copied        int
	Skipped       int
	Failures      []copier.Failure
	Unmatched     int
	Uncategorized int
	Duplicates    int
	LogPath       string
	ManifestPath  string
	SummaryPath   string
}

// Runner executes scan, match and copy for a request
type Runner struct {
	cfg      config.Config
	provider geometry.Provider
	console  io.Writer
	now      func() time.Time
}

// NewRunner creates a runner. console receives the log stream alongside renamer.log.
func NewRunner(cfg config.Config, provider geometry.Provider, console io.Writer) *Runner {
	if console == nil {
		console = io.Discard
	}
	return &Runner{
		cfg:      cfg,
		provider: provider,
		console:  console,
		now:      time.Now,
	}
}

// Validate normalizes the request and checks required fields
func (req RunRequest) Validate() (RunRequest, error) {
	req.Extension = config.NormalizeExtension(req.Extension)
	switch {
	case req.ImageRoot == "":
		return req, fmt.Errorf("image root is required")
	case req.ShapeRoot == "":
		return req, fmt.Errorf("shapefile root is required")
	case req.OutputRoot == "":
		return req, fmt.Errorf("output root is required")
	case req.Extension == "":
		return req, fmt.Errorf("image extension is required")
	}
	return req, nil
}

// Run executes one complete pass. Per-file problems end up in the result;
// only run-wide problems are returned as errors.
func (r *Runner) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	var result RunResult

	req, err := req.Validate()
	if err != nil {
		return result, err
	}

	if err := copier.MakeLayout(req.OutputRoot); err != nil {
		return result, fmt.Errorf("%w: %v", ErrDestinationRootMissing, err)
	}

	result.LogPath = filepath.Join(req.OutputRoot, config.LogFileName)
	logger, closeLog, err := config.SetupLogger(r.console, result.LogPath, config.Level(r.cfg.Verbose))
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrDestinationRootMissing, err)
	}
	defer closeLog()

	start := r.now()
	logger.Info("Process began",
		"image_path", req.ImageRoot,
		"shp_path", req.ShapeRoot,
		"working_directory", req.OutputRoot,
		"extension", req.Extension)

	mode, err := matcher.ParseMode(r.cfg.MatchMode)
	if err != nil {
		return result, err
	}

	cat, err := OpenCatalog(r.cfg)
	if err != nil {
		return result, err
	}
	defer cat.Close()

	rec := metrics.New()

	if err := r.prepareCatalog(ctx, cat, req, logger, rec); err != nil {
		logger.Error("Catalog not usable", "error", err)
		return result, err
	}

	results, err := matcher.New(mode, logger, rec).Run(ctx, cat)
	if err != nil {
		logger.Error("Matching failed", "error", err)
		return result, err
	}

	images, err := cat.Images(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load images: %w", err)
	}
	shapes, err := cat.Shapes(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load shapes: %w", err)
	}

	plan := BuildPlan(images, shapes, results, req.OutputRoot, logger)
	result.Unmatched = plan.Unmatched
	result.Uncategorized = plan.Uncategorized
	result.Duplicates = plan.Duplicates

	manifest, err := copier.OpenManifest(filepath.Join(req.OutputRoot, copier.ManifestFileName))
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrDestinationRootMissing, err)
	}
	defer manifest.Close()
	result.ManifestPath = manifest.Path()

	engine := copier.NewEngine(copier.Options{
		ImageSidecars:       r.cfg.SidecarsFor(req.Extension),
		ShapeExtensions:     r.cfg.ShapeExtensions,
		Attempts:            r.cfg.CopyRetries,
		Workers:             r.cfg.Workers,
		StrictShapeSidecars: r.cfg.StrictShapeSidecars,
	}, manifest, logger, rec)

	logger.Info("Copying files", "items", len(plan.Items))
	copied := engine.Copy(ctx, plan.Items)
	result.Copied = copied.Copied
	result.Skipped = copied.Skipped
	result.Failures = copied.Failures

	for _, out := range copied.Outputs {
		if err := cat.SetOutputPath(ctx, out.Class, out.ID, out.Path); err != nil {
			logger.Error("Failed to record output path", "class", out.Class, "id", out.ID, "error", err)
		}
	}

	summary := r.summary(req, result, plan, start)
	if path, err := report.Save(req.OutputRoot, summary); err != nil {
		logger.Error("Failed to write run summary", "error", err)
	} else {
		result.SummaryPath = path
	}

	if err := rec.WriteTextfile(r.cfg.MetricsFile); err != nil {
		logger.Error("Failed to write metrics", "error", err)
	}

	logger.Info("Finished",
		"copied", result.Copied,
		"skipped", result.Skipped,
		"failures", len(result.Failures),
		"unmatched", result.Unmatched,
		"duration", r.now().Sub(start).Round(time.Millisecond).String())

	return result, nil
}

// prepareCatalog brings the catalog in line with the request roots. A cached
// catalog must be complete and scanned from the same roots; it is then
// refreshed by a walk that keeps known centroids. --rebuild and no-cache runs
// probe every file again.
func (r *Runner) prepareCatalog(ctx context.Context, cat catalog.Catalog, req RunRequest, logger *slog.Logger, rec *metrics.Recorder) error {
	empty, err := catalog.IsEmpty(ctx, cat)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	reuse := !r.cfg.NoCache && !r.cfg.Rebuild && !empty
	if reuse {
		if err := catalog.RequireComplete(ctx, cat); err != nil {
			return fmt.Errorf("%w (rerun with --rebuild)", err)
		}
		sources, err := Sources(req)
		if err != nil {
			return err
		}
		for _, class := range []models.RecordClass{models.ClassImage, models.ClassShape} {
			if err := catalog.RequireSource(ctx, cat, class, sources[class]); err != nil {
				return fmt.Errorf("%w (rerun with --rebuild or use another --catalog)", err)
			}
		}
		logger.Info("Refreshing cached catalog", "path", r.cfg.CatalogPath)
	}

	_, err = Scan(ctx, cat, r.cfg, r.provider, req, reuse, logger, rec)
	return err
}

// ScanSummary reports both scans of a catalog build
type ScanSummary struct {
	Images scanner.Result
	Shapes scanner.Result
}

// Sources returns the source key of each record class for req: the absolute
// root, plus the primary extension for images
func Sources(req RunRequest) (map[models.RecordClass]string, error) {
	images, err := filepath.Abs(req.ImageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image root: %w", err)
	}
	shapes, err := filepath.Abs(req.ShapeRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shapefile root: %w", err)
	}
	return map[models.RecordClass]string{
		models.ClassImage: images + " (" + config.NormalizeExtension(req.Extension) + ")",
		models.ClassShape: shapes + " (.shp)",
	}, nil
}

// Scan brings both record classes of cat in line with the request roots.
// With reuseGeometry, files already cataloged with a centroid are not probed again.
func Scan(ctx context.Context, cat catalog.Catalog, cfg config.Config, provider geometry.Provider, req RunRequest, reuseGeometry bool, logger *slog.Logger, rec *metrics.Recorder) (ScanSummary, error) {
	var summary ScanSummary

	req.Extension = config.NormalizeExtension(req.Extension)
	sources, err := Sources(req)
	if err != nil {
		return summary, err
	}
	// absolute roots keep record paths stable between runs started from different directories
	imageRoot, _ := filepath.Abs(req.ImageRoot)
	shapeRoot, _ := filepath.Abs(req.ShapeRoot)

	provider = geometry.WithTimeout(provider, cfg.GeometryTimeout)
	builder := scanner.NewBuilder(cat, provider, logger, rec)

	var skip []string
	if req.OutputRoot != "" {
		if out, err := filepath.Abs(req.OutputRoot); err == nil {
			skip = append(skip, out)
		}
	}

	images, err := builder.Scan(ctx, imageRoot, scanner.Options{
		Class:         models.ClassImage,
		Extensions:    []string{req.Extension},
		Sidecars:      cfg.SidecarsFor(req.Extension),
		Exclude:       cfg.ExcludeSegments,
		SkipPaths:     skip,
		Workers:       cfg.Workers,
		Source:        sources[models.ClassImage],
		ReuseGeometry: reuseGeometry,
	})
	summary.Images = images
	if err != nil {
		return summary, err
	}

	shapes, err := builder.Scan(ctx, shapeRoot, scanner.Options{
		Class:              models.ClassShape,
		Extensions:         []string{".shp"},
		Exclude:            cfg.ExcludeSegments,
		SkipPaths:          skip,
		RequirePixelMarker: true,
		Workers:            cfg.Workers,
		Source:             sources[models.ClassShape],
		ReuseGeometry:      reuseGeometry,
	})
	summary.Shapes = shapes
	return summary, err
}

// OpenCatalog returns the SQLite catalog, or an in-memory one for no-cache runs
func OpenCatalog(cfg config.Config) (catalog.Catalog, error) {
	if cfg.NoCache {
		return storage.New(), nil
	}
	cat, err := catalog.OpenSQLite(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return cat, nil
}

func (r *Runner) summary(req RunRequest, result RunResult, plan Plan, start time.Time) report.Summary {
	s := report.Summary{
		Config: report.RunConfig{
			ImageRoot:  req.ImageRoot,
			ShapeRoot:  req.ShapeRoot,
			OutputRoot: req.OutputRoot,
			Extension:  req.Extension,
			MatchMode:  r.cfg.MatchMode,
			NoCache:    r.cfg.NoCache,
			Started:    start,
		},
		Copied:        result.Copied,
		Skipped:       result.Skipped,
		Unmatched:     result.Unmatched,
		Uncategorized: result.Uncategorized,
		Duplicates:    result.Duplicates,
		UnusedShapes:  plan.UnusedShapes,
	}
	if !r.cfg.NoCache {
		s.Config.Catalog = r.cfg.CatalogPath
	}
	for _, f := range result.Failures {
		s.Failures = append(s.Failures, report.Failure{
			Source:      f.Source,
			Destination: f.Destination,
			Error:       strings.TrimSpace(f.Err.Error()),
		})
	}
	return s
}
