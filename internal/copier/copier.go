package copier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/shaperenamer/internal/filename"
	"github.com/lehigh-university-libraries/shaperenamer/internal/metrics"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrChecksumVerificationFailed is returned once every copy attempt produced a mismatching file
	ErrChecksumVerificationFailed = errors.New("checksum verification failed")
	// ErrMissingSidecar marks an expected companion file that is absent from the source
	ErrMissingSidecar = errors.New("missing sidecar")
	// ErrDestinationExists is a deliberate skip, never counted as a failure
	ErrDestinationExists = errors.New("destination exists")
)

// Item is one resolved image, its optional shapefile and their destinations
type Item struct {
	ImageID              string
	ShapeID              string
	SourceImagePath      string
	DestinationImagePath string
	SourceShapePath      string // empty when the image has no match
	// DestinationShapeBase is the destination path of the shapefile without extension
	DestinationShapeBase string
	Category             filename.Category
}

// Failure is a per-file error that did not stop the batch
type Failure struct {
	Source      string
	Destination string
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s -> %s: %v", f.Source, f.Destination, f.Err)
}

// Output is a primary file that now exists at its destination
type Output struct {
	Class models.RecordClass
	ID    string
	Path  string
}

// Result summarizes a batch
type Result struct {
	Copied   int
	Skipped  int
	Failures []Failure
	Outputs  []Output
}

func (r *Result) merge(o Result) {
	r.Copied += o.Copied
	r.Skipped += o.Skipped
	r.Failures = append(r.Failures, o.Failures...)
	r.Outputs = append(r.Outputs, o.Outputs...)
}

// Options controls verification and companion handling
type Options struct {
	ImageSidecars   []string // e.g. .ige .rrd .rde
	ShapeExtensions []string // e.g. .shp .dbf .shx .prj
	// Attempts is the maximum number of copies tried before a checksum failure is reported
	Attempts int
	Workers  int
	// StrictShapeSidecars abandons the rest of a shapefile set at the first missing companion
	StrictShapeSidecars bool
}

// Engine copies batches into the output tree
type Engine struct {
	opts     Options
	manifest *Manifest
	logger   *slog.Logger
	metrics  *metrics.Recorder
	copyFn   func(src, dst string) error
}

// NewEngine creates a copy engine. logger and rec may be nil.
func NewEngine(opts Options, manifest *Manifest, logger *slog.Logger, rec *metrics.Recorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		opts:     opts,
		manifest: manifest,
		logger:   logger,
		metrics:  rec,
		copyFn:   copyFile,
	}
}

// Copy processes every item of the batch. Per-file problems are collected in
// the result; existing destinations are skipped and never overwritten.
func (e *Engine) Copy(ctx context.Context, batch []Item) Result {
	var (
		total Result
		mu    sync.Mutex
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Workers)

	for _, item := range batch {
		eg.Go(func() error {
			var r Result
			if err := egCtx.Err(); err != nil {
				r.fail(item.SourceImagePath, item.DestinationImagePath, err)
			} else {
				r = e.copyItem(item)
			}

			mu.Lock()
			total.merge(r)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	return total
}

func (r *Result) fail(src, dst string, err error) {
	r.Failures = append(r.Failures, Failure{Source: src, Destination: dst, Err: err})
}

func (e *Engine) copyItem(item Item) Result {
	var r Result

	switch err := e.copyOne(item.SourceImagePath, item.DestinationImagePath, "image"); {
	case err == nil:
		r.Copied++
		e.logger.Info("Renamed image", "category", item.Category, "source", item.SourceImagePath, "destination", item.DestinationImagePath)
		r.Outputs = append(r.Outputs, Output{Class: models.ClassImage, ID: item.ImageID, Path: item.DestinationImagePath})
	case errors.Is(err, ErrDestinationExists):
		r.Skipped++
		r.Outputs = append(r.Outputs, Output{Class: models.ClassImage, ID: item.ImageID, Path: item.DestinationImagePath})
	default:
		r.fail(item.SourceImagePath, item.DestinationImagePath, err)
		return r
	}

	e.copySidecars(item, &r)

	if item.SourceShapePath != "" {
		e.copyShape(item, &r)
	}

	return r
}

// copySidecars copies whichever image companions exist; failures are only logged
func (e *Engine) copySidecars(item Item, r *Result) {
	srcBase := trimExt(item.SourceImagePath)
	dstBase := trimExt(item.DestinationImagePath)

	for _, ext := range e.opts.ImageSidecars {
		src, ok := companion(srcBase, ext)
		if !ok {
			continue
		}
		dst := dstBase + ext
		switch err := e.copyOne(src, dst, "sidecar"); {
		case err == nil:
			r.Copied++
		case errors.Is(err, ErrDestinationExists):
			r.Skipped++
		default:
			e.logger.Error("Failed to copy sidecar", "source", src, "destination", dst, "error", err)
		}
	}
}

// copyShape copies the shapefile set as a unit
func (e *Engine) copyShape(item Item, r *Result) {
	srcBase := trimExt(item.SourceShapePath)

	for i, ext := range e.opts.ShapeExtensions {
		dst := item.DestinationShapeBase + ext

		src, ok := companion(srcBase, ext)
		if !ok {
			err := fmt.Errorf("%w: %s%s", ErrMissingSidecar, srcBase, ext)
			e.metrics.CopyFailed("missing_sidecar")
			e.logger.Error("Shapefile companion missing", "shapefile", item.SourceShapePath, "extension", ext, "strict", e.opts.StrictShapeSidecars)
			r.fail(srcBase+ext, dst, err)
			if e.opts.StrictShapeSidecars {
				return
			}
			continue
		}

		switch err := e.copyOne(src, dst, "shape"); {
		case err == nil:
			r.Copied++
			if i == 0 {
				r.Outputs = append(r.Outputs, Output{Class: models.ClassShape, ID: item.ShapeID, Path: dst})
			}
		case errors.Is(err, ErrDestinationExists):
			r.Skipped++
		default:
			r.fail(src, dst, err)
		}
	}
}

// copyOne performs a verified copy of one file and records it in the manifest
func (e *Engine) copyOne(src, dst, kind string) error {
	err := e.copyVerified(src, dst)
	switch {
	case err == nil:
	case errors.Is(err, ErrDestinationExists):
		e.metrics.Skipped(kind)
		e.logger.Warn("File already exists in destination, not copying", "destination", dst)
		return err
	case errors.Is(err, fs.ErrNotExist):
		e.metrics.CopyFailed("not_found")
		e.logger.Error("Source file vanished before copy", "source", src, "error", err)
		return err
	case errors.Is(err, ErrChecksumVerificationFailed):
		e.metrics.CopyFailed("checksum")
		e.logger.Error("Checksum verification failed", "source", src, "destination", dst, "attempts", e.opts.Attempts)
		return err
	default:
		e.metrics.CopyFailed("io")
		e.logger.Error("Failed to copy file", "source", src, "destination", dst, "error", err)
		return err
	}

	e.metrics.Copied(kind)
	e.logger.Info("Copied file", "source", src, "destination", dst)

	if e.manifest != nil {
		if err := e.manifest.Append(src, dst); err != nil {
			e.logger.Error("Failed to append manifest entry", "destination", dst, "error", err)
		}
	}
	return nil
}

// copyVerified reserves dst exclusively, then copies until the checksums agree
// or the attempts run out. A destination that never verified is removed so a
// later run does not mistake it for a finished copy.
func (e *Engine) copyVerified(src, dst string) error {
	srcSum, err := Checksum(src)
	if err != nil {
		return fmt.Errorf("failed to checksum source: %w", err)
	}

	reserved, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
		}
		return fmt.Errorf("failed to create destination: %w", err)
	}
	reserved.Close()

	for attempt := 1; attempt <= e.opts.Attempts; attempt++ {
		if err := e.copyFn(src, dst); err != nil {
			_ = os.Remove(dst)
			return err
		}

		dstSum, err := Checksum(dst)
		if err != nil {
			_ = os.Remove(dst)
			return fmt.Errorf("failed to checksum destination: %w", err)
		}
		if dstSum == srcSum {
			return nil
		}

		e.metrics.ChecksumRetry()
		e.logger.Warn("File checksum mismatch, attempting copy again", "destination", dst, "attempt", attempt)
	}

	_ = os.Remove(dst)
	return fmt.Errorf("%w: %s after %d attempts", ErrChecksumVerificationFailed, dst, e.opts.Attempts)
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// companion finds base+ext on disk, accepting an upper case extension
func companion(base, ext string) (string, bool) {
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// MakeLayout creates the output directories below root
func MakeLayout(root string) error {
	for _, dir := range LayoutDirs(root) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Output subdirectories
const (
	DirPAN           = "PAN"
	DirPSH           = "PSH"
	DirUncategorized = "uncategorized_images"
	DirShapes        = "shp"
)

// LayoutDirs lists the root and every category directory
func LayoutDirs(root string) []string {
	return []string{
		root,
		filepath.Join(root, DirPAN),
		filepath.Join(root, DirPSH),
		filepath.Join(root, DirUncategorized),
		filepath.Join(root, DirShapes),
	}
}
