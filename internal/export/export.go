package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Row is one catalog record in flat form
type Row struct {
	Class        string  `parquet:"class" json:"class"`
	ID           string  `parquet:"id" json:"id"`
	OriginalPath string  `parquet:"original_path" json:"original_path"`
	OutputPath   string  `parquet:"output_path" json:"output_path,omitempty"`
	MatchedTo    string  `parquet:"matched_to" json:"matched_to,omitempty"`
	HasCentroid  bool    `parquet:"has_centroid" json:"has_centroid"`
	CentroidX    float64 `parquet:"centroid_x" json:"centroid_x,omitempty"`
	CentroidY    float64 `parquet:"centroid_y" json:"centroid_y,omitempty"`
	LastAccess   string  `parquet:"last_access" json:"last_access,omitempty"`
}

// Centroid returns the centroid, or nil when the geometry was unavailable
func (r Row) Centroid() *models.Point {
	if !r.HasCentroid {
		return nil
	}
	return &models.Point{X: r.CentroidX, Y: r.CentroidY}
}

func newRow(class models.RecordClass, id, original, output, matched string, c *models.Point, access time.Time) Row {
	row := Row{
		Class:        string(class),
		ID:           id,
		OriginalPath: original,
		OutputPath:   output,
		MatchedTo:    matched,
	}
	if c != nil {
		row.HasCentroid = true
		row.CentroidX = c.X
		row.CentroidY = c.Y
	}
	if !access.IsZero() {
		row.LastAccess = access.UTC().Format(time.RFC3339)
	}
	return row
}

// Rows flattens every record of cat, images first
func Rows(ctx context.Context, cat catalog.Catalog) ([]Row, error) {
	images, err := cat.Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read images: %w", err)
	}
	shapes, err := cat.Shapes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read shapes: %w", err)
	}

	rows := make([]Row, 0, len(images)+len(shapes))
	for _, img := range images {
		rows = append(rows, newRow(models.ClassImage, img.ID, img.OriginalPath, img.OutputPath, img.MatchedTo, img.Centroid, img.LastAccess))
	}
	for _, s := range shapes {
		rows = append(rows, newRow(models.ClassShape, s.ID, s.OriginalPath, s.OutputPath, "", s.Centroid, s.LastAccess))
	}
	return rows, nil
}

// Write exports rows to path, choosing the format from the extension
func Write(path string, rows []Row) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return WriteParquet(path, rows)
	case ".jsonl", ".json":
		return WriteJSONL(path, rows)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// WriteParquet writes rows as a single parquet file
func WriteParquet(path string, rows []Row) error {
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	return nil
}

// WriteJSONL writes one JSON object per line
func WriteJSONL(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %s: %w", row.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return file.Close()
}

// Loader reads an exported catalog back
type Loader struct {
	path string
}

// NewLoader creates a new export loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load loads rows from an export file (JSONL or Parquet)
func (l *Loader) Load() ([]Row, error) {
	switch ext := strings.ToLower(filepath.Ext(l.path)); ext {
	case ".parquet":
		return l.loadParquet()
	case ".jsonl", ".json":
		return l.loadJSONL()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func (l *Loader) loadJSONL() ([]Row, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading export: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_rows", len(rows))
	return rows, nil
}

func (l *Loader) loadParquet() ([]Row, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	return rows, nil
}
