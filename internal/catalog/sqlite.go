package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id TEXT PRIMARY KEY,
	original_path TEXT NOT NULL UNIQUE,
	output_path TEXT,
	centroid_x REAL,
	centroid_y REAL,
	matched_to TEXT,
	last_access TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS shapes (
	id TEXT PRIMARY KEY,
	original_path TEXT NOT NULL UNIQUE,
	output_path TEXT,
	centroid_x REAL,
	centroid_y REAL,
	last_access TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_sources (
	class TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	scanned_at TEXT NOT NULL
);`

// SQLiteStore is a single-file catalog. Writes are serialized through mu;
// reads go straight to the pool.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ Catalog = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the catalog database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "shaperenamer.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	// pragmas in the DSN apply to every pooled connection
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog tables: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) PutImage(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	var matched, output sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, matched_to, output_path FROM images WHERE original_path = ?`, rec.OriginalPath,
	).Scan(&existingID, &matched, &output)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		x, y := centroidArgs(rec.Centroid)
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO images (id, original_path, output_path, centroid_x, centroid_y, matched_to, last_access)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.OriginalPath, nullString(rec.OutputPath), x, y, nullString(rec.MatchedTo), formatTime(rec.LastAccess))
		if err != nil {
			return rec, fmt.Errorf("insert image: %w", err)
		}
		return rec, nil
	case err != nil:
		return rec, fmt.Errorf("lookup image: %w", err)
	}

	rec.ID = existingID
	rec.MatchedTo = matched.String
	if rec.OutputPath == "" {
		rec.OutputPath = output.String
	}
	x, y := centroidArgs(rec.Centroid)
	_, err = s.db.ExecContext(ctx,
		`UPDATE images SET output_path = ?, centroid_x = ?, centroid_y = ?, last_access = ? WHERE id = ?`,
		nullString(rec.OutputPath), x, y, formatTime(rec.LastAccess), rec.ID)
	if err != nil {
		return rec, fmt.Errorf("update image: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) PutShape(ctx context.Context, rec models.ShapeRecord) (models.ShapeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	var output sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, output_path FROM shapes WHERE original_path = ?`, rec.OriginalPath,
	).Scan(&existingID, &output)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		x, y := centroidArgs(rec.Centroid)
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO shapes (id, original_path, output_path, centroid_x, centroid_y, last_access)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.OriginalPath, nullString(rec.OutputPath), x, y, formatTime(rec.LastAccess))
		if err != nil {
			return rec, fmt.Errorf("insert shape: %w", err)
		}
		return rec, nil
	case err != nil:
		return rec, fmt.Errorf("lookup shape: %w", err)
	}

	rec.ID = existingID
	if rec.OutputPath == "" {
		rec.OutputPath = output.String
	}
	x, y := centroidArgs(rec.Centroid)
	_, err = s.db.ExecContext(ctx,
		`UPDATE shapes SET output_path = ?, centroid_x = ?, centroid_y = ?, last_access = ? WHERE id = ?`,
		nullString(rec.OutputPath), x, y, formatTime(rec.LastAccess), rec.ID)
	if err != nil {
		return rec, fmt.Errorf("update shape: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Images(ctx context.Context) ([]models.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_path, output_path, centroid_x, centroid_y, matched_to, last_access
		 FROM images WHERE id != ? ORDER BY id`, models.CompleteID)
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.ImageRecord
	for rows.Next() {
		var rec models.ImageRecord
		var output, matched sql.NullString
		var x, y sql.NullFloat64
		var lastAccess string
		if err := rows.Scan(&rec.ID, &rec.OriginalPath, &output, &x, &y, &matched, &lastAccess); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		rec.OutputPath = output.String
		rec.MatchedTo = matched.String
		rec.Centroid = centroidFrom(x, y)
		rec.LastAccess = parseTime(lastAccess)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Shapes(ctx context.Context) ([]models.ShapeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_path, output_path, centroid_x, centroid_y, last_access
		 FROM shapes WHERE id != ? ORDER BY id`, models.CompleteID)
	if err != nil {
		return nil, fmt.Errorf("select shapes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.ShapeRecord
	for rows.Next() {
		var rec models.ShapeRecord
		var output sql.NullString
		var x, y sql.NullFloat64
		var lastAccess string
		if err := rows.Scan(&rec.ID, &rec.OriginalPath, &output, &x, &y, &lastAccess); err != nil {
			return nil, fmt.Errorf("scan shape: %w", err)
		}
		rec.OutputPath = output.String
		rec.Centroid = centroidFrom(x, y)
		rec.LastAccess = parseTime(lastAccess)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SetMatch(ctx context.Context, imageID, shapeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE images SET matched_to = ?, last_access = ? WHERE id = ?`,
		shapeID, formatTime(time.Now()), imageID)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return expectOne(res, "image", imageID)
}

func (s *SQLiteStore) SetOutputPath(ctx context.Context, class models.RecordClass, id, outputPath string) error {
	table, err := tableFor(class)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET output_path = ?, last_access = ? WHERE id = ?`,
		outputPath, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update output path: %w", err)
	}
	return expectOne(res, string(class), id)
}

// Remove deletes one record. A removed shape is unlinked from its images in the same transaction.
func (s *SQLiteStore) Remove(ctx context.Context, class models.RecordClass, id string) error {
	table, err := tableFor(class)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", class, err)
	}
	if err := expectOne(res, string(class), id); err != nil {
		return err
	}
	if class == models.ClassShape {
		if _, err := tx.ExecContext(ctx, `UPDATE images SET matched_to = NULL WHERE matched_to = ?`, id); err != nil {
			return fmt.Errorf("unlink shape %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetSource(ctx context.Context, class models.RecordClass, source string) error {
	if _, err := tableFor(class); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scan_sources (class, source, scanned_at) VALUES (?, ?, ?)`,
		string(class), source, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write %s source: %w", class, err)
	}
	return nil
}

func (s *SQLiteStore) Source(ctx context.Context, class models.RecordClass) (string, error) {
	var source string
	err := s.db.QueryRowContext(ctx,
		`SELECT source FROM scan_sources WHERE class = ?`, string(class),
	).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s source: %w", class, err)
	}
	return source, nil
}

// MarkComplete appends the sentinel row for class
func (s *SQLiteStore) MarkComplete(ctx context.Context, class models.RecordClass) error {
	table, err := tableFor(class)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+table+` (id, original_path, last_access) VALUES (?, ?, ?)`,
		models.CompleteID, "", formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write %s sentinel: %w", class, err)
	}
	return nil
}

func (s *SQLiteStore) ClearComplete(ctx context.Context, class models.RecordClass) error {
	table, err := tableFor(class)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, models.CompleteID); err != nil {
		return fmt.Errorf("clear %s sentinel: %w", class, err)
	}
	return nil
}

func (s *SQLiteStore) IsComplete(ctx context.Context, class models.RecordClass) (bool, error) {
	table, err := tableFor(class)
	if err != nil {
		return false, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, models.CompleteID,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s sentinel: %w", class, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func tableFor(class models.RecordClass) (string, error) {
	switch class {
	case models.ClassImage:
		return "images", nil
	case models.ClassShape:
		return "shapes", nil
	default:
		return "", fmt.Errorf("unknown record class: %s", class)
	}
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}

func centroidArgs(p *models.Point) (any, any) {
	if p == nil {
		return nil, nil
	}
	return p.X, p.Y
}

func centroidFrom(x, y sql.NullFloat64) *models.Point {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &models.Point{X: x.Float64, Y: y.Float64}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
