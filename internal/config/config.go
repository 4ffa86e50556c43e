package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Match modes accepted by the matcher
const (
	MatchAuto       = "auto"
	MatchIdentifier = "identifier"
	MatchCentroid   = "centroid"
)

// Config holds every tunable of a run. Zero values are replaced by Default().
type Config struct {
	CatalogPath         string              `yaml:"catalog_path"`
	NoCache             bool                `yaml:"no_cache"`
	Rebuild             bool                `yaml:"rebuild"`
	MatchMode           string              `yaml:"match_mode"`
	Workers             int                 `yaml:"workers"`
	CopyRetries         int                 `yaml:"copy_retries"`
	GeometryTimeout     time.Duration       `yaml:"geometry_timeout"`
	StrictShapeSidecars bool                `yaml:"strict_shape_sidecars"`
	ExcludeSegments     []string            `yaml:"exclude_segments"`
	RasterSidecars      map[string][]string `yaml:"raster_sidecars"`
	ShapeExtensions     []string            `yaml:"shape_extensions"`
	MetricsFile         string              `yaml:"metrics_file"`
	Verbose             bool                `yaml:"verbose"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		CatalogPath:     "shaperenamer.db",
		MatchMode:       MatchAuto,
		Workers:         4,
		CopyRetries:     3,
		GeometryTimeout: 2 * time.Minute,
		ExcludeSegments: []string{"output", "conversions"},
		RasterSidecars: map[string][]string{
			".img":  {".ige", ".rrd", ".rde"},
			".tif":  {".tfw", ".aux.xml", ".ovr"},
			".tiff": {".tfw", ".aux.xml", ".ovr"},
		},
		ShapeExtensions: []string{".shp", ".dbf", ".shx", ".prj"},
	}
}

// Load reads a YAML config file on top of the defaults and then applies
// SHAPERENAMER_* environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SHAPERENAMER_CATALOG"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv("SHAPERENAMER_MATCH_MODE"); v != "" {
		c.MatchMode = v
	}
	if v := os.Getenv("SHAPERENAMER_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv("SHAPERENAMER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHAPERENAMER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("SHAPERENAMER_COPY_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHAPERENAMER_COPY_RETRIES: %w", err)
		}
		c.CopyRetries = n
	}
	if v := os.Getenv("SHAPERENAMER_GEOMETRY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SHAPERENAMER_GEOMETRY_TIMEOUT: %w", err)
		}
		c.GeometryTimeout = d
	}
	if v := os.Getenv("SHAPERENAMER_NO_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SHAPERENAMER_NO_CACHE: %w", err)
		}
		c.NoCache = b
	}
	return nil
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	switch c.MatchMode {
	case MatchAuto, MatchIdentifier, MatchCentroid:
	default:
		return fmt.Errorf("unsupported match mode: %s (supported: auto, identifier, centroid)", c.MatchMode)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.CopyRetries < 1 {
		return fmt.Errorf("copy_retries must be at least 1, got %d", c.CopyRetries)
	}
	if !c.NoCache && c.CatalogPath == "" {
		return fmt.Errorf("catalog_path is required unless no_cache is set")
	}
	return nil
}

// SidecarsFor returns the implicit sidecar extensions of a primary raster extension
func (c Config) SidecarsFor(ext string) []string {
	return c.RasterSidecars[NormalizeExtension(ext)]
}

// NormalizeExtension lower-cases an extension and ensures a leading dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
