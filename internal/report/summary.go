package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig represents the configuration section of the summary YAML
type RunConfig struct {
	ImageRoot  string    `yaml:"imageroot"`
	ShapeRoot  string    `yaml:"shaperoot"`
	OutputRoot string    `yaml:"outputroot"`
	Extension  string    `yaml:"extension"`
	MatchMode  string    `yaml:"matchmode"`
	Catalog    string    `yaml:"catalog,omitempty"`
	NoCache    bool      `yaml:"nocache"`
	Started    time.Time `yaml:"started"`
}

// Failure represents a single file that could not be copied
type Failure struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Error       string `yaml:"error"`
}

// Summary represents the complete record of a run
type Summary struct {
	Config        RunConfig `yaml:"config"`
	Copied        int       `yaml:"copied"`
	Skipped       int       `yaml:"skipped"`
	Unmatched     int       `yaml:"unmatched"`
	Uncategorized int       `yaml:"uncategorized"`
	Duplicates    int       `yaml:"duplicates"`
	UnusedShapes  []string  `yaml:"unusedshapes,omitempty"`
	Failures      []Failure `yaml:"failures,omitempty"`
}

// RunsDir is the directory below the output root holding one summary per run
const RunsDir = "runs"

// Save writes the summary to <outputRoot>/runs/<timestamp>.yaml and returns its path
func Save(outputRoot string, summary Summary) (string, error) {
	dir := filepath.Join(outputRoot, RunsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create runs directory: %w", err)
	}

	started := summary.Config.Started
	if started.IsZero() {
		started = time.Now()
	}
	filename := filepath.Join(dir, started.Format("2006-01-02_15-04-05")+".yaml")

	data, err := yaml.Marshal(&summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}

// Load reads a summary written by Save
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var summary Summary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &summary, nil
}

// Latest loads the most recent summary below outputRoot. The error wraps
// os.ErrNotExist when no run has been recorded yet.
func Latest(outputRoot string) (string, *Summary, error) {
	paths, err := filepath.Glob(filepath.Join(outputRoot, RunsDir, "*.yaml"))
	if err != nil {
		return "", nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(paths) == 0 {
		return "", nil, fmt.Errorf("no run summary in %s: %w", outputRoot, os.ErrNotExist)
	}

	// timestamped names sort chronologically
	sort.Strings(paths)
	path := paths[len(paths)-1]

	summary, err := Load(path)
	if err != nil {
		return "", nil, err
	}
	return path, summary, nil
}
