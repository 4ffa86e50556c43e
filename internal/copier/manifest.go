package copier

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

// ManifestFileName is the audit trail written into the output root
const ManifestFileName = "manifest.txt"

const manifestTimeLayout = "2006-01-02 15:04"

// Manifest appends one line per copied file. Safe for concurrent use.
type Manifest struct {
	path string
	file *os.File
	mu   sync.Mutex
	now  func() time.Time
}

// OpenManifest opens path in append mode, creating it if needed
func OpenManifest(path string) (*Manifest, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	return &Manifest{path: path, file: file, now: time.Now}, nil
}

// Path returns the manifest location
func (m *Manifest) Path() string {
	return m.path
}

// Append records a copy from source to destination
func (m *Manifest) Append(source, destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := models.ManifestEntry{
		Timestamp:   m.now(),
		Source:      source,
		Destination: destination,
	}
	if _, err := m.file.WriteString(FormatEntry(entry)); err != nil {
		return fmt.Errorf("failed to write manifest entry: %w", err)
	}
	return nil
}

func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}

// FormatEntry renders a manifest line including the trailing newline
func FormatEntry(e models.ManifestEntry) string {
	return fmt.Sprintf("- %s: copied from %s written to %s\n",
		e.Timestamp.Format(manifestTimeLayout), e.Source, e.Destination)
}
