package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
)

// MemoryStore is a catalog that lives only for the current process.
// It backs no-cache runs and tests.
type MemoryStore struct {
	images     map[string]models.ImageRecord
	shapes     map[string]models.ShapeRecord
	imagePaths map[string]string // original path -> id
	shapePaths map[string]string
	complete   map[models.RecordClass]bool
	sources    map[models.RecordClass]string
	mu         sync.RWMutex
}

func New() *MemoryStore {
	return &MemoryStore{
		images:     make(map[string]models.ImageRecord),
		shapes:     make(map[string]models.ShapeRecord),
		imagePaths: make(map[string]string),
		shapePaths: make(map[string]string),
		complete:   make(map[models.RecordClass]bool),
		sources:    make(map[models.RecordClass]string),
	}
}

func (s *MemoryStore) PutImage(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.imagePaths[rec.OriginalPath]; exists {
		existing := s.images[id]
		rec.ID = id
		rec.MatchedTo = existing.MatchedTo
		if rec.OutputPath == "" {
			rec.OutputPath = existing.OutputPath
		}
		s.images[id] = rec
		return rec, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.images[rec.ID] = rec
	s.imagePaths[rec.OriginalPath] = rec.ID
	return rec, nil
}

func (s *MemoryStore) PutShape(ctx context.Context, rec models.ShapeRecord) (models.ShapeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.shapePaths[rec.OriginalPath]; exists {
		existing := s.shapes[id]
		rec.ID = id
		if rec.OutputPath == "" {
			rec.OutputPath = existing.OutputPath
		}
		s.shapes[id] = rec
		return rec, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.shapes[rec.ID] = rec
	s.shapePaths[rec.OriginalPath] = rec.ID
	return rec, nil
}

func (s *MemoryStore) Images(ctx context.Context) ([]models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ImageRecord, 0, len(s.images))
	for _, v := range s.images {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) Shapes(ctx context.Context) ([]models.ShapeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ShapeRecord, 0, len(s.shapes))
	for _, v := range s.shapes {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) SetMatch(ctx context.Context, imageID, shapeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.images[imageID]
	if !exists {
		return fmt.Errorf("image %s not found", imageID)
	}
	if _, exists := s.shapes[shapeID]; !exists {
		return fmt.Errorf("shape %s not found", shapeID)
	}
	rec.MatchedTo = shapeID
	s.images[imageID] = rec
	return nil
}

func (s *MemoryStore) SetOutputPath(ctx context.Context, class models.RecordClass, id, outputPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch class {
	case models.ClassImage:
		rec, exists := s.images[id]
		if !exists {
			return fmt.Errorf("image %s not found", id)
		}
		rec.OutputPath = outputPath
		s.images[id] = rec
	case models.ClassShape:
		rec, exists := s.shapes[id]
		if !exists {
			return fmt.Errorf("shape %s not found", id)
		}
		rec.OutputPath = outputPath
		s.shapes[id] = rec
	default:
		return fmt.Errorf("unknown record class: %s", class)
	}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, class models.RecordClass, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch class {
	case models.ClassImage:
		rec, exists := s.images[id]
		if !exists {
			return fmt.Errorf("image %s not found", id)
		}
		delete(s.images, id)
		delete(s.imagePaths, rec.OriginalPath)
	case models.ClassShape:
		rec, exists := s.shapes[id]
		if !exists {
			return fmt.Errorf("shape %s not found", id)
		}
		delete(s.shapes, id)
		delete(s.shapePaths, rec.OriginalPath)
		for imageID, img := range s.images {
			if img.MatchedTo == id {
				img.MatchedTo = ""
				s.images[imageID] = img
			}
		}
	default:
		return fmt.Errorf("unknown record class: %s", class)
	}
	return nil
}

func (s *MemoryStore) SetSource(ctx context.Context, class models.RecordClass, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[class] = source
	return nil
}

func (s *MemoryStore) Source(ctx context.Context, class models.RecordClass) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources[class], nil
}

func (s *MemoryStore) MarkComplete(ctx context.Context, class models.RecordClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete[class] = true
	return nil
}

func (s *MemoryStore) ClearComplete(ctx context.Context, class models.RecordClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.complete, class)
	return nil
}

func (s *MemoryStore) IsComplete(ctx context.Context, class models.RecordClass) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.complete[class], nil
}

func (s *MemoryStore) Close() error {
	return nil
}
