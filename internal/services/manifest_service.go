package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/photosync/gallerysync/internal/models"
)

// ManifestService loads and persists the gallery manifest.
type ManifestService struct {
	path string
}

// NewManifestService creates a ManifestService backed by the given file.
func NewManifestService(path string) *ManifestService {
	return &ManifestService{path: path}
}

// Load reads the persisted manifest. A missing file is an empty gallery, not
// an error; an unreadable or malformed file is.
func (s *ManifestService) Load() ([]models.Descriptor, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Descriptor{}, nil
		}
		return nil, err
	}

	var descriptors []models.Descriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("corrupt manifest %s: %w", s.path, err)
	}

	return descriptors, nil
}

// Save sorts descriptors by capture date descending and overwrites the
// manifest. The write goes through a uniquely named temp file and a rename so
// an interrupted run never leaves a truncated manifest behind.
func (s *ManifestService) Save(descriptors []models.Descriptor) error {
	if descriptors == nil {
		descriptors = []models.Descriptor{}
	}

	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].CaptureDate > descriptors[j].CaptureDate
	})

	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmpPath := fmt.Sprintf("%s.%s.tmp", s.path, uuid.New().String())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}

	return nil
}
