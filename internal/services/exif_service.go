package services

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIFData contains the metadata this tool consumes from an image.
type EXIFData struct {
	Orientation int
	DateTaken   *time.Time
}

// EXIFService extracts EXIF metadata from images
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// Extract reads orientation and capture time from image bytes. Images
// without EXIF data yield defaults, never an error.
func (s *EXIFService) Extract(data []byte) *EXIFData {
	result := &EXIFData{Orientation: 1}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// No EXIF data or unsupported format
		return result
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			result.Orientation = val
		}
	}

	if dt, err := x.DateTime(); err == nil {
		result.DateTaken = &dt
	}

	return result
}
