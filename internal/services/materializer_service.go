package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"

	"github.com/photosync/gallerysync/internal/models"
)

// TranscodeOptions controls how a fetched image is re-encoded.
type TranscodeOptions struct {
	Quality int // WebP quality (1-100)
	MaxDim  int // Maximum dimension after resize; 0 keeps the original size
}

// MaterializerService downloads source images and writes transcoded WebP
// files into the gallery tree.
type MaterializerService struct {
	basePath   string
	exif       *EXIFService
	httpClient *http.Client
}

// NewMaterializerService creates a new MaterializerService rooted at basePath.
func NewMaterializerService(basePath string, exifService *EXIFService) *MaterializerService {
	return &MaterializerService{
		basePath:   basePath,
		exif:       exifService,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Fetch retrieves the raw bytes behind a download URL.
func (s *MaterializerService) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", models.ErrFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}

	return data, nil
}

// Transcode decodes image bytes, corrects EXIF orientation, optionally
// downscales, and writes a WebP file at the relative path. An existing file
// is overwritten; nothing is left behind on failure.
func (s *MaterializerService) Transcode(data []byte, relativePath string, opts TranscodeOptions) error {
	img, err := decodeImage(data)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrEncodeFailed, err)
	}

	img = applyOrientation(img, s.exif.Extract(data).Orientation)

	if opts.MaxDim > 0 {
		bounds := img.Bounds()
		if bounds.Dx() > opts.MaxDim || bounds.Dy() > opts.MaxDim {
			img = imaging.Fit(img, opts.MaxDim, opts.MaxDim, imaging.Lanczos)
		}
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("%w: %v", models.ErrEncodeFailed, err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrEncodeFailed, err)
	}
	defer out.Close()

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	if err := webp.Encode(out, img, &webp.Options{Quality: float32(quality)}); err != nil {
		os.Remove(fullPath) // Clean up on failure
		return fmt.Errorf("%w: %v", models.ErrEncodeFailed, err)
	}

	return nil
}

// Materialize fetches a source URL and transcodes it in one step.
func (s *MaterializerService) Materialize(ctx context.Context, sourceURL, relativePath string, opts TranscodeOptions) error {
	data, err := s.Fetch(ctx, sourceURL)
	if err != nil {
		return err
	}
	return s.Transcode(data, relativePath, opts)
}

// Remove deletes a gallery file. A missing file is not an error; other
// failures are logged and swallowed.
func (s *MaterializerService) Remove(relativePath string) {
	if relativePath == "" {
		return
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relativePath))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove %s: %v", relativePath, err)
	}
}

// Exists reports whether a gallery file is present.
func (s *MaterializerService) Exists(relativePath string) bool {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relativePath))
	_, err := os.Stat(fullPath)
	return err == nil
}

// decodeImage decodes via the standard registered formats, falling back to
// HEIC for camera originals.
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}

	img, heicErr := goheif.Decode(bytes.NewReader(data))
	if heicErr != nil {
		return nil, err
	}
	return img, nil
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
