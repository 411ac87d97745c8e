package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photosync/gallerysync/internal/models"
)

// pngBytes renders a small solid PNG for use as a fake remote image.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// imageServer serves pngBytes at /photo.png and 404s everything else.
func imageServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()

	data := pngBytes(t, width, height)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestMaterializer(t *testing.T) (*MaterializerService, string) {
	t.Helper()

	tempDir := t.TempDir()
	return NewMaterializerService(tempDir, NewEXIFService()), tempDir
}

func TestMaterializerService_Fetch(t *testing.T) {
	t.Run("returns the source bytes", func(t *testing.T) {
		server := imageServer(t, 8, 8)
		svc, _ := newTestMaterializer(t)

		data, err := svc.Fetch(context.Background(), server.URL+"/photo.png")
		require.NoError(t, err)
		assert.Equal(t, pngBytes(t, 8, 8), data)
	})

	t.Run("non-success status is a fetch error", func(t *testing.T) {
		server := imageServer(t, 8, 8)
		svc, _ := newTestMaterializer(t)

		_, err := svc.Fetch(context.Background(), server.URL+"/missing.png")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrFetchFailed)
	})

	t.Run("unreachable host is a fetch error", func(t *testing.T) {
		svc, _ := newTestMaterializer(t)

		_, err := svc.Fetch(context.Background(), "http://127.0.0.1:1/photo.png")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrFetchFailed)
	})
}

func TestMaterializerService_Transcode(t *testing.T) {
	t.Run("writes a decodable WebP file", func(t *testing.T) {
		svc, tempDir := newTestMaterializer(t)

		err := svc.Transcode(pngBytes(t, 32, 16), "photos/full/A.webp", TranscodeOptions{Quality: 80})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "photos", "full", "A.webp"))
		require.NoError(t, err)
		require.Greater(t, len(data), 12)
		assert.Equal(t, "RIFF", string(data[0:4]))
		assert.Equal(t, "WEBP", string(data[8:12]))

		img, err := webp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 32, img.Bounds().Dx())
		assert.Equal(t, 16, img.Bounds().Dy())
	})

	t.Run("downscales to the maximum dimension", func(t *testing.T) {
		svc, tempDir := newTestMaterializer(t)

		err := svc.Transcode(pngBytes(t, 200, 100), "photos/thumbnails/A.webp", TranscodeOptions{
			Quality: 60,
			MaxDim:  50,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "photos", "thumbnails", "A.webp"))
		require.NoError(t, err)

		img, err := webp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 50, img.Bounds().Dx())
		assert.Equal(t, 25, img.Bounds().Dy())
	})

	t.Run("keeps small images at their original size", func(t *testing.T) {
		svc, tempDir := newTestMaterializer(t)

		err := svc.Transcode(pngBytes(t, 20, 10), "photos/thumbnails/A.webp", TranscodeOptions{
			Quality: 60,
			MaxDim:  50,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "photos", "thumbnails", "A.webp"))
		require.NoError(t, err)

		img, err := webp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 20, img.Bounds().Dx())
	})

	t.Run("overwrites an existing file", func(t *testing.T) {
		svc, tempDir := newTestMaterializer(t)
		target := filepath.Join(tempDir, "photos", "full", "A.webp")
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
		require.NoError(t, os.WriteFile(target, []byte("stale"), 0644))

		err := svc.Transcode(pngBytes(t, 8, 8), "photos/full/A.webp", TranscodeOptions{Quality: 80})
		require.NoError(t, err)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "RIFF", string(data[0:4]))
	})

	t.Run("undecodable bytes are an encode error and leave no file", func(t *testing.T) {
		svc, tempDir := newTestMaterializer(t)

		err := svc.Transcode([]byte("definitely not an image"), "photos/full/A.webp", TranscodeOptions{Quality: 80})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrEncodeFailed)

		_, statErr := os.Stat(filepath.Join(tempDir, "photos", "full", "A.webp"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestMaterializerService_Materialize(t *testing.T) {
	t.Run("fetches and transcodes in one step", func(t *testing.T) {
		server := imageServer(t, 16, 16)
		svc, _ := newTestMaterializer(t)

		err := svc.Materialize(context.Background(), server.URL+"/photo.png", "photos/full/A.webp", TranscodeOptions{Quality: 80})
		require.NoError(t, err)
		assert.True(t, svc.Exists("photos/full/A.webp"))
	})

	t.Run("fetch failure writes nothing", func(t *testing.T) {
		server := imageServer(t, 16, 16)
		svc, _ := newTestMaterializer(t)

		err := svc.Materialize(context.Background(), server.URL+"/missing.png", "photos/full/A.webp", TranscodeOptions{Quality: 80})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrFetchFailed)
		assert.False(t, svc.Exists("photos/full/A.webp"))
	})
}

func TestMaterializerService_Remove(t *testing.T) {
	t.Run("removes an existing file", func(t *testing.T) {
		svc, _ := newTestMaterializer(t)
		require.NoError(t, svc.Transcode(pngBytes(t, 8, 8), "photos/full/A.webp", TranscodeOptions{Quality: 80}))

		svc.Remove("photos/full/A.webp")
		assert.False(t, svc.Exists("photos/full/A.webp"))
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		svc, _ := newTestMaterializer(t)

		svc.Remove("photos/full/never-existed.webp")
	})
}
