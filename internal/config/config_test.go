package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photosync/gallerysync/internal/models"
)

func setupEnv(t *testing.T) string {
	tempDir := t.TempDir()

	// Point the config file lookup somewhere empty so local files don't leak in
	t.Setenv("CONFIG_PATH", filepath.Join(tempDir, "no-such-config.json"))
	t.Setenv("GALLERY_BASE_PATH", tempDir)
	t.Setenv("GALLERY_SYNC_TOKEN", "")
	t.Setenv("GALLERY_API_URL", "")
	t.Setenv("GALLERY_RECORD_TYPE", "")
	t.Setenv("GALLERY_MANIFEST_FILE", "")
	t.Setenv("GALLERY_PAGE_SIZE", "")
	t.Setenv("PREVIEW_ADDRESS", "")

	return tempDir
}

func TestLoad(t *testing.T) {
	t.Run("missing token is fatal", func(t *testing.T) {
		setupEnv(t)

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrMissingToken)
	})

	t.Run("token check happens before any directory is created", func(t *testing.T) {
		tempDir := setupEnv(t)

		_, err := Load()
		require.Error(t, err)

		_, statErr := os.Stat(filepath.Join(tempDir, "photos"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("creates gallery directory tree", func(t *testing.T) {
		tempDir := setupEnv(t)
		t.Setenv("GALLERY_SYNC_TOKEN", "test-token")

		cfg, err := Load()
		require.NoError(t, err)

		assert.DirExists(t, filepath.Join(tempDir, "photos", "thumbnails"))
		assert.DirExists(t, filepath.Join(tempDir, "photos", "full"))
		assert.Equal(t, "test-token", cfg.API.Token)
	})

	t.Run("applies defaults", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("GALLERY_SYNC_TOKEN", "test-token")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "Photo", cfg.API.RecordType)
		assert.Equal(t, 100, cfg.API.PageSize)
		assert.Equal(t, 60, cfg.Gallery.ThumbnailQuality)
		assert.Equal(t, 80, cfg.Gallery.ImageQuality)
		assert.Equal(t, "manifest.json", cfg.Gallery.ManifestFile)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("GALLERY_SYNC_TOKEN", "test-token")
		t.Setenv("GALLERY_API_URL", "https://example.com/db")
		t.Setenv("GALLERY_RECORD_TYPE", "GalleryPhoto")
		t.Setenv("GALLERY_PAGE_SIZE", "25")
		t.Setenv("PREVIEW_ADDRESS", ":9999")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/db", cfg.API.BaseURL)
		assert.Equal(t, "GalleryPhoto", cfg.API.RecordType)
		assert.Equal(t, 25, cfg.API.PageSize)
		assert.Equal(t, ":9999", cfg.Preview.Address)
	})

	t.Run("loads config file then overrides from env", func(t *testing.T) {
		tempDir := setupEnv(t)
		configPath := filepath.Join(tempDir, "gallerysync.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{
			"api": {"baseUrl": "https://file.example.com", "pageSize": 10},
			"gallery": {"thumbnailQuality": 50}
		}`), 0644))
		t.Setenv("CONFIG_PATH", configPath)
		t.Setenv("GALLERY_SYNC_TOKEN", "test-token")
		t.Setenv("GALLERY_API_URL", "https://env.example.com")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
		assert.Equal(t, 10, cfg.API.PageSize)
		assert.Equal(t, 50, cfg.Gallery.ThumbnailQuality)
	})

	t.Run("rejects malformed config file", func(t *testing.T) {
		tempDir := setupEnv(t)
		configPath := filepath.Join(tempDir, "bad.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))
		t.Setenv("CONFIG_PATH", configPath)
		t.Setenv("GALLERY_SYNC_TOKEN", "test-token")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestConfig_ManifestPath(t *testing.T) {
	cfg := &Config{
		Gallery: Gallery{BasePath: "/srv/gallery", ManifestFile: "manifest.json"},
	}

	assert.Equal(t, filepath.Join("/srv/gallery", "manifest.json"), cfg.ManifestPath())
}
