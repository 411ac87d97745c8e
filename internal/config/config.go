package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/photosync/gallerysync/internal/models"
)

// Config holds all application configuration
type Config struct {
	API     API     `json:"api"`
	Gallery Gallery `json:"gallery"`
	Preview Preview `json:"preview"`
}

// API configuration for the remote record store
type API struct {
	BaseURL    string `json:"baseUrl"`
	RecordType string `json:"recordType"`
	Token      string `json:"token"`
	PageSize   int    `json:"pageSize"`
}

// Gallery configuration for local storage and transcoding
type Gallery struct {
	BasePath         string `json:"basePath"`
	ManifestFile     string `json:"manifestFile"`
	ThumbnailQuality int    `json:"thumbnailQuality"`
	ThumbnailMaxDim  int    `json:"thumbnailMaxDim"`
	ImageQuality     int    `json:"imageQuality"`
}

// Preview configuration for the local gallery server
type Preview struct {
	Address string `json:"address"`
}

// ManifestPath returns the absolute path of the manifest file.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Gallery.BasePath, c.Gallery.ManifestFile)
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		API: API{
			BaseURL:    "https://api.apple-cloudkit.com/database/1/iCloud.com.photosync.gallery/production/public",
			RecordType: "Photo",
			PageSize:   100,
		},
		Gallery: Gallery{
			BasePath:         ".",
			ManifestFile:     "manifest.json",
			ThumbnailQuality: 60,
			ThumbnailMaxDim:  480,
			ImageQuality:     80,
		},
		Preview: Preview{
			Address: ":8080",
		},
	}
}

// Load loads configuration from file or environment. The auth token is
// required and checked before any directory is touched.
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "gallerysync.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	// Override from environment variables
	if baseURL := os.Getenv("GALLERY_API_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if recordType := os.Getenv("GALLERY_RECORD_TYPE"); recordType != "" {
		cfg.API.RecordType = recordType
	}
	if token := os.Getenv("GALLERY_SYNC_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if basePath := os.Getenv("GALLERY_BASE_PATH"); basePath != "" {
		cfg.Gallery.BasePath = basePath
	}
	if manifest := os.Getenv("GALLERY_MANIFEST_FILE"); manifest != "" {
		cfg.Gallery.ManifestFile = manifest
	}
	if addr := os.Getenv("PREVIEW_ADDRESS"); addr != "" {
		cfg.Preview.Address = addr
	}
	if pageSize := os.Getenv("GALLERY_PAGE_SIZE"); pageSize != "" {
		if n, err := strconv.Atoi(pageSize); err == nil && n > 0 {
			cfg.API.PageSize = n
		}
	}

	if cfg.API.Token == "" {
		return nil, models.ErrMissingToken
	}

	// Make base path absolute
	absPath, err := filepath.Abs(cfg.Gallery.BasePath)
	if err != nil {
		return nil, err
	}
	cfg.Gallery.BasePath = absPath

	// Ensure the gallery directory tree exists
	for _, dir := range []string{
		filepath.Join(absPath, "photos", "thumbnails"),
		filepath.Join(absPath, "photos", "full"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
