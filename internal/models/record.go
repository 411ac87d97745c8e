package models

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Record is one photo record as returned by the remote record-query API.
// Field values are polymorphic (strings, numbers, asset references), so they
// are kept raw and decoded on access.
type Record struct {
	RecordName string           `json:"recordName"`
	Fields     map[string]Field `json:"fields"`
}

// Field wraps a single record field value.
type Field struct {
	Value json.RawMessage `json:"value"`
}

// StringValue decodes the field as a plain string, or "" if it is not one.
func (f Field) StringValue() string {
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return ""
	}
	return s
}

// NumberValue decodes the field as a number.
func (f Field) NumberValue() (float64, bool) {
	var n float64
	if err := json.Unmarshal(f.Value, &n); err != nil {
		return 0, false
	}
	return n, true
}

// DownloadURL decodes the field as an asset reference and returns its
// download URL. Plain string values are accepted as well, since older records
// stored URLs directly.
func (f Field) DownloadURL() string {
	var asset struct {
		DownloadURL string `json:"downloadURL"`
	}
	if err := json.Unmarshal(f.Value, &asset); err == nil && asset.DownloadURL != "" {
		return asset.DownloadURL
	}
	return f.StringValue()
}

func (r Record) field(name string) Field {
	return r.Fields[name]
}

// Status returns the record's moderation status.
func (r Record) Status() string {
	return r.field("status").StringValue()
}

// ThumbnailURL returns the thumbnail download URL, or "" if absent.
func (r Record) ThumbnailURL() string {
	return r.field("thumbnail").DownloadURL()
}

// ImageURL returns the full-resolution download URL, or "" if absent.
func (r Record) ImageURL() string {
	return r.field("image").DownloadURL()
}

// LocationName returns the photo's location, defaulting to "Unknown".
func (r Record) LocationName() string {
	if loc := r.field("locationName").StringValue(); loc != "" {
		return loc
	}
	return "Unknown"
}

// CaptureDate returns the capture timestamp in epoch milliseconds.
func (r Record) CaptureDate() (int64, bool) {
	n, ok := r.field("captureDate").NumberValue()
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// SanitizeID makes a record name safe to use as a filename component.
func SanitizeID(id string) string {
	name := filepath.Base(id)

	replacer := strings.NewReplacer(
		"..", "",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)

	return replacer.Replace(name)
}
