package models

// Descriptor is the manifest entry for one synced photo. Paths are
// slash-separated and relative to the gallery base directory.
type Descriptor struct {
	ID           string `json:"id"`
	LocationName string `json:"locationName"`
	CaptureDate  int64  `json:"captureDate"`
	Thumbnail    string `json:"thumbnail"`
	Image        string `json:"image"`
}

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
	Failed  int `json:"failed"`
}

// Errors
type SyncError struct {
	Message string
}

func (e SyncError) Error() string {
	return e.Message
}

var (
	ErrMissingToken = SyncError{"auth token is required"}
	ErrQueryFailed  = SyncError{"remote record query failed"}
	ErrFetchFailed  = SyncError{"image fetch failed"}
	ErrEncodeFailed = SyncError{"image transcode failed"}
	ErrMissingAsset = SyncError{"record is missing a download URL"}
)
