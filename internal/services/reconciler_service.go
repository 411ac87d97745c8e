package services

import (
	"context"
	"log"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/photosync/gallerysync/internal/models"
)

// RecordSource supplies the full remote record set.
type RecordSource interface {
	FetchAll(ctx context.Context) ([]models.Record, error)
}

// ReconcilerService drives one sync pass: it diffs the remote record set
// against the local manifest, prunes vanished photos, materializes new ones,
// and writes the updated manifest.
type ReconcilerService struct {
	source       RecordSource
	materializer *MaterializerService
	exif         *EXIFService
	manifest     *ManifestService

	thumbnailQuality int
	thumbnailMaxDim  int
	imageQuality     int

	tracer       trace.Tracer
	photoCounter metric.Int64Counter
	syncDuration metric.Float64Histogram
}

// NewReconcilerService creates a new ReconcilerService.
func NewReconcilerService(
	source RecordSource,
	materializer *MaterializerService,
	exifService *EXIFService,
	manifest *ManifestService,
	thumbnailQuality, thumbnailMaxDim, imageQuality int,
) *ReconcilerService {
	meter := otel.Meter("gallerysync")

	photoCounter, err := meter.Int64Counter("gallery.sync.photos",
		metric.WithDescription("Photos processed per sync, by outcome"))
	if err != nil {
		log.Printf("Failed to create photo counter: %v", err)
	}

	syncDuration, err := meter.Float64Histogram("gallery.sync.duration",
		metric.WithDescription("Sync run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		log.Printf("Failed to create duration histogram: %v", err)
	}

	return &ReconcilerService{
		source:           source,
		materializer:     materializer,
		exif:             exifService,
		manifest:         manifest,
		thumbnailQuality: thumbnailQuality,
		thumbnailMaxDim:  thumbnailMaxDim,
		imageQuality:     imageQuality,
		tracer:           otel.Tracer("gallerysync"),
		photoCounter:     photoCounter,
		syncDuration:     syncDuration,
	}
}

// Sync runs one reconciliation pass and returns per-outcome counts.
//
// Descriptors whose id is still present remotely are carried forward
// unchanged: remote metadata edits are deliberately not picked up for
// already-synced photos. Per-record download or transcode failures skip that
// record and the run continues; only the remote query and manifest I/O are
// fatal.
func (s *ReconcilerService) Sync(ctx context.Context) (*models.SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "gallery.sync")
	defer span.End()
	start := time.Now()

	records, err := s.source.FetchAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	existing, err := s.manifest.Load()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Index the manifest by id once; first occurrence wins on duplicates.
	byID := make(map[string]models.Descriptor, len(existing))
	for _, d := range existing {
		if _, ok := byID[d.ID]; ok {
			log.Printf("Manifest has duplicate id %q, keeping the first entry", d.ID)
			continue
		}
		byID[d.ID] = d
	}

	remoteIDs := make(map[string]bool, len(records))
	for _, r := range records {
		remoteIDs[r.RecordName] = true
	}

	result := &models.SyncResult{}

	// Removal phase: drop manifest entries whose record vanished remotely.
	for _, d := range existing {
		if remoteIDs[d.ID] {
			continue
		}
		log.Printf("Removing %s (no longer approved remotely)", d.ID)
		s.materializer.Remove(d.Thumbnail)
		s.materializer.Remove(d.Image)
		result.Removed++
	}

	// Retention/addition phase, in server-provided order.
	output := make([]models.Descriptor, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		id := r.RecordName
		if id == "" {
			log.Printf("Skipping record with empty record name")
			result.Failed++
			continue
		}
		if seen[id] {
			log.Printf("Skipping duplicate remote record %q", id)
			continue
		}
		seen[id] = true

		if d, ok := byID[id]; ok {
			output = append(output, d)
			result.Kept++
			continue
		}

		d, err := s.addPhoto(ctx, r)
		if err != nil {
			log.Printf("Skipping %s: %v", id, err)
			result.Failed++
			continue
		}
		output = append(output, *d)
		result.Added++
	}

	if err := s.manifest.Save(output); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.recordMetrics(ctx, result, time.Since(start))

	return result, nil
}

// addPhoto materializes both assets for a new record and builds its
// descriptor. The full image is fetched first so its EXIF data can supply a
// capture date when the record has none.
func (s *ReconcilerService) addPhoto(ctx context.Context, record models.Record) (*models.Descriptor, error) {
	thumbnailURL := record.ThumbnailURL()
	imageURL := record.ImageURL()
	if thumbnailURL == "" || imageURL == "" {
		return nil, models.ErrMissingAsset
	}

	safeID := models.SanitizeID(record.RecordName)
	thumbnailPath := path.Join("photos", "thumbnails", safeID+".webp")
	imagePath := path.Join("photos", "full", safeID+".webp")

	imageData, err := s.materializer.Fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	meta := s.exif.Extract(imageData)

	if err := s.materializer.Transcode(imageData, imagePath, TranscodeOptions{
		Quality: s.imageQuality,
	}); err != nil {
		return nil, err
	}

	if err := s.materializer.Materialize(ctx, thumbnailURL, thumbnailPath, TranscodeOptions{
		Quality: s.thumbnailQuality,
		MaxDim:  s.thumbnailMaxDim,
	}); err != nil {
		// Don't leave a full image behind for a record the manifest
		// will never reference.
		s.materializer.Remove(imagePath)
		return nil, err
	}

	return &models.Descriptor{
		ID:           record.RecordName,
		LocationName: record.LocationName(),
		CaptureDate:  s.captureDate(record, meta),
		Thumbnail:    thumbnailPath,
		Image:        imagePath,
	}, nil
}

// captureDate resolves the capture timestamp in epoch milliseconds: record
// field, then EXIF capture time, then now.
func (s *ReconcilerService) captureDate(record models.Record, meta *EXIFData) int64 {
	if ms, ok := record.CaptureDate(); ok {
		return ms
	}
	if meta.DateTaken != nil {
		return meta.DateTaken.UnixMilli()
	}
	return time.Now().UnixMilli()
}

func (s *ReconcilerService) recordMetrics(ctx context.Context, result *models.SyncResult, elapsed time.Duration) {
	if s.photoCounter != nil {
		outcomes := []struct {
			name  string
			count int
		}{
			{"added", result.Added},
			{"removed", result.Removed},
			{"kept", result.Kept},
			{"failed", result.Failed},
		}
		for _, o := range outcomes {
			s.photoCounter.Add(ctx, int64(o.count),
				metric.WithAttributes(attribute.String("outcome", o.name)))
		}
	}
	if s.syncDuration != nil {
		s.syncDuration.Record(ctx, elapsed.Seconds())
	}
}
