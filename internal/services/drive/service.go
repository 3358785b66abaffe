// Package drive uploads backup artifacts to a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/avoss/pgdrive/internal/models"
)

// Service defines the interface for artifact uploads.
type Service interface {
	Upload(ctx context.Context, cfg models.DriveConfig, filePath string) (*models.UploadResult, error)
}

// FileCreator allows mocking the Drive files.create call in tests.
type FileCreator interface {
	Create(ctx context.Context, cfg models.DriveConfig, name string, content io.Reader) (string, error)
}

// apiCreator talks to the real Drive v3 API using service-account credentials.
type apiCreator struct{}

func (apiCreator) Create(ctx context.Context, cfg models.DriveConfig, name string, content io.Reader) (string, error) {
	svc, err := drivev3.NewService(ctx,
		option.WithCredentialsJSON(cfg.ServiceAccountKey),
		option.WithScopes(drivev3.DriveScope),
	)
	if err != nil {
		return "", fmt.Errorf("creating Drive client: %w", err)
	}

	meta := &drivev3.File{
		Name:    name,
		Parents: []string{cfg.FolderID},
	}

	created, err := svc.Files.Create(meta).Media(content).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive files.create: %w", err)
	}

	return created.Id, nil
}

// Impl implements the Drive Service interface.
type Impl struct {
	creator FileCreator
	logger  zerolog.Logger
}

// New creates a new Drive service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		creator: apiCreator{},
		logger:  logger,
	}
}

// NewWithCreator creates a new Drive service with a custom file creator (for testing).
func NewWithCreator(logger zerolog.Logger, creator FileCreator) *Impl {
	return &Impl{
		creator: creator,
		logger:  logger,
	}
}

// Upload sends the artifact's bytes to the configured Drive folder and
// returns the created file ID.
func (s *Impl) Upload(ctx context.Context, cfg models.DriveConfig, filePath string) (*models.UploadResult, error) {
	name := filepath.Base(filePath)

	s.logger.Info().
		Str("artifact", name).
		Str("folder_id", cfg.FolderID).
		Msg("uploading artifact to Google Drive")

	start := time.Now()
	result := &models.UploadResult{}

	f, err := os.Open(filePath) //nolint:gosec // filePath is controlled by caller
	if err != nil {
		result.Error = fmt.Errorf("opening artifact: %w", err)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}
	defer func() { _ = f.Close() }()

	if info, err := f.Stat(); err == nil {
		result.SizeBytes = info.Size()
	}

	fileID, err := s.creator.Create(ctx, cfg, name, f)
	if err != nil {
		result.Error = fmt.Errorf("upload failed: %w", err)
		result.Duration = time.Since(start)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.FileID = fileID
	result.Duration = time.Since(start)

	s.logger.Info().
		Str("artifact", name).
		Str("file_id", fileID).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("artifact uploaded")

	return result, nil
}
