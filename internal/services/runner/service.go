// Package runner orchestrates the backup workflow.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/avoss/pgdrive/internal/dburl"
	"github.com/avoss/pgdrive/internal/models"
	"github.com/avoss/pgdrive/internal/services/compress"
	"github.com/avoss/pgdrive/internal/services/drive"
	"github.com/avoss/pgdrive/internal/services/postgres"
	"github.com/avoss/pgdrive/internal/services/retention"
	"github.com/avoss/pgdrive/internal/services/telegram"
)

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context, cfg models.BackupConfig) (*models.RunResult, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	postgresSvc  postgres.Service
	compressSvc  compress.Service
	driveSvc     drive.Service
	retentionSvc retention.Service
	telegramSvc  telegram.Service
	logger       zerolog.Logger
	now          func() time.Time
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		postgresSvc:  postgres.New(logger),
		compressSvc:  compress.New(logger),
		driveSvc:     drive.New(logger),
		retentionSvc: retention.New(logger),
		telegramSvc:  telegram.New(logger),
		logger:       logger,
		now:          time.Now,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	postgresSvc postgres.Service,
	compressSvc compress.Service,
	driveSvc drive.Service,
	retentionSvc retention.Service,
	telegramSvc telegram.Service,
	now func() time.Time,
) *Impl {
	return &Impl{
		postgresSvc:  postgresSvc,
		compressSvc:  compressSvc,
		driveSvc:     driveSvc,
		retentionSvc: retentionSvc,
		telegramSvc:  telegramSvc,
		logger:       logger,
		now:          now,
	}
}

// Run executes the complete backup workflow: resolve the connection URL,
// verify connectivity, dump, compress, upload, then prune local artifacts.
// The run aborts on the first failure; nothing is retried.
func (s *Impl) Run(ctx context.Context, cfg models.BackupConfig) (*models.RunResult, error) {
	startTime := s.now()
	var failedStep string
	var runErr error

	result := &models.RunResult{}

	s.logger.Info().
		Str("backup_dir", cfg.Backup.Directory).
		Int("max_backups", cfg.Retention.MaxBackups).
		Msg("starting backup run")

	defer func() {
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, result, startTime, failedStep, runErr)
		}
	}()

	// Step 1: Resolve connection parameters from the database URL.
	failedStep = "parse"
	spec, err := dburl.Parse(cfg.Database.URL, cfg.Database.FallbackUser)
	if err != nil {
		runErr = err
		return nil, fmt.Errorf("resolving database URL: %w", err)
	}
	if cfg.Database.NameOverride != "" {
		spec.Database = cfg.Database.NameOverride
	}
	result.Database = spec.Database

	// Step 2: Connectivity check, before any disk is spent on a dump.
	failedStep = "connect"
	if err := s.postgresSvc.Ping(ctx, *spec); err != nil {
		runErr = err
		return nil, err
	}

	// Step 3: Dump into the backup directory.
	failedStep = "prepare"
	if err := os.MkdirAll(cfg.Backup.Directory, 0o750); err != nil {
		runErr = fmt.Errorf("creating backup directory: %w", err)
		return nil, runErr
	}

	failedStep = "dump"
	dumpPath := filepath.Join(cfg.Backup.Directory, postgres.DumpFilename(startTime))
	dumpResult, err := s.postgresSvc.Dump(ctx, *spec, dumpPath)
	if err != nil {
		runErr = err
		return nil, fmt.Errorf("dump failed: %w", err)
	}
	if dumpResult.Error != nil {
		runErr = dumpResult.Error
		return nil, fmt.Errorf("dump failed: %w", dumpResult.Error)
	}

	// Step 4: Compress, replacing the raw dump.
	failedStep = "compress"
	compressResult, err := s.compressSvc.Compress(ctx, dumpResult.OutputPath)
	if err != nil {
		runErr = err
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if compressResult.Error != nil {
		runErr = compressResult.Error
		return nil, fmt.Errorf("compression failed: %w", compressResult.Error)
	}
	result.Artifact = filepath.Base(compressResult.OutputPath)

	// Step 5: Upload the artifact.
	failedStep = "upload"
	uploadResult, err := s.driveSvc.Upload(ctx, cfg.Drive, compressResult.OutputPath)
	if err != nil {
		runErr = err
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	if uploadResult.Error != nil {
		runErr = uploadResult.Error
		return nil, fmt.Errorf("upload failed: %w", uploadResult.Error)
	}
	result.UploadID = uploadResult.FileID

	s.logger.Info().
		Str("artifact", result.Artifact).
		Str("file_id", uploadResult.FileID).
		Msg("backup uploaded to Google Drive")

	// Step 6: Prune local artifacts beyond the retention cap.
	failedStep = "retention"
	retentionResult, err := s.retentionSvc.Apply(cfg.Backup.Directory, cfg.Retention)
	if err != nil {
		runErr = err
		return nil, fmt.Errorf("retention failed: %w", err)
	}
	if retentionResult.Error != nil {
		runErr = retentionResult.Error
		return nil, fmt.Errorf("retention failed: %w", retentionResult.Error)
	}
	result.BackupsKept = retentionResult.Kept
	result.BackupsEvicted = retentionResult.Evicted

	// Success - clear failedStep
	failedStep = ""
	result.Duration = s.now().Sub(startTime)

	s.logger.Info().
		Int("kept", result.BackupsKept).
		Int("evicted", result.BackupsEvicted).
		Dur("duration", result.Duration).
		Msg("backup run completed successfully")

	return result, nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.BackupConfig,
	runResult *models.RunResult,
	startTime time.Time,
	failedStep string,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:   runErr == nil,
		Database:  runResult.Database,
		StartTime: startTime,
		Duration:  s.now().Sub(startTime),
	}

	if hostname, err := os.Hostname(); err == nil {
		msg.Host = hostname
	}

	if runErr != nil {
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	} else {
		msg.Artifact = runResult.Artifact
		msg.UploadID = runResult.UploadID
		msg.BackupsKept = runResult.BackupsKept
		msg.BackupsEvicted = runResult.BackupsEvicted
	}

	result, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
