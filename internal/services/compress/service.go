// Package compress gzips dump files into backup artifacts.
package compress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/avoss/pgdrive/internal/models"
)

// Service defines the interface for dump compression.
type Service interface {
	Compress(ctx context.Context, inputPath string) (*models.CompressResult, error)
}

// Impl implements the compression Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new compression service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Compress gzips inputPath to inputPath + ".gz" and removes the original.
// The output is readable by any standard gzip decompressor.
func (s *Impl) Compress(ctx context.Context, inputPath string) (*models.CompressResult, error) {
	outputPath := inputPath + ".gz"

	s.logger.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Msg("compressing dump")

	start := time.Now()
	result := &models.CompressResult{
		OutputPath: outputPath,
	}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result, nil
	}

	if err := s.compressFile(inputPath, outputPath, result); err != nil {
		// Leave the uncompressed dump in place; the next run cleans it up.
		_ = os.Remove(outputPath)
		result.Error = fmt.Errorf("compression failed: %w", err)
		result.Duration = time.Since(start)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	if err := os.Remove(inputPath); err != nil {
		result.Error = fmt.Errorf("removing uncompressed dump: %w", err)
		result.Duration = time.Since(start)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.Duration = time.Since(start)

	s.logger.Info().
		Str("output", outputPath).
		Int64("original_bytes", result.OriginalBytes).
		Int64("compressed_bytes", result.CompressedBytes).
		Dur("duration", result.Duration).
		Msg("compression completed")

	return result, nil
}

func (s *Impl) compressFile(inputPath, outputPath string, result *models.CompressResult) error {
	input, err := os.Open(inputPath) //nolint:gosec // inputPath is controlled by caller
	if err != nil {
		return fmt.Errorf("opening dump file: %w", err)
	}
	defer func() { _ = input.Close() }()

	if info, err := input.Stat(); err == nil {
		result.OriginalBytes = info.Size()
	}

	output, err := os.Create(outputPath) //nolint:gosec // outputPath is controlled by caller
	if err != nil {
		return fmt.Errorf("creating gzip file: %w", err)
	}
	defer func() { _ = output.Close() }()

	gw := gzip.NewWriter(output)
	if _, err := io.Copy(gw, input); err != nil {
		_ = gw.Close()
		return fmt.Errorf("writing gzip stream: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("flushing gzip stream: %w", err)
	}
	if err := output.Close(); err != nil {
		return fmt.Errorf("closing gzip file: %w", err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		result.CompressedBytes = info.Size()
	}

	return nil
}
