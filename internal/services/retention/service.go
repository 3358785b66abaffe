// Package retention decides which local backup artifacts to evict and
// deletes them.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/rs/zerolog"

	"github.com/avoss/pgdrive/internal/models"
)

// artifactPattern matches the backup-<YYYYMMDDHHMMSS>.sql.gz naming
// convention. Anything else in the backup directory is left alone.
var artifactPattern = regexp.MustCompile(`^backup-\d{14}\.sql\.gz$`)

// Service defines the interface for retention operations.
type Service interface {
	List(dir string) ([]models.Artifact, error)
	Apply(dir string, policy models.RetentionPolicy) (*models.RetentionResult, error)
}

// SelectForEviction returns the artifacts to delete so that at most keep
// remain, ordered oldest first. Ties in modification time are broken by
// ascending filename so repeated calls over the same input select the same
// artifacts in the same order. The function performs no I/O and does not
// mutate its input.
func SelectForEviction(artifacts []models.Artifact, keep int) []models.Artifact {
	if keep < 0 {
		keep = 0
	}
	if len(artifacts) <= keep {
		return nil
	}

	sorted := make([]models.Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return filepath.Base(sorted[i].Path) < filepath.Base(sorted[j].Path)
		}
		return sorted[i].ModTime.Before(sorted[j].ModTime)
	})

	return sorted[:len(sorted)-keep]
}

// Impl implements the retention Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new retention service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// List returns the artifacts in dir that match the naming convention.
func (s *Impl) List(dir string) ([]models.Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing backup directory: %w", err)
	}

	var artifacts []models.Artifact
	for _, entry := range entries {
		if entry.IsDir() || !artifactPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("reading artifact info: %w", err)
		}
		artifacts = append(artifacts, models.Artifact{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}

	return artifacts, nil
}

// Apply lists the artifacts in dir, selects the excess oldest per the policy,
// and deletes them. The first deletion failure aborts the pass.
func (s *Impl) Apply(dir string, policy models.RetentionPolicy) (*models.RetentionResult, error) {
	result := &models.RetentionResult{}

	artifacts, err := s.List(dir)
	if err != nil {
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	evict := SelectForEviction(artifacts, policy.MaxBackups)
	for _, artifact := range evict {
		s.logger.Debug().
			Str("artifact", artifact.Path).
			Time("mod_time", artifact.ModTime).
			Msg("evicting artifact")

		if err := os.Remove(artifact.Path); err != nil {
			result.Error = fmt.Errorf("evicting artifact: %w", err)
			result.Kept = len(artifacts) - result.Evicted
			return result, nil //nolint:nilerr // error is stored in result struct by design
		}
		result.Evicted++
	}

	result.Kept = len(artifacts) - result.Evicted

	s.logger.Info().
		Int("kept", result.Kept).
		Int("evicted", result.Evicted).
		Msg("retention pass completed")

	return result, nil
}
