package retention

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoss/pgdrive/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func artifactAt(name string, t time.Time) models.Artifact {
	return models.Artifact{Path: name, ModTime: t}
}

func TestSelectForEviction_ExcessOldestSelected(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var artifacts []models.Artifact
	for i := 0; i < 9; i++ {
		artifacts = append(artifacts, artifactAt(
			fmt.Sprintf("backup-2024010100000%d.sql.gz", i),
			base.Add(time.Duration(i)*time.Hour),
		))
	}

	evict := SelectForEviction(artifacts, 7)

	require.Len(t, evict, 2)
	assert.Equal(t, "backup-20240101000000.sql.gz", evict[0].Path)
	assert.Equal(t, "backup-20240101000001.sql.gz", evict[1].Path)
}

func TestSelectForEviction_UnderCap(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	artifacts := []models.Artifact{
		artifactAt("a.sql.gz", base),
		artifactAt("b.sql.gz", base.Add(time.Hour)),
	}

	assert.Empty(t, SelectForEviction(artifacts, 7))
	assert.Empty(t, SelectForEviction(artifacts, 2))
}

func TestSelectForEviction_EmptyInput(t *testing.T) {
	assert.Empty(t, SelectForEviction(nil, 7))
	assert.Empty(t, SelectForEviction([]models.Artifact{}, 0))
}

func TestSelectForEviction_KeepZeroEvictsEverything(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	artifacts := []models.Artifact{
		artifactAt("b.sql.gz", base.Add(time.Hour)),
		artifactAt("a.sql.gz", base),
	}

	evict := SelectForEviction(artifacts, 0)

	require.Len(t, evict, 2)
	assert.Equal(t, "a.sql.gz", evict[0].Path)
	assert.Equal(t, "b.sql.gz", evict[1].Path)
}

func TestSelectForEviction_IdenticalTimestampsDeterministic(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	artifacts := []models.Artifact{
		artifactAt("c.sql.gz", ts),
		artifactAt("a.sql.gz", ts),
		artifactAt("b.sql.gz", ts),
	}

	first := SelectForEviction(artifacts, 1)
	second := SelectForEviction(artifacts, 1)

	require.Len(t, first, 2)
	assert.Equal(t, "a.sql.gz", first[0].Path)
	assert.Equal(t, "b.sql.gz", first[1].Path)
	assert.Equal(t, first, second)
}

func TestSelectForEviction_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	artifacts := []models.Artifact{
		artifactAt("c.sql.gz", base.Add(2*time.Hour)),
		artifactAt("a.sql.gz", base),
		artifactAt("b.sql.gz", base.Add(time.Hour)),
	}

	_ = SelectForEviction(artifacts, 1)

	assert.Equal(t, "c.sql.gz", artifacts[0].Path)
	assert.Equal(t, "a.sql.gz", artifacts[1].Path)
	assert.Equal(t, "b.sql.gz", artifacts[2].Path)
}

func writeArtifact(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestList_MatchesNamingConvention(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	kept := writeArtifact(t, tmpDir, "backup-20240101000000.sql.gz", now)

	// Uncompressed leftovers, unrelated files, short timestamps, and
	// directories must all be ignored.
	writeArtifact(t, tmpDir, "backup-20240101000000.sql", now)
	writeArtifact(t, tmpDir, "notes.txt", now)
	writeArtifact(t, tmpDir, "backup-2024.sql.gz", now)
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "backup-20240101000001.sql.gz"), 0o750))

	svc := New(testLogger())
	artifacts, err := svc.List(tmpDir)

	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, kept, artifacts[0].Path)
}

func TestList_MissingDirectory(t *testing.T) {
	svc := New(testLogger())
	_, err := svc.List(filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing backup directory")
}

func TestApply_EvictsExcessOldest(t *testing.T) {
	tmpDir := t.TempDir()
	base := time.Now().Add(-24 * time.Hour)

	var paths []string
	for i := 0; i < 9; i++ {
		name := fmt.Sprintf("backup-2024010100000%d.sql.gz", i)
		paths = append(paths, writeArtifact(t, tmpDir, name, base.Add(time.Duration(i)*time.Minute)))
	}

	svc := New(testLogger())
	result, err := svc.Apply(tmpDir, models.RetentionPolicy{MaxBackups: 7})

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Equal(t, 7, result.Kept)
	assert.Equal(t, 2, result.Evicted)

	assert.NoFileExists(t, paths[0])
	assert.NoFileExists(t, paths[1])
	for _, p := range paths[2:] {
		assert.FileExists(t, p)
	}
}

func TestApply_UnderCapDeletesNothing(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	path := writeArtifact(t, tmpDir, "backup-20240101000000.sql.gz", now)

	svc := New(testLogger())
	result, err := svc.Apply(tmpDir, models.RetentionPolicy{MaxBackups: 7})

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, 0, result.Evicted)
	assert.FileExists(t, path)
}

func TestApply_MissingDirectory(t *testing.T) {
	svc := New(testLogger())
	result, err := svc.Apply(filepath.Join(t.TempDir(), "nope"), models.RetentionPolicy{MaxBackups: 7})

	require.NoError(t, err)
	require.NotNil(t, result.Error)
}
