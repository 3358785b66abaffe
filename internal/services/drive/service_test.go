package drive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoss/pgdrive/internal/models"
)

type mockCreator struct {
	createFunc func(ctx context.Context, cfg models.DriveConfig, name string, content io.Reader) (string, error)
}

func (m *mockCreator) Create(ctx context.Context, cfg models.DriveConfig, name string, content io.Reader) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, cfg, name, content)
	}
	return "file-id", nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.DriveConfig {
	return models.DriveConfig{
		ServiceAccountKey: []byte(`{"type":"service_account"}`),
		FolderID:          "folder-123",
	}
}

func TestUpload_Success(t *testing.T) {
	tmpDir := t.TempDir()
	artifactPath := filepath.Join(tmpDir, "backup-20240101000000.sql.gz")
	require.NoError(t, os.WriteFile(artifactPath, []byte("gzip bytes"), 0o600))

	var capturedName string
	var capturedFolder string
	var capturedContent []byte

	creator := &mockCreator{
		createFunc: func(ctx context.Context, cfg models.DriveConfig, name string, content io.Reader) (string, error) {
			capturedName = name
			capturedFolder = cfg.FolderID
			data, err := io.ReadAll(content)
			if err != nil {
				return "", err
			}
			capturedContent = data
			return "uploaded-file-id", nil
		},
	}

	svc := NewWithCreator(testLogger(), creator)
	result, err := svc.Upload(context.Background(), testConfig(), artifactPath)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Error)
	assert.Equal(t, "uploaded-file-id", result.FileID)
	assert.Equal(t, int64(len("gzip bytes")), result.SizeBytes)

	assert.Equal(t, "backup-20240101000000.sql.gz", capturedName)
	assert.Equal(t, "folder-123", capturedFolder)
	assert.Equal(t, []byte("gzip bytes"), capturedContent)
}

func TestUpload_MissingArtifact(t *testing.T) {
	tmpDir := t.TempDir()

	svc := NewWithCreator(testLogger(), &mockCreator{})
	result, err := svc.Upload(context.Background(), testConfig(), filepath.Join(tmpDir, "nope.sql.gz"))

	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "opening artifact")
}

func TestUpload_APIFailure(t *testing.T) {
	tmpDir := t.TempDir()
	artifactPath := filepath.Join(tmpDir, "backup.sql.gz")
	require.NoError(t, os.WriteFile(artifactPath, []byte("data"), 0o600))

	creator := &mockCreator{
		createFunc: func(ctx context.Context, cfg models.DriveConfig, name string, content io.Reader) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	svc := NewWithCreator(testLogger(), creator)
	result, err := svc.Upload(context.Background(), testConfig(), artifactPath)

	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "upload failed")
	assert.Contains(t, result.Error.Error(), "quota exceeded")

	// Local artifact stays on disk for the next scheduled run.
	assert.FileExists(t, artifactPath)
}
