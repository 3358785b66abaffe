package compress

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestCompress_Success(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "backup-20240101000000.sql")
	content := bytes.Repeat([]byte("pg_dump custom format payload\n"), 100)
	require.NoError(t, os.WriteFile(inputPath, content, 0o600))

	svc := New(testLogger())
	result, err := svc.Compress(context.Background(), inputPath)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Error)
	assert.Equal(t, inputPath+".gz", result.OutputPath)
	assert.Equal(t, int64(len(content)), result.OriginalBytes)
	assert.Greater(t, result.CompressedBytes, int64(0))
	assert.Less(t, result.CompressedBytes, result.OriginalBytes)

	// Original is replaced by the artifact.
	assert.NoFileExists(t, inputPath)
	assert.FileExists(t, result.OutputPath)

	// Artifact must decompress back to the original bytes.
	f, err := os.Open(result.OutputPath)
	require.NoError(t, err)
	defer f.Close()

	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, content, decompressed)
}

func TestCompress_MissingInput(t *testing.T) {
	tmpDir := t.TempDir()

	svc := New(testLogger())
	result, err := svc.Compress(context.Background(), filepath.Join(tmpDir, "nope.sql"))

	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "compression failed")
}

func TestCompress_CancelledContext(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "backup.sql")
	require.NoError(t, os.WriteFile(inputPath, []byte("data"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(testLogger())
	result, err := svc.Compress(ctx, inputPath)

	require.NoError(t, err)
	require.NotNil(t, result.Error)
	// Input is left behind for the next run.
	assert.FileExists(t, inputPath)
}
