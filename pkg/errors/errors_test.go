package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadError(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewDownloadError("codepoint", "https://example.com/data.zip", cause)

	assert.Contains(t, err.Error(), "codepoint")
	assert.Contains(t, err.Error(), "https://example.com/data.zip")
	assert.ErrorIs(t, err, cause)

	err = err.WithStatusCode(503)
	assert.Contains(t, err.Error(), "503")
}

func TestParseErrorContext(t *testing.T) {
	err := NewParseError("nspl", "malformed CSV", nil).WithFile("NSPL_UK.csv").WithLine(42)

	assert.Contains(t, err.Error(), "nspl")
	assert.Contains(t, err.Error(), "NSPL_UK.csv:42")
	assert.Contains(t, err.Error(), "malformed CSV")
}

func TestErrorsAsDiscriminates(t *testing.T) {
	wrapped := fmt.Errorf("load failed: %w", NewParseError("osm", "truncated blob", nil))

	var parseErr *ParseError
	require.ErrorAs(t, wrapped, &parseErr)
	assert.Equal(t, "osm", parseErr.Source)

	var dlErr *DownloadError
	assert.False(t, stderrors.As(wrapped, &dlErr))
}

func TestStoreErrorUnwraps(t *testing.T) {
	cause := stderrors.New("deadlock detected")
	err := NewStoreError("upsert centroids", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert centroids")
}

func TestPipelineError(t *testing.T) {
	err := NewPipelineError("no postcodes loaded")
	assert.Contains(t, err.Error(), "no postcodes loaded")
}
