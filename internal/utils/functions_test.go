package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to DownloadStatus
		expected bool
	}{
		{StatusQueued, StatusDownloading, true},
		{StatusQueued, StatusSuccess, false},
		{StatusDownloading, StatusSuccess, true},
		{StatusDownloading, StatusFailed, true},
		{StatusDownloading, StatusStopped, true},
		{StatusDownloading, StatusQueued, false},
		{StatusSuccess, StatusDownloading, false},
		{StatusStopped, StatusFailed, false},
		{StatusFailed, StatusSuccess, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.from.CanTransition(test.to), "%s -> %s", test.from, test.to)
	}
}

func TestDownloadStatus_IsFinished(t *testing.T) {
	assert.False(t, StatusQueued.IsFinished())
	assert.False(t, StatusDownloading.IsFinished())
	assert.True(t, StatusSuccess.IsFinished())
	assert.True(t, StatusFailed.IsFinished())
	assert.True(t, StatusStopped.IsFinished())
}

func TestStripColors(t *testing.T) {
	assert.Equal(t, "45.0% done", StripColors("\x1b[32m45.0%\x1b[0m done"))
	assert.Equal(t, "plain", StripColors("plain"))
}

func TestParseHeaderArgs(t *testing.T) {
	headers := ParseHeaderArgs("Referer: https://example.com\nUser-Agent: vidq\nbroken\n: empty")
	assert.Equal(t, map[string]string{
		"Referer":    "https://example.com",
		"User-Agent": "vidq",
	}, headers)
}

func TestNewTaskID(t *testing.T) {
	a, b := NewTaskID(), NewTaskID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestResolveBinary(t *testing.T) {
	dir := t.TempDir()
	name := "vidq-fake-bin"
	fileName := name
	if runtime.GOOS == "windows" {
		fileName += ".exe"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("#!/bin/sh\n"), 0755))

	path, err := ResolveBinary(dir, name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, fileName), path)

	_, err = ResolveBinary(t.TempDir(), "vidq-definitely-missing")
	assert.Error(t, err)
}
