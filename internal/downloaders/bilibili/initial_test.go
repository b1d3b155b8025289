package bilibili

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/vidq/internal/utils"
)

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name    string
		params  utils.DownloadParams
		wantErr bool
	}{
		{name: "video url", params: utils.DownloadParams{URL: "https://www.bilibili.com/video/BV1xx411c7mD", Local: "/tmp"}},
		{name: "bare id", params: utils.DownloadParams{URL: "BV1xx411c7mD", Local: "/tmp"}},
		{name: "missing url", params: utils.DownloadParams{Local: "/tmp"}, wantErr: true},
		{name: "missing local", params: utils.DownloadParams{URL: "BV1xx411c7mD"}, wantErr: true},
		{name: "bad scheme", params: utils.DownloadParams{URL: "ftp://example.com/v", Local: "/tmp"}, wantErr: true},
	}
	d := &BilibiliDownloader{}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := d.ValidateJob(&utils.DownloadJob{Params: test.params})
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildJob(t *testing.T) {
	binDir := t.TempDir()
	fileName := BinaryName
	if runtime.GOOS == "windows" {
		fileName += ".exe"
	}
	require.NoError(t, os.WriteFile(filepath.Join(binDir, fileName), []byte("#!/bin/sh\n"), 0755))

	d := &BilibiliDownloader{BinDir: binDir}
	job := &utils.DownloadJob{
		ID:     "b1",
		Params: utils.DownloadParams{URL: "https://www.bilibili.com/video/BV1xx411c7mD", Local: "/videos"},
		Proxy:  "http://127.0.0.1:7890",
	}
	require.NoError(t, d.BuildJob(job))
	assert.Equal(t, filepath.Join(binDir, fileName), job.BinPath)
	assert.Equal(t, []string{"https://www.bilibili.com/video/BV1xx411c7mD", "--work-dir", "/videos"}, job.Args)
}

func TestBuildJob_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	d := &BilibiliDownloader{BinDir: t.TempDir()}
	job := &utils.DownloadJob{Params: utils.DownloadParams{URL: "BV1", Local: "/videos"}}
	assert.Error(t, d.BuildJob(job))
}
