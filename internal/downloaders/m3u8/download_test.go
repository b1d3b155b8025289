//go:build !windows

package m3u8

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/vidq/internal/utils"
)

func newFakeJob(t *testing.T, script string) (*M3U8Downloader, *utils.DownloadJob, func() []utils.DownloadProgress) {
	t.Helper()
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, BinaryName), []byte("#!/bin/sh\n"+script), 0755))
	var mu sync.Mutex
	var got []utils.DownloadProgress
	job := &utils.DownloadJob{
		ID:     "m1",
		Params: utils.DownloadParams{Type: utils.TypeM3U8, URL: "https://example.com/live.m3u8", Local: t.TempDir(), Name: "show"},
		Callback: func(p utils.DownloadProgress) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, p)
		},
	}
	snapshot := func() []utils.DownloadProgress {
		mu.Lock()
		defer mu.Unlock()
		return append([]utils.DownloadProgress(nil), got...)
	}
	return &M3U8Downloader{BinDir: binDir}, job, snapshot
}

func TestDownload_LiveStream(t *testing.T) {
	d, job, events := newFakeJob(t, "printf '检测到直播流\\n'\nprintf '12.5%% 800KB/s\\n'\nexit 0\n")
	require.NoError(t, d.ValidateJob(job))
	require.NoError(t, d.BuildJob(job))
	require.NoError(t, d.Download(context.Background(), job))
	assert.Equal(t, []utils.DownloadProgress{
		{ID: "m1", Type: utils.ProgressReady, IsLive: false},
		{ID: "m1", Type: utils.ProgressProgress, IsLive: true, Cur: "125", Total: "1000", Speed: "800KB/s"},
	}, events())
}

func TestDownload_ReceivesArgs(t *testing.T) {
	d, job, _ := newFakeJob(t, "printf '%s\\n' \"$*\"\nexit 0\n")
	job.Params.DeleteSegments = true
	job.Proxy = "http://127.0.0.1:7890"
	var mu sync.Mutex
	var raw strings.Builder
	job.OnMessage = func(chunk string) {
		mu.Lock()
		defer mu.Unlock()
		raw.WriteString(chunk)
	}
	require.NoError(t, d.ValidateJob(job))
	require.NoError(t, d.BuildJob(job))
	require.NoError(t, d.Download(context.Background(), job))
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, raw.String(), "--save-name show --auto-select --del-after-done --custom-proxy http://127.0.0.1:7890")
}

func TestDownload_Cancelled(t *testing.T) {
	d, job, _ := newFakeJob(t, "trap 'exit 1' HUP\nwhile true; do sleep 0.1; done\n")
	require.NoError(t, d.ValidateJob(job))
	require.NoError(t, d.BuildJob(job))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	err := d.Download(ctx, job)
	assert.ErrorIs(t, err, utils.ErrAborted)
}

func TestDownload_LocalLivePlaylistReleasesOnFirstReady(t *testing.T) {
	d, job, events := newFakeJob(t, "printf '检测到直播流\\n'\nexit 0\n")
	playlist := filepath.Join(t.TempDir(), "live.m3u8")
	require.NoError(t, os.WriteFile(playlist, []byte("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:10.0,\nseg0.ts\n"), 0644))
	job.Params.URL = playlist
	require.NoError(t, d.ValidateJob(job))
	require.NoError(t, d.BuildJob(job))
	require.NoError(t, d.Download(context.Background(), job))
	assert.Equal(t, []utils.DownloadProgress{
		{ID: "m1", Type: utils.ProgressReady, IsLive: true},
	}, events())
}
