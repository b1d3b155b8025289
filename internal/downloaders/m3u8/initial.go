package m3u8

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/utils"
)

const BinaryName = "N_m3u8DL-RE"

// metadataLive marks a job whose source playlist is known to be live.
const metadataLive = "live"

type M3U8Downloader struct {
	BinDir string
}

func (d *M3U8Downloader) ValidateJob(job *utils.DownloadJob) error {
	if job.Params.URL == "" {
		return fmt.Errorf("missing URL")
	}
	if job.Params.Local == "" {
		return fmt.Errorf("missing local directory")
	}
	if path, ok := localPlaylist(job.Params.URL); ok {
		live, err := probePlaylist(path)
		if err != nil {
			return fmt.Errorf("invalid playlist %s: %v", path, err)
		}
		if job.Metadata == nil {
			job.Metadata = make(map[string]any)
		}
		job.Metadata[metadataLive] = live
		log.Debug().Str("op", "m3u8/validate").Msgf("Local playlist %s, live: %v", path, live)
		return nil
	}
	parsedURL, err := url.Parse(job.Params.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	return nil
}

func (d *M3U8Downloader) BuildJob(job *utils.DownloadJob) error {
	if job.Params.Name == "" {
		job.Params.Name = fmt.Sprintf("stream_%s", time.Now().Format("2006-01-02_15-04"))
	}
	if job.Params.Headers != "" {
		headers := utils.ParseHeaderArgs(job.Params.Headers)
		log.Debug().Str("op", "m3u8/build").Msgf("Ignoring %d custom headers for task %s", len(headers), job.ID)
	}
	binPath, err := utils.ResolveBinary(d.BinDir, BinaryName)
	if err != nil {
		return fmt.Errorf("error ensuring %s: %v", BinaryName, err)
	}
	job.BinPath = binPath
	job.Args = buildArgs(job.Params, job.Proxy)
	return nil
}

func buildArgs(params utils.DownloadParams, proxy string) []string {
	args := []string{
		params.URL,
		"--tmp-dir", params.Local,
		"--save-dir", params.Local,
		"--save-name", params.Name,
		"--auto-select",
	}
	// TODO: forward params.Headers as --header once the header format is settled.
	if params.DeleteSegments {
		args = append(args, "--del-after-done")
	}
	if proxy != "" {
		args = append(args, "--custom-proxy", proxy)
	}
	return args
}

// localPlaylist reports whether source names a playlist file on disk.
func localPlaylist(source string) (string, bool) {
	path := source
	if strings.HasPrefix(source, "file://") {
		path = strings.TrimPrefix(source, "file://")
	} else if strings.Contains(source, "://") {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// probePlaylist decodes a playlist file and reports whether it is an
// unterminated media playlist, i.e. a live stream.
func probePlaylist(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(f), true)
	if err != nil {
		return false, err
	}
	if listType == m3u8.MEDIA {
		media := playlist.(*m3u8.MediaPlaylist)
		return !media.Closed, nil
	}
	return false, nil
}
