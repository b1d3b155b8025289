package bilibili

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tanq16/vidq/internal/utils"
)

const BinaryName = "BBDown"

type BilibiliDownloader struct {
	BinDir string
}

func (d *BilibiliDownloader) ValidateJob(job *utils.DownloadJob) error {
	if job.Params.URL == "" {
		return fmt.Errorf("missing URL")
	}
	if job.Params.Local == "" {
		return fmt.Errorf("missing local directory")
	}
	// BBDown also accepts bare BV/av/ep identifiers.
	if !strings.Contains(job.Params.URL, "://") {
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

func (d *BilibiliDownloader) BuildJob(job *utils.DownloadJob) error {
	binPath, err := utils.ResolveBinary(d.BinDir, BinaryName)
	if err != nil {
		return fmt.Errorf("error ensuring %s: %v", BinaryName, err)
	}
	job.BinPath = binPath
	job.Args = []string{job.Params.URL, "--work-dir", job.Params.Local}
	return nil
}
