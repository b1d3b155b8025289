package utils

import (
	"context"
)

type DownloadType string

const (
	TypeBilibili DownloadType = "bilibili"
	TypeM3U8     DownloadType = "m3u8"
)

type DownloadStatus string

const (
	StatusQueued      DownloadStatus = "queued"
	StatusDownloading DownloadStatus = "downloading"
	StatusSuccess     DownloadStatus = "success"
	StatusFailed      DownloadStatus = "failed"
	StatusStopped     DownloadStatus = "stopped"
)

func (s DownloadStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal.
func (s DownloadStatus) IsFinished() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusStopped
}

// CanTransition reports whether a task may move from s to next.
func (s DownloadStatus) CanTransition(next DownloadStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusDownloading
	case StatusDownloading:
		return next.IsFinished()
	default:
		return false
	}
}

type ProgressType string

const (
	ProgressReady    ProgressType = "ready"
	ProgressProgress ProgressType = "progress"
)

type DownloadProgress struct {
	ID     string       `json:"id"`
	Type   ProgressType `json:"type"`
	IsLive bool         `json:"isLive"`
	Cur    string       `json:"cur"`
	Total  string       `json:"total"`
	Speed  string       `json:"speed"`
}

type DownloadParams struct {
	Type           DownloadType `json:"type" yaml:"type"`
	URL            string       `json:"url" yaml:"url"`
	Local          string       `json:"local" yaml:"local"`
	Name           string       `json:"name,omitempty" yaml:"name,omitempty"`
	Headers        string       `json:"headers,omitempty" yaml:"headers,omitempty"`
	DeleteSegments bool         `json:"deleteSegments,omitempty" yaml:"deleteSegments,omitempty"`
	Proxy          string       `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

type Task struct {
	ID     string         `json:"id"`
	Params DownloadParams `json:"params"`
	Status DownloadStatus `json:"status"`
}

// DownloadJob is the per-execution view of a task handed to a Downloader.
// BinPath and Args are filled in by BuildJob.
type DownloadJob struct {
	ID        string
	Params    DownloadParams
	Proxy     string
	BinPath   string
	Args      []string
	Callback  func(DownloadProgress)
	OnMessage func(string)
	Metadata  map[string]any
}

type Downloader interface {
	ValidateJob(job *DownloadJob) error
	BuildJob(job *DownloadJob) error
	Download(ctx context.Context, job *DownloadJob) error
}
