package runner

import (
	"context"
	"fmt"

	"github.com/tanq16/vidq/internal/utils"
)

// LineParser turns one line of downloader output into progress events.
type LineParser interface {
	Parse(line string) ([]utils.DownloadProgress, error)
}

// RunJob runs a built job, passing each output line through parser and each
// resulting event to the job's callback.
func RunJob(ctx context.Context, job *utils.DownloadJob, parser LineParser) error {
	if job.BinPath == "" {
		return fmt.Errorf("job %s was not built", job.ID)
	}
	return Run(ctx, job.BinPath, job.Args, Options{
		OnMessage: job.OnMessage,
		OnLine: func(line string) error {
			events, err := parser.Parse(line)
			if job.Callback != nil {
				for _, event := range events {
					job.Callback(event)
				}
			}
			return err
		},
	})
}
