package bilibili

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/runner"
	"github.com/tanq16/vidq/internal/utils"
)

func (d *BilibiliDownloader) Download(ctx context.Context, job *utils.DownloadJob) error {
	log.Debug().Str("op", "bilibili/download").Msgf("Starting %s for %s", BinaryName, job.Params.URL)
	if err := runner.RunJob(ctx, job, NewParser(job.ID)); err != nil {
		return err
	}
	log.Info().Str("op", "bilibili/download").Msgf("%s completed for %s", BinaryName, job.Params.URL)
	return nil
}
