package m3u8

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/runner"
	"github.com/tanq16/vidq/internal/utils"
)

func (d *M3U8Downloader) Download(ctx context.Context, job *utils.DownloadJob) error {
	live, _ := job.Metadata[metadataLive].(bool)
	log.Debug().Str("op", "m3u8/download").Msgf("Starting %s for %s (known live: %v)", BinaryName, job.Params.URL, live)
	if err := runner.RunJob(ctx, job, NewParser(job.ID, live)); err != nil {
		return err
	}
	log.Info().Str("op", "m3u8/download").Msgf("%s completed for %s", BinaryName, job.Params.URL)
	return nil
}
