package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/vidq/internal/output"
	"github.com/tanq16/vidq/internal/utils"
)

func newM3U8Cmd() *cobra.Command {
	var name string
	var headers string
	var proxy string
	var deleteSegments bool

	cmd := &cobra.Command{
		Use:     "m3u8 [URL] [--dir DIR] [--name NAME]",
		Short:   "Download HLS/M3U8 streams with N_m3u8DL-RE",
		Aliases: []string{"hls", "live-stream", "stream"},
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			task := utils.Task{Params: utils.DownloadParams{
				Type:           utils.TypeM3U8,
				URL:            args[0],
				Local:          outputDir,
				Name:           name,
				Headers:        headers,
				DeleteSegments: deleteSegments,
				Proxy:          proxy,
			}}
			log.Debug().Str("op", "cmd/m3u8").Msgf("Running task for %s", args[0])
			if err := runTasks([]utils.Task{task}); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&outputDir, "dir", "d", ".", "Directory to save into")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Output file name (default: stream_[timestamp])")
	cmd.Flags().StringVarP(&headers, "headers", "H", "", "Request headers, one 'Key: Value' per line")
	cmd.Flags().StringVarP(&proxy, "proxy", "p", "", "Proxy for this download (the global proxy wins when useProxy is set)")
	cmd.Flags().BoolVar(&deleteSegments, "del-after-done", false, "Delete segments after merging")
	return cmd
}
