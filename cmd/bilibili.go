package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/vidq/internal/output"
	"github.com/tanq16/vidq/internal/utils"
)

func newBilibiliCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bilibili [URL|BVID] [--dir DIR]",
		Short:   "Download bilibili videos with BBDown",
		Aliases: []string{"bili", "bbdown"},
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			task := utils.Task{Params: utils.DownloadParams{
				Type:  utils.TypeBilibili,
				URL:   args[0],
				Local: outputDir,
			}}
			log.Debug().Str("op", "cmd/bilibili").Msgf("Running task for %s", args[0])
			if err := runTasks([]utils.Task{task}); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&outputDir, "dir", "d", ".", "Directory to save into")
	return cmd
}
