package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/vidq/internal/output"
	"github.com/tanq16/vidq/internal/utils"
	"gopkg.in/yaml.v3"
)

// BatchFile groups entries by download type, e.g.
//
//	bilibili:
//	  - url: BV1xx411c7mD
//	m3u8:
//	  - url: https://example.com/index.m3u8
//	    name: clip
type BatchFile map[string][]utils.DownloadParams

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [--dir DIR]",
		Short: "Queue multiple downloads from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Error reading YAML file: %v", err))
				os.Exit(1)
			}
			var batchFile BatchFile
			if err := yaml.Unmarshal(data, &batchFile); err != nil {
				output.PrintError(fmt.Sprintf("Error parsing YAML file: %v", err))
				os.Exit(1)
			}
			tasks := buildTasksFromBatch(batchFile, outputDir)
			if len(tasks) == 0 {
				output.PrintError("No valid tasks found in the batch file")
				os.Exit(1)
			}
			log.Debug().Str("op", "cmd/batch").Msgf("Running %d tasks", len(tasks))
			if err := runTasks(tasks); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&outputDir, "dir", "d", ".", "Default directory for entries without local")
	return cmd
}

// buildTasksFromBatch flattens the file in section order, skipping unknown
// sections and entries without a URL.
func buildTasksFromBatch(batchFile BatchFile, defaultDir string) []utils.Task {
	sections := make([]string, 0, len(batchFile))
	for section := range batchFile {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	var tasks []utils.Task
	for _, section := range sections {
		taskType := normalizeType(section)
		if taskType == "" {
			output.PrintWarning(fmt.Sprintf("Unknown type '%s', skipping...", section))
			continue
		}
		for _, params := range batchFile[section] {
			if params.URL == "" {
				output.PrintWarning(fmt.Sprintf("Empty url found in %s section, skipping...", section))
				continue
			}
			params.Type = taskType
			if params.Local == "" {
				params.Local = defaultDir
			}
			tasks = append(tasks, utils.Task{Params: params})
		}
	}
	return tasks
}

func normalizeType(section string) utils.DownloadType {
	switch strings.ToLower(section) {
	case "bilibili", "bili", "bbdown":
		return utils.TypeBilibili
	case "m3u8", "hls", "live-stream", "stream":
		return utils.TypeM3U8
	default:
		return ""
	}
}
