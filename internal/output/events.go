package output

import (
	"strconv"
	"strings"
	"time"

	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/utils"
)

// Attach drives the manager from scheduler events. Tasks must be registered
// first; events for unknown ids are ignored.
func (m *Manager) Attach(bus events.Subscriber) (cancel func()) {
	cancels := []func(){
		bus.Subscribe(events.DownloadStart, func(e events.Event) {
			m.update(e.TaskID, func(info *TaskOutput) {
				info.Status = statusDownloading
				info.Message = "Downloading " + info.Label
				info.StartTime = time.Now()
			})
		}),
		bus.Subscribe(events.DownloadReadyStart, func(e events.Event) {
			if e.Progress == nil || !e.Progress.IsLive {
				return
			}
			m.update(e.TaskID, func(info *TaskOutput) {
				info.Status = statusLive
				info.Message = "Recording live stream " + info.Label
			})
		}),
		bus.Subscribe(events.DownloadProgress, func(e events.Event) {
			if e.Progress == nil {
				return
			}
			cur, err := strconv.ParseFloat(e.Progress.Cur, 64)
			if err != nil {
				return
			}
			total, err := strconv.ParseInt(e.Progress.Total, 10, 64)
			if err != nil {
				return
			}
			m.SetProgress(e.TaskID, int64(cur), total, e.Progress.Speed)
		}),
		bus.Subscribe(events.DownloadMessage, func(e events.Event) {
			for _, line := range messageLines(e.Message) {
				m.AddStreamLine(e.TaskID, line)
			}
		}),
		bus.Subscribe(events.DownloadSuccess, func(e events.Event) {
			m.Complete(e.TaskID, "")
		}),
		bus.Subscribe(events.DownloadStop, func(e events.Event) {
			m.Stop(e.TaskID)
		}),
		bus.Subscribe(events.DownloadFailed, func(e events.Event) {
			m.ReportError(e.TaskID, e.Err)
		}),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// messageLines splits a raw terminal chunk into displayable lines. Progress
// lines are left out since the progress bar already shows them.
func messageLines(chunk string) []string {
	var lines []string
	for _, line := range strings.FieldsFunc(chunk, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(utils.StripColors(line))
		if line == "" {
			continue
		}
		if utils.ProgressRegex.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
