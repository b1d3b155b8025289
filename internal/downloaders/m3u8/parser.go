package m3u8

import (
	"github.com/tanq16/vidq/internal/utils"
)

// Parser turns N_m3u8DL-RE output into progress events. Once a start marker
// has been seen, every later event of the run is flagged live. A parser for a
// playlist already known to be live flags every event from the start.
type Parser struct {
	id     string
	isLive bool
}

func NewParser(id string, live bool) *Parser {
	return &Parser{id: id, isLive: live}
}

func (p *Parser) Parse(line string) ([]utils.DownloadProgress, error) {
	var events []utils.DownloadProgress
	if utils.IsLiveRegex.MatchString(line) || utils.StartDownloadRegex.MatchString(line) {
		events = append(events, utils.DownloadProgress{
			ID:     p.id,
			Type:   utils.ProgressReady,
			IsLive: p.isLive,
		})
		p.isLive = true
	}

	log := utils.StripColors(line)
	if utils.ErrorRegex.MatchString(log) {
		return events, &utils.OutputError{Line: log}
	}

	cur, speed, ok := utils.MatchProgress(log)
	if !ok {
		return events, nil
	}
	events = append(events, utils.DownloadProgress{
		ID:     p.id,
		Type:   utils.ProgressProgress,
		Cur:    cur,
		Total:  utils.ProgressTotal,
		Speed:  speed,
		IsLive: p.isLive,
	})
	return events, nil
}
