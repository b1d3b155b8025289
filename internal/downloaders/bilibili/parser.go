package bilibili

import (
	"github.com/tanq16/vidq/internal/utils"
)

// Parser turns BBDown output into progress events. BBDown's live marker is
// only reflected in ready events; progress events always report IsLive false.
type Parser struct {
	id string
}

func NewParser(id string) *Parser {
	return &Parser{id: id}
}

func (p *Parser) Parse(line string) ([]utils.DownloadProgress, error) {
	var events []utils.DownloadProgress
	if utils.IsLiveRegex.MatchString(line) || utils.StartDownloadRegex.MatchString(line) {
		events = append(events, utils.DownloadProgress{
			ID:   p.id,
			Type: utils.ProgressReady,
		})
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
		ID:    p.id,
		Type:  utils.ProgressProgress,
		Cur:   cur,
		Total: utils.ProgressTotal,
		Speed: speed,
	})
	return events, nil
}
