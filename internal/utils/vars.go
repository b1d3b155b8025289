package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

const (
	ProgressTotal = "1000"
	LogFile       = ".vidq.log"
)

var (
	ErrAborted         = errors.New("operation was aborted")
	ErrUnknownExit     = errors.New("unknown error")
	ErrUnsupportedType = errors.New("unsupported download type")
)

// Markers printed by the downloader binaries.
var (
	ProgressRegex      = regexp.MustCompile(`([\d.]+)%(?:.*?([\d.]+\s?[KMGT]?i?B(?:ps|/s)))?`)
	ErrorRegex         = regexp.MustCompile(`ERROR`)
	StartDownloadRegex = regexp.MustCompile(`保存文件名:`)
	IsLiveRegex        = regexp.MustCompile(`检测到直播流`)
)

// OutputError is raised when a downloader prints an error marker.
type OutputError struct {
	Line string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("downloader reported error: %s", e.Line)
}

// MatchProgress extracts the percentage of line scaled to tenths of a percent,
// along with the speed if one is printed. ok is false when the line carries no
// usable progress, including a scaled value of "0".
func MatchProgress(line string) (cur, speed string, ok bool) {
	result := ProgressRegex.FindStringSubmatch(line)
	if result == nil {
		return "", "", false
	}
	percentage, err := strconv.ParseFloat(result[1], 64)
	if err != nil {
		return "", "", false
	}
	cur = strconv.FormatFloat(percentage*10, 'f', -1, 64)
	if cur == "0" {
		return "", "", false
	}
	return cur, result[2], true
}
