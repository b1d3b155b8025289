package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type TaskOutput struct {
	ID          string
	Label       string
	Status      string
	Message     string
	Progress    string
	StreamLines []string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
	Index       int
}

type ErrorReport struct {
	Label string
	Error error
	Time  time.Time
}

// Manager keeps one entry per task and redraws them in place on a ticker.
type Manager struct {
	outputs     map[string]*TaskOutput
	mutex       sync.RWMutex
	out         io.Writer
	numLines    int
	maxStreams  int
	errors      []ErrorReport
	doneCh      chan struct{}
	displayTick time.Duration
	count       int
	displayWg   sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{
		outputs:     make(map[string]*TaskOutput),
		out:         os.Stdout,
		maxStreams:  5,
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

// Register adds a task under id. Registering the same id twice keeps the
// first entry.
func (m *Manager) Register(id, label string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.outputs[id]; exists {
		return
	}
	m.count++
	m.outputs[id] = &TaskOutput{
		ID:          id,
		Label:       label,
		Status:      statusPending,
		StreamLines: []string{},
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Index:       m.count,
	}
}

func (m *Manager) update(id string, fn func(info *TaskOutput)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		fn(info)
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) Complete(id, message string) {
	m.update(id, func(info *TaskOutput) {
		info.Progress = ""
		info.StreamLines = []string{}
		if message == "" {
			message = fmt.Sprintf("Completed %s", info.Label)
		}
		info.Message = message
		info.Complete = true
		info.Status = statusSuccess
	})
}

// Stop marks id as finished by user request.
func (m *Manager) Stop(id string) {
	m.update(id, func(info *TaskOutput) {
		info.Progress = ""
		info.StreamLines = []string{}
		info.Message = fmt.Sprintf("Stopped %s", info.Label)
		info.Complete = true
		info.Status = statusStopped
	})
}

func (m *Manager) ReportError(id string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Complete = true
		info.Status = statusError
		info.Error = err
		info.Message = fmt.Sprintf("Failed %s", info.Label)
		info.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{
			Label: info.Label,
			Error: err,
			Time:  time.Now(),
		})
	}
}

// AddStreamLine appends a line of downloader output under a running task,
// keeping only the most recent few.
func (m *Manager) AddStreamLine(id, line string) {
	m.update(id, func(info *TaskOutput) {
		if info.Complete {
			return
		}
		info.StreamLines = append(info.StreamLines, wrapText(line, 2+4)...)
		if len(info.StreamLines) > m.maxStreams {
			info.StreamLines = info.StreamLines[len(info.StreamLines)-m.maxStreams:]
		}
	})
}

// SetProgress sets the progress bar shown above the stream lines of id.
func (m *Manager) SetProgress(id string, current, total int64, speed string) {
	m.update(id, func(info *TaskOutput) {
		display := ProgressBar(current, total, 30)
		if speed != "" {
			display += fmt.Sprintf("%s %s", StyleSymbols["bullet"], debugStyle.Render(speed))
		}
		info.Progress = display
	})
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case statusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case statusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case statusStopped:
		return warningStyle.Render(StyleSymbols["warning"])
	case statusLive:
		return errorStyle.Render(StyleSymbols["live"])
	case statusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func (m *Manager) styleMessage(status, message string) string {
	switch status {
	case statusSuccess:
		return successStyle.Render(message)
	case statusError:
		return errorStyle.Render(message)
	case statusStopped:
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortOutputs() (active, pending, completed []*TaskOutput) {
	all := make([]*TaskOutput, 0, len(m.outputs))
	for _, info := range m.outputs {
		all = append(all, info)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})
	for _, f := range all {
		switch {
		case f.Complete:
			completed = append(completed, f)
		case f.Status == statusPending:
			pending = append(pending, f)
		default:
			active = append(active, f)
		}
	}
	return active, pending, completed
}

// render writes the current view and returns the number of lines written.
func (m *Manager) render(w io.Writer, availableLines int) int {
	lineCount := 0
	activeTasks, pendingTasks, completedTasks := m.sortOutputs()

	totalNeeded := len(pendingTasks) + len(completedTasks)
	for _, f := range activeTasks {
		totalNeeded += 1 + len(f.StreamLines)
		if f.Progress != "" {
			totalNeeded++
		}
	}
	if totalNeeded > availableLines {
		maxCompleted := max(0, availableLines-(totalNeeded-len(completedTasks)))
		if len(completedTasks) > maxCompleted {
			completedTasks = completedTasks[len(completedTasks)-maxCompleted:]
		}
	}

	indent := strings.Repeat(" ", 2)
	streamIndent := strings.Repeat(" ", 2+4)
	for _, info := range activeTasks {
		if lineCount >= availableLines {
			break
		}
		elapsed := time.Since(info.StartTime).Round(time.Second)
		fmt.Fprintf(w, "%s%s %s %s\n", indent, m.GetStatusIndicator(info.Status), debugStyle.Render(elapsed.String()), m.styleMessage(info.Status, info.Message))
		lineCount++
		if info.Progress != "" && lineCount < availableLines {
			fmt.Fprintf(w, "%s%s\n", streamIndent, info.Progress)
			lineCount++
		}
		for _, line := range info.StreamLines {
			if lineCount >= availableLines {
				break
			}
			fmt.Fprintf(w, "%s%s\n", streamIndent, streamStyle.Render(line))
			lineCount++
		}
	}
	for _, info := range pendingTasks {
		if lineCount >= availableLines {
			break
		}
		fmt.Fprintf(w, "%s%s %s\n", indent, m.GetStatusIndicator(info.Status), pendingStyle.Render("Waiting "+info.Label))
		lineCount++
	}
	for _, info := range completedTasks {
		if lineCount >= availableLines {
			break
		}
		total := info.LastUpdated.Sub(info.StartTime).Round(time.Second)
		fmt.Fprintf(w, "%s%s %s %s\n", indent, m.GetStatusIndicator(info.Status), debugStyle.Render(total.String()), m.styleMessage(info.Status, info.Message))
		lineCount++
	}
	return lineCount
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, termHeight := terminalSize()
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	m.numLines = m.render(m.out, termHeight-3)
}

func (m *Manager) StartDisplay() {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				m.ShowSummary()
				return
			}
		}
	}()
}

func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
}

// Failures reports how many tasks ended in error.
func (m *Manager) Failures() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.errors)
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Fprintln(m.out)
	var success, stopped int
	for _, info := range m.outputs {
		switch info.Status {
		case statusSuccess:
			success++
		case statusStopped:
			stopped++
		}
	}
	indent := strings.Repeat(" ", 2)
	fmt.Fprintln(m.out, indent+summaryStyle.Render(fmt.Sprintf("Completed %d of %d", success, len(m.outputs))))
	if stopped > 0 {
		fmt.Fprintln(m.out, indent+warningStyle.Render(fmt.Sprintf("Stopped %d of %d", stopped, len(m.outputs))))
	}
	if len(m.errors) > 0 {
		fmt.Fprintln(m.out, indent+errorStyle.Render(fmt.Sprintf("Failed %d of %d", len(m.errors), len(m.outputs))))
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, indent+errorStyle.Bold(true).Render("Errors:"))
		for i, report := range m.errors {
			fmt.Fprintf(m.out, "%s%s %s %s\n", strings.Repeat(" ", 2+2),
				errorStyle.Render(fmt.Sprintf("%d.", i+1)),
				debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
				errorStyle.Render(report.Label))
			fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
		}
	}
	fmt.Fprintln(m.out)
}
