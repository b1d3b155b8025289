package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/utils"
)

func newTestManager() (*Manager, *bytes.Buffer) {
	m := NewManager()
	buf := &bytes.Buffer{}
	m.out = buf
	return m, buf
}

func statusOf(m *Manager, id string) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if info, ok := m.outputs[id]; ok {
		return info.Status
	}
	return "unknown"
}

func TestManager_AttachFollowsLifecycle(t *testing.T) {
	m, _ := newTestManager()
	bus := events.NewBus()
	detach := m.Attach(bus)
	defer detach()

	m.Register("a", "clip.mp4")
	m.Register("b", "live.ts")
	m.Register("c", "broken")
	m.Register("d", "stopped")
	assert.Equal(t, statusPending, statusOf(m, "a"))

	bus.Publish(events.Event{Kind: events.DownloadStart, TaskID: "a"})
	assert.Equal(t, statusDownloading, statusOf(m, "a"))

	bus.Publish(events.Event{Kind: events.DownloadProgress, TaskID: "a", Progress: &utils.DownloadProgress{Cur: "450", Total: "1000", Speed: "1.2MB/s"}})
	m.mutex.RLock()
	assert.Contains(t, m.outputs["a"].Progress, "45.0%")
	assert.Contains(t, m.outputs["a"].Progress, "1.2MB/s")
	m.mutex.RUnlock()

	bus.Publish(events.Event{Kind: events.DownloadSuccess, TaskID: "a"})
	assert.Equal(t, statusSuccess, statusOf(m, "a"))

	bus.Publish(events.Event{Kind: events.DownloadStart, TaskID: "b"})
	bus.Publish(events.Event{Kind: events.DownloadReadyStart, TaskID: "b", Progress: &utils.DownloadProgress{IsLive: true}})
	assert.Equal(t, statusLive, statusOf(m, "b"))

	bus.Publish(events.Event{Kind: events.DownloadFailed, TaskID: "c", Err: errors.New("exit 1")})
	assert.Equal(t, statusError, statusOf(m, "c"))
	assert.Equal(t, 1, m.Failures())

	bus.Publish(events.Event{Kind: events.DownloadStop, TaskID: "d"})
	assert.Equal(t, statusStopped, statusOf(m, "d"))

	bus.Publish(events.Event{Kind: events.DownloadStart, TaskID: "unknown"})
	assert.Equal(t, "unknown", statusOf(m, "unknown"))
}

func TestManager_Render(t *testing.T) {
	m, _ := newTestManager()
	m.Register("a", "first")
	m.Register("b", "second")
	m.Register("c", "third")
	bus := events.NewBus()
	defer m.Attach(bus)()
	bus.Publish(events.Event{Kind: events.DownloadStart, TaskID: "a"})
	bus.Publish(events.Event{Kind: events.DownloadProgress, TaskID: "a", Progress: &utils.DownloadProgress{Cur: "100", Total: "1000"}})
	m.AddStreamLine("a", "line one")
	m.Complete("c", "")

	buf := &bytes.Buffer{}
	lines := m.render(buf, 20)
	assert.Equal(t, 5, lines)
	out := buf.String()
	assert.Contains(t, out, "Downloading first")
	assert.Contains(t, out, "10.0%")
	assert.Contains(t, out, "line one")
	assert.Contains(t, out, "Waiting second")
	assert.Contains(t, out, "Completed third")
}

func TestManager_RenderTrimsCompleted(t *testing.T) {
	m, _ := newTestManager()
	for _, id := range []string{"a", "b", "c", "d"} {
		m.Register(id, id)
		m.Complete(id, "done "+id)
	}
	buf := &bytes.Buffer{}
	assert.Equal(t, 2, m.render(buf, 2))
	assert.NotContains(t, buf.String(), "done a")
	assert.Contains(t, buf.String(), "done d")
}

func TestManager_SummaryListsErrors(t *testing.T) {
	m, buf := newTestManager()
	m.Register("a", "ok")
	m.Register("b", "bad")
	m.Complete("a", "")
	m.ReportError("b", errors.New("boom"))
	m.ShowSummary()
	out := buf.String()
	assert.Contains(t, out, "Completed 1 of 2")
	assert.Contains(t, out, "Failed 1 of 2")
	assert.Contains(t, out, "Error: boom")
}

func TestProgressBar(t *testing.T) {
	assert.Contains(t, ProgressBar(50, 100, 10), "50.0%")
	assert.Contains(t, ProgressBar(500, 100, 10), "100.0%")
	assert.Contains(t, ProgressBar(-1, 0, 0), "0.0%")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrapText("short", 6))
	long := bytes.Repeat([]byte("x"), 500)
	lines := wrapText(string(long), 6)
	assert.Greater(t, len(lines), 1)
}

func TestManager_MessagesBecomeStreamLines(t *testing.T) {
	m, _ := newTestManager()
	bus := events.NewBus()
	defer m.Attach(bus)()
	m.Register("a", "clip")
	bus.Publish(events.Event{Kind: events.DownloadStart, TaskID: "a"})

	bus.Publish(events.Event{Kind: events.DownloadMessage, TaskID: "a", Message: "\x1b[32mINFO\x1b[0m selecting tracks\r\n\r\n 12.5% 1MB/s\r"})
	m.mutex.RLock()
	assert.Equal(t, []string{"INFO selecting tracks"}, m.outputs["a"].StreamLines)
	m.mutex.RUnlock()

	for i := 0; i < 8; i++ {
		bus.Publish(events.Event{Kind: events.DownloadMessage, TaskID: "a", Message: "segment done\n"})
	}
	m.mutex.RLock()
	assert.Len(t, m.outputs["a"].StreamLines, 5)
	m.mutex.RUnlock()

	bus.Publish(events.Event{Kind: events.DownloadSuccess, TaskID: "a"})
	bus.Publish(events.Event{Kind: events.DownloadMessage, TaskID: "a", Message: "late output\n"})
	m.mutex.RLock()
	assert.Empty(t, m.outputs["a"].StreamLines)
	m.mutex.RUnlock()
}
