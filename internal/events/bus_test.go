package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tanq16/vidq/internal/utils"
)

func TestBus_SubscribePerKind(t *testing.T) {
	bus := NewBus()
	var starts, successes []string
	bus.Subscribe(DownloadStart, func(e Event) { starts = append(starts, e.TaskID) })
	bus.Subscribe(DownloadSuccess, func(e Event) { successes = append(successes, e.TaskID) })

	bus.Publish(Event{Kind: DownloadStart, TaskID: "a"})
	bus.Publish(Event{Kind: DownloadSuccess, TaskID: "a"})
	bus.Publish(Event{Kind: DownloadStart, TaskID: "b"})

	assert.Equal(t, []string{"a", "b"}, starts)
	assert.Equal(t, []string{"a"}, successes)
}

func TestBus_Cancel(t *testing.T) {
	bus := NewBus()
	count := 0
	cancel := bus.Subscribe(DownloadProgress, func(Event) { count++ })

	bus.Publish(Event{Kind: DownloadProgress, Progress: &utils.DownloadProgress{Cur: "10"}})
	cancel()
	cancel()
	bus.Publish(Event{Kind: DownloadProgress})

	assert.Equal(t, 1, count)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	var kinds []Kind
	cancel := bus.SubscribeAll(func(e Event) { kinds = append(kinds, e.Kind) })

	bus.Publish(Event{Kind: DownloadFailed, TaskID: "x", Err: errors.New("boom")})
	bus.Publish(Event{Kind: DownloadMessage, Message: "raw"})
	cancel()
	bus.Publish(Event{Kind: DownloadStop, TaskID: "x"})

	assert.Equal(t, []Kind{DownloadFailed, DownloadMessage}, kinds)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBus().Publish(Event{Kind: DownloadStop, TaskID: "none"})
	})
}
