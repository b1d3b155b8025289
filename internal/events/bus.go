package events

import (
	"sync"

	"github.com/tanq16/vidq/internal/utils"
)

type Kind string

const (
	DownloadStart      Kind = "download-start"
	DownloadProgress   Kind = "download-progress"
	DownloadReadyStart Kind = "download-ready-start"
	DownloadSuccess    Kind = "download-success"
	DownloadStop       Kind = "download-stop"
	DownloadFailed     Kind = "download-failed"
	DownloadMessage    Kind = "download-message"
)

var Kinds = []Kind{
	DownloadStart,
	DownloadProgress,
	DownloadReadyStart,
	DownloadSuccess,
	DownloadStop,
	DownloadFailed,
	DownloadMessage,
}

// Event is one notification. Progress is set for progress and ready events,
// Err for failures and Message for raw terminal output.
type Event struct {
	Kind     Kind                    `json:"kind"`
	TaskID   string                  `json:"taskId,omitempty"`
	Progress *utils.DownloadProgress `json:"progress,omitempty"`
	Err      error                   `json:"-"`
	Message  string                  `json:"message,omitempty"`
}

type Handler func(Event)

type Publisher interface {
	Publish(Event)
}

type Subscriber interface {
	Subscribe(kind Kind, h Handler) (cancel func())
	SubscribeAll(h Handler) (cancel func())
}

// Bus dispatches events synchronously on the publisher's goroutine. Handlers
// must not block.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Kind]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind]map[int]Handler)}
}

func (b *Bus) Subscribe(kind Kind, h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]Handler)
	}
	b.handlers[kind][id] = h
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[kind], id)
		})
	}
}

// SubscribeAll registers h for every kind and returns one cancel function.
func (b *Bus) SubscribeAll(h Handler) (cancel func()) {
	cancels := make([]func(), 0, len(Kinds))
	for _, kind := range Kinds {
		cancels = append(cancels, b.Subscribe(kind, h))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Kind]))
	for _, h := range b.handlers[e.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}
