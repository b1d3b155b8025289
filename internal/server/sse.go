package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/events"
)

const eventBuffer = 256

type eventPayload struct {
	events.Event
	Error string `json:"error,omitempty"`
}

func newPayload(e events.Event) eventPayload {
	payload := eventPayload{Event: e}
	if e.Err != nil {
		payload.Error = e.Err.Error()
	}
	return payload
}

// handleEvents streams bus events as server-sent events. Bus handlers must
// not block, so events are dropped for clients that fall behind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch := make(chan events.Event, eventBuffer)
	cancel := s.bus.SubscribeAll(func(e events.Event) {
		select {
		case ch <- e:
		default:
			log.Debug().Str("op", "server/handleEvents").Msgf("dropping %s event for slow client", e.Kind)
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			data, err := json.Marshal(newPayload(e))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
