package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/events"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleSocket pushes bus events to a websocket client as JSON messages.
// Clients only listen; anything they send is discarded.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ch := make(chan events.Event, eventBuffer)
	cancel := s.bus.SubscribeAll(func(e events.Event) {
		select {
		case ch <- e:
		default:
			log.Debug().Str("op", "server/handleSocket").Msgf("dropping %s event for slow client", e.Kind)
		}
	})
	defer cancel()

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Str("op", "server/handleSocket").Msgf("accept failed: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "event stream closed")
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case e := <-ch:
			if err := writeEvent(ctx, c, e); err != nil {
				log.Debug().Str("op", "server/handleSocket").Msgf("write failed: %v", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, e events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, newPayload(e))
}
