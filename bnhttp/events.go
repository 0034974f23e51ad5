package bnhttp

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

var upgrader = websocket.Upgrader{
	// The feed is read-only observation; any origin may watch.
	CheckOrigin: func(*http.Request) bool { return true },
}

// eventFrame is the wire shape of one streamed event.
type eventFrame struct {
	Type string      `json:"type"`
	Data bngov.Event `json:"data"`
}

func handleEvents(log *slog.Logger, cfg ServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Info("Failed to upgrade event feed connection", "err", err)
			return
		}
		defer conn.Close()

		events, cancel := cfg.Hub.Subscribe()
		defer cancel()

		// Confirm the subscription before any event can flow,
		// so clients have a sync point: events published after
		// this frame is received are guaranteed to be delivered.
		if err := conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: "subscribed"}); err != nil {
			return
		}

		// Drain client frames so close messages are processed;
		// the feed itself is write-only.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		ctx := req.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-clientGone:
				return
			case e := <-events:
				if err := conn.WriteJSON(eventFrame{Type: e.Kind(), Data: e}); err != nil {
					log.Info("Dropping event feed subscriber", "err", err)
					return
				}
			}
		}
	}
}
