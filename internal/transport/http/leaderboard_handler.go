package http

import (
	"net/http"
	"strconv"

	"kwikly/internal/app"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type leaderboardHandler struct {
	board    *app.LeaderboardHub
	upgrader websocket.Upgrader
}

func (h *leaderboardHandler) top(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	lb, err := h.board.Top(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lb)
}

// stream pushes a fresh board after every XP change until the client leaves.
func (h *leaderboardHandler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.board.Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	out := newWSWriter(conn, func(err error) { log.WithError(err).Debug("ws write error") })
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			// inbound frames are ignored; reading surfaces the close
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

loop:
	for {
		select {
		case lb, ok := <-updates:
			if !ok || !out.emit(outboundMessage{Type: "leaderboard", Payload: lb}) {
				break loop
			}
		case <-readerDone:
			break loop
		}
	}
	out.stop()
}
