package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"kwikly/internal/app"
	"kwikly/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type attemptHandler struct {
	attempts *app.AttemptService
	upgrader websocket.Upgrader
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID int    `json:"questionId"`
	Option     string `json:"option"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type tickPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type resultPayload struct {
	app.SubmitResult
	Forced bool `json:"forced"`
}

// serveWS runs one quiz attempt over a websocket. The server owns the clock:
// it pushes a tick every second and forces submission when time runs out.
func (h *attemptHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	quizID := chi.URLParam(r, "id")

	// refuse foreign origins before an attempt is opened on the user's behalf
	if !h.upgrader.CheckOrigin(r) {
		respondMessage(w, http.StatusForbidden, "origin not allowed")
		return
	}

	attempt, err := h.attempts.Open(r.Context(), userID, quizID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logger := log.WithFields(log.Fields{"user": userID, "quiz": quizID})

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("ws upgrade failed")
		_ = attempt.Close(context.WithoutCancel(r.Context()))
		return
	}
	defer conn.Close()

	out := newWSWriter(conn, func(err error) { logger.WithError(err).Debug("ws write error") })
	closeSignals := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(pumpDone)
		for {
			select {
			case left := <-attempt.Ticks():
				out.emit(outboundMessage{Type: "tick", Payload: tickPayload{TimeLeft: left}})
			case outcome := <-attempt.Done():
				if outcome.Err != nil {
					out.emit(outboundMessage{Type: "error", Payload: errorPayload{Message: outcome.Err.Error()}, closeAfter: true})
					return
				}
				out.emit(outboundMessage{
					Type:       "result",
					Payload:    resultPayload{SubmitResult: outcome.Result, Forced: outcome.Forced},
					closeAfter: true,
				})
				return
			case <-closeSignals:
				return
			}
		}
	}()

	out.emit(outboundMessage{Type: "state", Payload: attempt.State()})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				out.emit(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid select payload"}})
				continue
			}
			if err := attempt.Select(payload.QuestionID, payload.Option); err != nil {
				out.emit(errorMessage(err))
				continue
			}
			out.emit(outboundMessage{Type: "state", Payload: attempt.State()})
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				out.emit(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}})
				continue
			}
			if err := attempt.Goto(payload.Index); err != nil {
				out.emit(errorMessage(err))
				continue
			}
			out.emit(outboundMessage{Type: "state", Payload: attempt.State()})
		case "submit":
			// the result itself arrives through attempt.Done
			if _, err := attempt.Submit(r.Context()); err != nil && errors.Is(err, domain.ErrAttemptClosed) {
				out.emit(errorMessage(err))
			}
		default:
			out.emit(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	// leaving without submitting abandons the attempt; no-op once finished
	if err := attempt.Close(context.WithoutCancel(r.Context())); err != nil {
		logger.WithError(err).Warn("abandon attempt")
	}
	close(closeSignals)
	<-pumpDone
	out.stop()
}
