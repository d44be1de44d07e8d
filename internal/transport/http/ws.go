package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const closeGrace = 5 * time.Second

// newUpgrader accepts handshakes from the server's own origin, from the
// configured SPA origins, and from clients that send no Origin at all.
// Browsers attach the jwt cookie to cross-site handshakes and CORS does not
// apply to them, so a wildcard origin is never honoured here.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[normalizeOrigin(origin)] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[normalizeOrigin(origin)]; ok {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`

	// closeAfter makes the writer end the stream once this message is out.
	closeAfter bool
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// wsWriter owns all data-frame writes on a connection so readers and pumps
// never write concurrently.
type wsWriter struct {
	conn *websocket.Conn
	send chan outboundMessage
	done chan struct{}
}

func newWSWriter(conn *websocket.Conn, onError func(error)) *wsWriter {
	w := &wsWriter{conn: conn, send: make(chan outboundMessage, 16), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for msg := range w.send {
			if err := conn.WriteJSON(msg); err != nil {
				onError(err)
				return
			}
			if msg.closeAfter {
				deadline := time.Now().Add(closeGrace)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg.Type), deadline)
				// unblock the reader if the peer never answers the close
				_ = conn.SetReadDeadline(deadline)
				return
			}
		}
	}()
	return w
}

// emit queues msg unless the writer has already stopped.
func (w *wsWriter) emit(msg outboundMessage) bool {
	select {
	case w.send <- msg:
		return true
	case <-w.done:
		return false
	}
}

// stop drains the writer; callers must not emit afterwards.
func (w *wsWriter) stop() {
	close(w.send)
	<-w.done
}
