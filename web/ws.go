package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	"github.com/tanpawarit/supervisor-agent/chat"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
	wsQueueSize       = 8
)

type wsEvent struct {
	Type     string   `json:"type"`
	Kind     string   `json:"kind,omitempty"`
	Step     int      `json:"step,omitempty"`
	Worker   string   `json:"worker,omitempty"`
	Text     string   `json:"text,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Agents   []string `json:"agents,omitempty"`
	Message  string   `json:"message,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, cookie := resolve(r)

	header := http.Header{}
	if cookie != nil {
		header.Add("Set-Cookie", cookie.String())
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, s.cfg.AllowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxBodyBytes)

	// The run context ends when the client goes away, cancelling model calls.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for data := range readMessages(ctx, cancel, conn) {
		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if writeEvent(conn, wsEvent{Type: "error", Message: "invalid json message"}) != nil {
				return
			}
			continue
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			if writeEvent(conn, wsEvent{Type: "error", Message: "message is required"}) != nil {
				return
			}
			continue
		}

		if err := s.streamTurn(ctx, conn, s.sessions.open(id), message); err != nil {
			return
		}
	}
}

// readMessages pumps client frames into a channel. A failed read means the
// client is gone, so it cancels ctx and closes the channel.
func readMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) <-chan []byte {
	out := make(chan []byte, wsQueueSize)
	go func() {
		defer close(out)
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("websocket closed")
				}
				return
			}
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// streamTurn runs one turn and writes progress then the outcome. Only write
// failures are returned; run failures are reported to the client.
func (s *Server) streamTurn(ctx context.Context, conn *websocket.Conn, sess *session, message string) error {
	var writeErr error
	progress := contractx.ObserverFunc(func(_ context.Context, step contractx.Step) {
		text := chat.DescribeStep(step)
		if text == "" || writeErr != nil {
			return
		}
		writeErr = writeEvent(conn, wsEvent{
			Type:     "progress",
			Kind:     string(step.Kind),
			Step:     step.Number,
			Worker:   string(step.Worker),
			Text:     text,
			Fallback: step.Fallback,
		})
	})

	msg, runErr := s.converse(ctx, sess, message, progress)
	if writeErr != nil {
		return writeErr
	}
	if runErr != nil {
		return writeEvent(conn, wsEvent{Type: "error", Message: runErr.Error(), Answer: msg.Content})
	}
	return writeEvent(conn, wsEvent{Type: "answer", Answer: msg.Content, Agents: msg.Agents})
}

func writeEvent(conn *websocket.Conn, ev wsEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

func isOriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := parsed.Hostname()
	if originHost == "" {
		return false
	}

	if len(allowed) > 0 {
		for _, allowedOrigin := range allowed {
			if strings.EqualFold(origin, allowedOrigin) || strings.EqualFold(originHost, allowedOrigin) {
				return true
			}
		}
		return false
	}

	return strings.EqualFold(originHost, hostOnly(r.Host))
}

func hostOnly(hostport string) string {
	if u, err := url.Parse("//" + hostport); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return hostport
}
