package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
	"github.com/tanpawarit/supervisor-agent/chat"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Answer string   `json:"answer"`
	Agents []string `json:"agents"`
}

type historyResponse struct {
	Messages []chat.Message `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type workerCard struct {
	Name        string
	Description string
}

type indexData struct {
	Title            string
	Workers          []workerCard
	DefaultMaxLength int
	MinMaxLength     int
	MaxMaxLength     int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, cookie := resolve(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	data := indexData{
		Title:            "Silent Coding Legend",
		DefaultMaxLength: 20,
		MinMaxLength:     5,
		MaxMaxLength:     50,
	}
	for _, name := range statex.Workers() {
		data.Workers = append(data.Workers, workerCard{
			Name:        string(name),
			Description: contractx.WorkerDescriptions[name],
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("render index page")
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "message too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	id, cookie := resolve(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	// Run errors still answer 200; the apology is the assistant's turn.
	msg, _ := s.converse(r.Context(), s.sessions.open(id), message, nil)
	agents := msg.Agents
	if agents == nil {
		agents = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: msg.Content, Agents: agents})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages := []chat.Message{}
	if sess, ok := s.sessions.cookieSession(r); ok {
		messages = sess.history.Messages()
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: messages})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.cookieSession(r); ok {
		// Wait for a turn in flight so its answer is not written after the reset.
		sess.turn.Lock()
		sess.history.Reset()
		sess.turn.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
