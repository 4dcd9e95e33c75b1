package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"kinderwise/internal/chat"

	"go.uber.org/zap"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: message required")
		return
	}

	reply, err := s.deps.Chat.Ask(r.Context(), req.Message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "Invalid request: message required")
		return
	}
	if err != nil {
		s.logger.Error("Chat failed", zap.Error(err))
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
