package server

import (
	"net/http"

	"kinderwise/internal/model"
	"kinderwise/internal/store"

	"go.uber.org/zap"
)

func (s *Server) published(w http.ResponseWriter, r *http.Request) ([]model.Article, bool) {
	articles, err := s.deps.Content.List(r.Context(), store.Query{
		Status: model.StatusPublished,
		Limit:  s.deps.FeedLimit,
	})
	if err != nil {
		s.logger.Error("Failed to load feed articles", zap.Error(err))
		s.internalError(w, err)
		return nil, false
	}
	return articles, true
}

func (s *Server) handleNDJSON(w http.ResponseWriter, r *http.Request) {
	articles, ok := s.published(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	if err := s.deps.Feeds.NDJSON(w, articles); err != nil {
		s.logger.Warn("Feed write failed", zap.String("feed", "ndjson"), zap.Error(err))
	}
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	articles, ok := s.published(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if err := s.deps.Feeds.RSS(w, articles); err != nil {
		s.logger.Warn("Feed write failed", zap.String("feed", "rss"), zap.Error(err))
	}
}

func (s *Server) handleJSONFeed(w http.ResponseWriter, r *http.Request) {
	articles, ok := s.published(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/feed+json")
	writeJSON(w, http.StatusOK, s.deps.Feeds.JSONFeed(articles))
}

func (s *Server) handleLLMsTxt(w http.ResponseWriter, r *http.Request) {
	articles, ok := s.published(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.deps.Feeds.LLMsTxt(w, articles); err != nil {
		s.logger.Warn("Feed write failed", zap.String("feed", "llms.txt"), zap.Error(err))
	}
}
