package server

import (
	"errors"
	"net/http"
	"strconv"

	"kinderwise/internal/model"
	"kinderwise/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxPageSize = 100

// articleView is an article as served by the read API.
type articleView struct {
	model.Article
	Evidence model.Evidence `json:"evidence"`
}

func viewOf(a model.Article) articleView {
	return articleView{Article: a, Evidence: model.EvidenceFor(a.Citations)}
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := store.Query{
		Status: model.StatusPublished,
		Hub:    params.Get("hub"),
		Type:   params.Get("type"),
		Search: params.Get("q"),
		Limit:  intParam(params.Get("limit"), store.DefaultListLimit),
		Offset: intParam(params.Get("offset"), 0),
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	articles, err := s.deps.Content.List(r.Context(), q)
	if err != nil {
		s.logger.Error("Failed to list articles", zap.Error(err))
		s.internalError(w, err)
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, viewOf(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": views,
		"limit":    q.Limit,
		"offset":   q.Offset,
	})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	article, err := s.deps.Content.Get(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !article.Published()) {
		writeError(w, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to fetch article", zap.String("slug", slug), zap.Error(err))
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*article))
}

func intParam(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
