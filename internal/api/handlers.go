/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package api serves the refresh, index and ask operations over HTTP.
package api

import (
	"cloud.google.com/go/logging"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/ajjensen13/stockqa/internal/answer"
	"github.com/ajjensen13/stockqa/internal/corpus"
	"github.com/ajjensen13/stockqa/internal/index"
	"github.com/ajjensen13/stockqa/internal/pipeline"
	"github.com/ajjensen13/stockqa/internal/util"
)

type Refresher interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

type Rebuilder interface {
	Rebuild(ctx context.Context, src corpus.Source, force bool) (index.Outcome, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string) (answer.Answer, error)
}

type Handler struct {
	Refresher Refresher
	Builder   Rebuilder
	Corpus    corpus.Source
	Reader    *index.Reader
	Answerer  Answerer

	flight singleflight.Group
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Refresh handles POST /api/v1/refresh. Concurrent requests share one run.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	v, err, shared := h.flight.Do("refresh", func() (interface{}, error) {
		return h.Refresher.Run(ctx)
	})
	if err != nil {
		util.Logf(ctx, logging.Error, "refresh failed: %v", err)
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	util.Logf(ctx, logging.Debug, "refresh finished (shared=%v)", shared)
	respondJSON(w, http.StatusOK, v)
}

// RebuildIndex handles POST /api/v1/index. force=true ignores the policy.
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	ctx := context.WithoutCancel(r.Context())

	key := "index"
	if force {
		key = "index-force"
	}
	v, err, _ := h.flight.Do(key, func() (interface{}, error) {
		out, err := h.Builder.Rebuild(ctx, h.Corpus, force)
		if err == nil && out.Built && h.Reader != nil {
			h.Reader.Reset()
		}
		return out, err
	})

	switch {
	case errors.Is(err, index.ErrBuildInProgress):
		respondError(w, http.StatusConflict, err)
	case err != nil:
		util.Logf(ctx, logging.Error, "index rebuild failed: %v", err)
		respondError(w, http.StatusInternalServerError, err)
	default:
		respondJSON(w, http.StatusOK, v)
	}
}

// Ask handles POST /api/v1/ask
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, askResponse{Answer: answer.UnableToAnswer(answer.ErrEmptyQuestion), Error: "invalid request body"})
		return
	}

	a, err := h.Answerer.Answer(r.Context(), req.Question)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, answer.ErrEmptyQuestion):
			status = http.StatusBadRequest
		case errors.Is(err, answer.ErrNoData):
			status = http.StatusServiceUnavailable
		}
		util.Logf(r.Context(), logging.Warning, "unable to answer: %v", err)
		respondJSON(w, status, askResponse{Answer: answer.UnableToAnswer(err), Error: err.Error()})
		return
	}

	resp := askResponse{Answer: a.Text}
	for _, s := range a.Sources {
		resp.Sources = append(resp.Sources, s.Text)
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
