package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/config"
	"github.com/tanq16/vidq/internal/repository"
	"github.com/tanq16/vidq/internal/utils"
)

type addRequest struct {
	ID string `json:"id,omitempty"`
	utils.DownloadParams
}

type limitBody struct {
	MaxRunner int `json:"maxRunner"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Str("op", "server/writeJSON").Msgf("error encoding response: %v", err)
	}
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var body addRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch body.Type {
	case utils.TypeBilibili, utils.TypeM3U8:
	default:
		http.Error(w, "unsupported type: "+string(body.Type), http.StatusBadRequest)
		return
	}
	if body.URL == "" || body.Local == "" {
		http.Error(w, "url and local are required", http.StatusBadRequest)
		return
	}
	task := utils.Task{ID: body.ID, Params: body.DownloadParams, Status: utils.StatusQueued}
	if task.ID == "" {
		task.ID = utils.NewTaskID()
	}
	if err := s.tasks.Create(r.Context(), task); err != nil {
		log.Error().Str("op", "server/handleAdd").Err(err).Msg("error saving task")
		http.Error(w, "error saving task", http.StatusInternalServerError)
		return
	}
	s.queue.Submit(task)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	videos, err := s.tasks.List(r.Context(), utils.DownloadStatus(r.URL.Query().Get("status")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if videos == nil {
		videos = []repository.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	video, err := s.tasks.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// handleStop always answers 202: stopping is asynchronous and unknown or
// pending tasks are ignored by the scheduler.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.queue.RequestStop(r.PathValue("id"))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, limitBody{MaxRunner: s.limits.MaxRunner()})
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var body limitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.limits.SetMaxRunner(body.MaxRunner); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrInvalidMaxRunner) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, limitBody{MaxRunner: s.limits.MaxRunner()})
}
