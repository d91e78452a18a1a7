package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/repcoach/internal/models"
	"github.com/meltforce/repcoach/internal/pose"
	"github.com/meltforce/repcoach/internal/storage"
	"github.com/meltforce/repcoach/internal/trainer"
)

// maxFrameBody bounds a frame upload: 33 landmarks need well under 8 KiB.
const maxFrameBody = 64 << 10

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trainer.Levels())
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProgress(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.trainer.Levels().Report(p))
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	if err := s.store.ResetProgress(r.Context(), uid); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("progress reset", "user_id", uid)
	writeJSON(w, http.StatusOK, s.trainer.Levels().Report(models.UserProgress{UserID: uid}))
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	q := models.AttemptQuery{}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	if l := r.URL.Query().Get("level_id"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid level_id"})
			return
		}
		q.LevelID = parsed
	}

	rows, err := s.store.ListAttempts(r.Context(), userIDFromContext(r), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.AttemptRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type startRequest struct {
	LevelID int `json:"level_id"`
}

func (s *Server) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	snap, err := s.trainer.Start(r.Context(), userIDFromContext(r), req.LevelID)
	if err != nil {
		s.writeTrainerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// handleGetAttempt returns a live attempt, falling back to the stored record
// once the attempt has left memory.
func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := attemptID(w, r)
	if !ok {
		return
	}
	uid := userIDFromContext(r)

	snap, err := s.trainer.Get(r.Context(), id, uid)
	if err == nil {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	if !errors.Is(err, trainer.ErrUnknownAttempt) {
		s.writeTrainerError(w, err)
		return
	}

	row, err := s.store.GetAttempt(r.Context(), uid, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "attempt not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDiscardAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := attemptID(w, r)
	if !ok {
		return
	}
	if err := s.trainer.Discard(id, userIDFromContext(r)); err != nil {
		s.writeTrainerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type frameRequest struct {
	Landmarks []pose.Landmark `json:"landmarks"`
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	id, ok := attemptID(w, r)
	if !ok {
		return
	}
	var req frameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var f *pose.Frame
	if req.Landmarks != nil {
		f = pose.NewFrame(req.Landmarks)
	}
	snap, err := s.trainer.Process(r.Context(), id, userIDFromContext(r), f)
	if err != nil {
		s.writeTrainerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type endRequest struct {
	Surrender bool `json:"surrender"`
}

func (s *Server) handleEndAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := attemptID(w, r)
	if !ok {
		return
	}
	var req endRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}
	snap, err := s.trainer.End(r.Context(), id, userIDFromContext(r), req.Surrender)
	if err != nil {
		s.writeTrainerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func attemptID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attempt ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeTrainerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, trainer.ErrUnknownAttempt), errors.Is(err, trainer.ErrUnknownLevel):
		status = http.StatusNotFound
	case errors.Is(err, trainer.ErrAttemptFinished):
		status = http.StatusConflict
	case errors.Is(err, trainer.ErrLevelLocked):
		status = http.StatusForbidden
	default:
		s.log.Error("trainer error", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
