package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"media_gateway/internal/generation"
	"media_gateway/internal/storage"
	"media_gateway/internal/utils"
)

func taskIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

// handleGetTask serves GET /v1/generations/{id}. Tasks are only visible to
// their owner.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}
	taskID, err := taskIDFromPath(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("task lookup failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "task lookup failed")
		return
	}
	if task.UserID != userID {
		utils.RespondWithError(w, http.StatusNotFound, "task not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, toTaskResponse(task))
}

// handleListTasks serves GET /v1/generations.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	tasks, err := s.tasks.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("task listing failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "task listing failed")
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

// handlePollTask serves POST /v1/generations/{id}/poll: it asks the
// provider for progress on an async task and returns the resulting state.
// Polling a terminal task is a no-op that returns the stored state.
func (s *Server) handlePollTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}
	taskID, err := taskIDFromPath(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	// Ownership check against the stored row before touching the provider.
	existing, err := s.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "task not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "task lookup failed")
		return
	}
	if existing.UserID != userID {
		utils.RespondWithError(w, http.StatusNotFound, "task not found")
		return
	}

	task, err := s.generator.Poll(r.Context(), taskID)
	if err != nil {
		kind := generation.KindOf(err)
		message := "poll failed"
		var ge *generation.Error
		if errors.As(err, &ge) {
			message = "poll failed: " + ge.Message
		}
		s.logger.Warn().Err(err).Str("task_id", taskID.String()).Msg("poll failed")

		if task != nil {
			utils.RespondWithJSON(w, statusForKind(kind), map[string]any{
				"error": message,
				"task":  toTaskResponse(task),
			})
			return
		}
		utils.RespondWithError(w, statusForKind(kind), message)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, toTaskResponse(task))
}
