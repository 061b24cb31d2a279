package httpapi

import (
	"errors"
	"net/http"
	"time"

	"media_gateway/internal/generation"
	"media_gateway/internal/models"
	"media_gateway/internal/utils"
)

// taskResponse is the wire shape of a generation task.
type taskResponse struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt"`
	Cost           int            `json:"cost"`
	Status         string         `json:"status"`
	ContentURL     string         `json:"contentUrl,omitempty"`
	ThumbnailURL   string         `json:"thumbnailUrl,omitempty"`
	ExternalTaskID string         `json:"externalTaskId,omitempty"`
	FailReason     string         `json:"failReason,omitempty"`
	ParentID       string         `json:"parentId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	Params         map[string]any `json:"params,omitempty"`
}

func toTaskResponse(task *models.GenerationTask) taskResponse {
	resp := taskResponse{
		ID:           task.ID.String(),
		Type:         task.TaskType,
		Model:        task.ModelName,
		Prompt:       task.Prompt,
		Cost:         task.Cost,
		Status:       string(task.Status),
		ContentURL:   task.ContentURL,
		ThumbnailURL: task.ThumbnailURL,
		FailReason:   utils.StringPtrValue(task.FailReason),
		CreatedAt:    task.CreatedAt,
		Params:       task.RequestParams,
	}
	if task.ExternalTaskID != nil {
		resp.ExternalTaskID = *task.ExternalTaskID
	}
	if task.ParentID != nil {
		resp.ParentID = task.ParentID.String()
	}
	return resp
}

// statusForKind maps a failure kind to an HTTP status.
func statusForKind(kind generation.Kind) int {
	switch kind {
	case generation.KindConfiguration:
		return http.StatusBadRequest
	case generation.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case generation.KindProviderCall, generation.KindResponseParse, generation.KindProviderBusiness:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleGenerate serves POST /v1/generations.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	var req models.GenerateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Type == "" || req.Model == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "type and model are required")
		return
	}
	if req.Prompt == "" && req.Image == "" && len(req.URLs) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "prompt or image input is required")
		return
	}

	task, err := s.generator.Generate(r.Context(), userID, &req)
	if err != nil {
		kind := generation.KindOf(err)
		message := "generation failed"
		var ge *generation.Error
		if errors.As(err, &ge) {
			message = "generation failed: " + ge.Message
		}
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("generation request failed")

		// A failed task still exists and is queryable; return it with
		// the error so clients can show both.
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

	code := http.StatusCreated
	if task.Status == models.TaskStatusProcessing {
		code = http.StatusAccepted
	}
	utils.RespondWithJSON(w, code, toTaskResponse(task))
}
