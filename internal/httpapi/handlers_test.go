package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_gateway/internal/generation"
	"media_gateway/internal/models"
	"media_gateway/internal/storage"
)

var testSecret = []byte("test-secret")

type stubGenerator struct {
	task *models.GenerationTask
	err  error
}

func (s *stubGenerator) Generate(_ context.Context, userID uuid.UUID, _ *models.GenerateRequest) (*models.GenerationTask, error) {
	return s.task, s.err
}

func (s *stubGenerator) Poll(_ context.Context, _ uuid.UUID) (*models.GenerationTask, error) {
	return s.task, s.err
}

type stubTasks struct {
	tasks map[uuid.UUID]*models.GenerationTask
}

func (s *stubTasks) GetByID(_ context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}
	return task, nil
}

func (s *stubTasks) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*models.GenerationTask, error) {
	var out []*models.GenerationTask
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestMux(t *testing.T, gen Generator, tasks TaskReader) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewServer(gen, tasks, nil, zerolog.Nop()).Routes(mux, testSecret)
	return mux
}

func authedRequest(t *testing.T, userID uuid.UUID, method, path, body string) *http.Request {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	token, err := GenerateUserJWT(userID, testSecret, time.Minute)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestGenerateEndpointSuccess(t *testing.T) {
	userID := uuid.New()
	task := &models.GenerationTask{
		ID:         uuid.New(),
		UserID:     userID,
		TaskType:   "text-to-image",
		ModelName:  "flux-1.0",
		Prompt:     "a red fox",
		Cost:       10,
		Status:     models.TaskStatusSuccess,
		ContentURL: "https://cdn.example.com/a.png",
	}
	mux := newTestMux(t, &stubGenerator{task: task}, &stubTasks{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, userID, http.MethodPost, "/v1/generations",
		`{"type":"text-to-image","model":"flux-1.0","prompt":"a red fox"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp taskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "https://cdn.example.com/a.png", resp.ContentURL)
	assert.Equal(t, 10, resp.Cost)
}

func TestGenerateEndpointAsyncAccepted(t *testing.T) {
	userID := uuid.New()
	ext := "ext-123"
	task := &models.GenerationTask{
		ID:             uuid.New(),
		UserID:         userID,
		Status:         models.TaskStatusProcessing,
		ExternalTaskID: &ext,
	}
	mux := newTestMux(t, &stubGenerator{task: task}, &stubTasks{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, userID, http.MethodPost, "/v1/generations",
		`{"type":"text-to-image","model":"flux-1.0","prompt":"a red fox","webHook":"-1"}`))

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp taskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, "ext-123", resp.ExternalTaskID)
}

func TestGenerateEndpointErrorStatuses(t *testing.T) {
	tests := []struct {
		kind generation.Kind
		want int
	}{
		{generation.KindConfiguration, http.StatusBadRequest},
		{generation.KindInsufficientBalance, http.StatusPaymentRequired},
		{generation.KindProviderCall, http.StatusBadGateway},
		{generation.KindResponseParse, http.StatusBadGateway},
		{generation.KindProviderBusiness, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			gen := &stubGenerator{err: &generation.Error{Kind: tt.kind, Message: "boom"}}
			mux := newTestMux(t, gen, &stubTasks{})

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodPost, "/v1/generations",
				`{"type":"text-to-image","model":"flux-1.0","prompt":"x"}`))

			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), "generation failed: boom")
		})
	}
}

func TestGenerateEndpointFailedTaskIncluded(t *testing.T) {
	userID := uuid.New()
	reason := "provider request failed"
	task := &models.GenerationTask{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     models.TaskStatusFailed,
		FailReason: &reason,
	}
	gen := &stubGenerator{task: task, err: &generation.Error{Kind: generation.KindProviderCall, Message: reason}}
	mux := newTestMux(t, gen, &stubTasks{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, userID, http.MethodPost, "/v1/generations",
		`{"type":"text-to-image","model":"flux-1.0","prompt":"x"}`))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp struct {
		Error string       `json:"error"`
		Task  taskResponse `json:"task"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "failed", resp.Task.Status)
	assert.Equal(t, reason, resp.Task.FailReason)
}

func TestGenerateEndpointValidation(t *testing.T) {
	mux := newTestMux(t, &stubGenerator{}, &stubTasks{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodPost, "/v1/generations",
		`{"prompt":"no type or model"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodPost, "/v1/generations",
		`{"type":"text-to-image","model":"flux-1.0"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateEndpointRequiresAuth(t *testing.T) {
	mux := newTestMux(t, &stubGenerator{}, &stubTasks{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{}`))
	mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{}`))
	r.Header.Set("Authorization", "Bearer not-a-token")
	mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTaskOwnership(t *testing.T) {
	owner := uuid.New()
	task := &models.GenerationTask{ID: uuid.New(), UserID: owner, Status: models.TaskStatusSuccess}
	tasks := &stubTasks{tasks: map[uuid.UUID]*models.GenerationTask{task.ID: task}}
	mux := newTestMux(t, &stubGenerator{}, tasks)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, owner, http.MethodGet, "/v1/generations/"+task.ID.String(), ""))
	assert.Equal(t, http.StatusOK, w.Code)

	// Another user cannot see the task, not even its existence.
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodGet, "/v1/generations/"+task.ID.String(), ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTaskNotFound(t *testing.T) {
	mux := newTestMux(t, &stubGenerator{}, &stubTasks{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodGet, "/v1/generations/"+uuid.NewString(), ""))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodGet, "/v1/generations/not-a-uuid", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTasks(t *testing.T) {
	userID := uuid.New()
	tasks := &stubTasks{tasks: map[uuid.UUID]*models.GenerationTask{}}
	for i := 0; i < 3; i++ {
		task := &models.GenerationTask{ID: uuid.New(), UserID: userID, Status: models.TaskStatusSuccess}
		tasks.tasks[task.ID] = task
	}
	other := &models.GenerationTask{ID: uuid.New(), UserID: uuid.New()}
	tasks.tasks[other.ID] = other

	mux := newTestMux(t, &stubGenerator{}, tasks)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, userID, http.MethodGet, "/v1/generations", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Tasks []taskResponse `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Tasks, 3)
}

func TestPollEndpoint(t *testing.T) {
	owner := uuid.New()
	task := &models.GenerationTask{ID: uuid.New(), UserID: owner, Status: models.TaskStatusSuccess, ContentURL: "https://cdn.example.com/c.png"}
	tasks := &stubTasks{tasks: map[uuid.UUID]*models.GenerationTask{task.ID: task}}
	mux := newTestMux(t, &stubGenerator{task: task}, tasks)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, owner, http.MethodPost, "/v1/generations/"+task.ID.String()+"/poll", ""))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp taskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)

	// Other users cannot poll someone else's task.
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, uuid.New(), http.MethodPost, "/v1/generations/"+task.ID.String()+"/poll", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t, &stubGenerator{}, &stubTasks{})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
