package generation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"media_gateway/internal/models"
	"media_gateway/internal/normalize"
	"media_gateway/internal/providers"
)

// Poll checks the provider for progress on an async task and drives the
// same finalize paths as a synchronous call. Terminal tasks are returned
// unchanged, so polling after completion is a no-op. Transient transport
// failures leave the task processing for the next poll; a 404 from the
// provider is a hard failure, the remote task is gone and will never
// complete.
func (s *Service) Poll(ctx context.Context, taskID uuid.UUID) (*models.GenerationTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, nil
	}
	if task.ExternalTaskID == nil || *task.ExternalTaskID == "" {
		return s.fail(ctx, task, KindConfiguration, "task has no provider reference to poll", nil)
	}

	provider, _, err := s.finder.FindProvider(ctx, task.TaskType, task.ModelName)
	if err != nil {
		return task, newError(KindConfiguration, fmt.Sprintf("no provider configured for %s model %s", task.TaskType, task.ModelName), err)
	}

	spec, err := providers.DeriveFetchSpec(provider.APIURL(), *task.ExternalTaskID)
	if err != nil {
		return s.fail(ctx, task, KindConfiguration, "provider endpoint does not support status polling", err)
	}

	call, err := s.caller.Fetch(ctx, provider, spec)
	s.record(ctx, task, provider, call, err)
	if err != nil {
		// Leave the task processing; the next poll may succeed.
		return task, newError(KindProviderCall, "status poll failed", err)
	}
	if call.StatusCode == http.StatusNotFound {
		return s.fail(ctx, task, KindProviderCall, "provider no longer knows this task", nil)
	}
	if call.StatusCode < 200 || call.StatusCode >= 300 {
		return task, newError(KindProviderCall, fmt.Sprintf("status poll returned %d", call.StatusCode), nil)
	}

	opts := normalize.Options{
		Mode:  normalize.ModeSyncJSON,
		Video: models.ProviderType(task.TaskType).IsVideo(),
	}
	result, err := normalize.Normalize(call.Body, opts)
	if err != nil {
		return s.fail(ctx, task, classifyNormalizeError(err), err.Error(), err)
	}
	if result.Pending() {
		return task, nil
	}

	return s.finalizeSuccess(ctx, task, result)
}
