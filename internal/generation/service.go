// Package generation implements the credit-accounted task lifecycle:
// reserve credits, call the provider, finalize with success or a refund.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"media_gateway/internal/artifacts"
	"media_gateway/internal/mapping"
	"media_gateway/internal/models"
	"media_gateway/internal/normalize"
	"media_gateway/internal/providers"
	"media_gateway/internal/storage"
	"media_gateway/internal/utils"
)

// Ledger reserves and refunds credits together with the task row.
// Satisfied by storage.LedgerRepository.
type Ledger interface {
	Reserve(ctx context.Context, task *models.GenerationTask) (int, error)
	RefundFailure(ctx context.Context, taskID uuid.UUID, reason string) (bool, error)
}

// Tasks mutates generation task rows. Satisfied by storage.TaskRepository.
type Tasks interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	MarkSuccess(ctx context.Context, id uuid.UUID, contentURL, thumbnailURL string) (bool, error)
	SetExternalTaskID(ctx context.Context, id uuid.UUID, externalID string) error
	InsertSiblings(ctx context.Context, parent *models.GenerationTask, contentURLs []string) error
}

// ProviderFinder resolves a capability type and model to a provider.
// Satisfied by providers.Registry.
type ProviderFinder interface {
	FindProvider(ctx context.Context, providerType, modelName string) (*models.Provider, *models.Model, error)
}

// RuleSource lists the parameter mapping rules of a provider. Satisfied by
// storage.MappingRuleRepository.
type RuleSource interface {
	ListForProvider(ctx context.Context, providerID uuid.UUID) ([]models.MappingRule, error)
}

// Caller dispatches HTTP calls to a provider. Satisfied by
// providers.Client.
type Caller interface {
	Submit(ctx context.Context, provider *models.Provider, payload map[string]any) (*providers.CallResult, error)
	Fetch(ctx context.Context, provider *models.Provider, spec providers.FetchSpec) (*providers.CallResult, error)
}

// Recorder accepts provider call audit records. Satisfied by
// storage.CallRecordWorker.
type Recorder interface {
	Enqueue(ctx context.Context, record *models.CallRecord) error
}

// Service drives the generation task lifecycle.
type Service struct {
	finder   ProviderFinder
	rules    RuleSource
	ledger   Ledger
	tasks    Tasks
	caller   Caller
	store    artifacts.Store
	recorder Recorder
	logger   zerolog.Logger
}

// NewService creates the generation lifecycle service
func NewService(finder ProviderFinder, rules RuleSource, ledger Ledger, tasks Tasks, caller Caller, store artifacts.Store, recorder Recorder, logger zerolog.Logger) *Service {
	if store == nil {
		store = artifacts.NoopStore{}
	}
	return &Service{
		finder:   finder,
		rules:    rules,
		ledger:   ledger,
		tasks:    tasks,
		caller:   caller,
		store:    store,
		recorder: recorder,
		logger:   logger.With().Str("component", "generation").Logger(),
	}
}

// Generate runs one generation request end to end: resolve the provider,
// price the request, reserve credits, submit, and finalize. Any failure
// after the credit debit refunds it and leaves the task failed; the failed
// task is returned alongside the classified error so callers can surface
// both.
//
// An async request (webHook "-1") or a provider answering with a bare
// task id returns with the task still processing and its external id set;
// Poll drives it to a terminal state later.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req *models.GenerateRequest) (*models.GenerationTask, error) {
	req.Sanitize()

	provider, model, err := s.finder.FindProvider(ctx, req.Type, req.Model)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			return nil, newError(KindConfiguration, fmt.Sprintf("no provider configured for %s model %s", req.Type, req.Model), err)
		}
		return nil, newError(KindConfiguration, "provider lookup failed", err)
	}

	cost := model.CalculateCost(req.Resolution, req.Duration, req.Quantity)

	task := &models.GenerationTask{
		ID:            uuid.New(),
		UserID:        userID,
		TaskType:      req.Type,
		ModelName:     req.Model,
		Prompt:        req.Prompt,
		Cost:          cost,
		Status:        models.TaskStatusProcessing,
		RequestParams: req.Params(),
	}

	if _, err := s.ledger.Reserve(ctx, task); err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) || errors.Is(err, storage.ErrAccountNotFound) {
			return nil, newError(KindInsufficientBalance, "credit balance does not cover this request", err)
		}
		return nil, fmt.Errorf("reserve credits: %w", err)
	}

	s.logger.Info().
		Str("task_id", task.ID.String()).
		Str("provider", provider.Name).
		Str("model", req.Model).
		Int("cost", cost).
		Msg("credits reserved, submitting to provider")

	rules, err := s.rules.ListForProvider(ctx, provider.ID)
	if err != nil {
		return s.fail(ctx, task, KindConfiguration, "parameter mapping rules unavailable", err)
	}
	payload := mapping.Apply(mapping.BuildContext(req), rules, model.Name)

	call, err := s.caller.Submit(ctx, provider, payload)
	s.record(ctx, task, provider, call, err)
	if err != nil {
		return s.fail(ctx, task, KindProviderCall, "provider request failed", err)
	}
	if call.StatusCode < 200 || call.StatusCode >= 300 {
		return s.fail(ctx, task, KindProviderCall, fmt.Sprintf("provider returned status %d", call.StatusCode), nil)
	}

	opts := normalize.Options{
		Mode:  normalize.Mode(provider.ResponseMode()),
		Async: req.Async(),
		Video: models.ProviderType(req.Type).IsVideo(),
	}
	result, err := normalize.Normalize(call.Body, opts)
	if err != nil {
		return s.fail(ctx, task, classifyNormalizeError(err), err.Error(), err)
	}

	if result.Pending() {
		if result.ExternalTaskID == "" {
			return s.fail(ctx, task, KindResponseParse, "provider returned neither a result nor a task reference", nil)
		}
		if err := s.tasks.SetExternalTaskID(ctx, task.ID, result.ExternalTaskID); err != nil {
			return s.fail(ctx, task, KindConfiguration, "could not store provider task reference", err)
		}
		task.ExternalTaskID = utils.StringPtr(result.ExternalTaskID)
		return task, nil
	}

	return s.finalizeSuccess(ctx, task, result)
}

// finalizeSuccess persists the artifacts, flips the task to success and
// creates zero-cost sibling rows for artifacts beyond the first. The
// status flip is conditional on processing, so a concurrent finalize wins
// exactly once.
func (s *Service) finalizeSuccess(ctx context.Context, task *models.GenerationTask, result *normalize.Result) (*models.GenerationTask, error) {
	urls := result.AllURLs()
	if len(urls) == 0 {
		return s.fail(ctx, task, KindResponseParse, "provider reported success without content", nil)
	}

	stored := make([]string, 0, len(urls))
	for _, u := range urls {
		persisted, err := s.store.Persist(ctx, u)
		if err != nil {
			return s.fail(ctx, task, KindProviderCall, "storing generated content failed", err)
		}
		stored = append(stored, persisted)
	}

	updated, err := s.tasks.MarkSuccess(ctx, task.ID, stored[0], stored[0])
	if err != nil {
		return task, fmt.Errorf("finalize task %s: %w", task.ID, err)
	}
	if !updated {
		// Someone else finalized first; reload the authoritative row.
		current, err := s.tasks.GetByID(ctx, task.ID)
		if err != nil {
			return task, err
		}
		return current, nil
	}

	task.Status = models.TaskStatusSuccess
	task.ContentURL = stored[0]
	task.ThumbnailURL = stored[0]

	if len(stored) > 1 {
		if err := s.tasks.InsertSiblings(ctx, task, stored[1:]); err != nil {
			// The paid task is already final; sibling rows are
			// recoverable from the audit trail.
			s.logger.Error().Err(err).Str("task_id", task.ID.String()).Msg("failed to insert sibling tasks")
		}
	}

	s.logger.Info().
		Str("task_id", task.ID.String()).
		Int("artifacts", len(stored)).
		Msg("generation succeeded")
	return task, nil
}

// fail refunds the task's debit and marks it failed, both in one
// conditional transaction. A task already finalized elsewhere keeps its
// state; the classified error is returned either way.
func (s *Service) fail(ctx context.Context, task *models.GenerationTask, kind Kind, reason string, cause error) (*models.GenerationTask, error) {
	clean := sanitizeReason(reason)

	refunded, err := s.ledger.RefundFailure(ctx, task.ID, clean)
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID.String()).Msg("refund failed")
	} else if refunded {
		task.Status = models.TaskStatusFailed
		task.FailReason = utils.StringPtr(clean)
		s.logger.Warn().
			Str("task_id", task.ID.String()).
			Str("kind", string(kind)).
			Str("reason", clean).
			Msg("generation failed, credits refunded")
	}

	return task, newError(kind, clean, cause)
}

func (s *Service) record(ctx context.Context, task *models.GenerationTask, provider *models.Provider, call *providers.CallResult, callErr error) {
	if s.recorder == nil {
		return
	}
	record := &models.CallRecord{
		ID:         uuid.New(),
		TaskID:     task.ID,
		ProviderID: provider.ID,
		ModelName:  task.ModelName,
	}
	if call != nil {
		record.Endpoint = call.Endpoint
		record.StatusCode = call.StatusCode
		record.LatencyMS = int(call.Latency.Milliseconds())
	}
	if callErr != nil {
		record.ErrorMessage = callErr.Error()
	}
	if err := s.recorder.Enqueue(ctx, record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to enqueue call record")
	}
}

func classifyNormalizeError(err error) Kind {
	var pe *normalize.ProviderError
	if errors.As(err, &pe) {
		return KindProviderBusiness
	}
	return KindResponseParse
}

// jsonInternals are fragments of Go's JSON decoder messages; surfacing
// them to end users leaks implementation detail without helping them.
var jsonInternals = []string{
	"invalid character",
	"unexpected end of JSON",
	"cannot unmarshal",
	"json:",
}

func sanitizeReason(reason string) string {
	for _, fragment := range jsonInternals {
		if strings.Contains(reason, fragment) {
			return "response format error, please retry"
		}
	}
	return reason
}
