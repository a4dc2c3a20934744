package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/events"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
	"github.com/factory-platform/production-service/pkg/outbox"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// StageApplicationService handles production stage use cases
type StageApplicationService struct {
	repo         StageRepository
	eventFactory *events.EventFactory
	topic        string
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewStageApplicationService creates a new StageApplicationService
func NewStageApplicationService(
	repo StageRepository,
	eventFactory *events.EventFactory,
	topic string,
	logger *logging.Logger,
	m *metrics.Metrics,
) *StageApplicationService {
	return &StageApplicationService{
		repo:         repo,
		eventFactory: eventFactory,
		topic:        topic,
		logger:       logger,
		metrics:      m,
	}
}

// buildOutboxEvents wraps an aggregate's domain events into outbox events
// carrying CloudEvent payloads
func buildOutboxEvents(
	ctx context.Context,
	factory *events.EventFactory,
	aggregateID, aggregateType, topic string,
	domainEvents []domain.DomainEvent,
) ([]*outbox.OutboxEvent, error) {
	result := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, de := range domainEvents {
		ce := factory.CreateEvent(ctx, de.EventType(), aggregateID, de)
		oe, err := outbox.NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic, ce)
		if err != nil {
			return nil, fmt.Errorf("failed to build outbox event: %w", err)
		}
		result = append(result, oe)
	}
	return result, nil
}

// stageLoader adapts the repository to the domain's cycle-check loader
func (s *StageApplicationService) stageLoader() domain.StageLoader {
	return func(ctx context.Context, stageID string) (*domain.Stage, error) {
		return s.repo.FindByID(ctx, stageID)
	}
}

// CreateStage creates a new production stage. Edges may be supplied at
// creation; they go through the same cycle validation as a later edit.
func (s *StageApplicationService) CreateStage(ctx context.Context, cmd CreateStageCommand) (*StageDTO, error) {
	companyID := tenant.GetCompanyID(ctx)
	if companyID == "" {
		return nil, tenant.ErrMissingTenantContext
	}
	if cmd.Name == "" {
		return nil, errors.ErrValidation("name is required")
	}

	stage, err := domain.NewStage(uuid.New().String(), companyID, cmd.Name, cmd.Order, cmd.TargetQuantity)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	stage.AssignedUserID = cmd.AssignedUserID
	stage.SupervisorID = cmd.SupervisorID

	if len(cmd.Predecessors) > 0 || len(cmd.Successors) > 0 {
		if err := s.validateEdges(ctx, stage, cmd.Predecessors, cmd.Successors); err != nil {
			return nil, err
		}
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, stage.StageID, "stage", s.topic, stage.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, stage, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save stage", "stageId", stage.StageID)
		return nil, fmt.Errorf("failed to save stage: %w", err)
	}
	stage.ClearDomainEvents()

	s.metrics.RecordStageCreated(companyID)
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.StageCreated,
		EntityType: "stage",
		EntityID:   stage.StageID,
		Action:     "created",
	})

	return ToStageDTO(stage), nil
}

// GetStage retrieves a stage by ID
func (s *StageApplicationService) GetStage(ctx context.Context, query GetStageQuery) (*StageDTO, error) {
	stage, err := s.repo.FindByID(ctx, query.StageID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stage", "stageId", query.StageID)
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return nil, errors.ErrNotFound("stage")
	}

	return ToStageDTO(stage), nil
}

// ListStages retrieves stages with pagination and filtering
func (s *StageApplicationService) ListStages(ctx context.Context, req api.ListRequest) (*api.PageResponse[StageDTO], error) {
	stages, total, err := s.repo.FindAll(ctx, req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list stages")
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	page := api.NewPageResponse(ToStageDTOs(stages), req.Pagination.Page, req.Pagination.PageSize, total)
	return &page, nil
}

// UpdateStage edits stage details
func (s *StageApplicationService) UpdateStage(ctx context.Context, cmd UpdateStageCommand) (*StageDTO, error) {
	stage, err := s.repo.FindByID(ctx, cmd.StageID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stage", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return nil, errors.ErrNotFound("stage")
	}

	if err := stage.UpdateDetails(cmd.Name, cmd.Order, cmd.TargetQuantity, cmd.AssignedUserID, cmd.SupervisorID); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, stage.StageID, "stage", s.topic, stage.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, stage, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save stage", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to save stage: %w", err)
	}
	stage.ClearDomainEvents()

	return ToStageDTO(stage), nil
}

// UpdateStageEdges replaces a stage's dependency edges after validating that
// the new successor relation stays acyclic
func (s *StageApplicationService) UpdateStageEdges(ctx context.Context, cmd UpdateStageEdgesCommand) (*StageDTO, error) {
	stage, err := s.repo.FindByID(ctx, cmd.StageID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stage", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return nil, errors.ErrNotFound("stage")
	}

	if err := s.validateEdges(ctx, stage, cmd.Predecessors, cmd.Successors); err != nil {
		return nil, err
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, stage.StageID, "stage", s.topic, stage.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, stage, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save stage", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to save stage: %w", err)
	}
	stage.ClearDomainEvents()

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.StageEdgesUpdated,
		EntityType: "stage",
		EntityID:   cmd.StageID,
		Action:     "edges_updated",
	})

	return ToStageDTO(stage), nil
}

// validateEdges verifies that every referenced stage exists in the caller's
// tenant, applies the edges, and runs the cycle check before persist
func (s *StageApplicationService) validateEdges(ctx context.Context, stage *domain.Stage, predecessors, successors []string) error {
	for _, id := range append(append([]string{}, predecessors...), successors...) {
		if id == stage.StageID {
			continue
		}
		ref, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load referenced stage %s: %w", id, err)
		}
		if ref == nil {
			return errors.ErrNotFoundWithID("stage", id)
		}
	}

	stage.SetEdges(predecessors, successors)

	if err := domain.ValidateAcyclic(ctx, stage, s.stageLoader()); err != nil {
		if err == domain.ErrCircularDependency {
			return errors.ErrValidation(err.Error())
		}
		return err
	}
	return nil
}

// RecordProgress applies a progress update to a stage. When the update
// completes the stage for the first time, its direct successors still in
// planned are activated best-effort after the stage's own save.
func (s *StageApplicationService) RecordProgress(ctx context.Context, cmd RecordProgressCommand) (*StageDTO, error) {
	if cmd.CompletedQuantity < 0 {
		return nil, errors.ErrValidation(domain.ErrNegativeQuantity.Error())
	}

	stage, err := s.repo.FindByID(ctx, cmd.StageID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stage", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return nil, errors.ErrNotFound("stage")
	}

	newlyCompleted := stage.ApplyProgress(cmd.CompletedQuantity)

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, stage.StageID, "stage", s.topic, stage.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, stage, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save stage progress", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to save stage: %w", err)
	}
	stage.ClearDomainEvents()

	companyID := tenant.GetCompanyID(ctx)
	s.metrics.RecordProgressUpdate(companyID)
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.StageProgressRecorded,
		EntityType: "stage",
		EntityID:   cmd.StageID,
		Action:     "progress_recorded",
		RelatedIDs: map[string]string{
			"status": string(stage.Status),
		},
	})

	if newlyCompleted {
		s.metrics.RecordStageCompleted(companyID)
		s.activateSuccessors(ctx, stage)
	}

	return ToStageDTO(stage), nil
}

// activateSuccessors performs the one-level cascade. Each successor is
// handled independently; a failure on one never affects the others or the
// already-persisted triggering stage.
func (s *StageApplicationService) activateSuccessors(ctx context.Context, completed *domain.Stage) {
	for _, succID := range completed.Successors {
		succ, err := s.repo.FindByID(ctx, succID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load successor for activation",
				"stageId", completed.StageID, "successorId", succID)
			continue
		}
		if succ == nil {
			continue
		}

		if !succ.Activate() {
			continue
		}

		outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, succ.StageID, "stage", s.topic, succ.GetDomainEvents())
		if err != nil {
			s.logger.WithError(err).Error("Failed to build activation events", "successorId", succID)
			continue
		}

		if err := s.repo.Save(ctx, succ, outboxEvents); err != nil {
			s.logger.WithError(err).Error("Failed to activate successor",
				"stageId", completed.StageID, "successorId", succID)
			continue
		}
		succ.ClearDomainEvents()

		s.metrics.RecordStageActivated(succ.CompanyID)
		s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
			EventType:  events.StageActivated,
			EntityType: "stage",
			EntityID:   succID,
			Action:     "activated",
			RelatedIDs: map[string]string{
				"triggeredBy": completed.StageID,
			},
		})
	}
}

// SetStatus applies hold/resume/cancel transitions
func (s *StageApplicationService) SetStatus(ctx context.Context, cmd SetStageStatusCommand) (*StageDTO, error) {
	stage, err := s.repo.FindByID(ctx, cmd.StageID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stage", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return nil, errors.ErrNotFound("stage")
	}

	switch cmd.Action {
	case StatusActionHold:
		err = stage.Hold()
	case StatusActionResume:
		err = stage.Resume()
	case StatusActionCancel:
		err = stage.Cancel()
	default:
		return nil, errors.ErrValidation(fmt.Sprintf("invalid status action: %s", cmd.Action))
	}
	if err != nil {
		return nil, errors.ErrConflict(err.Error())
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, stage.StageID, "stage", s.topic, stage.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, stage, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save stage status", "stageId", cmd.StageID)
		return nil, fmt.Errorf("failed to save stage: %w", err)
	}
	stage.ClearDomainEvents()

	return ToStageDTO(stage), nil
}

// DeleteStage deletes a stage. An in_progress stage is never deletable.
// Reverse edges pointing at the deleted stage are not repaired; traversals
// treat them as dangling.
func (s *StageApplicationService) DeleteStage(ctx context.Context, cmd DeleteStageCommand) error {
	stage, err := s.repo.FindByID(ctx, cmd.StageID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stage", "stageId", cmd.StageID)
		return fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return errors.ErrNotFound("stage")
	}

	if err := stage.CanDelete(); err != nil {
		return errors.ErrConflict(err.Error())
	}

	deleted := &domain.StageDeletedEvent{
		StageID:   stage.StageID,
		CompanyID: stage.CompanyID,
		DeletedAt: time.Now(),
	}
	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, stage.StageID, "stage", s.topic, []domain.DomainEvent{deleted})
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, cmd.StageID, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to delete stage", "stageId", cmd.StageID)
		return fmt.Errorf("failed to delete stage: %w", err)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.StageDeleted,
		EntityType: "stage",
		EntityID:   cmd.StageID,
		Action:     "deleted",
	})

	return nil
}

// GetStats returns the count and quantity totals grouped by status
func (s *StageApplicationService) GetStats(ctx context.Context, filter api.FilterRequest) ([]StageStatsDTO, error) {
	buckets, err := s.repo.AggregateStats(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to aggregate stage stats")
		return nil, fmt.Errorf("failed to aggregate stage stats: %w", err)
	}

	return ToStageStatsDTOs(buckets), nil
}
