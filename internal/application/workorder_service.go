package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/events"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// WorkOrderApplicationService handles work order use cases
type WorkOrderApplicationService struct {
	repo         WorkOrderRepository
	stageRepo    StageRepository
	eventFactory *events.EventFactory
	topic        string
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewWorkOrderApplicationService creates a new WorkOrderApplicationService
func NewWorkOrderApplicationService(
	repo WorkOrderRepository,
	stageRepo StageRepository,
	eventFactory *events.EventFactory,
	topic string,
	logger *logging.Logger,
	m *metrics.Metrics,
) *WorkOrderApplicationService {
	return &WorkOrderApplicationService{
		repo:         repo,
		stageRepo:    stageRepo,
		eventFactory: eventFactory,
		topic:        topic,
		logger:       logger,
		metrics:      m,
	}
}

// CreateWorkOrder creates a work order whose stage entries are snapshotted
// from the referenced stages at creation time
func (s *WorkOrderApplicationService) CreateWorkOrder(ctx context.Context, cmd CreateWorkOrderCommand) (*WorkOrderDTO, error) {
	companyID := tenant.GetCompanyID(ctx)
	if companyID == "" {
		return nil, tenant.ErrMissingTenantContext
	}
	if cmd.OrderNumber == "" {
		return nil, errors.ErrValidation("orderNumber is required")
	}

	entries := make([]domain.StageEntry, 0, len(cmd.StageIDs))
	for _, stageID := range cmd.StageIDs {
		stage, err := s.stageRepo.FindByID(ctx, stageID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stage %s: %w", stageID, err)
		}
		if stage == nil {
			return nil, errors.ErrNotFoundWithID("stage", stageID)
		}

		entries = append(entries, domain.StageEntry{
			StageID: stage.StageID,
			Name:    stage.Name,
			Order:   stage.Order,
			Status:  domain.StageEntryPending,
		})
	}

	wo, err := domain.NewWorkOrder(uuid.New().String(), companyID, cmd.OrderNumber, cmd.ProductName, cmd.TargetQuantity, entries)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, wo.WorkOrderID, "work_order", s.topic, wo.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, wo, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save work order", "workOrderId", wo.WorkOrderID)
		return nil, fmt.Errorf("failed to save work order: %w", err)
	}
	wo.ClearDomainEvents()

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.WorkOrderCreated,
		EntityType: "work_order",
		EntityID:   wo.WorkOrderID,
		Action:     "created",
		RelatedIDs: map[string]string{
			"orderNumber": cmd.OrderNumber,
		},
	})

	return ToWorkOrderDTO(wo), nil
}

// GetWorkOrder retrieves a work order by ID
func (s *WorkOrderApplicationService) GetWorkOrder(ctx context.Context, query GetWorkOrderQuery) (*WorkOrderDTO, error) {
	wo, err := s.repo.FindByID(ctx, query.WorkOrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get work order", "workOrderId", query.WorkOrderID)
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	if wo == nil {
		return nil, errors.ErrNotFound("work order")
	}

	return ToWorkOrderDTO(wo), nil
}

// ListWorkOrders retrieves work orders with pagination and filtering
func (s *WorkOrderApplicationService) ListWorkOrders(ctx context.Context, req api.ListRequest) (*api.PageResponse[WorkOrderDTO], error) {
	workOrders, total, err := s.repo.FindAll(ctx, req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list work orders")
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}

	page := api.NewPageResponse(ToWorkOrderDTOs(workOrders), req.Pagination.Page, req.Pagination.PageSize, total)
	return &page, nil
}

// UpdateStageProgress records progress on one embedded stage entry of a work
// order and recomputes the overall progress
func (s *WorkOrderApplicationService) UpdateStageProgress(ctx context.Context, cmd UpdateWorkOrderStageProgressCommand) (*WorkOrderDTO, error) {
	if cmd.CompletedQuantity < 0 {
		return nil, errors.ErrValidation(domain.ErrNegativeQuantity.Error())
	}

	wo, err := s.repo.FindByID(ctx, cmd.WorkOrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get work order", "workOrderId", cmd.WorkOrderID)
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	if wo == nil {
		return nil, errors.ErrNotFound("work order")
	}

	if err := wo.UpdateStageProgress(cmd.StageID, cmd.CompletedQuantity); err != nil {
		if err == domain.ErrStageEntryNotFound {
			return nil, errors.ErrNotFound("stage entry")
		}
		return nil, errors.ErrValidation(err.Error())
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, wo.WorkOrderID, "work_order", s.topic, wo.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, wo, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save work order progress", "workOrderId", cmd.WorkOrderID)
		return nil, fmt.Errorf("failed to save work order: %w", err)
	}
	wo.ClearDomainEvents()

	if wo.Status == domain.WorkOrderStatusCompleted {
		s.metrics.RecordWorkOrderCompleted(wo.CompanyID)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.WorkOrderStageProgress,
		EntityType: "work_order",
		EntityID:   cmd.WorkOrderID,
		Action:     "stage_progress",
		RelatedIDs: map[string]string{
			"stageId": cmd.StageID,
			"status":  string(wo.Status),
		},
	})

	return ToWorkOrderDTO(wo), nil
}

// CancelWorkOrder cancels a work order
func (s *WorkOrderApplicationService) CancelWorkOrder(ctx context.Context, cmd CancelWorkOrderCommand) (*WorkOrderDTO, error) {
	wo, err := s.repo.FindByID(ctx, cmd.WorkOrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get work order", "workOrderId", cmd.WorkOrderID)
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	if wo == nil {
		return nil, errors.ErrNotFound("work order")
	}

	if err := wo.Cancel(); err != nil {
		return nil, errors.ErrConflict(err.Error())
	}

	outboxEvents, err := buildOutboxEvents(ctx, s.eventFactory, wo.WorkOrderID, "work_order", s.topic, wo.GetDomainEvents())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, wo, outboxEvents); err != nil {
		s.logger.WithError(err).Error("Failed to save work order", "workOrderId", cmd.WorkOrderID)
		return nil, fmt.Errorf("failed to save work order: %w", err)
	}
	wo.ClearDomainEvents()

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  events.WorkOrderCancelled,
		EntityType: "work_order",
		EntityID:   cmd.WorkOrderID,
		Action:     "cancelled",
	})

	return ToWorkOrderDTO(wo), nil
}
