package application

import (
	"context"
	"testing"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/api"
	sharedErrors "github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/events"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
	"github.com/factory-platform/production-service/pkg/outbox"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// MockWorkOrderRepository is an in-memory WorkOrderRepository for testing
type MockWorkOrderRepository struct {
	workOrders map[string]*domain.WorkOrder
	saveErr    error
	findErr    error
}

func NewMockWorkOrderRepository() *MockWorkOrderRepository {
	return &MockWorkOrderRepository{
		workOrders: make(map[string]*domain.WorkOrder),
	}
}

func (m *MockWorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder, events []*outbox.OutboxEvent) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.workOrders[wo.WorkOrderID] = wo
	return nil
}

func (m *MockWorkOrderRepository) FindByID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.workOrders[workOrderID], nil
}

func (m *MockWorkOrderRepository) FindAll(ctx context.Context, req api.ListRequest) ([]*domain.WorkOrder, int64, error) {
	if m.findErr != nil {
		return nil, 0, m.findErr
	}
	var result []*domain.WorkOrder
	for _, wo := range m.workOrders {
		result = append(result, wo)
	}
	return result, int64(len(result)), nil
}

func (m *MockWorkOrderRepository) AddWorkOrder(wo *domain.WorkOrder) {
	m.workOrders[wo.WorkOrderID] = wo
}

func createWorkOrderTestService() (*WorkOrderApplicationService, *MockWorkOrderRepository, *MockStageRepository) {
	repo := NewMockWorkOrderRepository()
	stageRepo := NewMockStageRepository()
	logger := logging.New(logging.DefaultConfig("test"))
	m := metrics.New(metrics.DefaultConfig("test"))
	factory := events.NewEventFactory("test/production-service")
	service := NewWorkOrderApplicationService(repo, stageRepo, factory, "factory.workorders.events", logger, m)
	return service, repo, stageRepo
}

func addWorkOrder(t *testing.T, repo *MockWorkOrderRepository, id string, target int, stageIDs ...string) *domain.WorkOrder {
	t.Helper()
	entries := make([]domain.StageEntry, len(stageIDs))
	for i, sid := range stageIDs {
		entries[i] = domain.StageEntry{StageID: sid, Name: "Stage " + sid, Order: i + 1, Status: domain.StageEntryPending}
	}
	wo, err := domain.NewWorkOrder(id, "company-1", "WO-"+id, "Widget", target, entries)
	if err != nil {
		t.Fatalf("NewWorkOrder() error = %v", err)
	}
	wo.ClearDomainEvents()
	repo.AddWorkOrder(wo)
	return wo
}

func TestWorkOrderApplicationService_CreateWorkOrder(t *testing.T) {
	t.Run("snapshots stage entries at creation", func(t *testing.T) {
		service, _, stageRepo := createWorkOrderTestService()
		addStage(t, stageRepo, "cut", 100)
		addStage(t, stageRepo, "weld", 100)

		dto, err := service.CreateWorkOrder(tenantCtx(), CreateWorkOrderCommand{
			OrderNumber:    "WO-1001",
			ProductName:    "Widget",
			TargetQuantity: 50,
			StageIDs:       []string{"cut", "weld"},
		})

		if err != nil {
			t.Fatalf("CreateWorkOrder() error = %v", err)
		}
		if dto.Status != "draft" {
			t.Errorf("Status = %v, want draft", dto.Status)
		}
		if len(dto.Stages) != 2 {
			t.Fatalf("len(Stages) = %v, want 2", len(dto.Stages))
		}
		if dto.Stages[0].StageID != "cut" || dto.Stages[0].Status != "pending" {
			t.Errorf("first entry = %+v, want pending cut", dto.Stages[0])
		}
	})

	t.Run("requires tenant context", func(t *testing.T) {
		service, _, _ := createWorkOrderTestService()

		_, err := service.CreateWorkOrder(context.Background(), CreateWorkOrderCommand{
			OrderNumber:    "WO-1001",
			TargetQuantity: 50,
			StageIDs:       []string{"cut"},
		})

		if err != tenant.ErrMissingTenantContext {
			t.Errorf("CreateWorkOrder() error = %v, want %v", err, tenant.ErrMissingTenantContext)
		}
	})

	t.Run("rejects unknown stage references", func(t *testing.T) {
		service, _, _ := createWorkOrderTestService()

		_, err := service.CreateWorkOrder(tenantCtx(), CreateWorkOrderCommand{
			OrderNumber:    "WO-1001",
			TargetQuantity: 50,
			StageIDs:       []string{"ghost"},
		})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeNotFound {
			t.Errorf("CreateWorkOrder() error = %v, want not found", err)
		}
	})

	t.Run("rejects empty stage list", func(t *testing.T) {
		service, _, _ := createWorkOrderTestService()

		_, err := service.CreateWorkOrder(tenantCtx(), CreateWorkOrderCommand{
			OrderNumber:    "WO-1001",
			TargetQuantity: 50,
		})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeValidationError {
			t.Errorf("CreateWorkOrder() error = %v, want validation error", err)
		}
	})
}

func TestWorkOrderApplicationService_UpdateStageProgress(t *testing.T) {
	t.Run("records progress and recomputes overall", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		addWorkOrder(t, repo, "wo-1", 10, "cut", "weld")

		if _, err := service.UpdateStageProgress(tenantCtx(), UpdateWorkOrderStageProgressCommand{
			WorkOrderID: "wo-1", StageID: "cut", CompletedQuantity: 4,
		}); err != nil {
			t.Fatalf("UpdateStageProgress() error = %v", err)
		}

		dto, err := service.UpdateStageProgress(tenantCtx(), UpdateWorkOrderStageProgressCommand{
			WorkOrderID: "wo-1", StageID: "weld", CompletedQuantity: 6,
		})
		if err != nil {
			t.Fatalf("UpdateStageProgress() error = %v", err)
		}
		if dto.CompletedQuantity != 5 {
			t.Errorf("CompletedQuantity = %v, want 5", dto.CompletedQuantity)
		}
		if dto.Status != "active" {
			t.Errorf("Status = %v, want active", dto.Status)
		}
	})

	t.Run("completing every entry completes the work order", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		addWorkOrder(t, repo, "wo-1", 10, "cut", "weld")

		for _, stageID := range []string{"cut", "weld"} {
			if _, err := service.UpdateStageProgress(tenantCtx(), UpdateWorkOrderStageProgressCommand{
				WorkOrderID: "wo-1", StageID: stageID, CompletedQuantity: 10,
			}); err != nil {
				t.Fatalf("UpdateStageProgress(%s) error = %v", stageID, err)
			}
		}

		wo := repo.workOrders["wo-1"]
		if wo.Status != domain.WorkOrderStatusCompleted {
			t.Errorf("Status = %v, want completed", wo.Status)
		}
		if wo.ActualEndDate == nil {
			t.Error("ActualEndDate not set on completion")
		}
	})

	t.Run("unknown entry returns not found", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		addWorkOrder(t, repo, "wo-1", 10, "cut")

		_, err := service.UpdateStageProgress(tenantCtx(), UpdateWorkOrderStageProgressCommand{
			WorkOrderID: "wo-1", StageID: "ghost", CompletedQuantity: 3,
		})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeNotFound {
			t.Errorf("UpdateStageProgress() error = %v, want not found", err)
		}
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		addWorkOrder(t, repo, "wo-1", 10, "cut")

		_, err := service.UpdateStageProgress(tenantCtx(), UpdateWorkOrderStageProgressCommand{
			WorkOrderID: "wo-1", StageID: "cut", CompletedQuantity: -2,
		})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeValidationError {
			t.Errorf("UpdateStageProgress() error = %v, want validation error", err)
		}
	})

	t.Run("unknown work order returns not found", func(t *testing.T) {
		service, _, _ := createWorkOrderTestService()

		_, err := service.UpdateStageProgress(tenantCtx(), UpdateWorkOrderStageProgressCommand{
			WorkOrderID: "missing", StageID: "cut", CompletedQuantity: 3,
		})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeNotFound {
			t.Errorf("UpdateStageProgress() error = %v, want not found", err)
		}
	})
}

func TestWorkOrderApplicationService_CancelWorkOrder(t *testing.T) {
	t.Run("cancels an active work order", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		addWorkOrder(t, repo, "wo-1", 10, "cut")

		dto, err := service.CancelWorkOrder(tenantCtx(), CancelWorkOrderCommand{WorkOrderID: "wo-1"})
		if err != nil {
			t.Fatalf("CancelWorkOrder() error = %v", err)
		}
		if dto.Status != "cancelled" {
			t.Errorf("Status = %v, want cancelled", dto.Status)
		}
	})

	t.Run("rejects cancelling a completed work order", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		wo := addWorkOrder(t, repo, "wo-1", 10, "cut")
		if err := wo.UpdateStageProgress("cut", 10); err != nil {
			t.Fatalf("UpdateStageProgress() error = %v", err)
		}
		wo.ClearDomainEvents()

		_, err := service.CancelWorkOrder(tenantCtx(), CancelWorkOrderCommand{WorkOrderID: "wo-1"})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeConflict {
			t.Errorf("CancelWorkOrder() error = %v, want conflict", err)
		}
	})
}

func TestWorkOrderApplicationService_GetWorkOrder(t *testing.T) {
	t.Run("returns existing work order", func(t *testing.T) {
		service, repo, _ := createWorkOrderTestService()
		addWorkOrder(t, repo, "wo-1", 10, "cut")

		dto, err := service.GetWorkOrder(tenantCtx(), GetWorkOrderQuery{WorkOrderID: "wo-1"})
		if err != nil {
			t.Fatalf("GetWorkOrder() error = %v", err)
		}
		if dto.OrderNumber != "WO-wo-1" {
			t.Errorf("OrderNumber = %v, want WO-wo-1", dto.OrderNumber)
		}
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		service, _, _ := createWorkOrderTestService()

		_, err := service.GetWorkOrder(tenantCtx(), GetWorkOrderQuery{WorkOrderID: "missing"})

		appErr, ok := sharedErrors.AsAppError(err)
		if !ok || appErr.Code != sharedErrors.CodeNotFound {
			t.Errorf("GetWorkOrder() error = %v, want not found", err)
		}
	})
}
