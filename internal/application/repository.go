package application

import (
	"context"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/outbox"
)

// StageRepository interface for stage persistence. All implementations are
// tenant-scoped: every query filters by the company id carried in the context,
// and Save/Delete persist the aggregate together with its outbox events in a
// single transaction.
type StageRepository interface {
	Save(ctx context.Context, stage *domain.Stage, events []*outbox.OutboxEvent) error
	FindByID(ctx context.Context, stageID string) (*domain.Stage, error)
	FindAll(ctx context.Context, req api.ListRequest) ([]*domain.Stage, int64, error)
	Delete(ctx context.Context, stageID string, events []*outbox.OutboxEvent) error
	AggregateStats(ctx context.Context, filter api.FilterRequest) ([]StageStatsBucket, error)
}

// StageStatsBucket is one aggregation group of the stage stats query
type StageStatsBucket struct {
	Status         string `bson:"_id"`
	Count          int64  `bson:"count"`
	TotalTarget    int64  `bson:"totalTarget"`
	TotalCompleted int64  `bson:"totalCompleted"`
}

// WorkOrderRepository interface for work order persistence, tenant-scoped
// like StageRepository
type WorkOrderRepository interface {
	Save(ctx context.Context, workOrder *domain.WorkOrder, events []*outbox.OutboxEvent) error
	FindByID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error)
	FindAll(ctx context.Context, req api.ListRequest) ([]*domain.WorkOrder, int64, error)
}
