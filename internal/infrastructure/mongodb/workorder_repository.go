package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/outbox"
	outboxMongo "github.com/factory-platform/production-service/pkg/outbox/mongodb"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// WorkOrderRepository persists work orders in MongoDB with a transactional
// outbox for domain events
type WorkOrderRepository struct {
	collection   mongoCollection
	db           mongoDatabase
	outboxRepo   outbox.Repository
	tenantHelper *tenant.RepositoryHelper
}

func NewWorkOrderRepository(db *mongo.Database) *WorkOrderRepository {
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := newWorkOrderRepository(mongoDatabaseWrapper{db: db}, outboxRepo)
	repo.ensureIndexes(context.Background())

	return repo
}

func newWorkOrderRepository(db mongoDatabase, outboxRepo outbox.Repository) *WorkOrderRepository {
	return &WorkOrderRepository{
		collection:   db.Collection("work_orders"),
		db:           db,
		outboxRepo:   outboxRepo,
		tenantHelper: tenant.NewRepositoryHelper(true),
	}
}

func (r *WorkOrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "workOrderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "orderNumber", Value: 1}}},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "stages.stageId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the work order and writes its outbox events in one transaction
func (r *WorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder, events []*outbox.OutboxEvent) error {
	wo.UpdatedAt = time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	err = session.WithTransaction(ctx, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"workOrderId": wo.WorkOrderID, "companyId": wo.CompanyID}
		update := bson.M{"$set": wo}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save work order: %w", err)
		}

		if len(events) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, events); err != nil {
				return fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	filter, err := r.tenantHelper.WithTenantFilter(ctx, bson.M{"workOrderId": workOrderID})
	if err != nil {
		return nil, err
	}

	var wo domain.WorkOrder
	err = r.collection.FindOne(ctx, filter).Decode(&wo)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *WorkOrderRepository) FindAll(ctx context.Context, req api.ListRequest) ([]*domain.WorkOrder, int64, error) {
	base := bson.M{}
	if req.Filter.Status != "" {
		base["status"] = req.Filter.Status
	}
	filter, err := r.tenantHelper.WithTenantFilter(ctx, base)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: req.Sort.Field, Value: req.Sort.GetMongoSort()}}).
		SetSkip(req.Pagination.GetOffset()).
		SetLimit(req.Pagination.GetLimit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var workOrders []*domain.WorkOrder
	if err := cursor.All(ctx, &workOrders); err != nil {
		return nil, 0, err
	}
	return workOrders, total, nil
}
