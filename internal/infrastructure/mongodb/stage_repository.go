package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/factory-platform/production-service/internal/application"
	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/outbox"
	outboxMongo "github.com/factory-platform/production-service/pkg/outbox/mongodb"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// StageRepository persists production stages in MongoDB with a transactional
// outbox for domain events
type StageRepository struct {
	collection   mongoCollection
	db           mongoDatabase
	outboxRepo   outbox.Repository
	tenantHelper *tenant.RepositoryHelper
}

func NewStageRepository(db *mongo.Database) *StageRepository {
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := newStageRepository(mongoDatabaseWrapper{db: db}, outboxRepo)
	repo.ensureIndexes(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = outboxRepo.EnsureIndexes(ctx)

	return repo
}

func newStageRepository(db mongoDatabase, outboxRepo outbox.Repository) *StageRepository {
	return &StageRepository{
		collection:   db.Collection("stages"),
		db:           db,
		outboxRepo:   outboxRepo,
		tenantHelper: tenant.NewRepositoryHelper(true),
	}
}

func (r *StageRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "stageId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "companyId", Value: 1}}},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "order", Value: 1}}},
		{Keys: bson.D{{Key: "assignedUserId", Value: 1}}},
		{Keys: bson.D{{Key: "supervisorId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the stage and writes its outbox events in one transaction
func (r *StageRepository) Save(ctx context.Context, stage *domain.Stage, events []*outbox.OutboxEvent) error {
	stage.UpdatedAt = time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	err = session.WithTransaction(ctx, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"stageId": stage.StageID, "companyId": stage.CompanyID}
		update := bson.M{"$set": stage}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save stage: %w", err)
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

func (r *StageRepository) FindByID(ctx context.Context, stageID string) (*domain.Stage, error) {
	filter, err := r.tenantHelper.WithTenantFilter(ctx, bson.M{"stageId": stageID})
	if err != nil {
		return nil, err
	}

	var stage domain.Stage
	err = r.collection.FindOne(ctx, filter).Decode(&stage)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (r *StageRepository) FindAll(ctx context.Context, req api.ListRequest) ([]*domain.Stage, int64, error) {
	filter, err := r.tenantHelper.WithTenantFilter(ctx, buildStageFilter(req.Filter))
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

	var stages []*domain.Stage
	if err := cursor.All(ctx, &stages); err != nil {
		return nil, 0, err
	}
	return stages, total, nil
}

// Delete removes the stage and writes its deletion event in one transaction
func (r *StageRepository) Delete(ctx context.Context, stageID string, events []*outbox.OutboxEvent) error {
	filter, err := r.tenantHelper.WithTenantFilter(ctx, bson.M{"stageId": stageID})
	if err != nil {
		return err
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	err = session.WithTransaction(ctx, func(sessCtx context.Context) error {
		if _, err := r.collection.DeleteOne(sessCtx, filter); err != nil {
			return fmt.Errorf("failed to delete stage: %w", err)
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

// AggregateStats groups stages by status with quantity totals
func (r *StageRepository) AggregateStats(ctx context.Context, filterReq api.FilterRequest) ([]application.StageStatsBucket, error) {
	match, err := r.tenantHelper.WithTenantFilter(ctx, buildStageFilter(filterReq))
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$status",
			"count":          bson.M{"$sum": 1},
			"totalTarget":    bson.M{"$sum": "$targetQuantity"},
			"totalCompleted": bson.M{"$sum": "$completedQuantity"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var buckets []application.StageStatsBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// GetOutboxRepository returns the outbox repository backing this service
func (r *StageRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

func buildStageFilter(f api.FilterRequest) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.AssignedUserID != "" {
		filter["assignedUserId"] = f.AssignedUserID
	}
	if f.SupervisorID != "" {
		filter["supervisorId"] = f.SupervisorID
	}
	return filter
}
