package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Thin interfaces over the mongo driver so repositories can be unit tested
// without a running cluster.

type mongoCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (mongoCursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Indexes() mongoIndexView
}

type mongoSingleResult interface {
	Decode(v interface{}) error
}

type mongoCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

type mongoIndexView interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

type mongoDatabase interface {
	Collection(name string, opts ...*options.CollectionOptions) mongoCollection
	Client() mongoSessionClient
}

type mongoSessionClient interface {
	StartSession(opts ...*options.SessionOptions) (mongoSession, error)
}

type mongoSession interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EndSession(ctx context.Context)
}

type mongoDatabaseWrapper struct {
	db *mongo.Database
}

func (w mongoDatabaseWrapper) Collection(name string, opts ...*options.CollectionOptions) mongoCollection {
	return mongoCollectionWrapper{collection: w.db.Collection(name, opts...)}
}

func (w mongoDatabaseWrapper) Client() mongoSessionClient {
	return mongoClientWrapper{client: w.db.Client()}
}

type mongoCollectionWrapper struct {
	collection *mongo.Collection
}

func (w mongoCollectionWrapper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.collection.UpdateOne(ctx, filter, update, opts...)
}

func (w mongoCollectionWrapper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult {
	return w.collection.FindOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error) {
	cursor, err := w.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return mongoCursorWrapper{cursor: cursor}, nil
}

func (w mongoCollectionWrapper) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return w.collection.CountDocuments(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (mongoCursor, error) {
	cursor, err := w.collection.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, err
	}
	return mongoCursorWrapper{cursor: cursor}, nil
}

func (w mongoCollectionWrapper) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return w.collection.DeleteOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Indexes() mongoIndexView {
	return w.collection.Indexes()
}

type mongoCursorWrapper struct {
	cursor *mongo.Cursor
}

func (w mongoCursorWrapper) All(ctx context.Context, results interface{}) error {
	return w.cursor.All(ctx, results)
}

func (w mongoCursorWrapper) Close(ctx context.Context) error {
	return w.cursor.Close(ctx)
}

type mongoClientWrapper struct {
	client *mongo.Client
}

func (w mongoClientWrapper) StartSession(opts ...*options.SessionOptions) (mongoSession, error) {
	session, err := w.client.StartSession(opts...)
	if err != nil {
		return nil, err
	}
	return mongoSessionWrapper{session: session}, nil
}

type mongoSessionWrapper struct {
	session mongo.Session
}

func (w mongoSessionWrapper) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := w.session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (w mongoSessionWrapper) EndSession(ctx context.Context) {
	w.session.EndSession(ctx)
}
