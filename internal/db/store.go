package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store is the document store the services read from and write to.
// Documents are untyped so callers decide how to map them.
type Store interface {
	// FindAll returns up to limit documents from collection in natural order.
	FindAll(ctx context.Context, collection string, limit int) ([]bson.M, error)
	// InsertOne stores doc and returns the generated identifier.
	InsertOne(ctx context.Context, collection string, doc interface{}) (string, error)
	// ListCollectionNames enumerates the collections of the database.
	ListCollectionNames(ctx context.Context) ([]string, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Name is the database name, empty when no database is attached.
	Name() string
}

// mongoStore implements Store on a *mongo.Database.
type mongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps an open database handle.
func NewMongoStore(database *mongo.Database) Store {
	return &mongoStore{db: database}
}

func (s *mongoStore) FindAll(ctx context.Context, collection string, limit int) ([]bson.M, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := make([]bson.M, 0)
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read %s documents: %w", collection, err)
	}
	return docs, nil
}

func (s *mongoStore) InsertOne(ctx context.Context, collection string, doc interface{}) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return IDString(res.InsertedID), nil
}

func (s *mongoStore) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Name() string {
	return s.db.Name()
}

// unavailableStore fails every operation with the error that prevented the
// store from being opened.
type unavailableStore struct {
	cause error
}

// Unavailable returns a Store that always fails with cause.
func Unavailable(cause error) Store {
	if cause == nil {
		cause = ErrNotConfigured
	}
	return &unavailableStore{cause: cause}
}

func (s *unavailableStore) FindAll(context.Context, string, int) ([]bson.M, error) {
	return nil, s.cause
}

func (s *unavailableStore) InsertOne(context.Context, string, interface{}) (string, error) {
	return "", s.cause
}

func (s *unavailableStore) ListCollectionNames(context.Context) ([]string, error) {
	return nil, s.cause
}

func (s *unavailableStore) Ping(context.Context) error {
	return s.cause
}

func (s *unavailableStore) Name() string {
	return ""
}

// IsUnavailable reports whether store was built by Unavailable.
func IsUnavailable(store Store) bool {
	_, ok := store.(*unavailableStore)
	return ok
}

// IDString renders a document key as the string id exposed by the API.
func IDString(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
