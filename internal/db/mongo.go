package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	// ErrNotConfigured is returned when no Mongo URI was provided.
	ErrNotConfigured = errors.New("database not configured")
	// ErrUnreachable is returned alongside a usable client when the first
	// ping fails. The driver keeps monitoring the deployment and later
	// operations succeed once it comes back.
	ErrUnreachable = errors.New("database unreachable")
)

// ConnectDB initializes and returns a MongoDB client and database instance.
// timeout bounds the connect and ping, and is also used as the driver's
// server selection timeout for every later operation. When only the ping
// fails the client and database are still returned with ErrUnreachable.
func ConnectDB(uri, dbName string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), timeout)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return client, client.Database(dbName), fmt.Errorf("%w: ping failed: %v", ErrUnreachable, err)
	}

	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}
