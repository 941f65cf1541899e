package config

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	db      *mongo.Database
	client  *mongo.Client
	once    sync.Once
	connErr error
)

// ConnectDB initializes and returns the MongoDB database. Later calls return
// the same handle.
func ConnectDB(cfg *Config) (*mongo.Database, error) {
	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			connErr = fmt.Errorf("failed to connect to MongoDB: %w", err)
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			connErr = fmt.Errorf("failed to ping MongoDB: %w", err)
			return
		}

		log.Println("Connected to MongoDB!")

		client = c
		db = client.Database(cfg.MongoDatabase)
	})

	return db, connErr
}

// DisconnectDB closes the client opened by ConnectDB.
func DisconnectDB(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
