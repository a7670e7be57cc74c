// Package mongo wraps the official MongoDB driver with the connection setup
// used by the analytics service: one pooled client per process, verified with
// a ping at startup and shared read-only across requests.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/config"
)

type Client struct {
	client *mongo.Client
	cfg    config.MongoConfig
}

func New(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("quicktask-analytics").
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetReadPreference(readpref.PrimaryPreferred())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.PrimaryPreferred()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &Client{client: client, cfg: cfg}, nil
}

// Collection returns the configured task collection.
func (c *Client) Collection() *mongo.Collection {
	return c.client.Database(c.cfg.Database).Collection(c.cfg.Collection)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.PrimaryPreferred())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
