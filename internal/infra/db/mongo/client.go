package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultConnectTimeout = 10 * time.Second

var ErrMissingURI = errors.New("mongo: uri is required")

// Options configures the connection backing the outbox, inbox and idempotency collections.
type Options struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
}

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.AppName == "" {
		opts.AppName = "rentflow"
	}
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetAppName(opts.AppName).
		SetRetryWrites(true).
		SetServerSelectionTimeout(opts.ConnectTimeout)
	m, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, err
	}
	return &Client{DB: m.Database(opts.Database)}, nil
}

// Ping checks the primary; used as a readiness check.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects within timeout.
func (c *Client) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.DB.Client().Disconnect(ctx)
}
