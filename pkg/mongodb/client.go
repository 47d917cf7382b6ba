package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConnectOptions struct {
	Endpoint   string // mongodb://host:port 或完整 URI
	Username   string
	Key        string
	AuthSource string
	Timeout    time.Duration
}

// Connect 建立连接并 Ping 一次；凭据错误在这里暴露
func Connect(ctx context.Context, opts ConnectOptions) (*mongo.Client, error) {
	clientOpts := options.Client().ApplyURI(opts.Endpoint)
	if opts.Key != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   opts.Username,
			Password:   opts.Key,
			AuthSource: opts.AuthSource,
		})
	}
	if opts.Timeout > 0 {
		clientOpts.SetTimeout(opts.Timeout)
		clientOpts.SetServerSelectionTimeout(opts.Timeout)
	}

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Endpoint, err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("ping %s: %w", opts.Endpoint, err)
	}
	return cli, nil
}
