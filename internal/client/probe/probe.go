// Package probe asks a running taskhub server whether it is serving, using
// the standard gRPC health protocol. It backs the container health check.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var ErrNotServing = errors.New("not serving")

type Client struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      healthpb.HealthClient
}

func NewClient(endpointURL string) (*Client, error) {
	conn, err := grpc.NewClient(endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpointURL, err)
	}
	return &Client{endpointURL: endpointURL, conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Check returns nil when service reports SERVING. An empty service name asks
// about the server as a whole.
func (c *Client) Check(ctx context.Context, service string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check %s: %w", c.endpointURL, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}
