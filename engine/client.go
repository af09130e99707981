// Package engine wraps the Docker SDK client and exposes the thin contract
// the rest of the daemon needs: container and network create/start/inspect/
// remove, label-filtered listing, exec, and image pull. All Docker SDK calls
// are isolated here, the same role the teacher's docker package plays --
// if the engine strategy changes, only this package changes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dockerclient "github.com/docker/docker/client"
)

// Client wraps the Docker SDK client with a logger. Safe to share across
// goroutines: the SDK client itself manages concurrency internally, exactly
// as the teacher's DockerClient documents.
type Client struct {
	sdk    *dockerclient.Client
	logger *slog.Logger
}

// NewClient connects to the engine using the given socket (empty string
// defers to the SDK's FromEnv default, "unix:///var/run/docker.sock"),
// negotiates the API version, and pings once to fail fast if the engine is
// unreachable.
func NewClient(logger *slog.Logger, socket string) (*Client, error) {
	opts := []dockerclient.Opt{
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	}
	if socket != "" {
		opts = append(opts, dockerclient.WithHost(socket))
	}

	sdk, err := dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine client: %w", err)
	}

	c := &Client{sdk: sdk, logger: logger}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := sdk.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("engine unreachable: %w", err)
	}

	logger.Info("engine client connected", "host", sdk.DaemonHost())
	return c, nil
}

// Close releases the underlying SDK client connection.
func (c *Client) Close() error {
	return c.sdk.Close()
}
