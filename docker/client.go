package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/domain"
)

// Client is the real ContainerDriver over the Docker Engine API.
type Client struct {
	cli              *client.Client
	buildpackCommand string
	createTimeout    time.Duration
	inspectTimeout   time.Duration
}

var _ ContainerDriver = (*Client)(nil)

// NewClient connects to the engine and verifies it responds before anything
// depends on it.
func NewClient(cfg *config.Config) (*Client, error) {
	cli, err := client.NewClientWithOpts(
		client.WithHost(cfg.DockerHost),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.InspectTimeout)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping Docker daemon at %s: %w", cfg.DockerHost, err)
	}

	return &Client{
		cli:              cli,
		buildpackCommand: cfg.BuildpackCommand,
		createTimeout:    cfg.CreateTimeout,
		inspectTimeout:   cfg.InspectTimeout,
	}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// createContext bounds calls that change engine state.
func (c *Client) createContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.createTimeout)
}

// inspectContext bounds read-only calls.
func (c *Client) inspectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.inspectTimeout)
}

func (c *Client) CreateContainer(ctx context.Context, opts CreateContainerOptions) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	var mounts []mount.Mount
	for volumeName, target := range opts.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: volumeName,
			Target: target,
		})
	}

	var netConfig *network.NetworkingConfig
	if opts.Network != "" {
		netConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				opts.Network: {},
			},
		}
	}

	_, err := c.cli.ContainerCreate(ctx,
		&container.Config{
			Image: opts.Image,
			Env:   env,
		},
		&container.HostConfig{
			Mounts: mounts,
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyUnlessStopped,
			},
		},
		netConfig,
		nil,
		opts.Name,
	)
	if err != nil {
		slog.Error("Container engine operation failed",
			"layer", "docker",
			"operation", "create_container",
			"container_name", opts.Name,
			"error", err)
		return &domain.DependencyError{Op: "failed to create container " + opts.Name, Err: err}
	}
	return nil
}

func (c *Client) StartContainer(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	if err := c.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return &domain.DependencyError{Op: "failed to start container " + name, Err: err}
	}
	return nil
}

// StopContainer stops the container. Stopping an absent container succeeds:
// deletes and resets must stay runnable after partial prior failures.
func (c *Client) StopContainer(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	err := c.cli.ContainerStop(ctx, name, container.StopOptions{})
	if err != nil && !client.IsErrNotFound(err) {
		return &domain.DependencyError{Op: "failed to stop container " + name, Err: err}
	}
	return nil
}

func (c *Client) RemoveContainer(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return &domain.DependencyError{Op: "failed to remove container " + name, Err: err}
	}
	return nil
}

func (c *Client) ContainerExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	_, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, &domain.DependencyError{Op: "failed to inspect container " + name, Err: err}
	}
	return true, nil
}

func (c *Client) ContainerRunning(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	info, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, &domain.DependencyError{Op: "failed to inspect container " + name, Err: err}
	}
	return info.State != nil && info.State.Running, nil
}

func (c *Client) ContainerIP(ctx context.Context, name, networkName string) (string, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	info, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		return "", &domain.DependencyError{Op: "failed to inspect container " + name, Err: err}
	}

	endpoint, ok := info.NetworkSettings.Networks[networkName]
	if !ok {
		return "", &domain.DependencyError{
			Op:  "failed to resolve container address",
			Err: fmt.Errorf("container %s is not attached to network %s", name, networkName),
		}
	}
	return endpoint.IPAddress, nil
}

// EnsureNetwork creates the network if it does not exist yet.
func (c *Client) EnsureNetwork(ctx context.Context, name string) error {
	inspectCtx, cancel := c.inspectContext(ctx)
	defer cancel()

	if _, err := c.cli.NetworkInspect(inspectCtx, name, network.InspectOptions{}); err == nil {
		return nil
	} else if !client.IsErrNotFound(err) {
		return &domain.DependencyError{Op: "failed to inspect network " + name, Err: err}
	}

	createCtx, cancel := c.createContext(ctx)
	defer cancel()

	if _, err := c.cli.NetworkCreate(createCtx, name, network.CreateOptions{}); err != nil {
		return &domain.DependencyError{Op: "failed to create network " + name, Err: err}
	}
	slog.Debug("Network created", "network_name", name)
	return nil
}

func (c *Client) NetworkExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	_, err := c.cli.NetworkInspect(ctx, name, network.InspectOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, &domain.DependencyError{Op: "failed to inspect network " + name, Err: err}
	}
	return true, nil
}

func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	err := c.cli.NetworkRemove(ctx, name)
	if err != nil && !client.IsErrNotFound(err) {
		return &domain.DependencyError{Op: "failed to remove network " + name, Err: err}
	}
	return nil
}

// EnsureVolume creates the volume if needed. Volume creation is idempotent
// on the engine side, so no existence check is required.
func (c *Client) EnsureVolume(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	if _, err := c.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return &domain.DependencyError{Op: "failed to create volume " + name, Err: err}
	}
	return nil
}

func (c *Client) VolumeExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	_, err := c.cli.VolumeInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, &domain.DependencyError{Op: "failed to inspect volume " + name, Err: err}
	}
	return true, nil
}

func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	err := c.cli.VolumeRemove(ctx, name, false)
	if err != nil && !client.IsErrNotFound(err) {
		return &domain.DependencyError{Op: "failed to remove volume " + name, Err: err}
	}
	return nil
}

func (c *Client) ImageExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	_, err := c.cli.ImageInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, &domain.DependencyError{Op: "failed to inspect image " + name, Err: err}
	}
	return true, nil
}

func (c *Client) RemoveImage(ctx context.Context, name string) error {
	ctx, cancel := c.createContext(ctx)
	defer cancel()

	_, err := c.cli.ImageRemove(ctx, name, image.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return &domain.DependencyError{Op: "failed to remove image " + name, Err: err}
	}
	return nil
}

// ContainerLogs tails the container's output. Docker multiplexes stdout and
// stderr on one stream for non-TTY containers; stdcopy splits them back out.
func (c *Client) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	ctx, cancel := c.inspectContext(ctx)
	defer cancel()

	reader, err := c.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return "", &domain.DependencyError{Op: "failed to read logs of container " + name, Err: err}
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			slog.Debug("Failed to close container logs reader", "error", closeErr)
		}
	}()

	var combined bytes.Buffer
	if _, err := stdcopy.StdCopy(&combined, &combined, reader); err != nil {
		return "", &domain.DependencyError{Op: "failed to demultiplex logs of container " + name, Err: err}
	}
	return combined.String(), nil
}
