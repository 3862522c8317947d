// Package docker adapts the container engine for Slipway: images,
// containers, networks, volumes, logs and interactive exec.
package docker

import (
	"context"
	"io"
)

// CreateContainerOptions describes a container to create. Env is rendered as
// KEY=VALUE pairs; Volumes maps volume name to mount path inside the
// container; Network attaches the container at creation time.
type CreateContainerOptions struct {
	Name    string
	Image   string
	Env     map[string]string
	Network string
	Volumes map[string]string
}

// BuildOutput is what the buildpack reports for one image build.
type BuildOutput struct {
	// Log is the combined buildpack output, preserved on failure too.
	Log string
	// NeedsDatabase is true when the buildpack plan references a
	// database, so the deployer provisions the sibling container.
	NeedsDatabase bool
}

// ExecSession is an interactive TTY exec inside a container. Reads return
// container output; writes feed its stdin. Close tears the stream down.
type ExecSession interface {
	io.Reader
	io.Writer
	Close() error
}

// ContainerDriver is the narrow surface the rest of Slipway uses to talk to
// the container engine. One real implementation wraps the Docker SDK; tests
// use the fake in testing/mocks.
type ContainerDriver interface {
	// BuildImage runs the buildpack over sourcePath and tags the result.
	// The returned BuildOutput carries the log even when err is non-nil.
	BuildImage(ctx context.Context, imageName, sourcePath string) (BuildOutput, error)

	CreateContainer(ctx context.Context, opts CreateContainerOptions) error
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error
	ContainerExists(ctx context.Context, name string) (bool, error)
	ContainerRunning(ctx context.Context, name string) (bool, error)
	// ContainerIP returns the container's address on the named network.
	ContainerIP(ctx context.Context, name, network string) (string, error)

	EnsureNetwork(ctx context.Context, name string) error
	NetworkExists(ctx context.Context, name string) (bool, error)
	RemoveNetwork(ctx context.Context, name string) error
	EnsureVolume(ctx context.Context, name string) error
	VolumeExists(ctx context.Context, name string) (bool, error)
	RemoveVolume(ctx context.Context, name string) error
	ImageExists(ctx context.Context, name string) (bool, error)
	RemoveImage(ctx context.Context, name string) error

	// ContainerLogs returns up to tail lines of stdout and stderr,
	// demultiplexed and interleaved in arrival order.
	ContainerLogs(ctx context.Context, name string, tail int) (string, error)

	// ExecInteractive starts cmd inside the container with a TTY and all
	// three standard streams attached.
	ExecInteractive(ctx context.Context, name string, cmd []string) (ExecSession, error)
}
