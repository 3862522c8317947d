package docker

import (
	"context"
	"log/slog"

	"github.com/docker/docker/api/types/container"

	"github.com/slipway-sh/slipway/domain"
)

// execStream adapts the hijacked duplex connection to ExecSession. With a
// TTY attached the stream is raw, so no stdcopy demultiplexing is involved.
type execStream struct {
	read  func(p []byte) (int, error)
	write func(p []byte) (int, error)
	close func()
}

func (s *execStream) Read(p []byte) (int, error)  { return s.read(p) }
func (s *execStream) Write(p []byte) (int, error) { return s.write(p) }
func (s *execStream) Close() error {
	s.close()
	return nil
}

// ExecInteractive starts cmd in the container with a pseudo-TTY and all
// three standard streams attached, and returns the live byte stream. The
// exec itself is not bounded by a deadline; it lives until either side
// closes.
func (c *Client) ExecInteractive(ctx context.Context, name string, cmd []string) (ExecSession, error) {
	createCtx, cancel := c.createContext(ctx)
	defer cancel()

	created, err := c.cli.ContainerExecCreate(createCtx, name, container.ExecOptions{
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		slog.Error("Container engine operation failed",
			"layer", "docker",
			"operation", "exec_create",
			"container_name", name,
			"error", err)
		return nil, &domain.DependencyError{Op: "failed to create exec in container " + name, Err: err}
	}

	resp, err := c.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{Tty: true})
	if err != nil {
		return nil, &domain.DependencyError{Op: "failed to attach exec in container " + name, Err: err}
	}

	return &execStream{
		read:  resp.Reader.Read,
		write: resp.Conn.Write,
		close: resp.Close,
	}, nil
}
