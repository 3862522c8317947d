package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Smart-HTTP service names as they appear in the ?service= query parameter.
const (
	ServiceUploadPack  = "git-upload-pack"
	ServiceReceivePack = "git-receive-pack"
)

// ValidService reports whether the string names a smart-HTTP service we are
// willing to run.
func ValidService(service string) bool {
	return service == ServiceUploadPack || service == ServiceReceivePack
}

// PacketWrite frames s as a git pkt-line: four hex digits of total length
// followed by the payload.
func PacketWrite(s string) []byte {
	return []byte(fmt.Sprintf("%04x%s", len(s)+4, s))
}

// PacketFlush is the pkt-line flush packet terminating a section.
func PacketFlush() []byte {
	return []byte("0000")
}

// ServiceOptions control a single stateless-rpc invocation.
type ServiceOptions struct {
	// Advertise runs the ref advertisement (--advertise-refs) instead of
	// the RPC exchange.
	Advertise bool
	// Protocol is the client's Git-Protocol header value, passed through
	// to the subprocess as GIT_PROTOCOL when non-empty.
	Protocol string
	// Stdin feeds the subprocess; nil for advertisements.
	Stdin io.Reader
	// Stdout receives the subprocess output.
	Stdout io.Writer
}

// RunService spawns `git upload-pack|receive-pack --stateless-rpc` against
// the repository and wires the byte streams. The returned error is non-nil
// when the subprocess exits non-zero, which for receive-pack means the push
// was rejected and no build must be enqueued.
func (s *Store) RunService(ctx context.Context, service, repoPath string, opts ServiceOptions) error {
	if !ValidService(service) {
		return fmt.Errorf("unknown git service %q", service)
	}

	// The binary takes the bare subcommand name, without the git- prefix
	args := []string{service[len("git-"):], "--stateless-rpc"}
	if opts.Advertise {
		args = append(args, "--advertise-refs")
	}
	args = append(args, repoPath)

	cmd := exec.CommandContext(ctx, s.gitBinary, args...)
	cmd.Env = os.Environ()
	if opts.Protocol != "" {
		cmd.Env = append(cmd.Env, "GIT_PROTOCOL="+opts.Protocol)
	}
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout

	if err := cmd.Run(); err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "run_service",
			"service", service,
			"repo_path", repoPath,
			"error", err)
		return fmt.Errorf("failed to run %s: %w", service, err)
	}
	return nil
}
