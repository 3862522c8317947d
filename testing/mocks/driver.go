// Package mocks provides test doubles shared across packages.
package mocks

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/slipway-sh/slipway/docker"
)

// FakeDriver is an in-memory ContainerDriver. It tracks containers,
// networks, volumes and images, records every call in order, and hands out
// deterministic addresses. Error injection goes through FailOn.
type FakeDriver struct {
	mu sync.Mutex

	// Calls records "op name" strings in invocation order.
	Calls []string

	containers map[string]*fakeContainer
	networks   map[string]struct{}
	volumes    map[string]struct{}
	images     map[string]struct{}

	// BuildLog and BuildNeedsDB shape BuildImage results.
	BuildLog     string
	BuildNeedsDB bool
	// Logs is returned by ContainerLogs.
	Logs string

	// failures maps an op (e.g. "create_container") to the error its
	// next invocation returns.
	failures map[string]error

	nextIP int
}

type fakeContainer struct {
	image   string
	env     map[string]string
	network string
	volumes map[string]string
	running bool
	ip      string
}

var _ docker.ContainerDriver = (*FakeDriver)(nil)

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		containers: make(map[string]*fakeContainer),
		networks:   make(map[string]struct{}),
		volumes:    make(map[string]struct{}),
		images:     make(map[string]struct{}),
		failures:   make(map[string]error),
		BuildLog:   "fake build log\n",
	}
}

// FailOn makes the named operation return err. Pass nil to clear.
func (f *FakeDriver) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

func (f *FakeDriver) record(op, name string) error {
	f.Calls = append(f.Calls, op+" "+name)
	if err, ok := f.failures[op]; ok {
		return err
	}
	return nil
}

// CallNames returns the recorded calls, for sequence assertions.
func (f *FakeDriver) CallNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	copy(out, f.Calls)
	return out
}

func (f *FakeDriver) BuildImage(ctx context.Context, imageName, sourcePath string) (docker.BuildOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("build_image", imageName); err != nil {
		return docker.BuildOutput{Log: f.BuildLog, NeedsDatabase: f.BuildNeedsDB}, err
	}
	f.images[imageName] = struct{}{}
	return docker.BuildOutput{Log: f.BuildLog, NeedsDatabase: f.BuildNeedsDB}, nil
}

func (f *FakeDriver) CreateContainer(ctx context.Context, opts docker.CreateContainerOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_container", opts.Name); err != nil {
		return err
	}
	if _, exists := f.containers[opts.Name]; exists {
		return fmt.Errorf("container %s already exists", opts.Name)
	}

	f.nextIP++
	f.containers[opts.Name] = &fakeContainer{
		image:   opts.Image,
		env:     opts.Env,
		network: opts.Network,
		volumes: opts.Volumes,
		ip:      fmt.Sprintf("172.18.0.%d", f.nextIP+1),
	}
	return nil
}

func (f *FakeDriver) StartContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("start_container", name); err != nil {
		return err
	}
	c, ok := f.containers[name]
	if !ok {
		return fmt.Errorf("container %s does not exist", name)
	}
	c.running = true
	return nil
}

func (f *FakeDriver) StopContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("stop_container", name); err != nil {
		return err
	}
	if c, ok := f.containers[name]; ok {
		c.running = false
	}
	return nil
}

func (f *FakeDriver) RemoveContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove_container", name); err != nil {
		return err
	}
	delete(f.containers, name)
	return nil
}

func (f *FakeDriver) ContainerExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("container_exists", name); err != nil {
		return false, err
	}
	_, ok := f.containers[name]
	return ok, nil
}

func (f *FakeDriver) ContainerRunning(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("container_running", name); err != nil {
		return false, err
	}
	c, ok := f.containers[name]
	return ok && c.running, nil
}

func (f *FakeDriver) ContainerIP(ctx context.Context, name, network string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("container_ip", name); err != nil {
		return "", err
	}
	c, ok := f.containers[name]
	if !ok {
		return "", fmt.Errorf("container %s does not exist", name)
	}
	if c.network != network {
		return "", fmt.Errorf("container %s is not attached to network %s", name, network)
	}
	return c.ip, nil
}

func (f *FakeDriver) EnsureNetwork(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ensure_network", name); err != nil {
		return err
	}
	f.networks[name] = struct{}{}
	return nil
}

func (f *FakeDriver) NetworkExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("network_exists", name); err != nil {
		return false, err
	}
	_, ok := f.networks[name]
	return ok, nil
}

func (f *FakeDriver) RemoveNetwork(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove_network", name); err != nil {
		return err
	}
	delete(f.networks, name)
	return nil
}

func (f *FakeDriver) EnsureVolume(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ensure_volume", name); err != nil {
		return err
	}
	f.volumes[name] = struct{}{}
	return nil
}

func (f *FakeDriver) VolumeExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("volume_exists", name); err != nil {
		return false, err
	}
	_, ok := f.volumes[name]
	return ok, nil
}

func (f *FakeDriver) RemoveVolume(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove_volume", name); err != nil {
		return err
	}
	delete(f.volumes, name)
	return nil
}

func (f *FakeDriver) ImageExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("image_exists", name); err != nil {
		return false, err
	}
	_, ok := f.images[name]
	return ok, nil
}

func (f *FakeDriver) RemoveImage(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove_image", name); err != nil {
		return err
	}
	delete(f.images, name)
	return nil
}

func (f *FakeDriver) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("container_logs", name); err != nil {
		return "", err
	}
	if _, ok := f.containers[name]; !ok {
		return "", fmt.Errorf("container %s does not exist", name)
	}
	return f.Logs, nil
}

// ExecInteractive returns a session whose reads drain ExecOutput and whose
// writes accumulate in ExecInput.
func (f *FakeDriver) ExecInteractive(ctx context.Context, name string, cmd []string) (docker.ExecSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("exec_interactive", name); err != nil {
		return nil, err
	}
	if c, ok := f.containers[name]; !ok || !c.running {
		return nil, fmt.Errorf("container %s is not running", name)
	}
	return &FakeExecSession{}, nil
}

// HasContainer reports whether a container with the name exists.
func (f *FakeDriver) HasContainer(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[name]
	return ok
}

// HasVolume reports whether a volume with the name exists.
func (f *FakeDriver) HasVolume(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.volumes[name]
	return ok
}

// HasNetwork reports whether a network with the name exists.
func (f *FakeDriver) HasNetwork(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.networks[name]
	return ok
}

// ContainerEnv returns the env a container was created with.
func (f *FakeDriver) ContainerEnv(name string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[name]; ok {
		return c.env
	}
	return nil
}

// SeedImage registers an image as if a previous build produced it.
func (f *FakeDriver) SeedImage(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[name] = struct{}{}
}

// SeedContainer registers a container as if a previous deploy created it.
func (f *FakeDriver) SeedContainer(name, network string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIP++
	f.containers[name] = &fakeContainer{
		network: network,
		running: running,
		ip:      fmt.Sprintf("172.18.0.%d", f.nextIP+1),
	}
}

// FakeExecSession is a scripted TTY: Output is what the "container" emits,
// Input collects what the client typed.
type FakeExecSession struct {
	mu     sync.Mutex
	Output bytes.Buffer
	Input  bytes.Buffer
	closed bool
}

func (s *FakeExecSession) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Output.Read(p)
}

func (s *FakeExecSession) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Input.Write(p)
}

func (s *FakeExecSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
