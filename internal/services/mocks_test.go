package services

import (
	"context"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

type mockApprover struct {
	approved bool
	err      error
	calls    [][]string
}

func (m *mockApprover) RequestApproval(_ context.Context, _ string, dirs []string) (bool, error) {
	m.calls = append(m.calls, append([]string(nil), dirs...))
	return m.approved, m.err
}

// cancellingDiscoverer cancels the run right after discovery finishes.
type cancellingDiscoverer struct {
	inner  skilldeploy.Discoverer
	cancel context.CancelFunc
}

func (d *cancellingDiscoverer) Discover(ctx context.Context, root string, opts skilldeploy.DiscoveryOptions) (skilldeploy.DiscoveryResult, error) {
	res, err := d.inner.Discover(ctx, root, opts)
	d.cancel()
	return res, err
}

type mockDiscoverer struct {
	result skilldeploy.DiscoveryResult
	err    error
}

func (m *mockDiscoverer) Discover(_ context.Context, _ string, _ skilldeploy.DiscoveryOptions) (skilldeploy.DiscoveryResult, error) {
	return m.result, m.err
}
