//go:build tools

package tools

// mockery v3 is installed as a binary and reads .mockery.yaml; running
// `mockery` at the module root regenerates pkg/transport/mocks.
