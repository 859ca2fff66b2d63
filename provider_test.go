// provider_test.go: Tests for the provider registry and provider-backed
// random generation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockProvider implements Provider for testing
type mockProvider struct {
	mu           sync.Mutex
	name         string
	version      string
	capabilities []ProviderCapability
	initialized  bool
	healthy      bool
	failInit     bool
	failClose    bool
	shortRead    bool
	randomErr    error
	requested    []int
	lastConfig   map[string]interface{}
}

func newMockProvider(name string, caps ...ProviderCapability) *mockProvider {
	return &mockProvider{
		name:         name,
		version:      "1.0.0",
		capabilities: caps,
		healthy:      true,
	}
}

func (m *mockProvider) Name() string                       { return m.name }
func (m *mockProvider) Version() string                    { return m.version }
func (m *mockProvider) Capabilities() []ProviderCapability { return m.capabilities }

func (m *mockProvider) Initialize(ctx context.Context, config map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInit {
		return errors.New("device not present")
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("initialize called without a deadline")
	}
	m.initialized = true
	m.lastConfig = config
	return nil
}

func (m *mockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	if m.failClose {
		return errors.New("device busy")
	}
	return nil
}

func (m *mockProvider) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy && m.initialized
}

func (m *mockProvider) GenerateRandom(ctx context.Context, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, length)
	if m.randomErr != nil {
		return nil, m.randomErr
	}
	if m.shortRead {
		length--
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = 0xA5
	}
	return out, nil
}

func (m *mockProvider) requests() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.requested...)
}

func newTestRegistry(t *testing.T, config *ProviderRegistryConfig) *ProviderRegistry {
	t.Helper()
	if config == nil {
		config = &ProviderRegistryConfig{OperationTimeout: time.Second}
	}
	if config.Logger == nil {
		config.Logger = zaptest.NewLogger(t)
	}
	registry, err := NewProviderRegistry(config, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ResetRandomSource()
		_ = registry.Close()
	})
	return registry
}

func TestNewProviderRegistry_Defaults(t *testing.T) {
	registry, err := NewProviderRegistry(nil, nil)
	require.NoError(t, err)
	defer registry.Close()

	assert.Nil(t, registry.PluginManager())
	assert.Equal(t, 10*time.Second, registry.config.OperationTimeout)
	assert.Empty(t, registry.Providers())

	_, err = registry.GetProvider("")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderRegistry_Register(t *testing.T) {
	registry := newTestRegistry(t, &ProviderRegistryConfig{
		OperationTimeout: time.Second,
		ProviderConfigs: map[string]map[string]interface{}{
			"tpm": {"device": "/dev/tpmrm0"},
		},
	})

	tpm := newMockProvider("tpm", CapabilityRandomGeneration)
	require.NoError(t, registry.RegisterProvider("tpm", tpm))
	assert.True(t, tpm.initialized)
	assert.Equal(t, "/dev/tpmrm0", tpm.lastConfig["device"])

	got, err := registry.GetProvider("")
	require.NoError(t, err)
	assert.Same(t, tpm, got)

	got, err = registry.GetProvider("tpm")
	require.NoError(t, err)
	assert.Same(t, tpm, got)

	err = registry.RegisterProvider("tpm", newMockProvider("tpm"))
	assert.ErrorIs(t, err, ErrProviderExists)

	err = registry.RegisterProvider("nothing", nil)
	assert.ErrorIs(t, err, ErrProviderNil)

	_, err = registry.GetProvider("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderRegistry_RegisterInitFailure(t *testing.T) {
	registry := newTestRegistry(t, nil)

	broken := newMockProvider("broken")
	broken.failInit = true
	err := registry.RegisterProvider("broken", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Empty(t, registry.Providers())
}

func TestProviderRegistry_ConfiguredDefault(t *testing.T) {
	registry := newTestRegistry(t, &ProviderRegistryConfig{
		DefaultProvider:  "hsm",
		OperationTimeout: time.Second,
	})

	require.NoError(t, registry.RegisterProvider("kms", newMockProvider("kms")))
	require.NoError(t, registry.RegisterProvider("hsm", newMockProvider("hsm")))

	got, err := registry.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "hsm", got.Name())

	infos := registry.Providers()
	require.Len(t, infos, 2)
	assert.Equal(t, "hsm", infos[0].Name)
	assert.True(t, infos[0].Default)
	assert.Equal(t, "kms", infos[1].Name)
	assert.False(t, infos[1].Default)
	assert.False(t, infos[0].RegisteredAt.IsZero())
}

func TestProviderRegistry_Unhealthy(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := newMockProvider("flaky")
	require.NoError(t, registry.RegisterProvider("flaky", p))

	p.mu.Lock()
	p.healthy = false
	p.mu.Unlock()

	_, err := registry.GetProvider("flaky")
	assert.ErrorIs(t, err, ErrProviderUnhealthy)
}

func TestProviderRegistry_Unregister(t *testing.T) {
	registry := newTestRegistry(t, nil)

	a := newMockProvider("a")
	b := newMockProvider("b")
	c := newMockProvider("c")
	require.NoError(t, registry.RegisterProvider("c", c))
	require.NoError(t, registry.RegisterProvider("a", a))
	require.NoError(t, registry.RegisterProvider("b", b))

	require.NoError(t, registry.UnregisterProvider("c"))
	assert.False(t, c.initialized)

	// the default falls back to the first remaining name
	got, err := registry.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name())

	err = registry.UnregisterProvider("c")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	b.failClose = true
	err = registry.UnregisterProvider("b")
	assert.Error(t, err)
	assert.Len(t, registry.Providers(), 1)
}

func TestProviderRegistry_Close(t *testing.T) {
	registry := newTestRegistry(t, nil)

	a := newMockProvider("a")
	b := newMockProvider("b")
	b.failClose = true
	require.NoError(t, registry.RegisterProvider("a", a))
	require.NoError(t, registry.RegisterProvider("b", b))

	err := registry.Close()
	assert.Error(t, err)
	assert.False(t, a.initialized)
	assert.Empty(t, registry.Providers())

	err = registry.RegisterProvider("c", newMockProvider("c"))
	assert.ErrorIs(t, err, ErrProviderRegistryClosed)
}

func TestProviderRegistry_UseForRandom(t *testing.T) {
	registry := newTestRegistry(t, nil)

	rng := newMockProvider("rng", CapabilityRandomGeneration)
	hsm := newMockProvider("hsm", CapabilityRSA, CapabilityEC)
	require.NoError(t, registry.RegisterProvider("rng", rng))
	require.NoError(t, registry.RegisterProvider("hsm", hsm))

	err := registry.UseForRandom("hsm")
	assert.ErrorIs(t, err, ErrProviderCapability)
	assert.Equal(t, defaultDRBG, secondarySource())

	require.NoError(t, registry.UseForRandom("rng"))
	_, ok := secondarySource().(*providerSource)
	require.True(t, ok)

	out, err := RandomBytes(48)
	require.NoError(t, err)
	assert.Len(t, out, 48)
	assert.Equal(t, []int{48}, rng.requests())

	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, KeySize)
	assert.Equal(t, []int{48, KeySize}, rng.requests())

	// unregistering the provider restores the built-in generator
	require.NoError(t, registry.UnregisterProvider("rng"))
	assert.Equal(t, defaultDRBG, secondarySource())

	_, err = RandomBytes(16)
	require.NoError(t, err)
	assert.Equal(t, []int{48, KeySize}, rng.requests())
}

func TestProviderRegistry_RandomFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *mockProvider)
	}{
		{"short read", func(p *mockProvider) { p.shortRead = true }},
		{"generator error", func(p *mockProvider) { p.randomErr = errors.New("entropy exhausted") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRegistry(t, nil)
			p := newMockProvider("rng", CapabilityRandomGeneration)
			tt.setup(p)
			require.NoError(t, registry.RegisterProvider("rng", p))
			require.NoError(t, registry.UseForRandom("rng"))

			_, err := RandomBytes(32)
			assert.ErrorIs(t, err, ErrUnspecified)

			buf := make([]byte, 8)
			n, err := Reader.Read(buf)
			assert.Error(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestProviderRegistry_ConcurrentAccess(t *testing.T) {
	registry := newTestRegistry(t, nil)
	require.NoError(t, registry.RegisterProvider("shared", newMockProvider("shared")))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p, err := registry.GetProvider("shared")
				if assert.NoError(t, err) {
					assert.Equal(t, "shared", p.Name())
				}
				_ = registry.Providers()
			}
		}()
	}
	wg.Wait()
}
