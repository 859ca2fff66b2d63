// provider.go: Pluggable primitive providers (hardware RNGs, HSMs, KMS
// front-ends) managed by a registry built on github.com/agilira/go-plugins.
//
// The registry is the only object in the package meant to be shared across
// goroutines; every method is safe for concurrent use. A registered provider
// that advertises CapabilityRandomGeneration can be selected as the secondary
// entropy source that RandomBytes mixes with crypto/rand.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
	timecache "github.com/agilira/go-timecache"
	"go.uber.org/zap"
)

// ProviderCapability names a feature a provider offers.
type ProviderCapability string

const (
	CapabilityRandomGeneration ProviderCapability = "random_generation" // Hardware or remote RNG
	CapabilitySymmetric        ProviderCapability = "symmetric"         // Block and stream ciphers
	CapabilityAEAD             ProviderCapability = "aead"              // GCM / CCM
	CapabilityRSA              ProviderCapability = "rsa"               // RSA keys
	CapabilityEC               ProviderCapability = "ec"                // NIST P-curve keys
	CapabilityKeyDerivation    ProviderCapability = "key_derivation"    // PBKDF2, HKDF, X9.63, SP 800-108
	CapabilityMAC              ProviderCapability = "mac"               // HMAC, CMAC
	CapabilityDigest           ProviderCapability = "digest"            // Message digests
)

// Provider is implemented by external primitive providers.
type Provider interface {
	Name() string                       // Provider name (e.g., "pkcs11", "tpm-rng")
	Version() string                    // Provider version
	Capabilities() []ProviderCapability // Supported capabilities

	Initialize(ctx context.Context, config map[string]interface{}) error // Open the device or connection
	Close() error                                                        // Release resources
	IsHealthy() bool                                                     // Health check status

	// GenerateRandom returns length bytes from the provider's generator.
	GenerateRandom(ctx context.Context, length int) ([]byte, error)
}

// ProviderRequest is the request sent to out-of-process provider plugins.
type ProviderRequest struct {
	Operation  string                 `json:"operation"`  // e.g. "generate_random"
	Length     int                    `json:"length"`     // Requested output length
	Data       []byte                 `json:"data"`       // Operation input
	Parameters map[string]interface{} `json:"parameters"` // Operation parameters
}

// ProviderResponse is the response returned by provider plugins.
type ProviderResponse struct {
	Success bool   `json:"success"`
	Data    []byte `json:"data"`
	Error   string `json:"error"`
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Capabilities []ProviderCapability `json:"capabilities"`
	RegisteredAt time.Time            `json:"registered_at"`
	Default      bool                 `json:"default"`
}

// ProviderRegistryConfig configures a ProviderRegistry. A nil config selects
// the defaults.
type ProviderRegistryConfig struct {
	DefaultProvider  string                            `json:"default_provider"`  // Provider returned for an empty name
	ProviderConfigs  map[string]map[string]interface{} `json:"provider_configs"`  // Per-provider Initialize config
	OperationTimeout time.Duration                     `json:"operation_timeout"` // Bound on Initialize and GenerateRandom
	Logger           *zap.Logger                       `json:"-"`                 // Lifecycle logger, zap.NewNop() when nil
}

// Provider registry errors.
var (
	ErrProviderNotFound       = goerrors.New("PROV_001", "provider not found")
	ErrProviderNil            = goerrors.New("PROV_002", "provider cannot be nil")
	ErrProviderExists         = goerrors.New("PROV_003", "provider already registered")
	ErrProviderUnhealthy      = goerrors.New("PROV_004", "provider health check failed")
	ErrProviderCapability     = goerrors.New("PROV_005", "provider lacks the required capability")
	ErrProviderShortRead      = goerrors.New("PROV_006", "provider returned fewer bytes than requested")
	ErrProviderRegistryClosed = goerrors.New("PROV_007", "provider registry closed")
	ErrProviderPluginFailed   = goerrors.New("PROV_008", "provider plugin reported a failure")
)

// OperationGenerateRandom is the ProviderRequest operation asking a plugin
// for Length random bytes.
const OperationGenerateRandom = "generate_random"

const defaultOperationTimeout = 10 * time.Second

type registeredProvider struct {
	provider     Provider
	registeredAt time.Time
}

// ProviderRegistry manages provider instances.
type ProviderRegistry struct {
	mu              sync.RWMutex
	pluginManager   *goplugins.Manager[ProviderRequest, ProviderResponse] // Out-of-process provider plugins
	providers       map[string]registeredProvider
	defaultProvider string
	config          *ProviderRegistryConfig
	logger          *zap.Logger
	closed          bool
}

// NewProviderRegistry creates a registry. pluginManager may be nil when
// only in-process providers are used.
func NewProviderRegistry(config *ProviderRegistryConfig, pluginManager *goplugins.Manager[ProviderRequest, ProviderResponse]) (*ProviderRegistry, error) {
	if config == nil {
		config = &ProviderRegistryConfig{
			OperationTimeout: defaultOperationTimeout,
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProviderRegistry{
		pluginManager: pluginManager,
		providers:     make(map[string]registeredProvider),
		config:        config,
		logger:        logger.Named("provider-registry"),
	}, nil
}

// PluginManager returns the go-plugins manager backing out-of-process
// providers, or nil.
func (r *ProviderRegistry) PluginManager() *goplugins.Manager[ProviderRequest, ProviderResponse] {
	return r.pluginManager
}

func (r *ProviderRegistry) operationContext() (context.Context, context.CancelFunc) {
	if timeout := r.config.OperationTimeout; timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// RegisterProvider initializes provider with its configured settings and
// adds it under name. The first provider, or the configured default,
// becomes the default provider.
func (r *ProviderRegistry) RegisterProvider(name string, provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrProviderRegistryClosed
	}
	if provider == nil {
		return fmt.Errorf("%w: %s", ErrProviderNil, name)
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderExists, name)
	}

	ctx, cancel := r.operationContext()
	defer cancel()

	if err := provider.Initialize(ctx, r.config.ProviderConfigs[name]); err != nil {
		r.logger.Warn("provider initialization failed", zap.String("provider", name), zap.Error(err))
		return goerrors.Wrap(err, "PROV_INIT", fmt.Sprintf("failed to initialize provider %s", name))
	}

	r.providers[name] = registeredProvider{
		provider:     provider,
		registeredAt: timecache.CachedTime().UTC(),
	}
	if r.defaultProvider == "" || r.config.DefaultProvider == name {
		r.defaultProvider = name
	}

	r.logger.Info("provider registered",
		zap.String("provider", name),
		zap.String("version", provider.Version()),
		zap.Int("capabilities", len(provider.Capabilities())),
	)
	return nil
}

// UnregisterProvider closes and removes a provider.
func (r *ProviderRegistry) UnregisterProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.providers[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	delete(r.providers, name)
	if r.defaultProvider == name {
		r.defaultProvider = r.firstProviderLocked()
	}
	clearRandomSourceFor(entry.provider)

	if err := entry.provider.Close(); err != nil {
		r.logger.Warn("provider close failed", zap.String("provider", name), zap.Error(err))
		return goerrors.Wrap(err, "PROV_CLOSE", fmt.Sprintf("failed to close provider %s", name))
	}
	r.logger.Info("provider unregistered", zap.String("provider", name))
	return nil
}

func (r *ProviderRegistry) firstProviderLocked() string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// GetProvider returns a healthy provider by name; an empty name selects the
// default provider.
func (r *ProviderRegistry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultProvider
	}
	entry, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: provider %s", ErrProviderNotFound, name)
	}
	if !entry.provider.IsHealthy() {
		r.logger.Warn("provider unhealthy", zap.String("provider", name))
		return nil, fmt.Errorf("%w: provider %s", ErrProviderUnhealthy, name)
	}
	return entry.provider, nil
}

// Providers lists the registered providers sorted by name.
func (r *ProviderRegistry) Providers() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for name, entry := range r.providers {
		infos = append(infos, ProviderInfo{
			Name:         name,
			Version:      entry.provider.Version(),
			Capabilities: entry.provider.Capabilities(),
			RegisteredAt: entry.registeredAt,
			Default:      name == r.defaultProvider,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// UseForRandom selects the named provider as the secondary entropy source
// of RandomBytes. The provider must advertise CapabilityRandomGeneration.
// When no in-process provider has that name, a plugin registered with the
// plugin manager under the name is used instead.
func (r *ProviderRegistry) UseForRandom(name string) error {
	provider, err := r.GetProvider(name)
	if errors.Is(err, ErrProviderNotFound) && name != "" && r.pluginManager != nil {
		return r.usePluginForRandom(name)
	}
	if err != nil {
		return err
	}
	if !hasCapability(provider, CapabilityRandomGeneration) {
		return fmt.Errorf("%w: %s does not offer %s", ErrProviderCapability, provider.Name(), CapabilityRandomGeneration)
	}
	setRandomSource(&providerSource{provider: provider, timeout: r.config.OperationTimeout})
	r.logger.Info("provider selected as secondary entropy source", zap.String("provider", provider.Name()))
	return nil
}

func (r *ProviderRegistry) usePluginForRandom(name string) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrProviderRegistryClosed
	}

	plugin, err := r.pluginManager.GetPlugin(name)
	if err != nil {
		return fmt.Errorf("%w: provider %s", ErrProviderNotFound, name)
	}
	info := plugin.Info()
	if !pluginHasCapability(info, CapabilityRandomGeneration) {
		return fmt.Errorf("%w: plugin %s does not offer %s", ErrProviderCapability, name, CapabilityRandomGeneration)
	}

	ctx, cancel := r.operationContext()
	defer cancel()
	if health := plugin.Health(ctx); health.Status != goplugins.StatusHealthy {
		r.logger.Warn("provider plugin unhealthy", zap.String("plugin", name), zap.String("status", health.Status.String()))
		return fmt.Errorf("%w: plugin %s", ErrProviderUnhealthy, name)
	}

	setRandomSource(&pluginSource{manager: r.pluginManager, name: name, timeout: r.config.OperationTimeout})
	r.logger.Info("provider plugin selected as secondary entropy source",
		zap.String("plugin", name),
		zap.String("version", info.Version),
	)
	return nil
}

// Close shuts down every provider and the plugin manager. The registry
// cannot be reused.
func (r *ProviderRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, entry := range r.providers {
		clearRandomSourceFor(entry.provider)
		if err := entry.provider.Close(); err != nil {
			r.logger.Warn("provider close failed", zap.String("provider", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close provider %s: %w", name, err))
		}
	}
	r.providers = make(map[string]registeredProvider)
	r.defaultProvider = ""

	if r.pluginManager != nil && !r.closed {
		clearPluginRandomSource(r.pluginManager)
		ctx, cancel := r.operationContext()
		if err := r.pluginManager.Shutdown(ctx); err != nil {
			r.logger.Warn("plugin manager shutdown failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to shut down plugin manager: %w", err))
		}
		cancel()
	}
	r.closed = true

	if len(errs) > 0 {
		return goerrors.Wrap(errors.Join(errs...), "PROV_CLOSE", "failed to close some providers")
	}
	return nil
}

func hasCapability(p Provider, want ProviderCapability) bool {
	for _, c := range p.Capabilities() {
		if c == want {
			return true
		}
	}
	return false
}

func pluginHasCapability(info goplugins.PluginInfo, want ProviderCapability) bool {
	for _, c := range info.Capabilities {
		if c == string(want) {
			return true
		}
	}
	return false
}

// providerSource adapts a Provider's generator to the secondary entropy
// source used by RandomBytes.
type providerSource struct {
	provider Provider
	timeout  time.Duration
}

func (s *providerSource) fill(p []byte) error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.provider.GenerateRandom(ctx, len(p))
	if err != nil {
		return goerrors.Wrap(err, "PROV_RANDOM", fmt.Sprintf("provider %s failed to generate random bytes", s.provider.Name()))
	}
	if len(out) < len(p) {
		return fmt.Errorf("%w: %s returned %d of %d bytes", ErrProviderShortRead, s.provider.Name(), len(out), len(p))
	}
	copy(p, out)
	Zeroize(out)
	return nil
}

// pluginSource fetches entropy from an out-of-process provider plugin
// through the go-plugins manager.
type pluginSource struct {
	manager *goplugins.Manager[ProviderRequest, ProviderResponse]
	name    string
	timeout time.Duration
}

func (s *pluginSource) fill(p []byte) error {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	execCtx := goplugins.ExecutionContext{
		RequestID: fmt.Sprintf("%s-random-%d", s.name, timecache.CachedTimeNano()),
		Timeout:   timeout,
	}
	resp, err := s.manager.ExecuteWithOptions(context.Background(), s.name, execCtx, ProviderRequest{
		Operation: OperationGenerateRandom,
		Length:    len(p),
	})
	if err != nil {
		return goerrors.Wrap(err, "PROV_RANDOM", fmt.Sprintf("plugin %s failed to generate random bytes", s.name))
	}
	defer Zeroize(resp.Data)
	if !resp.Success {
		return fmt.Errorf("%w: %s: %s", ErrProviderPluginFailed, s.name, resp.Error)
	}
	if len(resp.Data) < len(p) {
		return fmt.Errorf("%w: %s returned %d of %d bytes", ErrProviderShortRead, s.name, len(resp.Data), len(p))
	}
	copy(p, resp.Data)
	return nil
}
