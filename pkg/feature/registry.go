package feature

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Registry owns the detectors and the cache of their results.
// Detection runs lazily on first use; Refresh drops every cached result so the
// next lookup detects again.
type Registry struct {
	host   *Host
	logger *slog.Logger

	mu        sync.Mutex
	detectors map[string]DetectFunc
	cache     map[string]Feature // a nil value caches absence
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry detecting against host.
func NewRegistry(host *Host, opts ...Option) *Registry {
	r := &Registry{
		host:      host,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		detectors: make(map[string]DetectFunc),
		cache:     make(map[string]Feature),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Host returns the host detectors run against.
func (r *Registry) Host() *Host {
	return r.host
}

// Register adds or replaces the detector for name.
func (r *Registry) Register(name string, fn DetectFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[name] = fn
	delete(r.cache, name)
}

// Names returns the registered feature names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns the feature, detecting it if needed. An absent feature is
// (nil, nil). Detection errors are logged and treated as absence.
// Detectors must not call back into the registry for their own name.
func (r *Registry) Get(ctx context.Context, name string) (Feature, error) {
	r.mu.Lock()
	if f, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return f, nil
	}
	detect, ok := r.detectors[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}

	f, err := detect(ctx, r.host)
	if err != nil {
		r.logger.Warn("feature detection failed", "feature", name, "error", err)
		f = nil
	}
	r.logger.Debug("feature detected", "feature", name, "present", f != nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}
	r.cache[name] = f
	return f, nil
}

// Present reports whether the named feature is detected. Unknown names are
// not present.
func (r *Registry) Present(ctx context.Context, name string) bool {
	f, err := r.Get(ctx, name)
	return err == nil && f != nil
}

// Detected runs every detector and returns the present features by name.
func (r *Registry) Detected(ctx context.Context) []Feature {
	var out []Feature
	for _, name := range r.Names() {
		if f, err := r.Get(ctx, name); err == nil && f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Env returns the detected features keyed by name, for use as the `features`
// variable of applicability expressions. Absent features are missing keys.
func (r *Registry) Env(ctx context.Context) map[string]any {
	env := make(map[string]any)
	for _, f := range r.Detected(ctx) {
		env[f.Name()] = f.Attrs()
	}
	return env
}

// Refresh invalidates every cached detection result.
func (r *Registry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
	r.logger.Debug("feature cache refreshed")
}
