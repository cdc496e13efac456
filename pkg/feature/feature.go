// Package feature detects host capabilities on demand and caches the result
// until an explicit Refresh.
package feature

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"

	"github.com/ormasoftchile/upkeep/pkg/executor"
)

// ErrUnknownFeature is returned for names no detector was registered for.
var ErrUnknownFeature = errors.New("unknown feature")

// Feature is a detected capability of the host.
type Feature interface {
	Name() string
	// Attrs exposes the feature to applicability expressions.
	Attrs() map[string]any
}

// DetectFunc reports the feature if it is present on host.
// Returning (nil, nil) means absent.
type DetectFunc func(ctx context.Context, host *Host) (Feature, error)

// Host is what detectors and features can observe.
type Host struct {
	Exec executor.CommandExecutor
	// Root prefixes every path checked by Exists. Empty means "/".
	Root string
}

// Exists reports whether path exists under the host root.
func (h *Host) Exists(path string) bool {
	root := h.Root
	if root == "" {
		root = "/"
	}
	_, err := os.Stat(filepath.Join(root, path))
	return err == nil
}

// Run executes a command on the host.
func (h *Host) Run(ctx context.Context, name string, args ...string) (*executor.Result, error) {
	return h.Exec.Execute(ctx, executor.Command{Name: name, Args: args})
}

// Basic is a feature with a name, an optional version and free-form attributes.
type Basic struct {
	FeatureName string
	Version     string
	Attributes  map[string]any
}

func (b *Basic) Name() string { return b.FeatureName }

func (b *Basic) Attrs() map[string]any {
	attrs := make(map[string]any, len(b.Attributes)+2)
	maps.Copy(attrs, b.Attributes)
	attrs["name"] = b.FeatureName
	attrs["version"] = b.Version
	return attrs
}
