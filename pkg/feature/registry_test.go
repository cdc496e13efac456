package feature

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ormasoftchile/upkeep/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CachesUntilRefresh(t *testing.T) {
	calls := 0
	present := true
	reg := NewRegistry(&Host{})
	reg.Register("downstream", func(ctx context.Context, h *Host) (Feature, error) {
		calls++
		if !present {
			return nil, nil
		}
		return &Basic{FeatureName: "downstream", Version: "6.2.11"}, nil
	})
	ctx := context.Background()

	assert.True(t, reg.Present(ctx, "downstream"))
	assert.True(t, reg.Present(ctx, "downstream"))
	assert.Equal(t, 1, calls, "detection is cached")

	present = false
	assert.True(t, reg.Present(ctx, "downstream"), "stale until refresh")

	reg.Refresh()
	assert.False(t, reg.Present(ctx, "downstream"))
	assert.False(t, reg.Present(ctx, "downstream"))
	assert.Equal(t, 2, calls, "absence is cached too")
}

func TestRegistry_Unknown(t *testing.T) {
	reg := NewRegistry(&Host{})
	_, err := reg.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownFeature)
	assert.False(t, reg.Present(context.Background(), "nope"))
}

func TestRegistry_DetectErrorIsAbsent(t *testing.T) {
	reg := NewRegistry(&Host{})
	reg.Register("broken", func(ctx context.Context, h *Host) (Feature, error) {
		return nil, errors.New("boom")
	})
	f, err := reg.Get(context.Background(), "broken")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestRegistry_EnvAndDetected(t *testing.T) {
	reg := NewRegistry(&Host{})
	reg.Register("b", func(ctx context.Context, h *Host) (Feature, error) {
		return &Basic{FeatureName: "b", Version: "1"}, nil
	})
	reg.Register("a", func(ctx context.Context, h *Host) (Feature, error) {
		return &Basic{FeatureName: "a", Attributes: map[string]any{"x": 1}}, nil
	})
	reg.Register("c", func(ctx context.Context, h *Host) (Feature, error) { return nil, nil })
	ctx := context.Background()

	detected := reg.Detected(ctx)
	require.Len(t, detected, 2)
	assert.Equal(t, "a", detected[0].Name())
	assert.Equal(t, "b", detected[1].Name())

	env := reg.Env(ctx)
	assert.NotContains(t, env, "c")
	assert.Equal(t, "1", env["b"].(map[string]any)["version"])
	assert.Equal(t, 1, env["a"].(map[string]any)["x"])
	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
}

func TestHost_Exists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc", "foreman"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "foreman", "database.yml"), []byte("x"), 0o644))

	h := &Host{Root: root, Exec: &executor.DryRunExecutor{}}
	assert.True(t, h.Exists("/etc/foreman/database.yml"))
	assert.False(t, h.Exists("/etc/foreman/settings.yaml"))
}
