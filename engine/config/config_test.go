package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

const sample = `
log_level = "debug"

[collector]
max_buffer_count = 128
max_image_count = 16
default_groups = false

[capabilities]
min_uniform_buffer_offset_alignment = 64

[hostmem]
arena_size = 1048576

[[groups]]
name = "uniforms"
patterns = ["dynamic_sequential"]
usage_any = ["uniform"]

[[groups]]
name = "textures"
images = true
patterns = ["static_local"]
`

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.LogLevelInfo, cfg.Level())
	assert.False(t, cfg.CollectorConfig().DisableDefaultGroups)
	assert.Equal(t, resources.DefaultCapabilities(), cfg.DeviceCapabilities())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, core.LogLevelDebug, cfg.Level())
	assert.Equal(t, resources.CollectorConfig{
		MaxBufferCount:       128,
		MaxImageCount:        16,
		DisableDefaultGroups: true,
	}, cfg.CollectorConfig())

	caps := cfg.DeviceCapabilities()
	assert.Equal(t, uint64(64), caps.MinUniformBufferOffsetAlignment)
	// untouched keys keep the defaults
	assert.Equal(t, resources.DefaultCapabilities().MinStorageBufferOffsetAlignment, caps.MinStorageBufferOffsetAlignment)

	hm := cfg.HostMemConfig()
	assert.Equal(t, uint64(1<<20), hm.ArenaSize)
	require.Len(t, cfg.Groups, 2)
	assert.True(t, cfg.Groups[1].Images)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "colour = 1",
		"bad level":     `log_level = "loud"`,
		"zero capacity": "[collector]\nmax_buffer_count = 0",
		"alignment":     "[capabilities]\nnon_coherent_atom_size = 48",
		"empty arena":   "[hostmem]\narena_size = 0",
		"bad pattern":   "[[groups]]\nname = \"x\"\npatterns = [\"sometimes\"]",
		"bad usage":     "[[groups]]\nname = \"x\"\nusage_any = [\"teapot\"]",
		"no criteria":   "[[groups]]\nname = \"x\"",
		"malformed":     "[collector",
		"unnamed group": "[[groups]]\npatterns = [\"readback\"]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}

	_, err := Parse([]byte("colour = 1"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = Parse([]byte("[[groups]]\nname = \"a\"\npatterns = [\"readback\"]\n[[groups]]\nname = \"a\"\npatterns = [\"readback\"]"))
	assert.ErrorIs(t, err, core.ErrDuplicateGroupName)
}

func TestGroupPredicate(t *testing.T) {
	g := GroupConfig{Name: "uniforms", Patterns: []string{"dynamic_sequential"}, UsageAny: []string{"uniform", "storage"}}
	pred, err := g.Predicate()
	require.NoError(t, err)

	assert.True(t, pred(resources.DynamicUniformDescriptor()))
	assert.False(t, pred(resources.StaticVertexDescriptor()))

	// usage alone
	pred, err = GroupConfig{Name: "indirect", UsageAny: []string{"Indirect"}}.Predicate()
	require.NoError(t, err)
	assert.True(t, pred(resources.IndirectDrawDescriptor()))
	assert.False(t, pred(resources.NewBufferDescriptor(resources.StaticLocal, resources.RarelyOrNever,
		resources.BufferIntent{Usage: vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)})))
}

func TestClone(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	clone := cfg.Clone()
	assert.Equal(t, cfg.CollectorConfig(), clone.CollectorConfig())
	assert.Equal(t, cfg.Groups[0].UsageAny, clone.Groups[0].UsageAny)
	clone.Groups[0].Patterns[0] = "readback"
	clone.Collector.MaxBufferCount = 1
	assert.Equal(t, "dynamic_sequential", cfg.Groups[0].Patterns[0])
	assert.Equal(t, uint64(128), cfg.Collector.MaxBufferCount)
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "resources.toml"), []byte(`log_level = "error"`), 0o644))

	cfg, err := Load("~/resources.toml")
	require.NoError(t, err)
	assert.Equal(t, core.LogLevelError, cfg.Level())
}

func TestLoadAndMarshal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	out, err := cfg.Marshal()
	require.NoError(t, err)
	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Level(), again.Level())
	assert.Equal(t, cfg.CollectorConfig(), again.CollectorConfig())
	assert.Equal(t, cfg.DeviceCapabilities(), again.DeviceCapabilities())
	assert.Equal(t, cfg.HostMemConfig(), again.HostMemConfig())
	require.Len(t, again.Groups, 2)
	assert.Equal(t, "textures", again.Groups[1].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resources.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o644))

	changes := make(chan *Config, 16)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	// an invalid write is skipped
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "loud"`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "warn"`), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Level() == core.LogLevelWarn {
				require.NoError(t, w.Close())
				require.NoError(t, w.Close())
				return
			}
		case <-deadline:
			t.Fatal("config reload not observed")
		}
	}
}

func TestWatcherNeedsCallback(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "x.toml"), nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
