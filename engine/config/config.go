// Package config loads the resource engine settings from TOML.
package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/jinzhu/copier"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-resources/engine/core"
	emath "github.com/spaghettifunk/anima-resources/engine/math"
	"github.com/spaghettifunk/anima-resources/engine/renderer/hostmem"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

type Config struct {
	LogLevel     string             `toml:"log_level"`
	Collector    CollectorConfig    `toml:"collector"`
	Groups       []GroupConfig      `toml:"groups"`
	Capabilities CapabilitiesConfig `toml:"capabilities"`
	HostMem      HostMemConfig      `toml:"hostmem"`
}

type CollectorConfig struct {
	MaxBufferCount uint64 `toml:"max_buffer_count"`
	MaxImageCount  uint64 `toml:"max_image_count"`
	// Register static_local, static_upload and dynamic_sequential.
	DefaultGroups bool `toml:"default_groups"`
}

// GroupConfig declares an extra grouping strategy. A resource matches when
// its pattern is one of Patterns (if any) and its usage shares a bit with
// UsageAny (if any).
type GroupConfig struct {
	Name     string   `toml:"name"`
	Patterns []string `toml:"patterns"`
	UsageAny []string `toml:"usage_any"`
	// Images makes this an image staging group instead of a buffer group.
	Images bool `toml:"images"`
}

// CapabilitiesConfig stands in for device limits when no device is present.
type CapabilitiesConfig struct {
	MinUniformBufferOffsetAlignment  uint64 `toml:"min_uniform_buffer_offset_alignment"`
	MinStorageBufferOffsetAlignment  uint64 `toml:"min_storage_buffer_offset_alignment"`
	MinTexelBufferOffsetAlignment    uint64 `toml:"min_texel_buffer_offset_alignment"`
	NonCoherentAtomSize              uint64 `toml:"non_coherent_atom_size"`
	OptimalBufferCopyOffsetAlignment uint64 `toml:"optimal_buffer_copy_offset_alignment"`
}

type HostMemConfig struct {
	ArenaSize uint64 `toml:"arena_size"`
	Alignment uint64 `toml:"alignment"`
}

var bufferUsageNames = map[string]vk.BufferUsageFlagBits{
	"transfer_src":  vk.BufferUsageTransferSrcBit,
	"transfer_dst":  vk.BufferUsageTransferDstBit,
	"uniform_texel": vk.BufferUsageUniformTexelBufferBit,
	"storage_texel": vk.BufferUsageStorageTexelBufferBit,
	"uniform":       vk.BufferUsageUniformBufferBit,
	"storage":       vk.BufferUsageStorageBufferBit,
	"index":         vk.BufferUsageIndexBufferBit,
	"vertex":        vk.BufferUsageVertexBufferBit,
	"indirect":      vk.BufferUsageIndirectBufferBit,
}

func Default() *Config {
	caps := resources.DefaultCapabilities()
	return &Config{
		LogLevel: core.LogLevelInfo.String(),
		Collector: CollectorConfig{
			MaxBufferCount: resources.DefaultMaxBufferCount,
			MaxImageCount:  resources.DefaultMaxImageCount,
			DefaultGroups:  true,
		},
		Capabilities: CapabilitiesConfig{
			MinUniformBufferOffsetAlignment:  caps.MinUniformBufferOffsetAlignment,
			MinStorageBufferOffsetAlignment:  caps.MinStorageBufferOffsetAlignment,
			MinTexelBufferOffsetAlignment:    caps.MinTexelBufferOffsetAlignment,
			NonCoherentAtomSize:              caps.NonCoherentAtomSize,
			OptimalBufferCopyOffsetAlignment: caps.OptimalBufferCopyOffsetAlignment,
		},
		HostMem: HostMemConfig{
			ArenaSize: hostmem.DefaultArenaSize,
			Alignment: hostmem.DefaultAlignment,
		},
	}
}

// Load reads and validates the file at path, a leading ~ is expanded.
// Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Wrap(core.ErrInvalidConfig, strict.String())
		}
		return nil, errors.Mark(errors.Wrap(err, "decoding toml"), core.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy that shares no slices with c.
func (c *Config) Clone() *Config {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		// only fails on mismatched types
		panic(err)
	}
	return out
}

// Marshal encodes the configuration back to TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) Validate() error {
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Collector.MaxBufferCount == 0 || c.Collector.MaxImageCount == 0 {
		return errors.Wrap(core.ErrInvalidConfig, "collector capacities must be > 0")
	}
	if c.HostMem.ArenaSize == 0 {
		return errors.Wrap(core.ErrInvalidConfig, "hostmem.arena_size must be > 0")
	}

	alignments := map[string]uint64{
		"capabilities.min_uniform_buffer_offset_alignment":  c.Capabilities.MinUniformBufferOffsetAlignment,
		"capabilities.min_storage_buffer_offset_alignment":  c.Capabilities.MinStorageBufferOffsetAlignment,
		"capabilities.min_texel_buffer_offset_alignment":    c.Capabilities.MinTexelBufferOffsetAlignment,
		"capabilities.non_coherent_atom_size":               c.Capabilities.NonCoherentAtomSize,
		"capabilities.optimal_buffer_copy_offset_alignment": c.Capabilities.OptimalBufferCopyOffsetAlignment,

		"hostmem.alignment": c.HostMem.Alignment,
	}
	for key, v := range alignments {
		if v != 0 && !emath.IsPowerOfTwo(v) {
			return errors.Wrapf(core.ErrInvalidConfig, "%s = %d is not a power of two", key, v)
		}
	}

	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		key := g.Name
		if g.Images {
			key = "image:" + key
		}
		if seen[key] {
			return errors.Wrapf(core.ErrDuplicateGroupName, "group %q declared twice", g.Name)
		}
		seen[key] = true
		if _, err := g.Predicate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Level() core.LogLevel {
	level, _ := core.ParseLogLevel(c.LogLevel)
	return level
}

func (c *Config) CollectorConfig() resources.CollectorConfig {
	return resources.CollectorConfig{
		MaxBufferCount:       c.Collector.MaxBufferCount,
		MaxImageCount:        c.Collector.MaxImageCount,
		DisableDefaultGroups: !c.Collector.DefaultGroups,
	}
}

func (c *Config) DeviceCapabilities() resources.DeviceCapabilities {
	return resources.DeviceCapabilities{
		MinUniformBufferOffsetAlignment:  c.Capabilities.MinUniformBufferOffsetAlignment,
		MinStorageBufferOffsetAlignment:  c.Capabilities.MinStorageBufferOffsetAlignment,
		MinTexelBufferOffsetAlignment:    c.Capabilities.MinTexelBufferOffsetAlignment,
		NonCoherentAtomSize:              c.Capabilities.NonCoherentAtomSize,
		OptimalBufferCopyOffsetAlignment: c.Capabilities.OptimalBufferCopyOffsetAlignment,
	}
}

func (c *Config) HostMemConfig() hostmem.AllocatorConfig {
	return hostmem.AllocatorConfig{
		ArenaSize: c.HostMem.ArenaSize,
		Alignment: c.HostMem.Alignment,
	}
}

// Predicate builds the grouping predicate the group declares.
func (g GroupConfig) Predicate() (resources.GroupPredicate, error) {
	if strings.TrimSpace(g.Name) == "" {
		return nil, errors.Wrap(core.ErrInvalidStrategy, "group without a name")
	}
	if len(g.Patterns) == 0 && len(g.UsageAny) == 0 {
		return nil, errors.Wrapf(core.ErrInvalidStrategy, "group %q needs patterns or usage_any", g.Name)
	}

	patterns := make([]resources.MemoryPattern, 0, len(g.Patterns))
	for _, name := range g.Patterns {
		p, err := resources.ParseMemoryPattern(name)
		if err != nil {
			return nil, errors.Wrapf(err, "group %q", g.Name)
		}
		patterns = append(patterns, p)
	}
	var usage vk.BufferUsageFlags
	for _, name := range g.UsageAny {
		bit, ok := bufferUsageNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Wrapf(core.ErrInvalidConfig, "group %q: unknown buffer usage %q", g.Name, name)
		}
		usage |= vk.BufferUsageFlags(bit)
	}

	matchPattern := resources.PatternIs(patterns...)
	matchUsage := resources.UsageAny(usage)
	return func(desc resources.DataDescriptor) bool {
		if len(patterns) > 0 && !matchPattern(desc) {
			return false
		}
		if usage != 0 && !matchUsage(desc) {
			return false
		}
		return true
	}, nil
}
