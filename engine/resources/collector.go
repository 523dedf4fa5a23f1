package resources

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

// ResourceID identifies a collected resource for the lifetime of a collection cycle.
type ResourceID uint64

// InvalidResourceID is returned when no id could be minted.
const InvalidResourceID = ResourceID(core.InvalidID)

const (
	DefaultMaxBufferCount uint64 = 4096
	DefaultMaxImageCount  uint64 = 1024
)

/** @brief The configuration for the data collector */
type CollectorConfig struct {
	/** @brief The maximum number of buffer resources that can be collected at once. */
	MaxBufferCount uint64
	/** @brief The maximum number of image resources that can be collected at once. */
	MaxImageCount uint64
	/** @brief Skip the static_local, static_upload and dynamic_sequential groups. */
	DisableDefaultGroups bool
}

func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		MaxBufferCount: DefaultMaxBufferCount,
		MaxImageCount:  DefaultMaxImageCount,
	}
}

type entry struct {
	desc DataDescriptor
	data RawData
}

// Collector stores descriptor and raw data pairs for buffers and images,
// classifies buffers into grouped buffers and answers layout queries.
// It is not safe for concurrent use.
type Collector struct {
	config CollectorConfig

	bufferIDs *core.IDRegistry
	imageIDs  *core.IDRegistry
	// indexed by id
	buffers []entry
	images  []entry

	strategies      []*GroupingStrategy
	imageStrategies []*ImageGroupingStrategy

	grouping      *groupingResult
	imageGrouping *groupingResult
}

func NewCollector(config CollectorConfig) (*Collector, error) {
	if config.MaxBufferCount == 0 || config.MaxImageCount == 0 {
		err := errors.Wrapf(core.ErrInvalidConfig, "func NewCollector - capacities must be > 0 (buffers=%d, images=%d)", config.MaxBufferCount, config.MaxImageCount)
		core.LogError(err.Error())
		return nil, err
	}

	c := &Collector{
		config:    config,
		bufferIDs: core.NewIDRegistry("buffer", config.MaxBufferCount),
		imageIDs:  core.NewIDRegistry("image", config.MaxImageCount),
	}
	if !config.DisableDefaultGroups {
		for _, s := range defaultStrategies() {
			if err := c.RegisterBufferGroup(s.Name, s.Predicate, s.Action); err != nil {
				return nil, err
			}
		}
	}

	core.LogDebug("Collector initialized (max buffers=%d, max images=%d, groups=%d).", config.MaxBufferCount, config.MaxImageCount, len(c.strategies))
	return c, nil
}

func (c *Collector) Config() CollectorConfig {
	return c.config
}

// CollectBufferData stores a buffer resource and returns its id. The data is
// borrowed, not copied. Fails with core.ErrCapacityExceeded once
// MaxBufferCount resources are live, leaving all state untouched.
func (c *Collector) CollectBufferData(desc DataDescriptor, data RawData) (ResourceID, error) {
	id, err := c.bufferIDs.Acquire()
	if err != nil {
		core.LogWarn("CollectBufferData refused: %s", err)
		return InvalidResourceID, err
	}
	c.buffers = append(c.buffers, entry{desc: desc, data: data})
	return ResourceID(id), nil
}

// CollectImageData is CollectBufferData for images, with its own id space and capacity.
func (c *Collector) CollectImageData(desc DataDescriptor, data RawData) (ResourceID, error) {
	id, err := c.imageIDs.Acquire()
	if err != nil {
		core.LogWarn("CollectImageData refused: %s", err)
		return InvalidResourceID, err
	}
	c.images = append(c.images, entry{desc: desc, data: data})
	return ResourceID(id), nil
}

func (c *Collector) GetBufferDesc(id ResourceID) (DataDescriptor, bool) {
	if !c.bufferIDs.Contains(uint64(id)) {
		return DataDescriptor{}, false
	}
	return c.buffers[id].desc, true
}

func (c *Collector) GetBufferData(id ResourceID) (RawData, bool) {
	if !c.bufferIDs.Contains(uint64(id)) {
		return RawData{}, false
	}
	return c.buffers[id].data, true
}

func (c *Collector) GetImageDesc(id ResourceID) (DataDescriptor, bool) {
	if !c.imageIDs.Contains(uint64(id)) {
		return DataDescriptor{}, false
	}
	return c.images[id].desc, true
}

func (c *Collector) GetImageData(id ResourceID) (RawData, bool) {
	if !c.imageIDs.Contains(uint64(id)) {
		return RawData{}, false
	}
	return c.images[id].data, true
}

func (c *Collector) BufferCount() int {
	return len(c.buffers)
}

func (c *Collector) ImageCount() int {
	return len(c.images)
}

// BufferIDs returns every collected buffer id in ascending order.
func (c *Collector) BufferIDs() []ResourceID {
	return sequentialIDs(len(c.buffers))
}

// ImageIDs returns every collected image id in ascending order.
func (c *Collector) ImageIDs() []ResourceID {
	return sequentialIDs(len(c.images))
}

// ClearAllCollectedData drops every descriptor, raw data reference and grouping
// result and resets the id counters. Registered strategies are kept.
func (c *Collector) ClearAllCollectedData() {
	c.buffers = nil
	c.images = nil
	c.bufferIDs.Reset()
	c.imageIDs.Reset()
	c.grouping = nil
	c.imageGrouping = nil
}

func (c *Collector) resource(id ResourceID) Resource {
	e := c.buffers[id]
	return Resource{ID: id, Descriptor: e.desc, Data: e.data}
}

func (c *Collector) imageResource(id ResourceID) Resource {
	e := c.images[id]
	return Resource{ID: id, Descriptor: e.desc, Data: e.data}
}

func sequentialIDs(n int) []ResourceID {
	ids := make([]ResourceID, n)
	for i := range ids {
		ids[i] = ResourceID(i)
	}
	return ids
}
