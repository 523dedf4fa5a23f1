package resources

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

// Names of the strategies registered by NewCollector.
const (
	GroupStaticLocal       = "static_local"
	GroupStaticUpload      = "static_upload"
	GroupDynamicSequential = "dynamic_sequential"
)

// Resource is one collected entry as seen by a grouping action.
type Resource struct {
	ID         ResourceID
	Descriptor DataDescriptor
	Data       RawData
}

// GroupPredicate selects the resources a strategy takes.
type GroupPredicate func(desc DataDescriptor) bool

// GroupAction places a matched resource into its group. An action that does
// not append the resource leaves it ungrouped.
type GroupAction func(group *GroupedBuffer, res Resource, caps DeviceCapabilities) error

// GroupingStrategy is a named classification rule.
type GroupingStrategy struct {
	Name      string
	Predicate GroupPredicate
	Action    GroupAction
}

// ImageGroupingStrategy makes the images it matches share one staging buffer.
type ImageGroupingStrategy struct {
	Name      string
	Predicate GroupPredicate
}

// AppendAligned is the default action: it appends the resource's bytes at the
// alignment RequiredAlignment computes for it.
func AppendAligned(group *GroupedBuffer, res Resource, caps DeviceCapabilities) error {
	group.Append(res.ID, res.Descriptor, res.Data.Bytes(), RequiredAlignment(res.Descriptor, caps))
	return nil
}

// PatternIs builds a predicate matching any of the given memory patterns.
func PatternIs(patterns ...MemoryPattern) GroupPredicate {
	return func(desc DataDescriptor) bool {
		for _, p := range patterns {
			if desc.Pattern() == p {
				return true
			}
		}
		return false
	}
}

// UsageAny builds a predicate matching descriptors sharing at least one buffer usage bit with usage.
func UsageAny(usage vk.BufferUsageFlags) GroupPredicate {
	return func(desc DataDescriptor) bool {
		return desc.BufferUsage()&usage != 0
	}
}

func defaultStrategies() []GroupingStrategy {
	return []GroupingStrategy{
		{Name: GroupStaticLocal, Predicate: PatternIs(StaticLocal), Action: AppendAligned},
		{Name: GroupStaticUpload, Predicate: PatternIs(StaticUpload), Action: AppendAligned},
		{Name: GroupDynamicSequential, Predicate: PatternIs(DynamicSequential), Action: AppendAligned},
	}
}

// GroupingPass describes the last completed classification pass.
type GroupingPass struct {
	ID           uuid.UUID
	Capabilities DeviceCapabilities
	Elapsed      time.Duration
}

type groupingResult struct {
	pass       GroupingPass
	groups     []*GroupedBuffer
	index      map[string]int
	membership map[ResourceID]int
	ungrouped  []ResourceID
	// number of resources the pass classified
	covered int
}

func newGroupingResult(names []string, caps DeviceCapabilities) *groupingResult {
	r := &groupingResult{
		pass: GroupingPass{
			ID:           uuid.New(),
			Capabilities: caps,
		},
		groups:     make([]*GroupedBuffer, len(names)),
		index:      make(map[string]int, len(names)),
		membership: make(map[ResourceID]int),
	}
	for i, name := range names {
		r.groups[i] = newGroupedBuffer(name)
		r.index[name] = i
	}
	return r
}

// RegisterBufferGroup appends a strategy to the ordered registry. Strategies
// are evaluated in registration order and the first match wins. A nil action
// defaults to AppendAligned. Registering invalidates the current grouping
// result.
func (c *Collector) RegisterBufferGroup(name string, predicate GroupPredicate, action GroupAction) error {
	if name == "" || predicate == nil {
		return errors.Wrapf(core.ErrInvalidStrategy, "buffer group %q needs a name and a predicate", name)
	}
	for _, s := range c.strategies {
		if s.Name == name {
			err := errors.Wrapf(core.ErrDuplicateGroupName, "buffer group %q is already registered", name)
			core.LogError(err.Error())
			return err
		}
	}
	if action == nil {
		action = AppendAligned
	}
	c.strategies = append(c.strategies, &GroupingStrategy{Name: name, Predicate: predicate, Action: action})
	c.grouping = nil
	core.LogDebug("Buffer group '%s' registered.", name)
	return nil
}

// RegisterImageGroup registers a strategy whose images share one staging buffer.
func (c *Collector) RegisterImageGroup(name string, predicate GroupPredicate) error {
	if name == "" || predicate == nil {
		return errors.Wrapf(core.ErrInvalidStrategy, "image group %q needs a name and a predicate", name)
	}
	for _, s := range c.imageStrategies {
		if s.Name == name {
			err := errors.Wrapf(core.ErrDuplicateGroupName, "image group %q is already registered", name)
			core.LogError(err.Error())
			return err
		}
	}
	c.imageStrategies = append(c.imageStrategies, &ImageGroupingStrategy{Name: name, Predicate: predicate})
	c.imageGrouping = nil
	core.LogDebug("Image group '%s' registered.", name)
	return nil
}

// UnregisterBufferGroup removes a buffer strategy. Returns false if no
// strategy has that name.
func (c *Collector) UnregisterBufferGroup(name string) bool {
	for i, s := range c.strategies {
		if s.Name == name {
			c.strategies = append(c.strategies[:i:i], c.strategies[i+1:]...)
			c.grouping = nil
			return true
		}
	}
	return false
}

func (c *Collector) UnregisterImageGroup(name string) bool {
	for i, s := range c.imageStrategies {
		if s.Name == name {
			c.imageStrategies = append(c.imageStrategies[:i:i], c.imageStrategies[i+1:]...)
			c.imageGrouping = nil
			return true
		}
	}
	return false
}

// StrategyNames lists the registered buffer strategies in evaluation order.
func (c *Collector) StrategyNames() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name
	}
	return names
}

// GroupAllBufferData discards the previous grouping and classifies every
// collected buffer in ascending id order. Resources matching no strategy or
// carrying no bytes are left ungrouped. An action error aborts the pass and leaves no grouping.
// Repeating the call with the same input yields byte-identical groups.
func (c *Collector) GroupAllBufferData(caps DeviceCapabilities) error {
	clock := core.NewClock()
	clock.Start()

	c.grouping = nil
	result := newGroupingResult(c.StrategyNames(), caps)

	for _, id := range c.BufferIDs() {
		res := c.resource(id)
		if res.Data.IsEmpty() {
			result.ungrouped = append(result.ungrouped, id)
			continue
		}
		matched := -1
		for si, s := range c.strategies {
			if s.Predicate(res.Descriptor) {
				matched = si
				break
			}
		}
		if matched < 0 {
			result.ungrouped = append(result.ungrouped, id)
			continue
		}

		s := c.strategies[matched]
		group := result.groups[matched]
		if err := s.Action(group, res, caps); err != nil {
			return errors.Wrapf(err, "group %q failed on resource %d", s.Name, id)
		}
		if _, ok := group.Offset(id); ok {
			result.membership[id] = matched
		} else {
			result.ungrouped = append(result.ungrouped, id)
		}
	}

	for _, g := range result.groups {
		g.seal()
	}
	result.covered = c.BufferCount()

	clock.Stop()
	result.pass.Elapsed = clock.Elapsed()
	c.grouping = result

	core.LogDebug("Grouping pass %s: %d buffers, %d groups, %d ungrouped in %s.",
		result.pass.ID, c.BufferCount(), len(result.groups), len(result.ungrouped), result.pass.Elapsed)
	return nil
}

// GroupAllImageData lays out the pixel data of images matched by image
// strategies into one staging buffer per strategy. Unmatched images and
// images without data are dispatched without shared staging.
func (c *Collector) GroupAllImageData(caps DeviceCapabilities) error {
	c.imageGrouping = nil
	names := make([]string, len(c.imageStrategies))
	for i, s := range c.imageStrategies {
		names[i] = s.Name
	}
	result := newGroupingResult(names, caps)
	alignment := RequiredImageAlignment(caps)

	for _, id := range c.ImageIDs() {
		res := c.imageResource(id)
		if res.Data.IsEmpty() {
			// nothing to upload, e.g. render targets
			result.ungrouped = append(result.ungrouped, id)
			continue
		}
		matched := -1
		for si, s := range c.imageStrategies {
			if s.Predicate(res.Descriptor) {
				matched = si
				break
			}
		}
		if matched < 0 {
			result.ungrouped = append(result.ungrouped, id)
			continue
		}
		result.groups[matched].Append(id, res.Descriptor, res.Data.Bytes(), alignment)
		result.membership[id] = matched
	}

	for _, g := range result.groups {
		g.usage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
		g.pattern = StaticUpload
		g.seal()
	}
	result.covered = c.ImageCount()
	c.imageGrouping = result
	return nil
}

// LastPass describes the current grouping result.
func (c *Collector) LastPass() (GroupingPass, bool) {
	if c.grouping == nil {
		return GroupingPass{}, false
	}
	return c.grouping.pass, true
}

// IsGrouped reports whether a grouping result is available.
func (c *Collector) IsGrouped() bool {
	return c.grouping != nil
}

// GetGroupData returns the named group of the current result. The group is
// sealed and must only be read.
func (c *Collector) GetGroupData(name string) (*GroupedBuffer, bool) {
	if c.grouping == nil {
		return nil, false
	}
	i, ok := c.grouping.index[name]
	if !ok {
		return nil, false
	}
	return c.grouping.groups[i], true
}

// PendingBufferIDs lists the buffers collected after the current grouping
// pass. They are neither grouped nor ungrouped until the next pass.
func (c *Collector) PendingBufferIDs() []ResourceID {
	if c.grouping == nil {
		return nil
	}
	return c.BufferIDs()[c.grouping.covered:]
}

// GetAllGroupNames returns the group names of the current result in registration order.
func (c *Collector) GetAllGroupNames() []string {
	if c.grouping == nil {
		return nil
	}
	names := make([]string, len(c.grouping.groups))
	for i, g := range c.grouping.groups {
		names[i] = g.Name()
	}
	return names
}

// GetGroupIndex returns the position of name in the current result, or -1.
func (c *Collector) GetGroupIndex(name string) int {
	if c.grouping == nil {
		return -1
	}
	if i, ok := c.grouping.index[name]; ok {
		return i
	}
	return -1
}

// GetBufferOffset returns the offset of id within the group holding it, or
// InvalidOffset when id is unknown, ungrouped or no pass has run.
func (c *Collector) GetBufferOffset(id ResourceID) uint64 {
	name, ok := c.GetBufferGroup(id)
	if !ok {
		return InvalidOffset
	}
	g, _ := c.GetGroupData(name)
	o, _ := g.Offset(id)
	return o
}

// GetBufferGroup returns the name of the group holding id.
func (c *Collector) GetBufferGroup(id ResourceID) (string, bool) {
	if c.grouping == nil {
		return "", false
	}
	i, ok := c.grouping.membership[id]
	if !ok {
		return "", false
	}
	return c.grouping.groups[i].Name(), true
}

// UngroupedBufferIDs lists the buffers that matched no strategy in the
// current result. They must take the individual allocation path.
func (c *Collector) UngroupedBufferIDs() []ResourceID {
	if c.grouping == nil {
		return nil
	}
	return append([]ResourceID(nil), c.grouping.ungrouped...)
}

func (c *Collector) GetImageGroupData(name string) (*GroupedBuffer, bool) {
	if c.imageGrouping == nil {
		return nil, false
	}
	i, ok := c.imageGrouping.index[name]
	if !ok {
		return nil, false
	}
	return c.imageGrouping.groups[i], true
}

// GetImageGroup returns the name of the image group whose staging buffer holds id.
func (c *Collector) GetImageGroup(id ResourceID) (string, bool) {
	if c.imageGrouping == nil {
		return "", false
	}
	i, ok := c.imageGrouping.membership[id]
	if !ok {
		return "", false
	}
	return c.imageGrouping.groups[i].Name(), true
}

func (c *Collector) GetAllImageGroupNames() []string {
	if c.imageGrouping == nil {
		return nil
	}
	names := make([]string, len(c.imageGrouping.groups))
	for i, g := range c.imageGrouping.groups {
		names[i] = g.Name()
	}
	return names
}
