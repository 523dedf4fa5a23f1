package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

// DeviceAllocation is the token of one dedicated device memory allocation.
type DeviceAllocation struct {
	Memory     vk.DeviceMemory
	size       uint64
	MemoryType uint32
	Coherent   bool

	mapped []byte
}

func (a *DeviceAllocation) Size() uint64   { return a.size }
func (a *DeviceAllocation) Mapped() []byte { return a.mapped }

// VulkanAllocator implements resources.NativeAllocator with one dedicated
// vkDeviceMemory per buffer or image.
type VulkanAllocator struct {
	context *VulkanContext
}

func NewVulkanAllocator(context *VulkanContext) (*VulkanAllocator, error) {
	if context == nil || context.Device == nil || context.Device.LogicalDevice == nil {
		return nil, errors.Wrap(core.ErrInvalidConfig, "vulkan allocator needs a logical device")
	}
	if context.Locks == nil {
		context.Locks = NewVulkanLockPool()
	}
	return &VulkanAllocator{context: context}, nil
}

func allocationError(err error, name string) error {
	return errors.Mark(errors.Wrapf(err, "vulkan allocation of %q", name), core.ErrAllocationFailure)
}

func (va *VulkanAllocator) AllocateBuffer(req resources.BufferRequest) (resources.BufferAllocation, error) {
	if req.Size == 0 {
		return resources.BufferAllocation{}, allocationError(errors.New("zero sized buffer"), req.Name)
	}
	device := va.context.Device

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(req.Size),
		Usage:       bufferUsageFor(req),
		SharingMode: vk.SharingModeExclusive,
	}
	if req.Sharing == vk.SharingModeConcurrent {
		if len(device.QueueFamilies) > 1 {
			bufferInfo.SharingMode = vk.SharingModeConcurrent
			bufferInfo.QueueFamilyIndexCount = uint32(len(device.QueueFamilies))
			bufferInfo.PQueueFamilyIndices = device.QueueFamilies
		} else {
			core.LogWarn("Buffer '%s' asked for concurrent sharing with a single queue family, using exclusive.", req.Name)
		}
	}

	var buffer vk.Buffer
	err := va.context.Locks.SafeCall(BufferManagement, func() error {
		return resultError(vk.CreateBuffer(device.LogicalDevice, &bufferInfo, va.context.Allocator, &buffer), "vkCreateBuffer")
	})
	if err != nil {
		return resources.BufferAllocation{}, allocationError(err, req.Name)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, buffer, &memReqs)
	memReqs.Deref()

	alloc, err := va.allocate(memReqs, placementFor(req.Pattern))
	if err == nil {
		err = va.context.Locks.SafeCall(MemoryManagement, func() error {
			return resultError(vk.BindBufferMemory(device.LogicalDevice, buffer, alloc.Memory, 0), "vkBindBufferMemory")
		})
		if err != nil {
			va.free(alloc)
		}
	}
	if err == nil && va.context.memoryTypeHas(alloc.MemoryType, vk.MemoryPropertyHostVisibleBit) {
		if err = va.upload(alloc, req.Size, req.Data); err != nil {
			va.free(alloc)
		}
	}
	if err != nil {
		va.destroyBuffer(buffer)
		return resources.BufferAllocation{}, allocationError(err, req.Name)
	}

	core.LogDebug("Buffer '%s' allocated: %d bytes in memory type %d.", req.Name, alloc.size, alloc.MemoryType)
	return resources.BufferAllocation{Handle: buffer, Token: alloc}, nil
}

func (va *VulkanAllocator) ReleaseBuffer(alloc resources.BufferAllocation) {
	va.destroyBuffer(alloc.Handle)
	if token, ok := alloc.Token.(*DeviceAllocation); ok {
		va.free(token)
	}
}

func (va *VulkanAllocator) AllocateImage(req resources.ImageRequest) (resources.ImageAllocation, error) {
	device := va.context.Device

	var image vk.Image
	err := va.context.Locks.SafeCall(ImageManagement, func() error {
		return createImage(va.context, req, &image)
	})
	if err != nil {
		return resources.ImageAllocation{}, allocationError(err, req.Name)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, image, &memReqs)
	memReqs.Deref()

	// images are always optimal tiling, so device local
	alloc, err := va.allocate(memReqs, placementFor(resources.StaticLocal))
	if err == nil {
		err = va.context.Locks.SafeCall(MemoryManagement, func() error {
			return resultError(vk.BindImageMemory(device.LogicalDevice, image, alloc.Memory, 0), "vkBindImageMemory")
		})
		if err != nil {
			va.free(alloc)
		}
	}
	if err != nil {
		va.destroyImage(image)
		return resources.ImageAllocation{}, allocationError(err, req.Name)
	}

	core.LogDebug("Image '%s' allocated: %dx%d, %d bytes.", req.Name, req.Width, req.Height, alloc.size)
	return resources.ImageAllocation{Handle: image, Token: alloc}, nil
}

func (va *VulkanAllocator) ReleaseImage(alloc resources.ImageAllocation) {
	va.destroyImage(alloc.Handle)
	if token, ok := alloc.Token.(*DeviceAllocation); ok {
		va.free(token)
	}
}

func (va *VulkanAllocator) allocate(memReqs vk.MemoryRequirements, placement memoryPlacement) (*DeviceAllocation, error) {
	memoryType, ok := selectMemoryType(va.context.Device.Memory, memReqs.MemoryTypeBits, placement)
	if !ok {
		return nil, errors.Newf("no memory type for bits %b with properties %b", memReqs.MemoryTypeBits, placement.required)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	err := va.context.Locks.SafeCall(MemoryManagement, func() error {
		return resultError(vk.AllocateMemory(va.context.Device.LogicalDevice, &allocInfo, va.context.Allocator, &memory), "vkAllocateMemory")
	})
	if err != nil {
		return nil, err
	}
	return &DeviceAllocation{
		Memory:     memory,
		size:       uint64(memReqs.Size),
		MemoryType: memoryType,
		Coherent:   va.context.memoryTypeHas(memoryType, vk.MemoryPropertyHostCoherentBit),
	}, nil
}

// upload maps the allocation for its lifetime and copies data into it.
func (va *VulkanAllocator) upload(alloc *DeviceAllocation, size uint64, data []byte) error {
	device := va.context.Device.LogicalDevice
	return va.context.Locks.SafeCall(MemoryManagement, func() error {
		var ptr unsafe.Pointer
		if err := resultError(vk.MapMemory(device, alloc.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &ptr), "vkMapMemory"); err != nil {
			return err
		}
		alloc.mapped = unsafe.Slice((*byte)(ptr), size)
		copy(alloc.mapped, data)

		if alloc.Coherent {
			return nil
		}
		memRange := vk.MappedMemoryRange{
			SType:  vk.StructureTypeMappedMemoryRange,
			Memory: alloc.Memory,
			Offset: 0,
			Size:   vk.DeviceSize(vk.WholeSize),
		}
		return resultError(vk.FlushMappedMemoryRanges(device, 1, []vk.MappedMemoryRange{memRange}), "vkFlushMappedMemoryRanges")
	})
}

func (va *VulkanAllocator) free(alloc *DeviceAllocation) {
	if alloc == nil || alloc.Memory == vk.NullDeviceMemory {
		return
	}
	device := va.context.Device.LogicalDevice
	_ = va.context.Locks.SafeCall(MemoryManagement, func() error {
		if alloc.mapped != nil {
			vk.UnmapMemory(device, alloc.Memory)
			alloc.mapped = nil
		}
		vk.FreeMemory(device, alloc.Memory, va.context.Allocator)
		return nil
	})
	alloc.Memory = vk.NullDeviceMemory
}

func (va *VulkanAllocator) destroyBuffer(buffer vk.Buffer) {
	if buffer == vk.NullBuffer {
		return
	}
	_ = va.context.Locks.SafeCall(BufferManagement, func() error {
		vk.DestroyBuffer(va.context.Device.LogicalDevice, buffer, va.context.Allocator)
		return nil
	})
}

func (va *VulkanAllocator) destroyImage(image vk.Image) {
	if image == vk.NullImage {
		return
	}
	_ = va.context.Locks.SafeCall(ImageManagement, func() error {
		vk.DestroyImage(va.context.Device.LogicalDevice, image, va.context.Allocator)
		return nil
	})
}
