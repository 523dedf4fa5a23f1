package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/resources"
)

// createImage creates a 2D, single mip, optimal tiling image for req.
func createImage(context *VulkanContext, req resources.ImageRequest, out *vk.Image) error {
	imageInfo := vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	imageInfo.Extent.Width = req.Width
	imageInfo.Extent.Height = req.Height
	imageInfo.Extent.Depth = 1
	imageInfo.MipLevels = 1
	imageInfo.ArrayLayers = 1
	imageInfo.Format = req.Format
	imageInfo.Tiling = vk.ImageTilingOptimal
	imageInfo.InitialLayout = vk.ImageLayoutUndefined
	imageInfo.Usage = req.Usage
	imageInfo.Samples = vk.SampleCount1Bit
	imageInfo.SharingMode = vk.SharingModeExclusive

	return resultError(vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, out), "vkCreateImage")
}
