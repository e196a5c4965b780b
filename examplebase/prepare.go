package examplebase

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/vulkanexamples/examplebase/pipelinecache"
)

// InitSwapchain binds the swapchain wrapper to the device created by
// InitVulkan. The swapchain itself is built by Prepare.
func (b *Base) InitSwapchain() error {
	if b.SwapChain == nil || b.DeviceDriver == nil {
		return errors.New("InitSwapchain called before InitVulkan")
	}

	b.Logger.Debug("swapchain surface", "format", b.SwapChain.ColorFormat, "colorSpace", b.SwapChain.ColorSpace, "queueFamily", b.SwapChain.QueueNodeIndex)
	return nil
}

// Prepare builds everything the examples render with: the command pool and
// buffers, the swapchain, the depth stencil target, the render pass, the
// pipeline cache and the framebuffers.
func (b *Base) Prepare() error {
	var err error
	b.CmdPool, _, err = b.DeviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: b.QueueFamilyIndex,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	})
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}

	if err := b.createSetupCommandBuffer(); err != nil {
		return err
	}

	if err := b.setupSwapChain(); err != nil {
		return err
	}

	if err := b.CreateCommandBuffers(); err != nil {
		return err
	}

	if err := b.setupDepthStencil(); err != nil {
		return err
	}

	if err := b.setupRenderPass(); err != nil {
		return err
	}

	if err := b.createPipelineCache(); err != nil {
		return err
	}

	if err := b.setupFrameBuffers(); err != nil {
		return err
	}

	if err := b.flushSetupCommandBuffer(); err != nil {
		return err
	}

	// Recreated here so later one-shot work from the example has a buffer to record into
	return b.createSetupCommandBuffer()
}

func (b *Base) createSetupCommandBuffer() error {
	if b.setupCmdBuffer.Initialized() {
		b.DeviceDriver.FreeCommandBuffers(b.setupCmdBuffer)
		b.setupCmdBuffer = core1_0.CommandBuffer{}
	}

	buffers, _, err := b.DeviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        b.CmdPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocate setup command buffer")
	}
	b.setupCmdBuffer = buffers[0]

	_, err = b.DeviceDriver.BeginCommandBuffer(b.setupCmdBuffer, core1_0.CommandBufferBeginInfo{})
	return errors.Wrap(err, "begin setup command buffer")
}

// flushSetupCommandBuffer submits the recorded setup work, waits for it and
// frees the buffer.
func (b *Base) flushSetupCommandBuffer() error {
	if !b.setupCmdBuffer.Initialized() {
		return nil
	}

	if _, err := b.DeviceDriver.EndCommandBuffer(b.setupCmdBuffer); err != nil {
		return errors.Wrap(err, "end setup command buffer")
	}

	_, err := b.DeviceDriver.QueueSubmit(b.Queue, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{b.setupCmdBuffer},
	})
	if err != nil {
		return errors.Wrap(err, "submit setup command buffer")
	}

	if _, err := b.DeviceDriver.QueueWaitIdle(b.Queue); err != nil {
		return errors.Wrap(err, "wait for setup command buffer")
	}

	b.DeviceDriver.FreeCommandBuffers(b.setupCmdBuffer)
	b.setupCmdBuffer = core1_0.CommandBuffer{}
	return nil
}

func (b *Base) setupSwapChain() error {
	if err := b.SwapChain.Create(b.DeviceDriver, b.Width, b.Height); err != nil {
		return err
	}
	b.Width, b.Height = b.SwapChain.Extent.Width, b.SwapChain.Extent.Height

	// The render pass expects color attachment layout at the start of every frame
	for _, buffer := range b.SwapChain.Buffers {
		err := b.setImageLayout(b.setupCmdBuffer, buffer.Image, core1_0.ImageAspectColor,
			core1_0.ImageLayoutUndefined, core1_0.ImageLayoutColorAttachmentOptimal)
		if err != nil {
			return err
		}
	}

	return nil
}

// setImageLayout records a layout transition with access masks derived from
// the old and new layouts.
func (b *Base) setImageLayout(cmd core1_0.CommandBuffer, image core1_0.Image, aspect core1_0.ImageAspectFlags, oldLayout, newLayout core1_0.ImageLayout) error {
	var srcAccess, dstAccess core1_0.AccessFlags

	switch oldLayout {
	case core1_0.ImageLayoutColorAttachmentOptimal:
		srcAccess = core1_0.AccessColorAttachmentWrite
	case core1_0.ImageLayoutTransferDstOptimal:
		srcAccess = core1_0.AccessTransferWrite
	case core1_0.ImageLayoutPreInitialized:
		srcAccess = core1_0.AccessHostWrite
	}

	switch newLayout {
	case core1_0.ImageLayoutColorAttachmentOptimal:
		dstAccess = core1_0.AccessColorAttachmentWrite
	case core1_0.ImageLayoutDepthStencilAttachmentOptimal:
		dstAccess = core1_0.AccessDepthStencilAttachmentWrite
	case core1_0.ImageLayoutTransferDstOptimal:
		dstAccess = core1_0.AccessTransferWrite
	case core1_0.ImageLayoutShaderReadOnlyOptimal:
		dstAccess = core1_0.AccessShaderRead
	case khr_swapchain.ImageLayoutPresentSrc:
		dstAccess = core1_0.AccessMemoryRead
	}

	err := b.DeviceDriver.CmdPipelineBarrier(cmd, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTopOfPipe, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			SrcAccessMask:       srcAccess,
			DstAccessMask:       dstAccess,
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     aspect,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		},
	})
	return errors.Wrapf(err, "transition image layout %s -> %s", oldLayout, newLayout)
}

func (b *Base) setupDepthStencil() error {
	var err error
	b.DepthStencil.Image, _, err = b.DeviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Format:    b.DepthFormat,
		Extent: core1_0.Extent3D{
			Width:  b.Width,
			Height: b.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       core1_0.Samples1,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageDepthStencilAttachment | core1_0.ImageUsageTransferSrc,
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	})
	if err != nil {
		return errors.Wrap(err, "create depth stencil image")
	}

	memReqs := b.DeviceDriver.GetImageMemoryRequirements(b.DepthStencil.Image)
	memoryIndex, err := b.MemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return err
	}

	b.DepthStencil.Mem, _, err = b.DeviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		return errors.Wrap(err, "allocate depth stencil memory")
	}

	if _, err := b.DeviceDriver.BindImageMemory(b.DepthStencil.Image, b.DepthStencil.Mem, 0); err != nil {
		return errors.Wrap(err, "bind depth stencil memory")
	}

	aspect := core1_0.ImageAspectDepth
	if hasStencilComponent(b.DepthFormat) {
		aspect |= core1_0.ImageAspectStencil
	}

	err = b.setImageLayout(b.setupCmdBuffer, b.DepthStencil.Image, aspect,
		core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
	if err != nil {
		return err
	}

	b.DepthStencil.View, _, err = b.DeviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    b.DepthStencil.Image,
		ViewType: core1_0.ImageViewType2D,
		Format:   b.DepthFormat,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return errors.Wrap(err, "create depth stencil view")
}

func hasStencilComponent(format core1_0.Format) bool {
	switch format {
	case core1_0.FormatD32SignedFloatS8UnsignedInt,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		core1_0.FormatD16UnsignedNormalizedS8UnsignedInt:
		return true
	}
	return false
}

func (b *Base) setupRenderPass() error {
	var err error
	b.RenderPass, _, err = b.DeviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         b.SwapChain.ColorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			{
				Format:         b.DepthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
	})
	return errors.Wrap(err, "create render pass")
}

func (b *Base) setupFrameBuffers() error {
	b.FrameBuffers = make([]core1_0.Framebuffer, 0, b.SwapChain.ImageCount())
	for i, buffer := range b.SwapChain.Buffers {
		framebuffer, _, err := b.DeviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: b.RenderPass,
			Attachments: []core1_0.ImageView{
				buffer.View,
				b.DepthStencil.View,
			},
			Width:  b.Width,
			Height: b.Height,
			Layers: 1,
		})
		if err != nil {
			return errors.Wrapf(err, "create framebuffer %d", i)
		}

		b.FrameBuffers = append(b.FrameBuffers, framebuffer)
	}

	return nil
}

// createPipelineCache seeds the cache from disk when a cache file is
// configured and matches this device. A missing or stale file only costs
// pipeline compile time, so it is logged rather than returned.
func (b *Base) createPipelineCache() error {
	var initialData []byte
	if b.Settings.PipelineCache != "" {
		data, err := pipelinecache.Load(b.Settings.PipelineCache, b.DeviceIdentity)
		if err != nil {
			b.Logger.Warn("ignoring pipeline cache", "path", b.Settings.PipelineCache, "err", err)
		} else if data != nil {
			b.Logger.Debug("loaded pipeline cache", "path", b.Settings.PipelineCache, "bytes", len(data))
			initialData = data
		}
	}

	var err error
	b.PipelineCache, _, err = b.DeviceDriver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	return errors.Wrap(err, "create pipeline cache")
}

func (b *Base) savePipelineCache() {
	if b.Settings.PipelineCache == "" {
		return
	}

	data, _, err := b.DeviceDriver.GetPipelineCacheData(b.PipelineCache)
	if err != nil {
		b.Logger.Warn("read pipeline cache", "err", err)
		return
	}

	if err := pipelinecache.Save(b.Settings.PipelineCache, data); err != nil {
		b.Logger.Warn("save pipeline cache", "path", b.Settings.PipelineCache, "err", err)
		return
	}
	b.Logger.Debug("saved pipeline cache", "path", b.Settings.PipelineCache, "bytes", len(data))
}
