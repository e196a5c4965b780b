package examplebase

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// CheckCommandBuffers reports whether there is exactly one draw command
// buffer per swapchain image.
func (b *Base) CheckCommandBuffers() bool {
	if b.SwapChain == nil || len(b.DrawCmdBuffers) != b.SwapChain.ImageCount() {
		return false
	}

	for _, buffer := range b.DrawCmdBuffers {
		if !buffer.Initialized() {
			return false
		}
	}
	return true
}

// CreateCommandBuffers allocates one draw command buffer per swapchain image
// plus the post present buffer.
func (b *Base) CreateCommandBuffers() error {
	buffers, _, err := b.DeviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        b.CmdPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: b.SwapChain.ImageCount(),
	})
	if err != nil {
		return errors.Wrap(err, "allocate draw command buffers")
	}
	b.DrawCmdBuffers = buffers

	if !b.postPresentCmdBuffer.Initialized() {
		buffers, _, err = b.DeviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
			CommandPool:        b.CmdPool,
			Level:              core1_0.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		})
		if err != nil {
			return errors.Wrap(err, "allocate post present command buffer")
		}
		b.postPresentCmdBuffer = buffers[0]
	}

	return nil
}

func (b *Base) DestroyCommandBuffers() {
	if len(b.DrawCmdBuffers) > 0 {
		b.DeviceDriver.FreeCommandBuffers(b.DrawCmdBuffers...)
	}
	b.DrawCmdBuffers = nil
}

// EnsureCommandBuffers reallocates the draw command buffers only if their
// count no longer matches the swapchain.
func (b *Base) EnsureCommandBuffers() error {
	if b.CheckCommandBuffers() {
		return nil
	}

	b.DestroyCommandBuffers()
	return b.CreateCommandBuffers()
}

// CmdPrePresentBarrier records the transition that hands a rendered image
// over to the presentation engine. It is the last command of a draw buffer.
func (b *Base) CmdPrePresentBarrier(cmd core1_0.CommandBuffer, image core1_0.Image) error {
	err := b.DeviceDriver.CmdPipelineBarrier(cmd, core1_0.PipelineStageAllCommands, core1_0.PipelineStageTopOfPipe, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		presentBarrier(image,
			core1_0.AccessColorAttachmentWrite, core1_0.AccessMemoryRead,
			core1_0.ImageLayoutColorAttachmentOptimal, khr_swapchain.ImageLayoutPresentSrc),
	})
	return errors.Wrap(err, "record pre present barrier")
}

// SubmitPostPresentBarrier moves a presented image back to color attachment
// layout so the next frame's render pass can use it.
func (b *Base) SubmitPostPresentBarrier(imageIndex int) error {
	if imageIndex < 0 || imageIndex >= b.SwapChain.ImageCount() {
		return errors.Newf("swapchain image %d out of range", imageIndex)
	}
	cmd := b.postPresentCmdBuffer

	if _, err := b.DeviceDriver.BeginCommandBuffer(cmd, core1_0.CommandBufferBeginInfo{}); err != nil {
		return errors.Wrap(err, "begin post present command buffer")
	}

	err := b.DeviceDriver.CmdPipelineBarrier(cmd, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTopOfPipe, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		presentBarrier(b.SwapChain.Buffers[imageIndex].Image,
			0, core1_0.AccessColorAttachmentWrite,
			khr_swapchain.ImageLayoutPresentSrc, core1_0.ImageLayoutColorAttachmentOptimal),
	})
	if err != nil {
		return errors.Wrap(err, "record post present barrier")
	}

	if _, err := b.DeviceDriver.EndCommandBuffer(cmd); err != nil {
		return errors.Wrap(err, "end post present command buffer")
	}

	_, err = b.DeviceDriver.QueueSubmit(b.Queue, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{cmd},
	})
	return errors.Wrap(err, "submit post present barrier")
}

func presentBarrier(image core1_0.Image, srcAccess, dstAccess core1_0.AccessFlags, oldLayout, newLayout core1_0.ImageLayout) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

// The methods below make Base the frame.Presenter driven by Draw.

func (b *Base) AcquireNextImage() (int, error) {
	if b.presentComplete.Initialized() {
		b.DeviceDriver.DestroySemaphore(b.presentComplete, nil)
		b.presentComplete = core1_0.Semaphore{}
	}

	var err error
	b.presentComplete, _, err = b.DeviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return 0, errors.Wrap(err, "create present complete semaphore")
	}

	return b.SwapChain.AcquireNextImage(b.presentComplete)
}

func (b *Base) WaitIdle() error {
	_, err := b.DeviceDriver.QueueWaitIdle(b.Queue)
	return errors.Wrap(err, "wait for queue idle")
}

func (b *Base) CommandBufferReady(imageIndex int) bool {
	return imageIndex >= 0 && imageIndex < len(b.DrawCmdBuffers) && b.DrawCmdBuffers[imageIndex].Initialized()
}

func (b *Base) Submit(imageIndex int) error {
	_, err := b.DeviceDriver.QueueSubmit(b.Queue, nil, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{b.presentComplete},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{b.DrawCmdBuffers[imageIndex]},
	})
	return errors.Wrapf(err, "submit draw command buffer %d", imageIndex)
}

// Present queues the image and, once the queue drained, releases the
// semaphore the acquire signaled.
func (b *Base) Present(imageIndex int) error {
	if err := b.SwapChain.QueuePresent(b.Queue, imageIndex); err != nil {
		return err
	}

	if _, err := b.DeviceDriver.QueueWaitIdle(b.Queue); err != nil {
		return errors.Wrap(err, "wait for present")
	}
	b.DeviceDriver.DestroySemaphore(b.presentComplete, nil)
	b.presentComplete = core1_0.Semaphore{}
	return nil
}
