package main

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"github.com/vkngwrapper/vulkanexamples/examplebase"
	"github.com/vkngwrapper/vulkanexamples/examplebase/config"
	"github.com/vkngwrapper/vulkanexamples/examplebase/logging"
	"github.com/vkngwrapper/vulkanexamples/pushconstants/shaderdata"
	"go.uber.org/mock/gomock"
)

// newRecordingExample sets up an example with a single swapchain image whose
// draw command buffer is already allocated.
func newRecordingExample(t *testing.T) (*Example, *mocks1_0.MockCoreDeviceDriver, core1_0.CommandBuffer, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	driver := mocks1_0.NewMockCoreDeviceDriver(ctrl)
	device := mocks.NewDummyDevice(common.Vulkan1_0, nil)
	pool := mocks.NewDummyCommandPool(device)

	logs := &bytes.Buffer{}
	base := examplebase.New(config.Default(), logging.NewWithWriter(logs, "pushconstants", log.InfoLevel))
	base.DeviceDriver = driver
	base.CmdPool = pool
	base.RenderPass = mocks.NewDummyRenderPass(device)
	base.SwapChain = &examplebase.SwapChain{Buffers: []examplebase.SwapChainBuffer{{Image: mocks.NewDummyImage(device)}}}
	base.FrameBuffers = []core1_0.Framebuffer{mocks.NewDummyFramebuffer(device)}
	cmd := mocks.NewDummyCommandBuffer(pool, device)
	base.DrawCmdBuffers = []core1_0.CommandBuffer{cmd}

	e := NewExample(base)
	e.mesh = &examplebase.MeshBuffer{
		Vertices:   &examplebase.Buffer{Buffer: mocks.NewDummyBuffer(device)},
		Indices:    &examplebase.Buffer{Buffer: mocks.NewDummyBuffer(device)},
		IndexCount: 6,
	}
	e.pipelineLayout = mocks.NewDummyPipelineLayout(device)
	e.pipeline = mocks.NewDummyPipeline(device)
	e.descriptorSet = mocks.NewDummyDescriptorSet(mocks.NewDummyDescriptorPool(device), device)
	return e, driver, cmd, logs
}

// expectRecording expects one full recording of cmd that pushes lights.
func expectRecording(t *testing.T, e *Example, driver *mocks1_0.MockCoreDeviceDriver, cmd core1_0.CommandBuffer, lights shaderdata.Lights) {
	t.Helper()
	pushData, err := lights.Bytes()
	require.NoError(t, err)

	gomock.InOrder(
		driver.EXPECT().BeginCommandBuffer(cmd, gomock.Any()).Return(core1_0.VKSuccess, nil),
		driver.EXPECT().CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline, gomock.Any()).Return(nil),
		driver.EXPECT().CmdSetViewport(cmd, gomock.Any()),
		driver.EXPECT().CmdSetScissor(cmd, gomock.Any()),
		driver.EXPECT().CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0, []core1_0.DescriptorSet{e.descriptorSet}, gomock.Any()),
		driver.EXPECT().CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.pipeline),
		driver.EXPECT().CmdPushConstants(cmd, e.pipelineLayout, core1_0.StageVertex, 0, pushData),
		driver.EXPECT().CmdBindVertexBuffers(cmd, 0, gomock.Any(), gomock.Any()),
		driver.EXPECT().CmdBindIndexBuffer(cmd, e.mesh.Indices.Buffer, 0, core1_0.IndexTypeUInt32),
		driver.EXPECT().CmdDrawIndexed(cmd, 6, 1, gomock.Any(), 0, gomock.Any()),
		driver.EXPECT().CmdEndRenderPass(cmd),
		driver.EXPECT().CmdPipelineBarrier(cmd, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		driver.EXPECT().EndCommandBuffer(cmd).Return(core1_0.VKSuccess, nil),
	)
}

func TestNewExampleView(t *testing.T) {
	e := NewExample(examplebase.New(config.Default(), logging.NewWithWriter(&bytes.Buffer{}, "pushconstants", log.InfoLevel)))

	assert.Equal(t, float32(-30), e.Camera.Zoom)
	assert.Equal(t, float32(2.5), e.Camera.ZoomSpeed)
	assert.Equal(t, float32(0.5), e.Camera.RotationSpeed)
	assert.Equal(t, mgl32.Vec3{-32.5, 45, 0}, e.Camera.Rotation)
	assert.Equal(t, float32(0.125), e.Timer.Speed)
	assert.True(t, e.animateLights)
}

func TestRefreshPushesLightsForTimer(t *testing.T) {
	e, driver, cmd, _ := newRecordingExample(t)
	e.Timer.Value = 0.25

	expectRecording(t, e, driver, cmd, shaderdata.LightsAt(0.25))
	require.NoError(t, e.refreshCommandBuffers())
	assert.Equal(t, shaderdata.LightsAt(0.25), e.lights)
}

func TestAnimationToggleFreezesLights(t *testing.T) {
	e, driver, cmd, logs := newRecordingExample(t)
	e.Timer.Value = 0.25

	expectRecording(t, e, driver, cmd, shaderdata.LightsAt(0.25))
	require.NoError(t, e.refreshCommandBuffers())

	require.NoError(t, e.KeyPressed(sdl.K_a))
	assert.False(t, e.animateLights)
	assert.Contains(t, logs.String(), "enabled=false")

	// The timer keeps running while the lights stay put
	e.Timer.Advance(2)
	assert.InDelta(t, 0.5, e.Timer.Value, 1e-6)
	expectRecording(t, e, driver, cmd, shaderdata.LightsAt(0.25))
	require.NoError(t, e.refreshCommandBuffers())
	assert.Equal(t, shaderdata.LightsAt(0.25), e.lights)

	// Resuming jumps to the current time
	require.NoError(t, e.KeyPressed(sdl.K_a))
	assert.True(t, e.animateLights)
	expectRecording(t, e, driver, cmd, shaderdata.LightsAt(e.Timer.Value))
	require.NoError(t, e.refreshCommandBuffers())
	assert.Equal(t, shaderdata.LightsAt(e.Timer.Value), e.lights)
}

func TestKeyPressedIgnoresOtherKeys(t *testing.T) {
	e, _, _, logs := newRecordingExample(t)

	require.NoError(t, e.KeyPressed(sdl.K_b))
	assert.True(t, e.animateLights)
	assert.Empty(t, logs.String())
}

func TestPausedTimerSkipsRebuild(t *testing.T) {
	e, _, _, _ := newRecordingExample(t)
	e.Timer.Value = 0.25
	e.Timer.TogglePause()

	// Any driver call would fail the mock controller
	require.NoError(t, e.refreshCommandBuffers())
	assert.Equal(t, shaderdata.Lights{}, e.lights)

	e.Timer.Advance(1)
	assert.Equal(t, float32(0.25), e.Timer.Value)
}

func TestRefreshReallocatesOnImageCountChange(t *testing.T) {
	e, driver, old, _ := newRecordingExample(t)
	device := mocks.NewDummyDevice(common.Vulkan1_0, nil)
	e.SwapChain.Buffers = append(e.SwapChain.Buffers, examplebase.SwapChainBuffer{Image: mocks.NewDummyImage(device)})
	e.FrameBuffers = append(e.FrameBuffers, mocks.NewDummyFramebuffer(device))

	first := mocks.NewDummyCommandBuffer(e.CmdPool, device)
	second := mocks.NewDummyCommandBuffer(e.CmdPool, device)
	postPresent := mocks.NewDummyCommandBuffer(e.CmdPool, device)

	driver.EXPECT().FreeCommandBuffers(old)
	driver.EXPECT().AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        e.CmdPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 2,
	}).Return([]core1_0.CommandBuffer{first, second}, core1_0.VKSuccess, nil)
	driver.EXPECT().AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        e.CmdPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}).Return([]core1_0.CommandBuffer{postPresent}, core1_0.VKSuccess, nil)

	lights := shaderdata.LightsAt(e.Timer.Value)
	expectRecording(t, e, driver, first, lights)
	expectRecording(t, e, driver, second, lights)

	require.NoError(t, e.refreshCommandBuffers())
	assert.Equal(t, []core1_0.CommandBuffer{first, second}, e.DrawCmdBuffers)
}
