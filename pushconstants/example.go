package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vulkanexamples/examplebase"
	"github.com/vkngwrapper/vulkanexamples/examplebase/meshloader"
	"github.com/vkngwrapper/vulkanexamples/pushconstants/shaderdata"
)

const (
	title     = "Vulkan Example - Push constants"
	meshScale = 0.35
)

var vertexLayout = meshloader.Layout{
	meshloader.Position,
	meshloader.Normal,
	meshloader.UV,
	meshloader.Color,
}

// Example renders a scene lit by six orbiting lights whose positions are
// pushed to the vertex shader as push constants on every command buffer
// rebuild.
type Example struct {
	*examplebase.Base

	mesh *examplebase.MeshBuffer

	uniforms      shaderdata.VertexUniforms
	uniformBuffer *examplebase.Buffer
	lights        shaderdata.Lights
	animateLights bool

	descriptorSetLayout core1_0.DescriptorSetLayout
	pipelineLayout      core1_0.PipelineLayout
	descriptorSet       core1_0.DescriptorSet
	pipeline            core1_0.Pipeline
}

func NewExample(base *examplebase.Base) *Example {
	base.Camera.Zoom = -30
	base.Camera.ZoomSpeed = 2.5
	base.Camera.RotationSpeed = 0.5
	base.Camera.Rotation = mgl32.Vec3{-32.5, 45, 0}
	base.Timer.Speed = 0.125

	return &Example{
		Base:          base,
		uniforms:      shaderdata.NewVertexUniforms(),
		animateLights: true,
	}
}

func (e *Example) shaderPath(name string) string {
	return e.Settings.Asset("shaders", "pushconstants", name)
}

func (e *Example) meshPath() string {
	return e.Settings.Asset("models", "samplescene.obj")
}

// Prepare runs the base preparation, then builds everything the example
// draws with and records the command buffers.
func (e *Example) Prepare(ctx context.Context) error {
	if err := shaderdata.CheckPushConstantLimit(e.MaxPushConstantsSize); err != nil {
		return err
	}

	if err := e.Base.Prepare(); err != nil {
		return err
	}

	var err error
	e.mesh, err = e.LoadMesh(ctx, e.meshPath(), vertexLayout, meshScale)
	if err != nil {
		return err
	}

	if err := e.prepareUniformBuffers(); err != nil {
		return err
	}

	if err := e.setupDescriptorSetLayout(); err != nil {
		return err
	}

	if err := e.preparePipelines(); err != nil {
		return err
	}

	if err := e.setupDescriptorPool(); err != nil {
		return err
	}

	if err := e.setupDescriptorSet(); err != nil {
		return err
	}

	if err := e.buildCommandBuffers(); err != nil {
		return err
	}

	e.Prepared = true
	return nil
}

func (e *Example) vertexInputState() *core1_0.PipelineVertexInputStateCreateInfo {
	return &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions: []core1_0.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    vertexLayout.Stride(),
				InputRate: core1_0.VertexInputRateVertex,
			},
		},
		VertexAttributeDescriptions: []core1_0.VertexInputAttributeDescription{
			{
				Binding:  0,
				Location: 0,
				Format:   core1_0.FormatR32G32B32SignedFloat,
				Offset:   vertexLayout.Offset(meshloader.Position),
			},
			{
				Binding:  0,
				Location: 1,
				Format:   core1_0.FormatR32G32B32SignedFloat,
				Offset:   vertexLayout.Offset(meshloader.Normal),
			},
			{
				Binding:  0,
				Location: 2,
				Format:   core1_0.FormatR32G32SignedFloat,
				Offset:   vertexLayout.Offset(meshloader.UV),
			},
			{
				Binding:  0,
				Location: 3,
				Format:   core1_0.FormatR32G32B32SignedFloat,
				Offset:   vertexLayout.Offset(meshloader.Color),
			},
		},
	}
}

func (e *Example) prepareUniformBuffers() error {
	e.updateUniforms()

	var err error
	e.uniformBuffer, err = e.CreateBuffer(core1_0.BufferUsageUniformBuffer, 0, &e.uniforms)
	return errors.Wrap(err, "uniform buffer")
}

func (e *Example) updateUniforms() {
	e.uniforms.Update(e.Width, e.Height, e.Camera.ModelMatrix(shaderdata.SceneOffset))
}

func (e *Example) updateUniformBuffers() error {
	e.updateUniforms()
	return errors.Wrap(e.WriteData(e.uniformBuffer.Memory, 0, &e.uniforms), "update uniform buffer")
}

func (e *Example) setupDescriptorSetLayout() error {
	var err error
	e.descriptorSetLayout, _, err = e.DeviceDriver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageVertex,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}

	// The lights are the only push constant block, read by the vertex shader
	e.pipelineLayout, _, err = e.DeviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{e.descriptorSetLayout},
		PushConstantRanges: []core1_0.PushConstantRange{
			{
				StageFlags: core1_0.StageVertex,
				Offset:     0,
				Size:       shaderdata.LightsSize,
			},
		},
	})
	return errors.Wrap(err, "create pipeline layout")
}

func (e *Example) preparePipelines() error {
	vertStage, err := e.LoadShader(e.shaderPath("lights.vert.spv"), core1_0.StageVertex)
	if err != nil {
		return err
	}

	fragStage, err := e.LoadShader(e.shaderPath("lights.frag.spv"), core1_0.StageFragment)
	if err != nil {
		return err
	}

	pipelines, _, err := e.DeviceDriver.CreateGraphicsPipelines(&e.PipelineCache, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState: e.vertexInputState(),
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			// Viewport and scissor are dynamic; the values here only fix the count
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{{}},
				Scissors:  []core1_0.Rect2D{{}},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				PolygonMode: core1_0.PolygonModeFill,
				CullMode:    core1_0.CullModeBack,
				FrontFace:   core1_0.FrontFaceClockwise,
				LineWidth:   1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				RasterizationSamples: core1_0.Samples1,
			},
			DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
				DepthTestEnable:  true,
				DepthWriteEnable: true,
				DepthCompareOp:   core1_0.CompareOpLessOrEqual,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						BlendEnabled:   false,
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
				DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
			},
			Layout:            e.pipelineLayout,
			RenderPass:        e.RenderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	)
	if err != nil {
		return errors.Wrap(err, "create graphics pipeline")
	}
	e.pipeline = pipelines[0]

	return nil
}

func (e *Example) setupDescriptorPool() error {
	var err error
	e.DescriptorPool, _, err = e.DeviceDriver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: 1,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
			},
		},
	})
	return errors.Wrap(err, "create descriptor pool")
}

func (e *Example) setupDescriptorSet() error {
	sets, _, err := e.DeviceDriver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: e.DescriptorPool,
		SetLayouts:     []core1_0.DescriptorSetLayout{e.descriptorSetLayout},
	})
	if err != nil {
		return errors.Wrap(err, "allocate descriptor set")
	}
	e.descriptorSet = sets[0]

	err = e.DeviceDriver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          e.descriptorSet,
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:      []core1_0.DescriptorBufferInfo{e.uniformBuffer.Descriptor},
		},
	}, nil)
	return errors.Wrap(err, "update descriptor set")
}

// buildCommandBuffers records every draw command buffer with the light
// positions for the current timer value.
func (e *Example) buildCommandBuffers() error {
	if e.animateLights {
		e.lights = shaderdata.LightsAt(e.Timer.Value)
	}
	pushData, err := e.lights.Bytes()
	if err != nil {
		return errors.Wrap(err, "encode lights")
	}

	extent := core1_0.Extent2D{Width: e.Width, Height: e.Height}

	for i, cmd := range e.DrawCmdBuffers {
		if _, err := e.DeviceDriver.BeginCommandBuffer(cmd, core1_0.CommandBufferBeginInfo{}); err != nil {
			return errors.Wrapf(err, "begin draw command buffer %d", i)
		}

		err = e.DeviceDriver.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  e.RenderPass,
				Framebuffer: e.FrameBuffers[i],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: extent,
				},
				ClearValues: []core1_0.ClearValue{
					e.DefaultClearColor,
					core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
				},
			})
		if err != nil {
			return errors.Wrapf(err, "begin render pass %d", i)
		}

		e.DeviceDriver.CmdSetViewport(cmd, core1_0.Viewport{
			Width:    float32(e.Width),
			Height:   float32(e.Height),
			MinDepth: 0,
			MaxDepth: 1,
		})
		e.DeviceDriver.CmdSetScissor(cmd, core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: extent,
		})

		e.DeviceDriver.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0,
			[]core1_0.DescriptorSet{e.descriptorSet}, nil)
		e.DeviceDriver.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.pipeline)

		e.DeviceDriver.CmdPushConstants(cmd, e.pipelineLayout, core1_0.StageVertex, 0, pushData)

		e.DeviceDriver.CmdBindVertexBuffers(cmd, 0, []core1_0.Buffer{e.mesh.Vertices.Buffer}, []int{0})
		e.DeviceDriver.CmdBindIndexBuffer(cmd, e.mesh.Indices.Buffer, 0, core1_0.IndexTypeUInt32)
		e.DeviceDriver.CmdDrawIndexed(cmd, e.mesh.IndexCount, 1, 0, 0, 0)

		e.DeviceDriver.CmdEndRenderPass(cmd)

		if err := e.CmdPrePresentBarrier(cmd, e.SwapChain.Buffers[i].Image); err != nil {
			return err
		}

		if _, err := e.DeviceDriver.EndCommandBuffer(cmd); err != nil {
			return errors.Wrapf(err, "end draw command buffer %d", i)
		}
	}

	return nil
}

func (e *Example) Render() error {
	if !e.Prepared {
		return nil
	}

	if _, err := e.DeviceDriver.DeviceWaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	if err := e.Draw(); err != nil {
		return err
	}

	if _, err := e.DeviceDriver.DeviceWaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	return e.refreshCommandBuffers()
}

// refreshCommandBuffers re-records the draw buffers so the pushed light
// positions follow the timer. A paused timer keeps the last recording.
func (e *Example) refreshCommandBuffers() error {
	if e.Timer.Paused {
		return nil
	}

	if err := e.EnsureCommandBuffers(); err != nil {
		return err
	}
	return e.buildCommandBuffers()
}

func (e *Example) ViewChanged() error {
	return e.updateUniformBuffers()
}

// KeyPressed toggles light animation with A. The timer keeps running, so
// the lights jump to the current time when animation resumes.
func (e *Example) KeyPressed(key sdl.Keycode) error {
	if key != sdl.K_a {
		return nil
	}

	e.animateLights = !e.animateLights
	e.Logger.Info("light animation", "enabled", e.animateLights)
	return nil
}

// Destroy releases the example's objects, then the base.
func (e *Example) Destroy() {
	if e.DeviceDriver != nil {
		if _, err := e.DeviceDriver.DeviceWaitIdle(); err != nil {
			e.Logger.Error("wait for device idle", "err", err)
		}

		if e.pipeline.Initialized() {
			e.DeviceDriver.DestroyPipeline(e.pipeline, nil)
		}
		if e.pipelineLayout.Initialized() {
			e.DeviceDriver.DestroyPipelineLayout(e.pipelineLayout, nil)
		}
		if e.descriptorSetLayout.Initialized() {
			e.DeviceDriver.DestroyDescriptorSetLayout(e.descriptorSetLayout, nil)
		}
		if e.mesh != nil {
			e.DestroyMesh(e.mesh)
		}
		if e.uniformBuffer != nil {
			e.DestroyBuffer(e.uniformBuffer)
		}
	}

	e.Base.Destroy()
}
