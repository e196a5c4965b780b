package examplebase

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"github.com/vkngwrapper/vulkanexamples/examplebase/meshloader"
	"go.uber.org/mock/gomock"
)

const quadObj = `mtllib quad.mtl
o quad
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 1 0
usemtl red
f 1/1/1 2/2/1 3/3/1 4/4/1
`

const quadMtl = `newmtl red
Kd 1 0 0
`

// hostMemory backs MapMemory with plain Go slices so uploads can be inspected.
type hostMemory struct {
	usages      []core1_0.BufferUsageFlags
	memoryTypes []int
	mapped      [][]byte
}

func expectHostBuffers(instanceDriver *mocks1_0.MockCoreInstanceDriver, deviceDriver *mocks1_0.MockCoreDeviceDriver, b *Base, count int) *hostMemory {
	device := mocks.NewDummyDevice(common.Vulkan1_0, nil)
	host := &hostMemory{}

	instanceDriver.EXPECT().GetPhysicalDeviceMemoryProperties(b.PhysicalDevice).Return(&core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
		},
	}).Times(count)

	deviceDriver.EXPECT().CreateBuffer(nil, gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, o core1_0.BufferCreateInfo) (core1_0.Buffer, common.VkResult, error) {
			host.usages = append(host.usages, o.Usage)
			return mocks.NewDummyBuffer(device), core1_0.VKSuccess, nil
		}).Times(count)
	deviceDriver.EXPECT().GetBufferMemoryRequirements(gomock.Any()).
		Return(&core1_0.MemoryRequirements{Size: 4096, Alignment: 16, MemoryTypeBits: 0b11}).Times(count)
	deviceDriver.EXPECT().AllocateMemory(nil, gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, o core1_0.MemoryAllocateInfo) (core1_0.DeviceMemory, common.VkResult, error) {
			host.memoryTypes = append(host.memoryTypes, o.MemoryTypeIndex)
			return mocks.NewDummyDeviceMemory(device, o.AllocationSize), core1_0.VKSuccess, nil
		}).Times(count)
	deviceDriver.EXPECT().MapMemory(gomock.Any(), 0, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ core1_0.DeviceMemory, _ int, size int, _ core1_0.MemoryMapFlags) (unsafe.Pointer, common.VkResult, error) {
			buf := make([]byte, size)
			host.mapped = append(host.mapped, buf)
			return unsafe.Pointer(&buf[0]), core1_0.VKSuccess, nil
		}).Times(count)
	deviceDriver.EXPECT().UnmapMemory(gomock.Any()).Times(count)
	deviceDriver.EXPECT().BindBufferMemory(gomock.Any(), gomock.Any(), 0).Return(core1_0.VKSuccess, nil).Times(count)

	return host
}

func TestLoadMesh(t *testing.T) {
	b, ctrl, instanceDriver := newMockInstanceBase(t)
	deviceDriver := mocks1_0.NewMockCoreDeviceDriver(ctrl)
	b.DeviceDriver = deviceDriver
	host := expectHostBuffers(instanceDriver, deviceDriver, b, 2)

	dir := t.TempDir()
	objPath := filepath.Join(dir, "quad.obj")
	require.NoError(t, os.WriteFile(objPath, []byte(quadObj), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.mtl"), []byte(quadMtl), 0o644))

	layout := meshloader.Layout{meshloader.Position, meshloader.Normal, meshloader.UV, meshloader.Color}
	mesh, err := b.LoadMesh(context.Background(), objPath, layout, 1)
	require.NoError(t, err)

	assert.Equal(t, 6, mesh.IndexCount)
	assert.Equal(t, layout, mesh.Layout)
	assert.Equal(t, []core1_0.BufferUsageFlags{core1_0.BufferUsageVertexBuffer, core1_0.BufferUsageIndexBuffer}, host.usages)
	assert.Equal(t, []int{1, 1}, host.memoryTypes, "host visible and coherent type")
	assert.Equal(t, 176, mesh.Vertices.Descriptor.Range)
	assert.Equal(t, 24, mesh.Indices.Descriptor.Range)

	require.Len(t, host.mapped, 2)
	indices := make([]uint32, 6)
	for i := range indices {
		indices[i] = common.ByteOrder.Uint32(host.mapped[1][i*4:])
	}
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)
}

func TestLoadMeshMissingMaterial(t *testing.T) {
	b, _, _ := newMockInstanceBase(t)

	objPath := filepath.Join(t.TempDir(), "quad.obj")
	require.NoError(t, os.WriteFile(objPath, []byte(quadObj), 0o644))

	_, err := b.LoadMesh(context.Background(), objPath, meshloader.Layout{meshloader.Position}, 1)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateBufferWritesData(t *testing.T) {
	b, ctrl, instanceDriver := newMockInstanceBase(t)
	deviceDriver := mocks1_0.NewMockCoreDeviceDriver(ctrl)
	b.DeviceDriver = deviceDriver
	host := expectHostBuffers(instanceDriver, deviceDriver, b, 1)

	data := [2]float32{1.5, -2}
	buffer, err := b.CreateBuffer(core1_0.BufferUsageUniformBuffer, 0, &data)
	require.NoError(t, err)

	assert.Equal(t, 8, buffer.Descriptor.Range)
	assert.Equal(t, buffer.Buffer, buffer.Descriptor.Buffer)
	require.Len(t, host.mapped, 1)

	var decoded [2]float32
	for i := range decoded {
		decoded[i] = math.Float32frombits(common.ByteOrder.Uint32(host.mapped[0][i*4:]))
	}
	assert.Equal(t, data, decoded)
}

func TestCreateBufferRejectsEmpty(t *testing.T) {
	b, _, _ := newMockInstanceBase(t)

	_, err := b.CreateBuffer(core1_0.BufferUsageUniformBuffer, 0, nil)
	require.Error(t, err)
}
