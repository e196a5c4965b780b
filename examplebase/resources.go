package examplebase

import (
	"bytes"
	"context"
	"encoding/binary"
	"path/filepath"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vulkanexamples/examplebase/meshloader"
)

// Buffer is a host visible buffer with its backing memory.
type Buffer struct {
	Buffer     core1_0.Buffer
	Memory     core1_0.DeviceMemory
	Descriptor core1_0.DescriptorBufferInfo
}

func (b *Base) DestroyBuffer(buffer *Buffer) {
	if buffer.Buffer.Initialized() {
		b.DeviceDriver.DestroyBuffer(buffer.Buffer, nil)
	}
	if buffer.Memory.Initialized() {
		b.DeviceDriver.FreeMemory(buffer.Memory, nil)
	}
	*buffer = Buffer{}
}

// CreateBuffer creates a host visible buffer of usage, sized to hold data,
// and fills it. data is anything encoding/binary can write; a nil data
// with size > 0 only allocates.
func (b *Base) CreateBuffer(usage core1_0.BufferUsageFlags, size int, data any) (*Buffer, error) {
	if data != nil {
		size = binary.Size(data)
		if size < 0 {
			return nil, errors.Newf("cannot size buffer data of type %T", data)
		}
	}
	if size <= 0 {
		return nil, errors.New("buffer size must be positive")
	}

	result := &Buffer{}

	var err error
	result.Buffer, _, err = b.DeviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	memReqs := b.DeviceDriver.GetBufferMemoryRequirements(result.Buffer)
	memoryIndex, err := b.MemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		b.DestroyBuffer(result)
		return nil, err
	}

	result.Memory, _, err = b.DeviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		b.DestroyBuffer(result)
		return nil, errors.Wrap(err, "allocate buffer memory")
	}

	if data != nil {
		if err := b.WriteData(result.Memory, 0, data); err != nil {
			b.DestroyBuffer(result)
			return nil, err
		}
	}

	if _, err := b.DeviceDriver.BindBufferMemory(result.Buffer, result.Memory, 0); err != nil {
		b.DestroyBuffer(result)
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	result.Descriptor = core1_0.DescriptorBufferInfo{
		Buffer: result.Buffer,
		Offset: 0,
		Range:  size,
	}
	return result, nil
}

// WriteData maps memory, copies the binary encoding of data at offset and
// unmaps again.
func (b *Base) WriteData(memory core1_0.DeviceMemory, offset int, data any) error {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return errors.Wrap(err, "encode buffer data")
	}

	memoryPtr, _, err := b.DeviceDriver.MapMemory(memory, offset, buf.Len(), 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer b.DeviceDriver.UnmapMemory(memory)

	copy(unsafe.Slice((*byte)(memoryPtr), buf.Len()), buf.Bytes())
	return nil
}

// MeshBuffer holds a mesh uploaded to vertex and index buffers.
type MeshBuffer struct {
	Vertices   *Buffer
	Indices    *Buffer
	IndexCount int
	Layout     meshloader.Layout
}

func (b *Base) DestroyMesh(mesh *MeshBuffer) {
	if mesh.Vertices != nil {
		b.DestroyBuffer(mesh.Vertices)
	}
	if mesh.Indices != nil {
		b.DestroyBuffer(mesh.Indices)
	}
}

// UploadMesh copies a decoded mesh into vertex and index buffers.
func (b *Base) UploadMesh(mesh *meshloader.Mesh) (*MeshBuffer, error) {
	if len(mesh.Indices) == 0 {
		return nil, errors.New("mesh has no indices")
	}

	vertices, err := b.CreateBuffer(core1_0.BufferUsageVertexBuffer, 0, mesh.Vertices)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}

	indices, err := b.CreateBuffer(core1_0.BufferUsageIndexBuffer, 0, mesh.Indices)
	if err != nil {
		b.DestroyBuffer(vertices)
		return nil, errors.Wrap(err, "index buffer")
	}

	return &MeshBuffer{
		Vertices:   vertices,
		Indices:    indices,
		IndexCount: len(mesh.Indices),
		Layout:     mesh.Layout,
	}, nil
}

// LoadMesh decodes the OBJ file at path, with the material library next to
// it sharing its base name, and uploads it.
func (b *Base) LoadMesh(ctx context.Context, path string, layout meshloader.Layout, scale float32) (*MeshBuffer, error) {
	objData, mtlData, err := ReadMeshFiles(ctx, path)
	if err != nil {
		return nil, err
	}

	mesh, err := meshloader.Decode(bytes.NewReader(objData), bytes.NewReader(mtlData), layout, scale)
	if err != nil {
		return nil, errors.Wrapf(err, "decode mesh %s", filepath.Base(path))
	}

	b.Logger.Debug("loaded mesh", "path", filepath.Base(path), "vertices", mesh.VertexCount(), "indices", len(mesh.Indices))
	return b.UploadMesh(mesh)
}

// MaterialPath is the .mtl file that accompanies an .obj file.
func MaterialPath(objPath string) string {
	return objPath[:len(objPath)-len(filepath.Ext(objPath))] + ".mtl"
}
