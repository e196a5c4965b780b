// Package meshloader turns Wavefront OBJ scenes into interleaved vertex data
// matching a caller-chosen vertex layout.
package meshloader

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
)

type Component int

const (
	Position Component = iota
	Normal
	UV
	Color
)

func (c Component) floats() int {
	switch c {
	case UV:
		return 2
	default:
		return 3
	}
}

// Layout is the ordered list of components making up one vertex.
type Layout []Component

// Floats is the number of float32 values per vertex.
func (l Layout) Floats() int {
	n := 0
	for _, c := range l {
		n += c.floats()
	}
	return n
}

// Stride is the vertex size in bytes.
func (l Layout) Stride() int {
	return l.Floats() * 4
}

// Offset returns the byte offset of the component within a vertex, or -1 if
// the layout does not contain it.
func (l Layout) Offset(component Component) int {
	offset := 0
	for _, c := range l {
		if c == component {
			return offset
		}
		offset += c.floats() * 4
	}
	return -1
}

type Mesh struct {
	Layout   Layout
	Vertices []float32
	Indices  []uint32
}

func (m *Mesh) VertexCount() int {
	floats := m.Layout.Floats()
	if floats == 0 {
		return 0
	}
	return len(m.Vertices) / floats
}

type vertexKey struct {
	position, normal, uv int
	material             string
}

type builder struct {
	decoder *obj.Decoder
	layout  Layout
	scale   float32
	mesh    *Mesh
	unique  map[vertexKey]uint32
}

func index(list []int, i int) int {
	if i < len(list) {
		return list[i]
	}
	return -1
}

func (b *builder) triple(data []float32, idx int) (float32, float32, float32) {
	if idx < 0 || idx*3+2 >= len(data) {
		return 0, 0, 0
	}
	return data[idx*3], data[idx*3+1], data[idx*3+2]
}

func (b *builder) addVertex(face *obj.Face, corner int) error {
	key := vertexKey{
		position: index(face.Vertices, corner),
		normal:   index(face.Normals, corner),
		uv:       index(face.Uvs, corner),
		material: face.Material,
	}
	if key.position < 0 || key.position*3+2 >= len(b.decoder.Vertices) {
		return errors.Newf("face references missing vertex %d", key.position)
	}

	if existing, ok := b.unique[key]; ok {
		b.mesh.Indices = append(b.mesh.Indices, existing)
		return nil
	}

	for _, component := range b.layout {
		switch component {
		case Position:
			x, y, z := b.triple(b.decoder.Vertices, key.position)
			b.mesh.Vertices = append(b.mesh.Vertices, x*b.scale, y*b.scale, z*b.scale)
		case Normal:
			x, y, z := b.triple(b.decoder.Normals, key.normal)
			b.mesh.Vertices = append(b.mesh.Vertices, x, y, z)
		case UV:
			var u, v float32
			if key.uv >= 0 && key.uv*2+1 < len(b.decoder.Uvs) {
				u = b.decoder.Uvs[key.uv*2]
				v = b.decoder.Uvs[key.uv*2+1]
			}
			b.mesh.Vertices = append(b.mesh.Vertices, u, v)
		case Color:
			r, g, bl := float32(1), float32(1), float32(1)
			if material, ok := b.decoder.Materials[face.Material]; ok && material != nil {
				r, g, bl = material.Diffuse.R, material.Diffuse.G, material.Diffuse.B
			}
			b.mesh.Vertices = append(b.mesh.Vertices, r, g, bl)
		}
	}

	vertexIndex := uint32(len(b.unique))
	b.unique[key] = vertexIndex
	b.mesh.Indices = append(b.mesh.Indices, vertexIndex)
	return nil
}

// Decode reads an OBJ scene and its material library. Polygon faces are
// triangulated as fans and positions are multiplied by scale.
func Decode(objReader, mtlReader io.Reader, layout Layout, scale float32) (*Mesh, error) {
	if len(layout) == 0 {
		return nil, errors.New("empty vertex layout")
	}

	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	b := &builder{
		decoder: decoder,
		layout:  layout,
		scale:   scale,
		mesh:    &Mesh{Layout: layout},
		unique:  make(map[vertexKey]uint32),
	}

	for objIndex := range decoder.Objects {
		faces := decoder.Objects[objIndex].Faces
		for faceIndex := range faces {
			face := &faces[faceIndex]
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					if err := b.addVertex(face, corner); err != nil {
						return nil, errors.Wrapf(err, "object %q", decoder.Objects[objIndex].Name)
					}
				}
			}
		}
	}

	if len(b.mesh.Indices) == 0 {
		return nil, errors.New("mesh contains no triangles")
	}

	return b.mesh, nil
}
