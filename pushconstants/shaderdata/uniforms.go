package shaderdata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexUniforms is the vertex shader uniform block at binding 0.
type VertexUniforms struct {
	Projection mgl32.Mat4
	Model      mgl32.Mat4
	LightPos   mgl32.Vec4
}

const VertexUniformsSize = int(unsafe.Sizeof(VertexUniforms{}))

const (
	fieldOfView = 60.0
	nearPlane   = 0.001
	farPlane    = 256.0
)

// SceneOffset lifts the scene so the orbiting lights sit above the floor.
var SceneOffset = mgl32.Vec3{0, 2, 0}

func NewVertexUniforms() VertexUniforms {
	return VertexUniforms{
		Projection: mgl32.Ident4(),
		Model:      mgl32.Ident4(),
		LightPos:   mgl32.Vec4{0, 0, -2, 1},
	}
}

// Update recomputes the projection for the surface size and stores model.
func (u *VertexUniforms) Update(width, height int, model mgl32.Mat4) {
	u.Projection = mgl32.Perspective(mgl32.DegToRad(fieldOfView), float32(width)/float32(height), nearPlane, farPlane)
	u.Model = model
}
