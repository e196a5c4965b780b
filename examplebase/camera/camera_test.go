package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestMoveWithoutButtons(t *testing.T) {
	v := NewView()
	v.Press(ButtonLeft, 10, 10)
	v.Release(ButtonLeft)

	assert.False(t, v.Move(50, 80))
	assert.Equal(t, mgl32.Vec3{}, v.Rotation)
	assert.Equal(t, float32(0), v.Zoom)
}

func TestLeftDragRotates(t *testing.T) {
	v := NewView()
	v.RotationSpeed = 0.5
	v.Press(ButtonLeft, 100, 100)

	assert.True(t, v.Move(110, 90))
	// dy = 100-90 = 10, dx = 100-110 = -10
	assert.InDelta(t, 10*1.25*0.5, v.Rotation[0], 1e-5)
	assert.InDelta(t, 10*1.25*0.5, v.Rotation[1], 1e-5)
	assert.Equal(t, float32(0), v.Rotation[2])
}

func TestRightDragZooms(t *testing.T) {
	v := NewView()
	v.Zoom = -30
	v.ZoomSpeed = 2.5
	v.Press(ButtonRight, 0, 200)

	assert.True(t, v.Move(0, 100))
	assert.InDelta(t, -30+100*0.005*2.5, v.Zoom, 1e-5)
	assert.Equal(t, mgl32.Vec3{}, v.Rotation)
}

func TestWheel(t *testing.T) {
	v := NewView()
	assert.False(t, v.Wheel(0))
	assert.True(t, v.Wheel(120))
	assert.InDelta(t, 0.6, v.Zoom, 1e-5)
}

func TestModelMatrixTranslation(t *testing.T) {
	v := NewView()
	v.Zoom = -30
	m := v.ModelMatrix(mgl32.Vec3{0, 2, 0})

	assert.InDelta(t, 0, m.At(0, 3), 1e-5)
	assert.InDelta(t, 2, m.At(1, 3), 1e-5)
	assert.InDelta(t, -30, m.At(2, 3), 1e-5)
	assert.True(t, m.Mat3().ApproxEqual(mgl32.Ident3()))
}

func TestModelMatrixRotation(t *testing.T) {
	v := NewView()
	v.Rotation = mgl32.Vec3{0, 90, 0}
	m := v.ModelMatrix(mgl32.Vec3{})

	x := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0, x.X(), 1e-5)
	assert.InDelta(t, -1, x.Z(), 1e-5)
}
