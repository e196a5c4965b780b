// Package camera tracks the orbit-style view the examples are rendered from and
// turns mouse input into rotation and zoom.
package camera

import "github.com/go-gl/mathgl/mgl32"

type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
)

type View struct {
	Zoom     float32
	Rotation mgl32.Vec3 // degrees around x, y, z

	RotationSpeed float32
	ZoomSpeed     float32

	mouseX, mouseY float32
	left, right    bool
}

func NewView() *View {
	return &View{
		RotationSpeed: 1.0,
		ZoomSpeed:     1.0,
	}
}

func (v *View) Press(button MouseButton, x, y float32) {
	v.mouseX, v.mouseY = x, y
	switch button {
	case ButtonLeft:
		v.left = true
	case ButtonRight:
		v.right = true
	}
}

func (v *View) Release(button MouseButton) {
	switch button {
	case ButtonLeft:
		v.left = false
	case ButtonRight:
		v.right = false
	}
}

// Move reports whether the pointer motion rotated or zoomed the view.
func (v *View) Move(x, y float32) bool {
	dx := v.mouseX - x
	dy := v.mouseY - y
	v.mouseX, v.mouseY = x, y

	changed := false
	if v.left {
		v.Rotation[0] += dy * 1.25 * v.RotationSpeed
		v.Rotation[1] -= dx * 1.25 * v.RotationSpeed
		changed = true
	}
	if v.right {
		v.Zoom += dy * .005 * v.ZoomSpeed
		changed = true
	}

	return changed
}

// Wheel zooms by the scroll delta. It reports whether anything changed.
func (v *View) Wheel(delta float32) bool {
	if delta == 0 {
		return false
	}
	v.Zoom += delta * 0.005 * v.ZoomSpeed
	return true
}

// ModelMatrix applies the zoom translation, the fixed vertical offset and the
// accumulated rotation, in that order.
func (v *View) ModelMatrix(offset mgl32.Vec3) mgl32.Mat4 {
	view := mgl32.Translate3D(offset.X(), offset.Y(), v.Zoom)

	model := view.Mul4(mgl32.Ident4())
	model = model.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(v.Rotation[0])))
	model = model.Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(v.Rotation[1])))
	model = model.Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(v.Rotation[2])))
	return model
}
