// Package shaderdata holds the CPU-side mirrors of the data blocks read by the
// push constants shaders.
package shaderdata

import (
	"bytes"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
)

const LightCount = 6

// GuaranteedPushConstantsSize is the smallest maxPushConstantsSize a
// conforming device may report.
const GuaranteedPushConstantsSize = 128

// Lights is the push constant block: one position per light, w holds the
// light radius scale.
type Lights [LightCount]mgl32.Vec4

// LightsSize is the block size in bytes.
const LightsSize = int(unsafe.Sizeof(Lights{}))

const (
	orbitRadius = 7.5
	lightHeight = -4.0
)

// CheckPushConstantLimit fails when the block would not fit in the device's
// push constant budget.
func CheckPushConstantLimit(maxPushConstantsSize int) error {
	if LightsSize > maxPushConstantsSize {
		return errors.Newf("push constant block of %d bytes exceeds device limit of %d bytes", LightsSize, maxPushConstantsSize)
	}
	return nil
}

// LightsAt positions the lights for a normalized timer value; a full turn
// of every orbit takes the timer from 0 to 1.
func LightsAt(timer float32) Lights {
	angle := float64(timer) * 2 * math.Pi
	sin := float32(math.Sin(angle))
	cos := float32(math.Cos(angle))

	const r = orbitRadius
	const y = lightHeight

	return Lights{
		{r * 1.1 * sin, y, r * 1.1 * cos, 1.0},
		{-r * sin, y, -r * cos, 1.0},
		{r * 0.85 * sin, y, -sin * 2.5, 1.5},
		{0.0, y, r * 1.25 * cos, 1.5},
		{r * 2.25 * cos, y, 0.0, 1.25},
		{r * 2.5 * cos, y, r * 2.5 * sin, 1.25},
	}
}

// Bytes serializes the block in the layout CmdPushConstants expects.
func (l *Lights) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, LightsSize))
	if err := binary.Write(buf, common.ByteOrder, l); err != nil {
		return nil, errors.Wrap(err, "encode push constants")
	}
	return buf.Bytes(), nil
}
