// Package frame drives the per-frame acquire/submit/present sequence. Every
// step is followed by a full queue stall rather than per-frame fences, so at
// most one frame is ever in flight.
package frame

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type State int

const (
	Idle State = iota
	ImageAcquired
	Recorded
	Submitted
	Presented
)

var stateNames = map[State]string{
	Idle:          "Idle",
	ImageAcquired: "ImageAcquired",
	Recorded:      "Recorded",
	Submitted:     "Submitted",
	Presented:     "Presented",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return name
}

// next is the only legal successor of each state.
var next = map[State]State{
	Idle:          ImageAcquired,
	ImageAcquired: Recorded,
	Recorded:      Submitted,
	Submitted:     Presented,
	Presented:     Idle,
}

var ErrIllegalTransition = errors.New("illegal frame state transition")

// Presenter performs the GPU side of a frame.
type Presenter interface {
	// AcquireNextImage blocks until a presentable image is available and
	// returns its index.
	AcquireNextImage() (int, error)
	// WaitIdle blocks until the graphics queue has drained.
	WaitIdle() error
	// CommandBufferReady reports whether the draw command buffer for the image
	// has been recorded.
	CommandBufferReady(imageIndex int) bool
	Submit(imageIndex int) error
	Present(imageIndex int) error
	// SubmitPostPresentBarrier hands the image back to the color attachment
	// layout after presentation.
	SubmitPostPresentBarrier(imageIndex int) error
}

type Cycle struct {
	state  State
	frames uint64
}

func (c *Cycle) State() State {
	return c.state
}

// Frames counts completed frames.
func (c *Cycle) Frames() uint64 {
	return c.frames
}

func (c *Cycle) transition(to State) error {
	if next[c.state] != to {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", c.state, to)
	}
	c.state = to
	return nil
}

func (c *Cycle) fail(err error, phase string) error {
	c.state = Idle
	return errors.Wrapf(err, "frame %d: %s", c.frames, phase)
}

// Run executes one complete frame and leaves the cycle Idle again. Any failure
// aborts the frame.
func (c *Cycle) Run(p Presenter) error {
	if c.state != Idle {
		return errors.Wrapf(ErrIllegalTransition, "frame started in state %s", c.state)
	}

	index, err := p.AcquireNextImage()
	if err != nil {
		return c.fail(err, "acquire next image")
	}
	if err = c.transition(ImageAcquired); err != nil {
		return c.fail(err, "acquire next image")
	}

	if err = p.WaitIdle(); err != nil {
		return c.fail(err, "wait idle before submit")
	}

	if !p.CommandBufferReady(index) {
		return c.fail(errors.Newf("no command buffer recorded for image %d", index), "record")
	}
	if err = c.transition(Recorded); err != nil {
		return c.fail(err, "record")
	}

	if err = p.Submit(index); err != nil {
		return c.fail(err, "submit")
	}
	if err = c.transition(Submitted); err != nil {
		return c.fail(err, "submit")
	}

	if err = p.Present(index); err != nil {
		return c.fail(err, "present")
	}
	if err = c.transition(Presented); err != nil {
		return c.fail(err, "present")
	}

	if err = p.SubmitPostPresentBarrier(index); err != nil {
		return c.fail(err, "post present barrier")
	}
	if err = p.WaitIdle(); err != nil {
		return c.fail(err, "wait idle after present")
	}

	if err = c.transition(Idle); err != nil {
		return c.fail(err, "finish")
	}
	c.frames++
	return nil
}
