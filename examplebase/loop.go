package examplebase

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/vulkanexamples/examplebase/camera"
	"github.com/vkngwrapper/vulkanexamples/examplebase/timer"
)

// RenderLoop polls window events and renders until the window is closed or
// Esc is pressed.
func (b *Base) RenderLoop(example Example) error {
	var stopwatch timer.Stopwatch

	for !b.quit {
		stopwatch.Start()

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			if err := b.HandleEvent(event, example); err != nil {
				return err
			}
		}
		if b.quit {
			break
		}

		if err := example.Render(); err != nil {
			return err
		}

		b.Timer.Advance(stopwatch.Lap())
	}
	b.Logger.Debug("render loop finished", "frames", b.cycle.Frames())

	_, err := b.DeviceDriver.DeviceWaitIdle()
	return errors.Wrap(err, "wait for device idle")
}

// HandleEvent applies one window event to the base state. Camera changes
// are forwarded to example.ViewChanged.
func (b *Base) HandleEvent(event sdl.Event, example Example) error {
	viewChanged := false

	switch e := event.(type) {
	case *sdl.QuitEvent:
		b.quit = true

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN {
			return nil
		}

		switch e.Keysym.Sym {
		case sdl.K_ESCAPE:
			b.quit = true
		case sdl.K_p:
			b.Timer.TogglePause()
			b.Logger.Info("animation", "paused", b.Timer.Paused)
		default:
			if handler, ok := example.(KeyHandler); ok {
				return handler.KeyPressed(e.Keysym.Sym)
			}
		}

	case *sdl.MouseButtonEvent:
		button, ok := mouseButton(e.Button)
		if !ok {
			return nil
		}

		if e.Type == sdl.MOUSEBUTTONDOWN {
			b.Camera.Press(button, float32(e.X), float32(e.Y))
		} else {
			b.Camera.Release(button)
		}

	case *sdl.MouseMotionEvent:
		viewChanged = b.Camera.Move(float32(e.X), float32(e.Y))

	case *sdl.MouseWheelEvent:
		// One wheel notch matches the 120 unit delta of a Win32 wheel message
		viewChanged = b.Camera.Wheel(float32(e.Y) * 120)
	}

	if viewChanged {
		return errors.Wrap(example.ViewChanged(), "update view")
	}
	return nil
}

func mouseButton(button uint8) (camera.MouseButton, bool) {
	switch button {
	case sdl.BUTTON_LEFT:
		return camera.ButtonLeft, true
	case sdl.BUTTON_RIGHT:
		return camera.ButtonRight, true
	}
	return 0, false
}
