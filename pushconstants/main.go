// Command pushconstants renders a scene lit by six animated point lights.
// The light positions reach the vertex shader as push constants instead of
// through a uniform buffer.
package main

//go:generate glslangValidator -V ../data/shaders/pushconstants/lights.vert -o ../data/shaders/pushconstants/lights.vert.spv
//go:generate glslangValidator -V ../data/shaders/pushconstants/lights.frag -o ../data/shaders/pushconstants/lights.frag.spv

import (
	"context"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/vulkanexamples/examplebase"
	"github.com/vkngwrapper/vulkanexamples/examplebase/config"
	"github.com/vkngwrapper/vulkanexamples/examplebase/logging"
)

func run(settings config.Settings, logger *log.Logger) error {
	base := examplebase.New(settings, logger)
	example := NewExample(base)
	defer example.Destroy()

	if err := base.SetupWindow(); err != nil {
		return err
	}

	if err := base.InitVulkan(); err != nil {
		return err
	}

	if err := base.InitSwapchain(); err != nil {
		return err
	}

	if err := example.Prepare(context.Background()); err != nil {
		return err
	}

	return base.RenderLoop(example)
}

func main() {
	// SDL and the Vulkan surface must stay on the main thread
	runtime.LockOSThread()

	settings := config.Default()
	settings.Title = title

	err := settings.ProcessCommandLineArgs(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		config.Usage(os.Stdout)
		return
	}

	logger := logging.New("pushconstants", settings.Level())
	if err != nil {
		config.Usage(os.Stderr)
		logger.Fatalf("%+v", err)
	}

	if err := run(settings, logger); err != nil {
		logger.Fatalf("%+v", err)
	}
}
