// Package config holds the handful of knobs the examples expose: window size,
// validation layers, asset location, pipeline cache persistence and logging.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

type Settings struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	Validation bool   `toml:"validation"`

	// DataDir is the root for shaders/ and models/
	DataDir       string `toml:"data_dir"`
	PipelineCache string `toml:"pipeline_cache"`
	LogLevel      string `toml:"log_level"`
}

func Default() Settings {
	return Settings{
		Width:    1280,
		Height:   720,
		Title:    "Vulkan Example",
		DataDir:  "./data",
		LogLevel: "info",
	}
}

var ErrHelp = errors.New("help requested")

func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}

	if err = toml.Unmarshal(data, s); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return s.Validate()
}

func (s *Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Newf("invalid window size %dx%d", s.Width, s.Height)
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return errors.Wrapf(err, "log level %q", s.LogLevel)
	}
	return nil
}

func (s *Settings) Level() log.Level {
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Asset resolves a path relative to the data directory.
func (s *Settings) Asset(parts ...string) string {
	return filepath.Join(append([]string{s.DataDir}, parts...)...)
}

func Usage(w io.Writer) {
	fmt.Fprintln(w, "\nOptions")
	fmt.Fprintln(w, "\t--validation")
	fmt.Fprintln(w, "\t\tEnable the Khronos validation layer")
	fmt.Fprintln(w, "\t--config <file>")
	fmt.Fprintln(w, "\t\tLoad settings from a TOML file")
	fmt.Fprintln(w, "\t--data <dir>")
	fmt.Fprintln(w, "\t\tDirectory containing shaders/ and models/")
	fmt.Fprintln(w, "\t--pipeline-cache <file>")
	fmt.Fprintln(w, "\t\tPersist the pipeline cache between runs")
	fmt.Fprintln(w, "\t--log-level <debug|info|warn|error>")
}

// ProcessCommandLineArgs applies args on top of s in order, so flags after
// --config override the file.
func (s *Settings) ProcessCommandLineArgs(args []string) error {
	value := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", errors.Newf("option %s needs a value", args[i])
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			return ErrHelp
		case "--validation":
			s.Validation = true
		case "--config", "--data", "--pipeline-cache", "--log-level":
			v, err := value(i)
			if err != nil {
				return err
			}
			i++

			switch arg {
			case "--config":
				if err = s.LoadFile(v); err != nil {
					return err
				}
			case "--data":
				s.DataDir = v
			case "--pipeline-cache":
				s.PipelineCache = v
			case "--log-level":
				s.LogLevel = v
			}
		default:
			return errors.Newf("unrecognized option: %s", arg)
		}
	}

	return s.Validate()
}
