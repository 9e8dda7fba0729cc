package base

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// Settings holds everything configurable from outside the program: window
// geometry, validation, vsync, and where assets live on disk. Values come
// from defaults, then an optional TOML file, then command-line flags, each
// layer overriding the previous one.
type Settings struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Fullscreen bool   `toml:"fullscreen"`
	VSync      bool   `toml:"vsync"`
	Validation bool   `toml:"validation"`
	Overlay    bool   `toml:"overlay"`
	AssetPath  string `toml:"asset_path"`
	LogLevel   string `toml:"log_level"`
}

func DefaultSettings() Settings {
	return Settings{
		Width:     1280,
		Height:    720,
		VSync:     false,
		Overlay:   true,
		AssetPath: "data",
		LogLevel:  "info",
	}
}

// LoadSettings reads a TOML settings file over the defaults. A missing file
// is not an error; a malformed one is.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, errors.Wrapf(err, "read settings file %s", path)
	}

	err = toml.Unmarshal(contents, &settings)
	if err != nil {
		return settings, errors.Wrapf(err, "parse settings file %s", path)
	}

	return settings, nil
}

// ParseCommandLine applies command-line flags on top of the loaded settings.
// The returned settings are complete and ready to hand to an App. Unknown
// flags print usage and exit, as does -h.
func ParseCommandLine(args []string) (Settings, error) {
	configPath := "settings.toml"

	// The config flag has to win before the file is read, so scan for it first.
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			configPath = args[i+1]
		}
	}

	settings, err := LoadSettings(configPath)
	if err != nil {
		return settings, err
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
		case "--validation":
			settings.Validation = true
		case "--vsync":
			settings.VSync = true
		case "--fullscreen":
			settings.Fullscreen = true
		case "--no-overlay":
			settings.Overlay = false
		case "--width":
			if i+1 >= len(args) {
				return settings, errors.Newf("--width requires a value")
			}
			i++
			settings.Width, err = strconv.Atoi(args[i])
			if err != nil {
				return settings, errors.Wrapf(err, "parse --width %q", args[i])
			}
		case "--height":
			if i+1 >= len(args) {
				return settings, errors.Newf("--height requires a value")
			}
			i++
			settings.Height, err = strconv.Atoi(args[i])
			if err != nil {
				return settings, errors.Wrapf(err, "parse --height %q", args[i])
			}
		case "--assets":
			if i+1 >= len(args) {
				return settings, errors.Newf("--assets requires a value")
			}
			i++
			settings.AssetPath = args[i]
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		default:
			printUsage()
			return settings, errors.Newf("unrecognized option %q", args[i])
		}
	}

	if settings.Width <= 0 || settings.Height <= 0 {
		return settings, errors.Newf("window dimensions must be positive, got %dx%d", settings.Width, settings.Height)
	}

	return settings, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Options:
  --config <file>   settings file to load (default settings.toml)
  --width <n>       window width
  --height <n>      window height
  --fullscreen      start fullscreen
  --vsync           present with vertical sync (FIFO)
  --validation      enable the Khronos validation layer
  --no-overlay      disable the UI overlay
  --assets <dir>    asset directory (default data)
  -h, --help        print this and exit`)
}
