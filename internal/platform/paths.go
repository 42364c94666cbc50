package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories when no override is set.
const DefaultAppName = "lanes"

// Paths holds the resolved on-disk locations for one app name.
type Paths struct {
	ConfigDir  string
	ConfigPath string
	DataDir    string
	DBPath     string
}

// Options selects which app directories to resolve.
type Options struct {
	AppName string
	DevMode bool
}

// name returns the directory stem, suffixed in dev mode so development runs never
// touch a real board.
func (o Options) name() string {
	name := strings.TrimSpace(o.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if o.DevMode {
		name += "-dev"
	}
	return name
}

// Environment abstracts the host lookups path resolution depends on.
type Environment struct {
	GOOS          string
	Getenv        func(string) string
	UserConfigDir func() (string, error)
	UserHomeDir   func() (string, error)
}

// HostEnvironment returns the environment of the running process.
func HostEnvironment() Environment {
	return Environment{
		GOOS:          runtime.GOOS,
		Getenv:        os.Getenv,
		UserConfigDir: os.UserConfigDir,
		UserHomeDir:   os.UserHomeDir,
	}
}

// Resolve returns the paths for opts on this host.
func Resolve(opts Options) (Paths, error) {
	return ResolveIn(HostEnvironment(), opts)
}

// ResolveIn returns the paths for opts in env. Linux honors XDG_CONFIG_HOME and
// XDG_DATA_HOME, Windows honors APPDATA and LOCALAPPDATA, and every other
// platform keeps data next to config.
func ResolveIn(env Environment, opts Options) (Paths, error) {
	if env.UserConfigDir == nil || env.UserHomeDir == nil {
		return Paths{}, errors.New("incomplete environment")
	}
	getenv := env.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	lookup := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	configBase, err := env.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataBase := configBase

	switch env.GOOS {
	case "linux":
		if v := lookup("XDG_CONFIG_HOME"); v != "" {
			configBase = v
		}
		if v := lookup("XDG_DATA_HOME"); v != "" {
			dataBase = v
		} else {
			home, err := env.UserHomeDir()
			if err != nil {
				return Paths{}, fmt.Errorf("user home dir: %w", err)
			}
			dataBase = filepath.Join(home, ".local", "share")
		}
	case "windows":
		if v := lookup("APPDATA"); v != "" {
			configBase = v
		}
		if v := lookup("LOCALAPPDATA"); v != "" {
			dataBase = v
		} else {
			dataBase = configBase
		}
	}
	if strings.TrimSpace(configBase) == "" || strings.TrimSpace(dataBase) == "" {
		return Paths{}, errors.New("empty base dirs")
	}

	name := opts.name()
	configDir := filepath.Join(configBase, name)
	dataDir := filepath.Join(dataBase, name)
	return Paths{
		ConfigDir:  configDir,
		ConfigPath: filepath.Join(configDir, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, name+".db"),
	}, nil
}
