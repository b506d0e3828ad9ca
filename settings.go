package agentjail

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zhangyunhao116/agentjail/internal/envutil"
	"github.com/zhangyunhao116/agentjail/internal/pathutil"
)

// Environment variables read by ParseEnv.
const (
	// EnvDisable disables sandboxing entirely for one invocation.
	EnvDisable = "AGENTJAIL_DISABLE"

	// EnvUnsafeHome removes the read-write restriction on the home
	// directory. Weakens the isolation boundary; a warning is printed.
	EnvUnsafeHome = "AGENTJAIL_UNSAFE_HOME"

	// EnvUnsafeSSH exposes the full personal SSH directory read-only
	// instead of only agent-scoped keys. Weakens the isolation boundary; a
	// warning is printed.
	EnvUnsafeSSH = "AGENTJAIL_UNSAFE_SSH"

	// EnvDebug enables verbose diagnostic logging.
	EnvDebug = "AGENTJAIL_DEBUG"

	// EnvBwrap overrides the location of the bwrap binary (Linux only).
	EnvBwrap = "AGENTJAIL_BWRAP"

	// EnvExtraPaths is the legacy colon-separated list of additional
	// read-write paths.
	EnvExtraPaths = "AGENTJAIL_EXTRA_PATHS"

	// EnvReadOnlyPaths and EnvReadWritePaths are the current
	// colon-separated lists of additional paths with explicit intent.
	EnvReadOnlyPaths  = "AGENTJAIL_RO_PATHS"
	EnvReadWritePaths = "AGENTJAIL_RW_PATHS"
)

// Settings holds the behavior-modifying configuration of one launch. It is
// assembled from the process environment (ParseEnv), optionally merged with
// the settings file (ApplyFile), and passed to Launch.
type Settings struct {
	// Disable skips sandboxing; the command runs directly with a warning.
	Disable bool

	// UnsafeHome mounts the whole home directory read-write.
	UnsafeHome bool

	// UnsafeSSH exposes the full personal SSH directory read-only.
	UnsafeSSH bool

	// Debug enables verbose diagnostic logging.
	Debug bool

	// BwrapPath is an explicit path to the bwrap binary; empty means PATH
	// lookup.
	BwrapPath string

	// ExtraReadOnly and ExtraReadWrite are additional exposures, not yet
	// tilde-expanded. Absent paths are skipped at plan-build time.
	ExtraReadOnly  []string
	ExtraReadWrite []string

	// StateDirs are additional agent state directories, created if missing
	// and mounted read-write. Populated from the settings file.
	StateDirs []string

	// Home and WorkDir default to the current user's home directory and the
	// current working directory when left empty.
	Home    string
	WorkDir string

	// Logger is the structured logger for operational messages. If nil,
	// slog.Default() is used.
	Logger *slog.Logger

	// environ is the environment snapshot the settings were parsed from.
	// Discovery reads PATH from here rather than the live process state.
	environ []string
}

// ParseEnv builds Settings from an environ-style slice. It is a pure
// function of its input: callers pass os.Environ() in production and a
// synthetic slice in tests.
func ParseEnv(environ []string) *Settings {
	s := &Settings{
		Disable:    envutil.Bool(environ, EnvDisable),
		UnsafeHome: envutil.Bool(environ, EnvUnsafeHome),
		UnsafeSSH:  envutil.Bool(environ, EnvUnsafeSSH),
		Debug:      envutil.Bool(environ, EnvDebug),
		environ:    environ,
	}
	if v, ok := envutil.Get(environ, EnvBwrap); ok {
		s.BwrapPath = v
	}
	if v, ok := envutil.Get(environ, EnvReadOnlyPaths); ok {
		s.ExtraReadOnly = pathutil.SplitList(v)
	}
	if v, ok := envutil.Get(environ, EnvReadWritePaths); ok {
		s.ExtraReadWrite = pathutil.SplitList(v)
	}
	// The legacy variable carries read-write intent.
	if v, ok := envutil.Get(environ, EnvExtraPaths); ok {
		s.ExtraReadWrite = append(s.ExtraReadWrite, pathutil.SplitList(v)...)
	}
	return s
}

// logger returns the configured logger or the default one.
func (s *Settings) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// path returns the PATH entries from the settings' environment snapshot.
func (s *Settings) path() []string {
	v, _ := envutil.Get(s.environ, "PATH")
	return pathutil.SplitList(v)
}

// FileSettings is the on-disk settings file format
// (~/.config/agentjail/config.yaml). The file only contributes additional
// exposures; the safety-relevant toggles stay environment-only so a file
// checked in by a repository cannot weaken the boundary.
type FileSettings struct {
	// ReadOnly and ReadWrite list additional paths to expose, tilde-expanded
	// at plan-build time and skipped if absent.
	ReadOnly  []string `yaml:"read_only"`
	ReadWrite []string `yaml:"read_write"`

	// StateDirs lists additional agent state directories, created if
	// missing and mounted read-write.
	StateDirs []string `yaml:"state_dirs"`
}

// LoadFileSettings reads a YAML settings file. A missing file is not an
// error and returns an empty FileSettings.
func LoadFileSettings(path string) (*FileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileSettings{}, nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var fs FileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fs, nil
}

// ApplyFile merges file-provided exposures into the settings. Environment
// lists keep their position; file entries are appended after them.
func (s *Settings) ApplyFile(fs *FileSettings) {
	s.ExtraReadOnly = append(s.ExtraReadOnly, fs.ReadOnly...)
	s.ExtraReadWrite = append(s.ExtraReadWrite, fs.ReadWrite...)
	s.StateDirs = append(s.StateDirs, fs.StateDirs...)
}

// SettingsFilePath returns the default settings file location for home.
func SettingsFilePath(home string) string {
	return filepath.Join(home, ".config", "agentjail", "config.yaml")
}
