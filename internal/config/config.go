// Package config loads bci.toml, the interpreter settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bci/internal/heap"
	"bci/internal/vm"

	"github.com/BurntSushi/toml"
)

const FileName = "bci.toml"

type Config struct {
	VM  VMConfig  `toml:"vm"`
	GC  GCConfig  `toml:"gc"`
	Log LogConfig `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type VMConfig struct {
	StackSize int   `toml:"stack_size"`
	Trace     bool  `toml:"trace"`
	MaxSteps  int64 `toml:"max_steps"`
}

type GCConfig struct {
	Policy    string `toml:"policy"`
	Capacity  int    `toml:"capacity"`
	MaxValues int    `toml:"max_values"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

func Default() *Config {
	return &Config{
		VM: VMConfig{StackSize: heap.DefaultStackSize},
		GC: GCConfig{Policy: heap.PolicyEveryAlloc.String(), Capacity: heap.DefaultCapacity},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir to the first bci.toml. Without one it
// returns the defaults.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) Validate() error {
	if c.VM.StackSize < 0 {
		return fmt.Errorf("vm.stack_size must not be negative: %d", c.VM.StackSize)
	}
	if c.VM.MaxSteps < 0 {
		return fmt.Errorf("vm.max_steps must not be negative: %d", c.VM.MaxSteps)
	}
	if _, err := heap.ParsePolicy(c.GC.Policy); err != nil {
		return fmt.Errorf("gc.policy: %w", err)
	}
	if c.GC.Capacity < 0 {
		return fmt.Errorf("gc.capacity must not be negative: %d", c.GC.Capacity)
	}
	if c.GC.MaxValues < 0 {
		return fmt.Errorf("gc.max_values must not be negative: %d", c.GC.MaxValues)
	}
	return nil
}

// Policy is the parsed gc.policy. Validate has already rejected bad names.
func (c *Config) Policy() heap.Policy {
	p, _ := heap.ParsePolicy(c.GC.Policy)
	return p
}

// Apply configures m. Tracing is left to the caller, which owns the writer.
func (c *Config) Apply(m *vm.VM) {
	m.SetStackSize(c.VM.StackSize)
	m.SetMaxSteps(c.VM.MaxSteps)
	m.SetPolicy(c.Policy())
	m.SetCapacity(c.GC.Capacity)
	m.SetMaxValues(c.GC.MaxValues)
}
