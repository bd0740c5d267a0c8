// Package conformance runs YAML suites of assembly programs against the VM
// and checks their printed result, trace, or fault.
package conformance

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bci/internal/asm"
	"bci/internal/fault"
	"bci/internal/heap"
	"bci/internal/vm"

	"gopkg.in/yaml.v3"
)

// ErrorAsm is the expected error kind of a case whose source does not
// assemble.
const ErrorAsm = "asm"

type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`

	Path string `yaml:"-"`
}

type Case struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`

	Stdout         *string `yaml:"stdout"`
	StdoutContains string  `yaml:"stdout_contains"`
	TraceContains  string  `yaml:"trace_contains"`

	Error         string `yaml:"error"` // fault kind, or "asm"
	ErrorContains string `yaml:"error_contains"`

	GC        string `yaml:"gc"`
	Capacity  int    `yaml:"capacity"`
	MaxValues int    `yaml:"max_values"`
	MaxSteps  int64  `yaml:"max_steps"`
	StackSize int    `yaml:"stack_size"`
}

type Outcome struct {
	Suite  string
	Case   string
	Passed bool
	Reason string
}

func (o Outcome) String() string {
	if o.Passed {
		return fmt.Sprintf("ok   %s/%s", o.Suite, o.Case)
	}
	return fmt.Sprintf("FAIL %s/%s: %s", o.Suite, o.Case, o.Reason)
}

func LoadSuite(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Suite
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("conformance: parse %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i, c := range s.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("conformance: %s: case %d has no name", path, i+1)
		}
		if _, err := heap.ParsePolicy(c.GC); err != nil {
			return nil, fmt.Errorf("conformance: %s: %s: %w", path, c.Name, err)
		}
		if c.Error != "" && c.Error != ErrorAsm {
			if _, ok := fault.ParseKind(c.Error); !ok {
				return nil, fmt.Errorf("conformance: %s: %s: unknown error kind %q", path, c.Name, c.Error)
			}
		}
	}
	s.Path = path
	return &s, nil
}

// LoadDir loads every *.yaml file in dir, ordered by name.
func LoadDir(dir string) ([]*Suite, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("conformance: no suites in %s", dir)
	}
	sort.Strings(paths)

	var suites []*Suite
	for _, p := range paths {
		s, err := LoadSuite(p)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func (s *Suite) Run() []Outcome {
	out := make([]Outcome, 0, len(s.Cases))
	for _, c := range s.Cases {
		ok, reason := c.Run()
		out = append(out, Outcome{Suite: s.Name, Case: c.Name, Passed: ok, Reason: reason})
	}
	return out
}

// Run assembles and executes the case. Every run that completes must also
// leave nothing allocated behind.
func (c Case) Run() (bool, string) {
	ins, err := asm.Assemble(c.Source)
	if err != nil {
		return c.checkError(ErrorAsm, err)
	}

	var stdout, trace bytes.Buffer
	m := vm.New(ins)
	m.SetOutput(&stdout)
	if c.TraceContains != "" {
		m.SetTrace(&trace)
	}
	policy, _ := heap.ParsePolicy(c.GC)
	m.SetPolicy(policy)
	m.SetCapacity(c.Capacity)
	m.SetMaxValues(c.MaxValues)
	m.SetMaxSteps(c.MaxSteps)
	m.SetStackSize(c.StackSize)

	res, err := m.Run()
	if err != nil {
		var fe *fault.Error
		if !errors.As(err, &fe) {
			return false, fmt.Sprintf("unexpected error: %v", err)
		}
		return c.checkError(fe.Kind.String(), err)
	}
	if c.Error != "" {
		return false, fmt.Sprintf("expected %s error, got result %q", c.Error, res.Value)
	}
	if res.Leaked != 0 {
		return false, fmt.Sprintf("memory leak detected: %d allocations leaked", res.Leaked)
	}

	checks := []struct {
		what string
		got  string
		exp  Expectation
	}{
		{"stdout", stdout.String(), c.stdoutExpectation()},
		{"stdout", stdout.String(), contains(c.StdoutContains)},
		{"trace", trace.String(), contains(c.TraceContains)},
	}
	for _, chk := range checks {
		if ok, reason := Match(chk.what, chk.got, chk.exp); !ok {
			return false, reason
		}
	}
	return true, ""
}

func (c Case) stdoutExpectation() Expectation {
	if c.Stdout == nil {
		return Expectation{Mode: MatchNone}
	}
	return Expectation{Mode: MatchExact, Value: *c.Stdout}
}

func contains(s string) Expectation {
	if s == "" {
		return Expectation{Mode: MatchNone}
	}
	return Expectation{Mode: MatchContains, Value: s}
}

func (c Case) checkError(kind string, err error) (bool, string) {
	if c.Error == "" {
		return false, fmt.Sprintf("unexpected error: %v", err)
	}
	if c.Error != kind {
		return false, fmt.Sprintf("expected %s error, got %s: %v", c.Error, kind, err)
	}
	if c.ErrorContains != "" && !strings.Contains(err.Error(), c.ErrorContains) {
		return false, fmt.Sprintf("expected error containing %q, got %q", c.ErrorContains, err.Error())
	}
	return true, ""
}
