// Package report records the outcome of one run as canonical CBOR: what was
// run, how it ended, and what the collector did along the way.
package report

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"

	"bci/internal/fault"
	"bci/internal/heap"
	"bci/internal/vm"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type Report struct {
	Program [32]byte `cbor:"1,keyasint"` // sha256 of the bytecode
	Size    int      `cbor:"2,keyasint"`
	Policy  string   `cbor:"3,keyasint"`
	Result  string   `cbor:"4,keyasint,omitempty"`
	Kind    string   `cbor:"5,keyasint,omitempty"`
	Fault   *Fault   `cbor:"6,keyasint,omitempty"`
	Steps   int64    `cbor:"7,keyasint"`
	GC      GC       `cbor:"8,keyasint"`
	Leaked  int      `cbor:"9,keyasint"`
}

type Fault struct {
	Kind    string `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

type GC struct {
	Allocations int `cbor:"1,keyasint"`
	Collections int `cbor:"2,keyasint"`
	Released    int `cbor:"3,keyasint"`
	PeakSize    int `cbor:"4,keyasint"`
	PeakValues  int `cbor:"5,keyasint,omitempty"`
}

// New builds the report of m's last run over program; res and err are what
// Run returned.
func New(program []byte, m *vm.VM, res *vm.Result, err error) *Report {
	r := &Report{
		Program: sha256.Sum256(program),
		Size:    len(program),
		Policy:  m.Policy().String(),
		Steps:   m.Steps(),
	}
	if h := m.Heap(); h != nil {
		s := h.Stats()
		r.GC = GC{
			Allocations: s.Allocations,
			Collections: s.Collections,
			Released:    s.Released,
			PeakSize:    s.PeakSize,
			PeakValues:  m.PeakValues(),
		}
		r.Leaked = h.Allocated()
	}
	if res != nil {
		r.Result = res.Value
		if res.Kind != heap.KindNil {
			r.Kind = res.Kind.String()
		}
	}
	if err != nil {
		f := &Fault{Message: err.Error()}
		if k, ok := fault.KindOf(err); ok {
			f.Kind = k.String()
		}
		r.Fault = f
	}
	return r
}

func Marshal(r *Report) ([]byte, error) {
	return encMode.Marshal(r)
}

func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: unmarshal: %w", err)
	}
	return &r, nil
}

func WriteFile(path string, r *Report) error {
	data, err := Marshal(r)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("report: empty file")
	}
	return Unmarshal(data)
}

// String renders the report for humans, one field per line.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program: %x (%d bytes)\n", r.Program[:8], r.Size)
	if r.Fault != nil {
		if r.Fault.Kind != "" {
			fmt.Fprintf(&b, "fault: %s: %s\n", r.Fault.Kind, r.Fault.Message)
		} else {
			fmt.Fprintf(&b, "fault: %s\n", r.Fault.Message)
		}
	} else {
		fmt.Fprintf(&b, "result: %s\n", r.Result)
	}
	fmt.Fprintf(&b, "steps: %d\n", r.Steps)
	fmt.Fprintf(&b, "gc: policy %s, %d collections, %d allocations, %d released, peak %d\n",
		r.Policy, r.GC.Collections, r.GC.Allocations, r.GC.Released, r.GC.PeakSize)
	fmt.Fprintf(&b, "leaked: %d\n", r.Leaked)
	return b.String()
}
