package vm

import (
	"bytes"
	"math"
	"testing"

	"bci/internal/code"
	"bci/internal/heap"
)

func concat(parts ...code.Instructions) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func runProgram(t *testing.T, ins []byte) (*Result, string) {
	t.Helper()
	var out bytes.Buffer
	m := New(ins)
	m.SetOutput(&out)
	res, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res, out.String()
}

// countdown stores 100 in a local and decrements it to zero.
var countdown = concat(
	code.Make(code.OpEnter, 1),      // 0
	code.Make(code.OpPushInt, 100),  // 5
	code.Make(code.OpStoreVar, 0),   // 10
	code.Make(code.OpPushVar, 0, 0), // 15 loop
	code.Make(code.OpPushInt, 0),    // 24
	code.Make(code.OpEq),            // 29
	code.Make(code.OpJmpTrue, 60),   // 30
	code.Make(code.OpPushVar, 0, 0), // 35
	code.Make(code.OpPushInt, 1),    // 44
	code.Make(code.OpSub),           // 49
	code.Make(code.OpStoreVar, 0),   // 50
	code.Make(code.OpJmp, 15),       // 55
	code.Make(code.OpPushVar, 0, 0), // 60 done
	code.Make(code.OpRet),           // 69
)

func TestVMPrograms(t *testing.T) {
	tests := []struct {
		name     string
		ins      []byte
		expected string
	}{
		{
			name: "add",
			ins: concat(
				code.Make(code.OpPushInt, 2),
				code.Make(code.OpPushInt, 3),
				code.Make(code.OpAdd),
				code.Make(code.OpRet),
			),
			expected: "5: Int\n",
		},
		{
			name: "jump if true",
			ins: concat(
				code.Make(code.OpPushTrue),    // 0
				code.Make(code.OpJmpTrue, 12), // 1
				code.Make(code.OpPushInt, 1),  // 6
				code.Make(code.OpRet),         // 11
				code.Make(code.OpPushInt, 2),  // 12
				code.Make(code.OpRet),         // 17
			),
			expected: "2: Int\n",
		},
		{
			name: "jump if false falls through",
			ins: concat(
				code.Make(code.OpPushFalse),
				code.Make(code.OpJmpTrue, 12),
				code.Make(code.OpPushInt, 1),
				code.Make(code.OpRet),
				code.Make(code.OpPushInt, 2),
				code.Make(code.OpRet),
			),
			expected: "1: Int\n",
		},
		{
			name: "arithmetic",
			ins: concat(
				code.Make(code.OpPushInt, 20),
				code.Make(code.OpPushInt, 6),
				code.Make(code.OpSub),
				code.Make(code.OpPushInt, 3),
				code.Make(code.OpMul),
				code.Make(code.OpPushInt, -5),
				code.Make(code.OpDiv),
				code.Make(code.OpRet),
			),
			expected: "-8: Int\n",
		},
		{
			name: "wrapping add",
			ins: concat(
				code.Make(code.OpPushInt, math.MaxInt32),
				code.Make(code.OpPushInt, 1),
				code.Make(code.OpAdd),
				code.Make(code.OpRet),
			),
			expected: "-2147483648: Int\n",
		},
		{
			name: "eq true",
			ins: concat(
				code.Make(code.OpPushInt, 3),
				code.Make(code.OpPushInt, 3),
				code.Make(code.OpEq),
				code.Make(code.OpRet),
			),
			expected: "true: Bool\n",
		},
		{
			name: "eq false",
			ins: concat(
				code.Make(code.OpPushInt, 3),
				code.Make(code.OpPushInt, 4),
				code.Make(code.OpEq),
				code.Make(code.OpRet),
			),
			expected: "false: Bool\n",
		},
		{
			name: "closure result",
			ins: concat(
				code.Make(code.OpPushClosure, 42),
				code.Make(code.OpRet),
			),
			expected: "c42#1\n",
		},
		{
			name:     "outermost activation result",
			ins:      concat(code.Make(code.OpEnter, 1), code.Make(code.OpRet)),
			expected: "<-, -, -, [-]>\n",
		},
		{
			name:     "countdown loop",
			ins:      countdown,
			expected: "0: Int\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out := runProgram(t, tt.ins)
			if out != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, out)
			}
			if res.Value+"\n" != tt.expected {
				t.Fatalf("expected result %q, got %q", tt.expected, res.Value)
			}
		})
	}
}

func TestVMClosureReadsCapturedLocal(t *testing.T) {
	ins := concat(
		code.Make(code.OpEnter, 1),        // 0
		code.Make(code.OpPushInt, 7),      // 5
		code.Make(code.OpStoreVar, 0),     // 10
		code.Make(code.OpPushClosure, 27), // 15
		code.Make(code.OpPushInt, 5),      // 20 argument
		code.Make(code.OpSwapCall),        // 25
		code.Make(code.OpRet),             // 26
		code.Make(code.OpEnter, 1),        // 27 callee
		code.Make(code.OpStoreVar, 0),     // 32
		code.Make(code.OpPushVar, 0, 0),   // 37 argument
		code.Make(code.OpPushVar, 1, 0),   // 46 captured
		code.Make(code.OpAdd),             // 55
		code.Make(code.OpRet),             // 56
	)

	res, out := runProgram(t, ins)
	if out != "12: Int\n" {
		t.Fatalf("expected %q, got %q", "12: Int\n", out)
	}
	if res.Kind != heap.KindInt {
		t.Fatalf("expected Int result, got %s", res.Kind)
	}
}

func TestVMSwapCallStackShape(t *testing.T) {
	// the callee returns straight away with the argument on top
	ins := concat(
		code.Make(code.OpPushClosure, 16), // 0
		code.Make(code.OpPushInt, 9),      // 5
		code.Make(code.OpSwapCall),        // 10
		code.Make(code.OpPushInt, 1),      // 11
		code.Make(code.OpRet),             // 16 callee
	)
	var trace bytes.Buffer
	m := New(ins)
	m.SetTrace(&trace)
	res, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// RET in the callee returns to 11, which pushes 1 over the argument.
	if res.Value != "1: Int" {
		t.Fatalf("expected 1: Int, got %q", res.Value)
	}
	want := "16: RET: [<-, -, -, ->, 9] <<-, -, -, ->, c16#1, 11, ->\n"
	if !bytes.Contains(trace.Bytes(), []byte(want)) {
		t.Fatalf("expected trace line %q in:\n%s", want, trace.String())
	}
}

func TestVMRecursiveCall(t *testing.T) {
	// sum(n) = n == 0 ? 0 : n + sum(n - 1), with sum kept in the outer local 0
	ins := concat(
		code.Make(code.OpEnter, 1),        // 0
		code.Make(code.OpPushClosure, 31), // 5
		code.Make(code.OpStoreVar, 0),     // 10
		code.Make(code.OpPushVar, 0, 0),   // 15
		code.Make(code.OpPushInt, 10),     // 24
		code.Make(code.OpSwapCall),        // 29
		code.Make(code.OpRet),             // 30
		code.Make(code.OpEnter, 1),        // 31 sum
		code.Make(code.OpStoreVar, 0),     // 36
		code.Make(code.OpPushVar, 0, 0),   // 41
		code.Make(code.OpPushInt, 0),      // 50
		code.Make(code.OpEq),              // 55
		code.Make(code.OpJmpTrue, 97),     // 56
		code.Make(code.OpPushVar, 0, 0),   // 61
		code.Make(code.OpPushVar, 1, 0),   // 70
		code.Make(code.OpPushVar, 0, 0),   // 79
		code.Make(code.OpPushInt, 1),      // 88
		code.Make(code.OpSub),             // 93
		code.Make(code.OpSwapCall),        // 94
		code.Make(code.OpAdd),             // 95
		code.Make(code.OpRet),             // 96
		code.Make(code.OpPushInt, 0),      // 97 base case
		code.Make(code.OpRet),             // 102
	)

	res, out := runProgram(t, ins)
	if out != "55: Int\n" {
		t.Fatalf("expected %q, got %q", "55: Int\n", out)
	}
	if res.Stats.Collections == 0 {
		t.Fatal("expected the collector to run")
	}
}

func TestVMNoLeaksAfterRun(t *testing.T) {
	for _, policy := range []heap.Policy{heap.PolicyEveryAlloc, heap.PolicyWatermark} {
		m := New(countdown)
		m.SetPolicy(policy)
		m.SetCapacity(4)
		res, err := m.Run()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", policy, err)
		}
		if res.Value != "0: Int" {
			t.Fatalf("%s: expected 0: Int, got %q", policy, res.Value)
		}
		if res.Leaked != 0 {
			t.Fatalf("%s: expected no leaks, got %d", policy, res.Leaked)
		}
		if m.Heap().Allocated() != 0 {
			t.Fatalf("%s: expected zero allocations after run, got %d", policy, m.Heap().Allocated())
		}
		if res.Stats.Released == 0 {
			t.Fatalf("%s: expected garbage to be released", policy)
		}
	}
}

func TestVMResultOfUnsetLocal(t *testing.T) {
	res, out := runProgram(t, concat(code.Make(code.OpEnter, 1), code.Make(code.OpPushVar, 0, 0), code.Make(code.OpRet)))
	if out != "-\n" {
		t.Fatalf("expected %q, got %q", "-\n", out)
	}
	if res.Kind != heap.KindNil {
		t.Fatalf("expected Nil kind, got %s", res.Kind)
	}
}

func TestVMSmallStackGrows(t *testing.T) {
	var parts []code.Instructions
	for i := 0; i < 40; i++ {
		parts = append(parts, code.Make(code.OpPushInt, i))
	}
	for i := 0; i < 39; i++ {
		parts = append(parts, code.Make(code.OpAdd))
	}
	parts = append(parts, code.Make(code.OpRet))

	m := New(concat(parts...))
	m.SetStackSize(2)
	res, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value != "780: Int" {
		t.Fatalf("expected 780: Int, got %q", res.Value)
	}
}
