package utils

import (
	"context"
	"sync"
)

// MockRunner records calls and returns preconfigured responses.
// Use this in tests to avoid real shell execution.
// Set RunFn for dynamic per-call responses, otherwise Out/Err are returned.
type MockRunner struct {
	mu    sync.Mutex
	Bin   string
	Calls [][]string
	Out   string
	Err   error
	RunFn func(args []string) (string, error)
}

func (m *MockRunner) Run(_ context.Context, bin string, args ...string) (string, error) {
	m.mu.Lock()
	m.Bin = bin
	m.Calls = append(m.Calls, args)
	m.mu.Unlock()
	if m.RunFn != nil {
		return m.RunFn(args)
	}
	return m.Out, m.Err
}

// CallCount returns the number of recorded calls containing seq as a
// contiguous run of arguments.
func (m *MockRunner) CallCount(seq ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if containsSeq(call, seq) {
			n++
		}
	}
	return n
}

func containsSeq(args, seq []string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j, s := range seq {
			if args[i+j] != s {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
