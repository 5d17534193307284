package testutil

import (
	"sync"

	"github.com/roach88/docforge/internal/compiler"
)

// RecordingEngine is a compiler.Engine that returns canned results and
// records every environment it was asked to compile.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingEngine struct {
	mu    sync.Mutex
	out   []byte
	diags []compiler.Diagnostic
	envs  []*compiler.Environment
}

// NewRecordingEngine returns an engine that succeeds with out.
func NewRecordingEngine(out []byte) *RecordingEngine {
	return &RecordingEngine{out: out}
}

// NewFailingEngine returns an engine that fails with diags.
func NewFailingEngine(diags ...compiler.Diagnostic) *RecordingEngine {
	return &RecordingEngine{diags: diags}
}

// Compile implements compiler.Engine.
func (e *RecordingEngine) Compile(env *compiler.Environment) ([]byte, []compiler.Diagnostic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.envs = append(e.envs, env)
	if len(e.diags) > 0 {
		return nil, e.diags
	}
	return e.out, nil
}

// Calls returns how many times Compile ran.
func (e *RecordingEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.envs)
}

// Last returns the most recent environment, or nil.
func (e *RecordingEngine) Last() *compiler.Environment {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.envs) == 0 {
		return nil
	}
	return e.envs[len(e.envs)-1]
}
