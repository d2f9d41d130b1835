package host

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/errors"
)

// fatalState is the one process-wide record in this module. A host panic
// that escapes the engine leaves the engine unusable, so every interpreter
// in the process observes it.
var fatalState struct {
	mu  sync.Mutex
	err *errors.FatalEngineError
}

// FatalError returns the first fatal engine error recorded in the process,
// or nil.
func FatalError() *errors.FatalEngineError {
	fatalState.mu.Lock()
	defer fatalState.mu.Unlock()
	return fatalState.err
}

// recordFatal stores the first fatal error and returns the recorded one.
func recordFatal(location string, r any) *errors.FatalEngineError {
	fatalState.mu.Lock()
	defer fatalState.mu.Unlock()
	if fatalState.err == nil {
		fatalState.err = &errors.FatalEngineError{Location: location, Message: fmt.Sprint(r)}
	}
	return fatalState.err
}

// resetFatal clears the recorded error. Tests only.
func resetFatal() {
	fatalState.mu.Lock()
	defer fatalState.mu.Unlock()
	fatalState.err = nil
}

// runProgram runs prog and converts a host panic escaping the engine into
// a recorded FatalEngineError. Script exceptions are returned unchanged.
func runProgram(rt *goja.Runtime, prog *goja.Program, location string) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = recordFatal(location, r)
		}
	}()
	return rt.RunProgram(prog)
}
