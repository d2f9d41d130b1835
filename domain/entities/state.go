package entities

// ExecState is the state of the most recent command of an interpreter.
type ExecState int

const (
	StateIdle ExecState = iota
	StateCompiling
	StateRunning
	StateSucceeded
	StateFailed
)

func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCompiling:
		return "compiling"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ProgressLevel classifies a progress update.
type ProgressLevel string

const (
	ProgressNormal  ProgressLevel = "normal"
	ProgressWarning ProgressLevel = "warning"
	ProgressErrors  ProgressLevel = "errors"
)
