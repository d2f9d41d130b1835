package host

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/application/sandbox"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

var errCommandRunning = stdErrors.New("a global command is already running")

// ExecuteCommand runs cmd in the persistent global context. Output goes to
// the global listeners. It returns false when the command fails to compile
// or throws; otherwise GetLastResult reports the truthiness of its value.
func (i *Interpreter) ExecuteCommand(ctx context.Context, cmd string) bool {
	in, out := i.takeArguments()
	if !i.IsStarted() {
		i.globalErr(i.unavailable().Error())
		i.lastResult = false
		return false
	}
	if i.running() {
		i.globalErr(errCommandRunning.Error())
		return false
	}

	c := i.global
	c.SetCommandContext(i.commandContext(ctx))
	restore := i.bindArguments(c, in, out)
	defer func() {
		restore()
		c.SetCommandContext(nil)
	}()

	if _, err := i.execute(c, commandSource, cmd, false); err != nil {
		i.globalErr(err.Error())
		i.logFailure(err)
		return false
	}
	i.logger.Debug("command finished", "result", i.lastResult)
	return true
}

// ExecuteScopedCommand runs cmd in a fresh context whose output goes to out
// and errOut, and to the global listeners when global output is shown.
// Errors are also reported to progress. The listeners are detached when the
// command returns, whatever its outcome.
func (i *Interpreter) ExecuteScopedCommand(ctx context.Context, cmd string, out, errOut ports.Listener, progress ports.Progress) bool {
	in, outArgs := i.takeArguments()
	_, err := i.executeScoped(ctx, scopedSource, cmd, out, errOut, progress, in, outArgs)
	return err == nil
}

// executeScoped runs text in a fresh scoped context with in and outArgs
// bound as input and output. It returns the text of the script value. The
// error has already been reported to the listeners and progress. A nested
// call leaves the state and last result of the enclosing command
// untouched.
func (i *Interpreter) executeScoped(ctx context.Context, source, text string, out, errOut ports.Listener, progress ports.Progress, in, outArgs *entities.ArgumentList) (string, error) {
	sink := &scopedSink{i: i, out: out, errOut: errOut}
	defer sink.detach()

	fail := func(err error) (string, error) {
		i.logFailure(err)
		msg := err.Error()
		sink.Error(msg)
		if progress != nil {
			progress.UpdateProgress(firstLine(msg), 0, entities.ProgressErrors)
		}
		return "", err
	}

	if !i.IsStarted() {
		i.lastResult = false
		return fail(i.unavailable())
	}

	if i.running() {
		state, result, value := i.state, i.lastResult, i.lastValue
		defer func() {
			i.state, i.lastResult, i.lastValue = state, result, value
		}()
	}

	c, err := i.builder.NewContext(i.commandContext(ctx), sink, progress, true)
	if err != nil {
		i.state = entities.StateFailed
		i.lastResult = false
		return fail(err)
	}
	i.bindArguments(c, in, outArgs)

	if _, err := i.execute(c, source, text, true); err != nil {
		return fail(err)
	}
	return i.lastValue, nil
}

// execute runs one command and records its outcome.
func (i *Interpreter) execute(c *sandbox.Context, source, text string, scoped bool) (goja.Value, error) {
	top := !i.running()
	i.depth++
	defer func() { i.depth-- }()

	start := time.Now()
	v, err := i.run(c, source, text)
	if top {
		run := entities.NewRunMetadata(start, time.Now()).WithSource(source)
		run.Scoped = scoped
		i.lastRun = run
	}

	if err != nil {
		i.lastResult = false
		i.lastValue = ""
		var fatal *errors.FatalEngineError
		if stdErrors.As(err, &fatal) {
			i.logger.Error("fatal engine error", "location", fatal.Location, "message", fatal.Message)
		}
		return nil, err
	}

	i.lastResult = v != nil && v.ToBoolean()
	i.lastValue = valueText(v)
	return v, nil
}

// run compiles and runs text, moving through the execution states. A
// compile failure never reaches the running state. Cancelling the command
// context interrupts the script.
func (i *Interpreter) run(c *sandbox.Context, source, text string) (goja.Value, error) {
	i.state = entities.StateCompiling
	prog, err := goja.Compile(source, text, i.config.StrictMode)
	if err != nil {
		i.state = entities.StateFailed
		return nil, &errors.CompileError{Source: source, Err: err}
	}

	i.state = entities.StateRunning
	rt := c.Runtime()
	ctx := c.CommandContext()
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(done)
		rt.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			<-done
		}
		rt.ClearInterrupt()
	}()

	v, err := runProgram(rt, prog, source)
	if err != nil {
		i.state = entities.StateFailed
		var fatal *errors.FatalEngineError
		if stdErrors.As(err, &fatal) {
			return nil, err
		}
		return nil, &errors.RuntimeException{Source: source, Err: err}
	}
	i.state = entities.StateSucceeded
	return v, nil
}

// SetArguments stages in and out to be bound as the globals input and
// output of the next command only. Either may be nil.
func (i *Interpreter) SetArguments(in, out *entities.ArgumentList) bool {
	if i.closed {
		return false
	}
	i.pendingIn, i.pendingOut = in, out
	return true
}

func (i *Interpreter) takeArguments() (in, out *entities.ArgumentList) {
	in, out = i.pendingIn, i.pendingOut
	i.pendingIn, i.pendingOut = nil, nil
	return in, out
}

// bindArguments binds in and out as the globals input and output and
// returns a function restoring the previous bindings.
func (i *Interpreter) bindArguments(c *sandbox.Context, in, out *entities.ArgumentList) func() {
	rt := c.Runtime()
	global := rt.GlobalObject()
	var restores []func()

	bind := func(name string, list *entities.ArgumentList) {
		if list == nil {
			return
		}
		prev := global.Get(name)
		_ = global.Set(name, i.marshaller.NewArgumentListView(rt, list, nil))
		restores = append(restores, func() {
			if prev == nil {
				_ = global.Delete(name)
			} else {
				_ = global.Set(name, prev)
			}
		})
	}
	bind("input", in)
	bind("output", out)

	return func() {
		for _, r := range restores {
			r()
		}
	}
}

// GetLastResult reports the truthiness of the value of the last command.
// A failed command leaves it false.
func (i *Interpreter) GetLastResult() bool {
	return i.lastResult
}

// LastValue returns the text of the value of the last command, or "" when
// it failed or produced undefined.
func (i *Interpreter) LastValue() string {
	return i.lastValue
}

// ShowGlobalOutput sets whether scoped output is also sent to the global
// listeners.
func (i *Interpreter) ShowGlobalOutput(show bool) {
	i.showGlobal = show
}

// IsGlobalOutputShown reports whether scoped output is also sent to the
// global listeners.
func (i *Interpreter) IsGlobalOutputShown() bool {
	return i.showGlobal
}

// State returns the execution state of the most recent command.
func (i *Interpreter) State() entities.ExecState {
	return i.state
}

func (i *Interpreter) logFailure(err error) {
	d := errors.ToErrorDetail(err)
	i.logger.Debug("command failed", "type", d.Type, "code", d.Code, "not_found", d.IsNotFound)
}

func (i *Interpreter) running() bool {
	return i.depth > 0
}

func valueText(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}
