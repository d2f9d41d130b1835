package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/reglet-dev/reglet-script/application/handle"
	"github.com/reglet-dev/reglet-script/application/marshal"
	"github.com/reglet-dev/reglet-script/application/module"
	"github.com/reglet-dev/reglet-script/application/sandbox"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
	"github.com/reglet-dev/reglet-script/support"
)

const (
	commandSource = "<command>"
	scopedSource  = "<scoped>"
	startupBanner = "JavaScript console ready. Type help() for help."
)

var (
	errNotStarted = stdErrors.New("interpreter has not been started")
	errClosed     = stdErrors.New("interpreter has been closed")
)

// Interpreter hosts one persistent global context and creates a fresh
// context for every scoped command. It is not safe for concurrent use.
type Interpreter struct {
	registry   ports.PluginRegistry
	supportFS  fs.FS
	marshaller *marshal.Marshaller
	logger     *slog.Logger
	globalOut  ports.Listener
	globalErr  ports.Listener
	middleware []sandbox.Middleware

	handles *handle.TrackedHandleSet
	loader  *module.Loader
	builder *sandbox.Builder
	global  *sandbox.Context

	pendingIn  *entities.ArgumentList
	pendingOut *entities.ArgumentList
	lastRun    *entities.RunMetadata
	lastValue  string

	startupMessage string
	config         entities.Config
	state          entities.ExecState
	commands       uint64
	depth          int
	lastResult     bool
	showGlobal     bool
	started        bool
	closed         bool
}

// New creates an interpreter resolving plug-ins against registry. The
// built-in wizard plug-in is registered on registry when it is not
// already present.
func New(registry ports.PluginRegistry, opts ...Option) *Interpreter {
	i := &Interpreter{
		registry: registry,
		config:   entities.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.globalOut == nil {
		i.globalOut = ports.Discard
	}
	if i.globalErr == nil {
		i.globalErr = ports.Discard
	}
	if i.marshaller == nil {
		i.marshaller = marshal.New()
	}
	i.showGlobal = i.config.ShowGlobalOutput
	i.handles = handle.NewTrackedHandleSet(i.logger)

	if err := RegisterWizard(registry); err != nil {
		i.logger.Debug("wizard plug-in not registered", "error", err)
	}
	return i
}

// Start builds the global context and runs the startup script. It returns
// false when the context cannot be built or the startup script fails; the
// reason is reported to the global error listener and kept for
// GetStartupMessage.
func (i *Interpreter) Start(ctx context.Context) bool {
	if i.started {
		return i.IsStarted()
	}
	if i.closed {
		i.startupMessage = errClosed.Error()
		return false
	}

	if err := i.start(ctx); err != nil {
		i.startupMessage = err.Error()
		i.globalErr(i.startupMessage)
		i.logger.Error("interpreter failed to start", "error", err)
		i.global = nil
		return false
	}
	i.started = true
	i.logger.Debug("interpreter started", "support", i.config.SupportDir, "prelude", i.config.Prelude)
	return true
}

func (i *Interpreter) start(ctx context.Context) error {
	if i.supportFS == nil {
		if i.config.SupportDir != "" {
			i.supportFS = os.DirFS(i.config.SupportDir)
		} else {
			i.supportFS = support.FS()
		}
	}

	i.loader = module.NewLoader(i.supportFS,
		module.WithStrict(i.config.StrictMode),
		module.WithLogger(i.logger),
	)
	bridge := handle.NewBridge(i.registry, i.marshaller, i.handles, i.logger)

	var err error
	i.builder, err = sandbox.NewBuilder(i.loader, bridge,
		sandbox.WithPrelude(i.config.Prelude...),
		sandbox.WithBindingMiddleware(i.middleware...),
		sandbox.WithLogger(i.logger),
	)
	if err != nil {
		return err
	}

	i.global, err = i.builder.NewContext(ctx, globalSink{i: i}, nil, false)
	if err != nil {
		return fmt.Errorf("cannot create global context: %w", err)
	}

	if i.config.StartupScript == "" {
		return nil
	}
	file, err := i.loader.Resolve(i.config.StartupScript)
	if err != nil {
		return fmt.Errorf("startup script: %w", err)
	}
	src, err := fs.ReadFile(i.supportFS, file)
	if err != nil {
		return fmt.Errorf("startup script: %w", err)
	}

	i.global.SetCommandContext(i.commandContext(ctx))
	defer i.global.SetCommandContext(nil)
	if _, err := i.run(i.global, file, string(src)); err != nil {
		return fmt.Errorf("startup script: %w", err)
	}
	return nil
}

// IsStarted reports whether Start succeeded, Close has not been called and
// no fatal engine error has been recorded in the process.
func (i *Interpreter) IsStarted() bool {
	return i.started && !i.closed && FatalError() == nil
}

// GetStartupMessage describes the current availability of the interpreter.
func (i *Interpreter) GetStartupMessage() string {
	if fatal := FatalError(); fatal != nil {
		return fatal.Error()
	}
	if i.startupMessage != "" {
		return i.startupMessage
	}
	if !i.started {
		return errNotStarted.Error()
	}
	return startupBanner
}

// unavailable explains why commands cannot run.
func (i *Interpreter) unavailable() error {
	if fatal := FatalError(); fatal != nil {
		return fatal
	}
	if i.closed {
		return errClosed
	}
	return errNotStarted
}

// GetPrompt returns the prompt interactive front ends show.
func (i *Interpreter) GetPrompt() string {
	return i.config.Prompt
}

// Registry returns the plug-in registry scripts create plug-ins from.
func (i *Interpreter) Registry() ports.PluginRegistry {
	return i.registry
}

// Handles returns the set tracking every live plug-in handle.
func (i *Interpreter) Handles() *handle.TrackedHandleSet {
	return i.handles
}

// Modules lists the modules require can load.
func (i *Interpreter) Modules() ([]string, error) {
	if i.loader == nil {
		return nil, errNotStarted
	}
	return i.loader.Available()
}

// LastRun returns the timing of the most recent top-level command.
func (i *Interpreter) LastRun() *entities.RunMetadata {
	return i.lastRun
}

// Close releases every tracked plug-in handle, then drops the global
// context. Later calls do nothing.
func (i *Interpreter) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	released := i.handles.ReleaseAll()
	i.global = nil
	i.pendingIn, i.pendingOut = nil, nil
	i.logger.Debug("interpreter closed", "released", released)
	return nil
}

// commandContext decorates ctx with the values plug-ins may look up while
// a command runs.
func (i *Interpreter) commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	i.commands++
	return withCommand(ctx, i, i.commands)
}

// globalSink routes output of the persistent context.
type globalSink struct {
	i *Interpreter
}

func (s globalSink) Output(text string) { s.i.globalOut(text) }
func (s globalSink) Error(text string)  { s.i.globalErr(text) }

// scopedSink routes output of one scoped command. After detach nothing is
// forwarded.
type scopedSink struct {
	i        *Interpreter
	out      ports.Listener
	errOut   ports.Listener
	detached bool
}

func (s *scopedSink) Output(text string) {
	if s.detached {
		return
	}
	if s.out != nil {
		s.out(text)
	}
	if s.i.showGlobal {
		s.i.globalOut(text)
	}
}

func (s *scopedSink) Error(text string) {
	if s.detached {
		return
	}
	if s.errOut != nil {
		s.errOut(text)
	}
	if s.i.showGlobal {
		s.i.globalErr(text)
	}
}

func (s *scopedSink) detach() {
	s.detached = true
	s.out, s.errOut = nil, nil
}

// firstLine trims multi-line engine messages for progress reports.
func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
