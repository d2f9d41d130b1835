package wasm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
	"github.com/reglet-dev/reglet-script/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// DefaultMaxMessageSize limits payloads exchanged with a guest.
const DefaultMaxMessageSize uint32 = 1 << 20

// runtimeConfig holds configuration for the Runtime.
type runtimeConfig struct {
	logger         *slog.Logger
	moduleName     string
	maxMessageSize uint32
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		logger:         slog.Default(),
		moduleName:     "reglet_host",
		maxMessageSize: DefaultMaxMessageSize,
	}
}

// RuntimeOption configures the Runtime.
type RuntimeOption func(*runtimeConfig)

// WithLogger sets the logger receiving guest log messages.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithModuleName sets the host module name (default: "reglet_host").
func WithModuleName(name string) RuntimeOption {
	return func(c *runtimeConfig) {
		c.moduleName = name
	}
}

// WithMaxMessageSize sets the maximum payload size read from guest memory.
func WithMaxMessageSize(size uint32) RuntimeOption {
	return func(c *runtimeConfig) {
		c.maxMessageSize = size
	}
}

// Runtime compiles and instantiates WASM plug-in modules.
type Runtime struct {
	runtime wazero.Runtime
	config  runtimeConfig
}

// NewRuntime creates a wazero runtime with WASI and the host module.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	r := &Runtime{runtime: rt, config: cfg}

	if err := r.registerHostFunctions(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}
	return r, nil
}

// Close releases every module instantiated by the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Load compiles wasmBytes and reads the plug-in descriptor from a probe
// instance.
func (r *Runtime) Load(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	m := &Module{runtime: r, compiled: compiled}
	probe, err := m.instantiate(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = probe.Close(ctx) }()

	packed, err := callRaw(ctx, probe, "describe", nil)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	data, err := readPacked(probe, packed, r.config.maxMessageSize)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	if err := json.Unmarshal(data, &m.desc); err != nil {
		return nil, fmt.Errorf("describe: invalid descriptor: %w", err)
	}
	if err := validateDescriptor(&m.desc); err != nil {
		return nil, err
	}
	return m, nil
}

// Register loads wasmBytes and registers the plug-in it describes.
func (r *Runtime) Register(ctx context.Context, reg ports.PluginRegistry, wasmBytes []byte) (entities.PluginDescriptor, error) {
	m, err := r.Load(ctx, wasmBytes)
	if err != nil {
		return entities.PluginDescriptor{}, err
	}
	desc := m.PluginDescriptor()
	if err := reg.Register(desc, m.Factory()); err != nil {
		return entities.PluginDescriptor{}, err
	}
	return desc, nil
}

func validateDescriptor(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("describe: plug-in name is required")
	}
	if _, err := entities.BuildArgumentList(d.Inputs); err != nil {
		return fmt.Errorf("describe: inputs: %w", err)
	}
	if _, err := entities.BuildArgumentList(d.Outputs); err != nil {
		return fmt.Errorf("describe: outputs: %w", err)
	}
	return nil
}

func (r *Runtime) registerHostFunctions(ctx context.Context) error {
	builder := r.runtime.NewHostModuleBuilder(r.config.moduleName)

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			payload, ok := r.readPayload(m, packed)
			if !ok {
				return
			}
			logger := r.config.logger.With("plugin", pluginName(ctx, m.Name()))

			var msg logMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				logger.Info("plugin log (raw)", "payload", string(payload))
				return
			}
			level, err := log.ParseLevel(msg.Level)
			if err != nil {
				level = slog.LevelInfo
			}
			logger.Log(ctx, level, msg.Message)
		}).
		Export("log_message")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			payload, ok := r.readPayload(m, packed)
			if !ok {
				return
			}
			progress, ok := progressFrom(ctx)
			if !ok {
				return
			}
			var msg progressMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				r.config.logger.Debug("invalid progress payload", "plugin", pluginName(ctx, m.Name()), "error", err)
				return
			}
			if msg.Level == "" {
				msg.Level = entities.ProgressNormal
			}
			progress.UpdateProgress(msg.Message, msg.Percent, msg.Level)
		}).
		Export("report_progress")

	_, err := builder.Instantiate(ctx)
	return err
}

func (r *Runtime) readPayload(m api.Module, packed uint64) ([]byte, bool) {
	ptr, length := unpackPtrLen(packed)
	if length > r.config.maxMessageSize {
		r.config.logger.Warn("guest payload too large", "size", length, "max", r.config.maxMessageSize)
		return nil, false
	}
	return m.Memory().Read(ptr, length)
}
