package wasm

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
	"github.com/reglet-dev/reglet-script/internal/execcontext"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Module is a compiled plug-in module. Every plug-in it creates runs in
// its own instance.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
	desc     Descriptor
}

// Descriptor returns the descriptor the guest reported.
func (m *Module) Descriptor() Descriptor { return m.desc }

// PluginDescriptor returns the registry descriptor of the module.
func (m *Module) PluginDescriptor() entities.PluginDescriptor {
	return entities.PluginDescriptor{
		Name:        m.desc.Name,
		Version:     m.desc.Version,
		Description: m.desc.Description,
		Creator:     m.desc.Creator,
		Kind:        entities.PluginKindWasm,
	}
}

// Factory returns a factory instantiating the module per plug-in.
func (m *Module) Factory() ports.PluginFactory {
	return func() (ports.Plugin, error) {
		inst, err := m.instantiate(context.Background())
		if err != nil {
			return nil, err
		}
		return &Plugin{module: m, instance: inst}, nil
	}
}

func (m *Module) instantiate(ctx context.Context) (api.Module, error) {
	// Anonymous instances may coexist.
	cfg := wazero.NewModuleConfig().WithName("").WithStartFunctions()
	mod, err := m.runtime.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}
	return mod, nil
}

// Plugin is one instance of a WASM plug-in module.
type Plugin struct {
	module    *Module
	instance  api.Module
	closeOnce sync.Once
	batch     bool
}

// Descriptor implements ports.Plugin.
func (p *Plugin) Descriptor() entities.PluginDescriptor {
	return p.module.PluginDescriptor()
}

// InputSpecification implements ports.Plugin.
func (p *Plugin) InputSpecification() (*entities.ArgumentList, error) {
	return entities.BuildArgumentList(p.module.desc.Inputs)
}

// OutputSpecification implements ports.Plugin.
func (p *Plugin) OutputSpecification() (*entities.ArgumentList, error) {
	return entities.BuildArgumentList(p.module.desc.Outputs)
}

// SetBatch implements ports.ModeSetter.
func (p *Plugin) SetBatch() bool {
	p.batch = true
	return true
}

// SetInteractive implements ports.ModeSetter.
func (p *Plugin) SetInteractive() bool {
	p.batch = false
	return true
}

// Execute implements ports.Plugin. Inputs are sent as JSON; the outputs the
// guest returns are coerced to their declared types.
func (p *Plugin) Execute(ctx context.Context, in, out *entities.ArgumentList, progress ports.Progress) (bool, error) {
	req := ExecuteRequest{
		Inputs:  encodeInputs(in),
		Context: execcontext.ToWire(ctx),
		Batch:   p.batch,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return false, &errors.WireFormatError{Operation: "marshal", Type: "ExecuteRequest", Err: err}
	}

	callCtx := withCall(ctx, p.module.desc.Name, progress)
	packed, err := callRaw(callCtx, p.instance, "execute", payload)
	if err != nil {
		return false, fmt.Errorf("execute: %w", err)
	}
	data, err := readPacked(p.instance, packed, p.module.runtime.config.maxMessageSize)
	if err != nil {
		return false, fmt.Errorf("execute: %w", err)
	}

	var resp ExecuteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return false, &errors.WireFormatError{Operation: "unmarshal", Type: "ExecuteResponse", Err: err}
	}
	if err := decodeOutputs(out, resp.Outputs); err != nil {
		return false, err
	}
	if !resp.Success {
		if resp.Error != "" {
			return false, stdErrors.New(resp.Error)
		}
		return false, nil
	}
	return true, nil
}

// Close releases the module instance.
func (p *Plugin) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.instance.Close(context.Background())
	})
	return err
}

func encodeInputs(in *entities.ArgumentList) map[string]any {
	values := make(map[string]any)
	if in == nil {
		return values
	}
	for _, arg := range in.Arguments() {
		if v, ok := arg.Value(); ok {
			values[arg.Name()] = v
		}
	}
	return values
}

func decodeOutputs(out *entities.ArgumentList, raw map[string]json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if out == nil {
		return fmt.Errorf("plugin returned outputs but declares none")
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		arg, ok := out.Get(name)
		if !ok {
			return fmt.Errorf("plugin returned undeclared output %q", name)
		}
		var v any
		if err := json.Unmarshal(raw[name], &v); err != nil {
			return &errors.WireFormatError{Operation: "unmarshal", Type: arg.Type(), Err: err}
		}
		coerced, err := entities.Coerce(arg.Type(), v)
		if err != nil {
			return fmt.Errorf("output %q: %w", name, err)
		}
		if err := out.SetValue(name, coerced); err != nil {
			return fmt.Errorf("output %q: %w", name, err)
		}
	}
	return nil
}
