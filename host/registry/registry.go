// Package registry provides the in-memory plug-in registry consulted by
// the script constructor.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/reglet-dev/reglet-script/application/schema"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true, // Secure default: prevent accidental overwrites
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates). Disable only for testing or hot-reloading.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

type entry struct {
	factory ports.PluginFactory
	desc    entities.PluginDescriptor
}

// Registry implements ports.PluginRegistry.
type Registry struct {
	entries sync.Map // map[string]entry
	config  registryConfig
}

// NewRegistry creates a new Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{config: cfg}
}

// Register adds a plug-in factory under desc.Name.
func (r *Registry) Register(desc entities.PluginDescriptor, factory ports.PluginFactory) error {
	if desc.Name == "" {
		return fmt.Errorf("plug-in name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("plug-in %q has no factory", desc.Name)
	}
	if r.config.strictMode {
		if _, exists := r.entries.Load(desc.Name); exists {
			return fmt.Errorf("plug-in %q already registered", desc.Name)
		}
	}
	r.entries.Store(desc.Name, entry{desc: desc, factory: factory})
	return nil
}

// Create instantiates the named plug-in.
func (r *Registry) Create(name string) (ports.Plugin, error) {
	v, ok := r.entries.Load(name)
	if !ok {
		return nil, &errors.PluginNotFound{Name: name}
	}
	p, err := v.(entry).factory()
	if err != nil {
		return nil, &errors.PluginNotFound{Name: name, Err: err}
	}
	if p == nil {
		return nil, &errors.PluginNotFound{Name: name, Err: fmt.Errorf("factory returned no instance")}
	}
	return p, nil
}

// Descriptor returns the descriptor of the named plug-in.
func (r *Registry) Descriptor(name string) (entities.PluginDescriptor, bool) {
	v, ok := r.entries.Load(name)
	if !ok {
		return entities.PluginDescriptor{}, false
	}
	return v.(entry).desc, true
}

// List returns all registered plug-in names, sorted.
func (r *Registry) List() []string {
	var keys []string
	r.entries.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// GetSchema describes the inputs and outputs of the named plug-in as JSON
// Schema documents. A throwaway instance is created to read the
// specifications.
func (r *Registry) GetSchema(name string) (input, output []byte, err error) {
	p, err := r.Create(name)
	if err != nil {
		return nil, nil, err
	}
	if c, ok := p.(interface{ Close() error }); ok {
		defer c.Close()
	}

	in, err := p.InputSpecification()
	if err != nil {
		return nil, nil, &errors.SchemaError{Type: name, Err: err}
	}
	out, err := p.OutputSpecification()
	if err != nil {
		return nil, nil, &errors.SchemaError{Type: name, Err: err}
	}

	if input, err = schema.ForArguments(name+" input", in); err != nil {
		return nil, nil, err
	}
	if output, err = schema.ForArguments(name+" output", out); err != nil {
		return nil, nil, err
	}
	return input, output, nil
}
