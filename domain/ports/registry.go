package ports

import "github.com/reglet-dev/reglet-script/domain/entities"

// PluginFactory creates a fresh plug-in instance.
type PluginFactory func() (Plugin, error)

// PluginRegistry resolves plug-in names to instances.
type PluginRegistry interface {
	// Register adds a plug-in under desc.Name.
	Register(desc entities.PluginDescriptor, factory PluginFactory) error

	// Create instantiates the named plug-in.
	Create(name string) (Plugin, error)

	// Descriptor returns the descriptor of the named plug-in.
	Descriptor(name string) (entities.PluginDescriptor, bool)

	// List returns all registered plug-in names, sorted.
	List() []string
}
