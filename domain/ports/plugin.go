package ports

import (
	"context"

	"github.com/reglet-dev/reglet-script/domain/entities"
)

// Plugin is a host-defined computational unit with declared input and
// output arguments.
type Plugin interface {
	// Descriptor identifies the plug-in.
	Descriptor() entities.PluginDescriptor

	// InputSpecification returns a new list declaring the plug-in inputs.
	InputSpecification() (*entities.ArgumentList, error)

	// OutputSpecification returns a new list declaring the plug-in outputs.
	OutputSpecification() (*entities.ArgumentList, error)

	// Execute runs the plug-in. It reports success as a boolean; err carries
	// the reason for an unsuccessful run when one is known.
	Execute(ctx context.Context, in, out *entities.ArgumentList, progress Progress) (bool, error)
}

// ModeSetter is implemented by plug-ins that distinguish batch and
// interactive execution.
type ModeSetter interface {
	SetBatch() bool
	SetInteractive() bool
}
