// Package ports defines the interfaces the script bridge consumes.
// Plug-ins, registries, output listeners and progress sinks are supplied by
// the host; the bridge depends only on these abstractions.
package ports
