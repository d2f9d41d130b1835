// Package entities provides the core domain entities of the script bridge:
// typed plug-in arguments, argument lists, plug-in descriptors and the
// configuration of an interpreter.
package entities
