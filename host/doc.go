// Package host embeds a JavaScript interpreter that scripts host plug-ins.
//
// An Interpreter keeps one persistent global context for interactive
// commands and builds a fresh context for every scoped command. Scripts
// reach the host only through the sandbox bindings: console output,
// require for modules in the support directory, and create for plug-ins
// found in the registry. Plug-in arguments are exposed to script as typed
// views that convert values on every read and write.
//
// A host panic escaping the engine is recorded as a process-wide fatal
// error, after which no interpreter in the process accepts commands.
//
// Script plug-ins are declared by YAML manifests loaded with a Loader and
// registered with Interpreter.RegisterScriptPlugin.
package host
