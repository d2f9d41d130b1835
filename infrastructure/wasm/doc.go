// Package wasm loads WebAssembly modules as plug-ins using the wazero
// runtime.
//
// A guest module exports:
//
//   - allocate(size i32) i32: reserves guest memory for host-written data
//   - describe() i64: returns the packed ptr+len of a JSON Descriptor
//   - execute(ptr i32, len i32) i64: takes a JSON ExecuteRequest and
//     returns the packed ptr+len of a JSON ExecuteResponse
//
// Packed values carry the pointer in the upper 32 bits and the length in
// the lower 32 bits. The host module "reglet_host" offers log_message and
// report_progress, each taking one packed JSON payload.
//
// # Basic Usage
//
//	rt, err := wasm.NewRuntime(ctx)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	desc, err := rt.Register(ctx, registry, wasmBytes)
package wasm
