package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// ComponentDescriptor is the JSON shape wassette-describe returns:
// one entry per exported function, in the tagged-union vocabulary the
// schema bridge projects into JSON Schema.
type ComponentDescriptor struct {
	Exports []ExportDescriptor `json:"exports"`
}

// ExportDescriptor names one guest-callable export and its typed
// signature, mirroring value.Func.
type ExportDescriptor struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"` // []value.Field, decoded by the schema bridge
	Result json.RawMessage `json:"result"` // value.Type, decoded by the schema bridge
	Doc    string          `json:"doc"`
}

const opDescribe = "lifecycle.describe"

// describe calls wassette-describe on a freshly instantiated module
// and returns its decoded descriptor. Grounded on the teacher's
// Plugin.Describe, generalized from a fixed PluginInfo shape to a
// per-export ComponentDescriptor.
func describe(ctx context.Context, instance api.Module) (*ComponentDescriptor, error) {
	fn := instance.ExportedFunction("wassette-describe")
	if fn == nil {
		return nil, wassetteerr.New(wassetteerr.Compile, opDescribe, "MissingDescribe", "component does not export wassette-describe", nil)
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Compile, opDescribe, "CallFailed", "calling wassette-describe", err)
	}
	if len(results) == 0 {
		return nil, wassetteerr.New(wassetteerr.Compile, opDescribe, "EmptyResult", "wassette-describe returned no results", nil)
	}

	data, err := readPacked(ctx, instance, results[0])
	if err != nil {
		return nil, err
	}
	var descriptor ComponentDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, wassetteerr.New(wassetteerr.Compile, opDescribe, "InvalidDescriptor", "decoding wassette-describe result", err)
	}
	return &descriptor, nil
}

const opInvoke = "lifecycle.invokeExport"

// invokeExport writes argsJSON into guest memory, calls export with
// the packed ptr+len convention, and returns the decoded result bytes.
// Grounded on Plugin.Observe's writeToMemory/call/readString sequence,
// generalized from the fixed export name "observe" to any export name.
func invokeExport(ctx context.Context, instance api.Module, export string, argsJSON []byte) ([]byte, error) {
	fn := instance.ExportedFunction(export)
	if fn == nil {
		return nil, wassetteerr.New(wassetteerr.Invoke, opInvoke, "NoSuchExport", "component does not export "+export, nil)
	}

	argPtr, err := writeToMemory(ctx, instance, argsJSON)
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Invoke, opInvoke, "MemoryWriteFailed", "writing arguments to guest memory", err)
	}
	defer deallocate(ctx, instance, argPtr, uint32(len(argsJSON)))

	results, err := fn.Call(ctx, uint64(argPtr), uint64(len(argsJSON)))
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Invoke, opInvoke, "CallFailed", "calling "+export, err)
	}
	if len(results) == 0 {
		return nil, wassetteerr.New(wassetteerr.Invoke, opInvoke, "EmptyResult", export+" returned no results", nil)
	}

	return readPacked(ctx, instance, results[0])
}

func readPacked(ctx context.Context, instance api.Module, packed uint64) ([]byte, error) {
	ptr := uint32(packed >> 32)
	size := uint32(packed & 0xFFFFFFFF)
	if ptr == 0 || size == 0 {
		return nil, wassetteerr.New(wassetteerr.Invoke, opInvoke, "NullResult", "export returned null pointer or zero length", nil)
	}
	defer deallocate(ctx, instance, ptr, size)

	data, ok := instance.Memory().Read(ptr, size)
	if !ok {
		return nil, wassetteerr.New(wassetteerr.Invoke, opInvoke, "MemoryReadFailed", fmt.Sprintf("reading %d bytes at offset %d", size, ptr), nil)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func writeToMemory(ctx context.Context, instance api.Module, data []byte) (uint32, error) {
	allocateFn := instance.ExportedFunction("allocate")
	if allocateFn == nil {
		return 0, fmt.Errorf("component does not export allocate()")
	}
	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("calling allocate(): %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocate() returned no results")
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, fmt.Errorf("allocate() returned null pointer")
	}
	if !instance.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("writing to guest memory at offset %d", ptr)
	}
	return ptr, nil
}

// deallocate is best-effort: a panic inside it must never clobber an
// in-flight error or result from the caller.
func deallocate(ctx context.Context, instance api.Module, ptr, size uint32) {
	defer func() { _ = recover() }()
	fn := instance.ExportedFunction("deallocate")
	if fn == nil {
		return
	}
	_, _ = fn.Call(ctx, uint64(ptr), uint64(size))
}
