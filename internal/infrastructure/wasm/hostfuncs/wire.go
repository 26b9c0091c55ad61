// Package hostfuncs implements the guest-facing host-function boundary:
// a single "http_fetch" import gated by the invoking component's
// SandboxRecipe, generalized from the teacher's
// internal/infrastructure/wasm/hostfuncs/{http.go,registry.go}
// (dnsPinningTransport, packed-ptr-len wire calling convention) from a
// plugin-name-keyed CapabilityChecker to the record's attached
// *sandbox.Recipe — per SPEC_FULL.md §4.4, network policy is enforced
// at this boundary, not inside the component.
package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// HTTPRequestWire is the packed-JSON request a guest export sends to
// the http_fetch host import.
type HTTPRequestWire struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    string              `json:"body,omitempty"` // base64
}

// HTTPResponseWire is the packed-JSON response returned to the guest.
type HTTPResponseWire struct {
	StatusCode    int                 `json:"statusCode,omitempty"`
	Headers       map[string][]string `json:"headers,omitempty"`
	Body          string              `json:"body,omitempty"` // base64
	BodyTruncated bool                `json:"bodyTruncated,omitempty"`
	Error         *ErrorDetail        `json:"error,omitempty"`
}

// ErrorDetail structures a host-function failure for the guest.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"` // "capability", "network", "config", "internal"
}

func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed) //nolint:gosec // packed format stores 32-bit halves
}

// hostWriteResponse marshals response, allocates guest memory via the
// module's "allocate" export, copies the bytes in, and returns the
// packed ptr+len the guest reads back.
func hostWriteResponse(ctx context.Context, mod api.Module, response any) uint64 {
	data, err := json.Marshal(response)
	if err != nil {
		data, _ = json.Marshal(HTTPResponseWire{Error: &ErrorDetail{
			Message: fmt.Sprintf("hostfuncs: failed to marshal response: %v", err),
			Type:    "internal",
		}})
	}

	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		return 0
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // WASM32 addresses fit in 32 bits

	if !mod.Memory().Write(ptr, data) {
		return 0
	}
	return packPtrLen(ptr, uint32(len(data))) //nolint:gosec // bounded by guest memory limit
}
