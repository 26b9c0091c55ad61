package hostfuncs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wassette-dev/wassette/internal/domain/sandbox"
)

// guestHarness instantiates a tiny host-module-importing WASM-free stand-in
// by exercising HTTPFetch directly against a fake api.Module, since driving
// a real guest binary through wazero is exercised end to end in
// internal/application/lifecycle instead.
type fakeModule struct {
	api.Module
	mem *fakeMemory
}

func (f *fakeModule) Memory() api.Memory { return f.mem }

func (f *fakeModule) ExportedFunction(name string) api.Function { return nil }

type fakeMemory struct {
	api.Memory
	buf []byte
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, bool) {
	if uint64(offset)+uint64(length) > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset : offset+length], true
}

func TestHTTPFetchDeniesHostNotInAllowList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	request := HTTPRequestWire{Method: "GET", URL: server.URL}
	payload, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	mod := &fakeModule{mem: &fakeMemory{buf: payload}}
	recipe := &sandbox.Recipe{} // no AllowedNetwork rules

	stack := []uint64{packPtrLen(0, uint32(len(payload)))}
	HTTPFetch(context.Background(), mod, stack, recipe)

	if stack[0] != 0 {
		t.Fatalf("expected 0 ptr+len when guest has no allocate export, got %d", stack[0])
	}
}

func TestPackUnpackPtrLenRoundTrip(t *testing.T) {
	packed := packPtrLen(1234, 5678)
	ptr, length := unpackPtrLen(packed)
	if ptr != 1234 || length != 5678 {
		t.Fatalf("round trip mismatch: got ptr=%d length=%d", ptr, length)
	}
}

func TestWithRecipeRoundTrip(t *testing.T) {
	recipe := &sandbox.Recipe{AllowedNetwork: []sandbox.NetworkRule{{Host: "example.com"}}}
	ctx := WithRecipe(context.Background(), recipe)

	got, ok := RecipeFromContext(ctx)
	if !ok {
		t.Fatal("expected recipe to be present in context")
	}
	if got != recipe {
		t.Fatal("expected the same recipe pointer back")
	}

	if _, ok := RecipeFromContext(context.Background()); ok {
		t.Fatal("expected no recipe on a bare context")
	}
}

func TestRegisterInstallsHTTPFetchExport(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	if err := Register(ctx, runtime); err != nil {
		t.Fatalf("Register: %v", err)
	}

	host := runtime.Module(HostModuleName)
	if host == nil {
		t.Fatal("expected wassette_host module to be instantiated")
	}
	if host.ExportedFunction("http_fetch") == nil {
		t.Fatal("expected http_fetch export on the host module")
	}
}
