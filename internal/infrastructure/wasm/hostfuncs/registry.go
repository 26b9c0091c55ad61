package hostfuncs

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wassette-dev/wassette/internal/domain/sandbox"
)

// HostModuleName is the import namespace components call into for
// host-mediated network access.
const HostModuleName = "wassette_host"

// Register installs the "wassette_host" module's http_fetch import on
// runtime once for the runtime's whole lifetime. Every component
// compiled against this import name shares the one registration;
// which SandboxRecipe a given call is gated by comes from the
// invocation's context (see WithRecipe), set by the lifecycle manager
// immediately before each instantiate/call, not from a value captured
// at registration time — a runtime-wide host module cannot be
// re-registered per component, since components share one import
// namespace, but each invocation's recipe still differs per component
// and per policy mutation. Generalized from the teacher's
// RegisterHostFunctions, which registered one function per capability
// kind (dns_lookup/http_request/tcp_connect/smtp_connect/exec_command)
// against a plugin-name-keyed CapabilityChecker — SPEC_FULL.md §4.4
// names only the outbound-HTTP binding, so the rest are dropped rather
// than adapted (see DESIGN.md).
func Register(ctx context.Context, runtime wazero.Runtime) error {
	_, err := runtime.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			recipe, ok := RecipeFromContext(ctx)
			if !ok {
				stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
					Error: &ErrorDetail{Message: "hostfuncs: no sandbox recipe bound to this call", Type: "internal"},
				})
				return
			}
			HTTPFetch(ctx, mod, stack, recipe)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("http_fetch").
		Instantiate(ctx)
	return err
}

type contextKey struct{ name string }

var recipeKey = &contextKey{name: "sandbox_recipe"}

// WithRecipe binds recipe to ctx for the duration of one instantiate
// or invoke call, so http_fetch calls made during that call are gated
// by the calling component's current policy.
func WithRecipe(ctx context.Context, recipe *sandbox.Recipe) context.Context {
	return context.WithValue(ctx, recipeKey, recipe)
}

// RecipeFromContext retrieves the recipe bound by WithRecipe.
func RecipeFromContext(ctx context.Context) (*sandbox.Recipe, bool) {
	recipe, ok := ctx.Value(recipeKey).(*sandbox.Recipe)
	return recipe, ok
}
