// Package lifecycle owns the component table and orchestrates load,
// invoke, reload, unload, and policy-mutation operations. Grounded on
// the teacher's internal/infrastructure/wasm/runtime.go (double-checked
// locking LoadPlugin) and plugin.go (per-call fresh instance,
// describe/invoke ABI), generalized from a single fixed plugin
// contract to the spec's dynamic per-export component contract.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"golang.org/x/sync/errgroup"

	"github.com/wassette-dev/wassette/internal/domain/policy"
	"github.com/wassette-dev/wassette/internal/domain/resolver"
	"github.com/wassette-dev/wassette/internal/domain/sandbox"
	"github.com/wassette-dev/wassette/internal/domain/schema"
	"github.com/wassette-dev/wassette/internal/domain/value"
	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
	"github.com/wassette-dev/wassette/internal/infrastructure/policystore"
	"github.com/wassette-dev/wassette/internal/infrastructure/redaction"
	"github.com/wassette-dev/wassette/internal/infrastructure/wasm/hostfuncs"
)

// globalCompilationCache speeds up recompilation across reloads of the
// same component bytes, mirroring the teacher's package-level
// globalCache in runtime.go.
var globalCompilationCache = wazero.NewCompilationCache()

// Manager owns the shared wazero.Runtime and the component table.
type Manager struct {
	runtime    wazero.Runtime
	resolver   *resolver.Resolver
	redactor   *redaction.Redactor
	frozenEnv  []string
	table      *Table
	registryFn func(uri string) (string, error) // resolves a bare component name via the registry; nil if none configured
	policies   *policystore.Store                // nil disables on-disk policy persistence
}

// New constructs a Manager. redactor may be nil to disable output
// scrubbing.
func New(ctx context.Context, res *resolver.Resolver, redactor *redaction.Redactor) (*Manager, error) {
	cfg := sandbox.RuntimeConfig(0)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg.WithCompilationCache(globalCompilationCache))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, wassetteerr.Internalf("lifecycle.New", err, "instantiating WASI")
	}
	if err := hostfuncs.Register(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, wassetteerr.Internalf("lifecycle.New", err, "registering host functions")
	}
	return &Manager{
		runtime:   rt,
		resolver:  res,
		redactor:  redactor,
		frozenEnv: sandbox.FrozenEnviron(),
		table:     newTable(),
	}, nil
}

// SetRegistryLookup wires a bare-name resolver (component-registry
// search) consulted by LoadComponent before a non-URI argument is
// treated as a FetchError: NotFound, per §4.5.
func (m *Manager) SetRegistryLookup(fn func(name string) (string, error)) {
	m.registryFn = fn
}

// SetPolicyStore wires on-disk policy persistence: LoadComponent
// consults it for a prior grant when the caller supplies no policy,
// and every grant-*/revoke-*/attach-policy mutation is saved back to
// it. A nil store (the default) keeps every ComponentRecord's policy
// purely in-process, matching spec.md's "component state is
// in-process" baseline; configuring one is a supplement, grounded on
// how the teacher's own FileStore persists grants across restarts.
func (m *Manager) SetPolicyStore(store *policystore.Store) {
	m.policies = store
}

func (m *Manager) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

const opLoad = "lifecycle.LoadComponent"

// LoadResult reports the outcome of LoadComponent.
type LoadResult struct {
	ID       ComponentID
	Reloaded bool
	Tools    []*Tool
}

// LoadComponent resolves uri (or a bare registry name), compiles it,
// derives its SandboxRecipe from pol (a default empty-allow-list
// policy when pol is nil), instantiates once to verify soundness and
// derive each export's schema, and installs the record, replacing any
// prior record for the same id.
func (m *Manager) LoadComponent(ctx context.Context, uri string, pol *policy.Policy) (*LoadResult, error) {
	canonical, _, err := resolver.Canonicalize(uri)
	if err != nil {
		if m.registryFn == nil {
			return nil, wassetteerr.New(wassetteerr.Resolve, opLoad, "NotFound", "uri has no scheme and no registry is configured: "+uri, err)
		}
		resolved, lookupErr := m.registryFn(uri)
		if lookupErr != nil {
			return nil, wassetteerr.New(wassetteerr.Resolve, opLoad, "NotFound", "resolving registry name "+uri, lookupErr)
		}
		canonical, _, err = resolver.Canonicalize(resolved)
		if err != nil {
			return nil, wassetteerr.New(wassetteerr.Resolve, opLoad, "NotFound", "registry entry has invalid uri: "+resolved, err)
		}
		uri = resolved
	}

	fetched, err := m.resolver.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	wasmBytes, err := os.ReadFile(fetched.LocalPath)
	if err != nil {
		return nil, wassetteerr.Internalf(opLoad, err, "reading fetched artifact")
	}

	compiled, err := m.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Compile, opLoad, "CompileFailed", "compiling component", err)
	}

	if pol == nil {
		if persisted, found, loadErr := m.policies.Load(canonical); loadErr == nil && found {
			pol = persisted
		} else {
			pol = policy.Default()
		}
	}
	recipe, err := sandbox.Build(pol)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, wassetteerr.New(wassetteerr.Validation, opLoad, "InvalidPolicy", "building sandbox recipe", err)
	}

	id := ComponentID(canonical)
	rec := &record{id: id, uri: uri, module: compiled, policy: pol, recipe: recipe}

	tools, err := m.deriveTools(ctx, rec)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	rec.tools = tools

	reloaded := m.table.put(rec)

	toolList := make([]*Tool, 0, len(tools))
	for _, tool := range tools {
		toolList = append(toolList, tool)
	}
	return &LoadResult{ID: id, Reloaded: reloaded, Tools: toolList}, nil
}

const opUnload = "lifecycle.UnloadComponent"

// UnloadComponent removes id's record. Idempotent: unloading an
// unknown id is a no-op rather than an error, matching §4.5.
func (m *Manager) UnloadComponent(ctx context.Context, id ComponentID) error {
	rec, ok := m.table.get(id)
	if !ok {
		return nil
	}
	m.table.delete(id)
	return rec.module.Close(ctx)
}

// ComponentInfo summarizes one table entry for list-components.
type ComponentInfo struct {
	ID     ComponentID
	URI    string
	Tools  []string
	Policy *policy.Policy
}

// ListComponents returns a snapshot of every loaded component.
func (m *Manager) ListComponents() []ComponentInfo {
	records := m.table.list()
	out := make([]ComponentInfo, 0, len(records))
	for _, rec := range records {
		rec.mu.RLock()
		names := make([]string, 0, len(rec.tools))
		for name := range rec.tools {
			names = append(names, name)
		}
		out = append(out, ComponentInfo{ID: rec.id, URI: rec.uri, Tools: names, Policy: rec.policy.Clone()})
		rec.mu.RUnlock()
	}
	return out
}

// deriveTools instantiates rec's module once, calls wassette-describe,
// and fans schema derivation for each export out across goroutines
// with errgroup — the teacher has no analogous fan-out (its single
// schema() call is sequential), so this is a direct generalization
// motivated by components potentially declaring many exports.
func (m *Manager) deriveTools(ctx context.Context, rec *record) (map[string]*Tool, error) {
	ctx, instance, cancel, err := m.instantiate(ctx, rec)
	defer cancel()
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Instantiate, opLoad, "InstantiateFailed", "instantiating component", err)
	}
	defer instance.Close(ctx)

	descriptor, err := describe(ctx, instance)
	if err != nil {
		return nil, err
	}

	tools := make(map[string]*Tool, len(descriptor.Exports))
	var g errgroup.Group
	results := make([]*Tool, len(descriptor.Exports))
	for i, export := range descriptor.Exports {
		i, export := i, export
		g.Go(func() error {
			tool, err := buildTool(export)
			if err != nil {
				return wassetteerr.New(wassetteerr.Compile, opLoad, "SchemaDerivationFailed", "deriving schema for export "+export.Name, err)
			}
			results[i] = tool
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, tool := range results {
		tools[tool.Export] = tool
	}
	return tools, nil
}

func buildTool(export ExportDescriptor) (*Tool, error) {
	var params []value.Field
	if len(export.Params) > 0 {
		if err := json.Unmarshal(export.Params, &params); err != nil {
			return nil, fmt.Errorf("decoding params: %w", err)
		}
	}
	var result *value.Type
	if len(export.Result) > 0 {
		result = &value.Type{}
		if err := json.Unmarshal(export.Result, result); err != nil {
			return nil, fmt.Errorf("decoding result type: %w", err)
		}
	}
	fn := &value.Func{Name: export.Name, Params: params, Result: result, Doc: export.Doc}
	input, output := schema.ProjectFunc(fn)
	compiled, err := schema.Compile(input)
	if err != nil {
		return nil, fmt.Errorf("compiling input schema: %w", err)
	}

	var inputType *value.Type
	if len(params) > 0 {
		inputType = &value.Type{Kind: value.KindRecord, Fields: params}
	}

	return &Tool{
		Name:       export.Name,
		Export:     export.Name,
		Doc:        export.Doc,
		InputType:  inputType,
		OutputType: result,
		Input:      input,
		Output:     output,
		compiled:   compiled,
	}, nil
}

// instantiate creates a fresh module instance under rec's recipe —
// never cached, per §4.5's "fresh instance per call" invariant. The
// returned context carries rec's recipe (see hostfuncs.WithRecipe) and,
// if set, rec's CPU deadline; callers must use it, not their original
// ctx, for every subsequent call against the returned instance, so
// http_fetch calls made during that call are gated by the right
// policy and bounded by the same deadline. Callers must defer the
// returned cancel to release the deadline timer.
func (m *Manager) instantiate(ctx context.Context, rec *record) (context.Context, api.Module, context.CancelFunc, error) {
	var stdout, stderr = os.Stderr, os.Stderr
	cfg := rec.recipe.ModuleConfig(redaction.NewWriter(stdout, m.redactor), redaction.NewWriter(stderr, m.redactor), m.frozenEnv)

	cancel := context.CancelFunc(func() {})
	if rec.recipe.CPUDeadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, rec.recipe.CPUDeadline)
	}

	ctx = hostfuncs.WithRecipe(ctx, rec.recipe)

	instance, err := m.runtime.InstantiateModule(ctx, rec.module, cfg)
	if err != nil {
		return ctx, nil, cancel, err
	}
	if initFn := instance.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = instance.Close(ctx)
			return ctx, nil, cancel, fmt.Errorf("calling _initialize: %w", err)
		}
	}
	return ctx, instance, cancel, nil
}

const opInvokeTool = "lifecycle.Invoke"

// Invoke looks up id's tool by export name and calls it with argsJSON
// under a shared read lock on the record (any number of invocations
// run concurrently; only mutation excludes them), decoding/encoding
// through the tool's derived schema.
func (m *Manager) Invoke(ctx context.Context, id ComponentID, export string, argsJSON json.RawMessage) (json.RawMessage, error) {
	rec, ok := m.table.get(id)
	if !ok {
		return nil, wassetteerr.New(wassetteerr.NotFound, opInvokeTool, "NoSuchComponent", "no component loaded for id "+string(id), nil)
	}

	rec.mu.RLock()
	tool, ok := rec.tools[export]
	rec.mu.RUnlock()
	if !ok {
		return nil, wassetteerr.New(wassetteerr.NotFound, opInvokeTool, "NoSuchExport", "component has no export "+export, nil)
	}

	if err := tool.compiled.Validate(argsJSON); err != nil {
		return nil, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	ctx, instance, cancel, err := m.instantiate(ctx, rec)
	defer cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, wassetteerr.New(wassetteerr.Invoke, opInvokeTool, "Deadline", "instantiation exceeded cpu deadline", ctx.Err())
		}
		return nil, wassetteerr.New(wassetteerr.Instantiate, opInvokeTool, "InstantiateFailed", "instantiating component", err)
	}
	defer instance.Close(ctx)

	resultJSON, err := invokeExport(ctx, instance, export, argsJSON)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wassetteerr.New(wassetteerr.Invoke, opInvokeTool, "Deadline", "invocation exceeded cpu deadline", ctx.Err())
		}
		return nil, err
	}
	return resultJSON, nil
}

