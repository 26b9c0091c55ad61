package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wassette-dev/wassette/internal/application/lifecycle"
	"github.com/wassette-dev/wassette/internal/application/registry"
	"github.com/wassette-dev/wassette/internal/domain/policy"
	"github.com/wassette-dev/wassette/internal/domain/schema"
	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// builtinTool is one of the runtime's own MCP tools: the component and
// policy management surface §4.6 names, plus the supplemented
// search-registry tool.
type builtinTool struct {
	name        string
	description string
	inputSchema json.RawMessage
	handler     func(ctx context.Context, s *Server, args json.RawMessage) (any, error)
}

// mustBuiltinSchema reflects one of the fixed built-in-tool argument
// structs below into its JSON Schema. The shapes are static and known at
// compile time, so a reflection failure here is a programming error, not
// a runtime condition callers need to handle.
func mustBuiltinSchema(v any) json.RawMessage {
	raw, err := schema.GenerateBuiltin(v)
	if err != nil {
		panic(fmt.Sprintf("mcp: reflecting built-in tool schema for %T: %v", v, err))
	}
	return raw
}

type noArgs struct{}

func builtinTools() []builtinTool {
	return []builtinTool{
		{
			name:        "load-component",
			description: "Load a component from a URI (file:, http(s):, oci:) or a registry name, attaching an optional policy.",
			inputSchema: mustBuiltinSchema(loadComponentArgs{}),
			handler:     handleLoadComponent,
		},
		{
			name:        "unload-component",
			description: "Unload a previously loaded component by id.",
			inputSchema: mustBuiltinSchema(idArgs{}),
			handler:     handleUnloadComponent,
		},
		{
			name:        "list-components",
			description: "List every currently loaded component and its tools.",
			inputSchema: mustBuiltinSchema(noArgs{}),
			handler:     handleListComponents,
		},
		{
			name:        "get-policy",
			description: "Return a component's attached policy as YAML.",
			inputSchema: mustBuiltinSchema(idArgs{}),
			handler:     handleGetPolicy,
		},
		{
			name:        "attach-policy",
			description: "Replace a component's attached policy with a YAML document.",
			inputSchema: mustBuiltinSchema(attachPolicyArgs{}),
			handler:     handleAttachPolicy,
		},
		{
			name:        "grant-storage-permission",
			description: "Grant filesystem access to a component.",
			inputSchema: mustBuiltinSchema(storageArgs{}),
			handler:     handleGrantStorage,
		},
		{
			name:        "revoke-storage-permission",
			description: "Revoke filesystem access from a component.",
			inputSchema: mustBuiltinSchema(storageArgs{}),
			handler:     handleRevokeStorage,
		},
		{
			name:        "grant-network-permission",
			description: "Grant outbound network access to a host pattern.",
			inputSchema: mustBuiltinSchema(networkArgs{}),
			handler:     handleGrantNetwork,
		},
		{
			name:        "revoke-network-permission",
			description: "Revoke outbound network access from a component.",
			inputSchema: mustBuiltinSchema(networkArgs{}),
			handler:     handleRevokeNetwork,
		},
		{
			name:        "grant-environment-variable-permission",
			description: "Grant visibility of an environment-variable key to a component.",
			inputSchema: mustBuiltinSchema(envArgs{}),
			handler:     handleGrantEnv,
		},
		{
			name:        "revoke-environment-variable-permission",
			description: "Revoke visibility of an environment-variable key from a component.",
			inputSchema: mustBuiltinSchema(envArgs{}),
			handler:     handleRevokeEnv,
		},
		{
			name:        "grant-memory-permission",
			description: "Set a component's memory limit, e.g. \"512Mi\".",
			inputSchema: mustBuiltinSchema(memoryArgs{}),
			handler:     handleGrantMemory,
		},
		{
			name:        "revoke-memory-permission",
			description: "Clear a component's memory limit.",
			inputSchema: mustBuiltinSchema(idArgs{}),
			handler:     handleRevokeMemory,
		},
		{
			name:        "reset-permission",
			description: "Reset a component's policy to the empty default.",
			inputSchema: mustBuiltinSchema(idArgs{}),
			handler:     handleResetPermission,
		},
		{
			name:        "search-registry",
			description: "Search the component registry by name, description, or URI.",
			inputSchema: mustBuiltinSchema(searchRegistryArgs{}),
			handler:     handleSearchRegistry,
		},
	}
}

type loadComponentArgs struct {
	Path       string `json:"path" jsonschema:"required" jsonschema_description:"component source URI or registry name"`
	PolicyText string `json:"policyText" jsonschema_description:"optional YAML policy document to attach"`
}

func handleLoadComponent(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a loadComponentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.load-component", "InvalidArgs", "%v", err)
	}
	var pol *policy.Policy
	if a.PolicyText != "" {
		parsed, err := policy.Parse([]byte(a.PolicyText))
		if err != nil {
			return nil, err
		}
		pol = parsed
	}
	result, err := s.manager.LoadComponent(ctx, a.Path, pol)
	if err != nil {
		return nil, err
	}
	s.notifyToolsChanged()
	verb := "loaded"
	if result.Reloaded {
		verb = "reloaded"
	}
	return fmt.Sprintf("component %s successfully (id=%s)", verb, string(result.ID)), nil
}

type idArgs struct {
	ID string `json:"id" jsonschema:"required" jsonschema_description:"component id"`
}

func handleUnloadComponent(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a idArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.unload-component", "InvalidArgs", "%v", err)
	}
	if err := s.manager.UnloadComponent(ctx, componentID(a.ID)); err != nil {
		return nil, err
	}
	s.notifyToolsChanged()
	return map[string]any{"id": a.ID}, nil
}

func handleListComponents(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	infos := s.manager.ListComponents()
	out := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		out = append(out, map[string]any{"id": string(info.ID), "uri": info.URI, "tools": info.Tools})
	}
	return map[string]any{"components": out}, nil
}

func handleGetPolicy(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a idArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.get-policy", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.GetPolicy(componentID(a.ID))
	if err != nil {
		return nil, err
	}
	text, err := pol.Serialize()
	if err != nil {
		return nil, err
	}
	return map[string]any{"policyText": string(text)}, nil
}

type attachPolicyArgs struct {
	ID         string `json:"id" jsonschema:"required" jsonschema_description:"component id"`
	PolicyText string `json:"policyText" jsonschema:"required" jsonschema_description:"YAML policy document"`
}

func handleAttachPolicy(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a attachPolicyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.attach-policy", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.AttachPolicy(ctx, componentID(a.ID), []byte(a.PolicyText))
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

type storageArgs struct {
	ID     string   `json:"id" jsonschema:"required" jsonschema_description:"component id"`
	URI    string   `json:"uri" jsonschema:"required" jsonschema_description:"glob pattern, e.g. fs:///data/**"`
	Access []string `json:"access" jsonschema:"required" jsonschema_description:"one or both of \"read\", \"write\""`
}

func handleGrantStorage(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a storageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.grant-storage-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.GrantStorage(ctx, componentID(a.ID), a.URI, a.Access)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

func handleRevokeStorage(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a storageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.revoke-storage-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.RevokeStorage(ctx, componentID(a.ID), a.URI, a.Access)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

type networkArgs struct {
	ID   string `json:"id" jsonschema:"required" jsonschema_description:"component id"`
	Host string `json:"host" jsonschema:"required" jsonschema_description:"host or glob pattern"`
}

func handleGrantNetwork(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a networkArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.grant-network-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.GrantNetworkHost(ctx, componentID(a.ID), a.Host)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

func handleRevokeNetwork(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a networkArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.revoke-network-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.RevokeNetworkHost(ctx, componentID(a.ID), a.Host)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

type envArgs struct {
	ID  string `json:"id" jsonschema:"required" jsonschema_description:"component id"`
	Key string `json:"key" jsonschema:"required" jsonschema_description:"environment variable key or glob pattern"`
}

func handleGrantEnv(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a envArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.grant-environment-variable-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.GrantEnvironmentKey(ctx, componentID(a.ID), a.Key)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

func handleRevokeEnv(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a envArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.revoke-environment-variable-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.RevokeEnvironmentKey(ctx, componentID(a.ID), a.Key)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

type memoryArgs struct {
	ID    string `json:"id" jsonschema:"required" jsonschema_description:"component id"`
	Limit string `json:"limit" jsonschema:"required" jsonschema_description:"Kubernetes-style quantity, e.g. \"512Mi\""`
}

func handleGrantMemory(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a memoryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.grant-memory-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.GrantMemory(ctx, componentID(a.ID), a.Limit)
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

func handleRevokeMemory(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a idArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.revoke-memory-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.RevokeMemory(ctx, componentID(a.ID))
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

func handleResetPermission(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	var a idArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, wassetteerr.Parsef("mcp.reset-permission", "InvalidArgs", "%v", err)
	}
	pol, err := s.manager.ResetPermission(ctx, componentID(a.ID))
	if err != nil {
		return nil, err
	}
	return policyResult(pol)
}

type searchRegistryArgs struct {
	Query string `json:"query" jsonschema_description:"optional search query; omit to list everything"`
}

func handleSearchRegistry(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
	if s.registry == nil {
		return map[string]any{"components": []registry.Entry{}}, nil
	}
	var a searchRegistryArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, wassetteerr.Parsef("mcp.search-registry", "InvalidArgs", "%v", err)
		}
	}
	return map[string]any{"components": s.registry.Search(a.Query)}, nil
}

// componentID narrows a string into lifecycle.ComponentID without
// importing the lifecycle package's internal type alias everywhere.
func componentID(s string) lifecycle.ComponentID { return lifecycle.ComponentID(s) }

// policyResult shapes a grant/revoke/reset handler's returned policy into
// its MCP tool-call result form: the updated policy serialized as YAML.
func policyResult(pol *policy.Policy) (any, error) {
	text, err := pol.Serialize()
	if err != nil {
		return nil, err
	}
	return map[string]any{"policyText": string(text)}, nil
}
