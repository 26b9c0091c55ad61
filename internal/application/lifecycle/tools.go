package lifecycle

import (
	"context"
	"encoding/json"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

func toolNotFound(name string) error {
	return wassetteerr.New(wassetteerr.NotFound, "lifecycle.InvokeByToolName", "NoSuchTool", "no tool named "+name, nil)
}

// ToolSpec is one MCP-callable tool derived from a loaded component's
// export, with collision resolution already applied to Name.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ListTools returns every tool across every loaded component. A bare
// export name (e.g. "get-weather") is used when it names exactly one
// export across the whole table; when two or more components export
// the same name, every occurrence is prefixed "<component-id>.<export>"
// to disambiguate, per §4.6's tool-name collision resolution.
func (m *Manager) ListTools() []ToolSpec {
	records := m.table.list()

	nameCount := map[string]int{}
	for _, rec := range records {
		rec.mu.RLock()
		for name := range rec.tools {
			nameCount[name]++
		}
		rec.mu.RUnlock()
	}

	var specs []ToolSpec
	for _, rec := range records {
		rec.mu.RLock()
		for name, tool := range rec.tools {
			toolName := name
			if nameCount[name] > 1 {
				toolName = string(rec.id) + "." + name
			}
			raw, err := tool.Input.Marshal()
			if err != nil {
				raw = json.RawMessage(`{"type":"object"}`)
			}
			specs = append(specs, ToolSpec{Name: toolName, Description: tool.Doc, InputSchema: raw})
		}
		rec.mu.RUnlock()
	}
	return specs
}

// InvokeByToolName resolves a possibly-prefixed tool name back to its
// (component, export) pair and invokes it.
func (m *Manager) InvokeByToolName(ctx context.Context, toolName string, argsJSON json.RawMessage) (json.RawMessage, error) {
	records := m.table.list()

	nameCount := map[string]int{}
	for _, rec := range records {
		rec.mu.RLock()
		for name := range rec.tools {
			nameCount[name]++
		}
		rec.mu.RUnlock()
	}

	for _, rec := range records {
		rec.mu.RLock()
		for export := range rec.tools {
			candidate := export
			if nameCount[export] > 1 {
				candidate = string(rec.id) + "." + export
			}
			if candidate == toolName {
				rec.mu.RUnlock()
				return m.Invoke(ctx, rec.id, export, argsJSON)
			}
		}
		rec.mu.RUnlock()
	}
	return nil, toolNotFound(toolName)
}
