// Package registry loads and searches the component-registry.json
// catalog, the supplemented feature backing the search-registry
// built-in tool. Grounded directly on original_source/src/registry.rs
// (parse_registry/search_components/find_component_by_name_or_uri),
// translated from its Rust filter-and-collect style into idiomatic Go.
package registry

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// Entry is one cataloged component.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URI         string `json:"uri"`
}

// Registry is an in-memory, read-only snapshot of the catalog.
type Registry struct {
	entries []Entry
}

const opParse = "registry.Parse"

// Parse decodes a component-registry.json document.
func Parse(data []byte) (*Registry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, wassetteerr.New(wassetteerr.Parse, opParse, "InvalidRegistry", "decoding component registry", err)
	}
	return &Registry{entries: entries}, nil
}

// Load reads and parses the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Resolve, opParse, "NotFound", "reading registry file "+path, err)
	}
	return Parse(data)
}

// Search returns every entry matching query, case-insensitively
// against name, description, and URI. An empty or whitespace-only
// query returns every entry. A multi-word query matches an entry if
// ANY word appears in any of its three fields.
func (r *Registry) Search(query string) []Entry {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		out := make([]Entry, len(r.entries))
		copy(out, r.entries)
		return out
	}

	var out []Entry
	for _, e := range r.entries {
		nameLower := strings.ToLower(e.Name)
		descLower := strings.ToLower(e.Description)
		uriLower := strings.ToLower(e.URI)

		for _, term := range terms {
			if strings.Contains(nameLower, term) || strings.Contains(descLower, term) || strings.Contains(uriLower, term) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// FindByNameOrURI returns the first entry whose name matches
// nameOrURI case-insensitively, or whose URI matches it exactly.
func (r *Registry) FindByNameOrURI(nameOrURI string) (Entry, bool) {
	for _, e := range r.entries {
		if strings.EqualFold(e.Name, nameOrURI) || e.URI == nameOrURI {
			return e, true
		}
	}
	return Entry{}, false
}

// Lookup adapts FindByNameOrURI to the lifecycle.Manager's
// registry-lookup hook signature: a bare name resolves to a URI, or an
// error when nothing matches.
func (r *Registry) Lookup(name string) (string, error) {
	entry, ok := r.FindByNameOrURI(name)
	if !ok {
		return "", wassetteerr.New(wassetteerr.NotFound, "registry.Lookup", "NotFound", "no registry entry named or uri-matching "+name, nil)
	}
	return entry.URI, nil
}
