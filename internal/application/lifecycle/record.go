package lifecycle

import (
	"sync"
	"time"

	"github.com/tetratelabs/wazero"

	"github.com/wassette-dev/wassette/internal/domain/policy"
	"github.com/wassette-dev/wassette/internal/domain/sandbox"
	"github.com/wassette-dev/wassette/internal/domain/schema"
	"github.com/wassette-dev/wassette/internal/domain/value"
)

// ComponentID identifies one loaded component, derived from its
// canonicalized source URI.
type ComponentID string

// Tool is one export turned into an MCP-callable tool.
type Tool struct {
	Name       string // "<component-id>.<export>" once collisions require prefixing
	Export     string
	Doc        string
	InputType  *value.Type
	OutputType *value.Type
	Input      *schema.Schema
	Output     *schema.Schema
	compiled   *schema.Compiled
}

// record is one entry in the component table. State transitions are
// Loaded -> (Mutating | Invoking*): attach/grant/revoke/unload take
// the exclusive lock (Mutating); invocations take the shared lock
// (Invoking), any number concurrently. Grounded on the teacher's
// Runtime double-checked-locking discipline, generalized from a single
// runtime-wide map lock to a per-record lock so invocations on one
// component never block mutation of another.
type record struct {
	id     ComponentID
	uri    string
	module wazero.CompiledModule

	mu     sync.RWMutex
	policy *policy.Policy
	recipe *sandbox.Recipe
	tools  map[string]*Tool // export name -> Tool
}

// Table is the lifecycle manager's component table.
type Table struct {
	mu      sync.RWMutex
	records map[ComponentID]*record
}

func newTable() *Table {
	return &Table{records: make(map[ComponentID]*record)}
}

func (t *Table) get(id ComponentID) (*record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	return r, ok
}

func (t *Table) put(r *record) (replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, replaced = t.records[r.id]
	t.records[r.id] = r
	return replaced
}

func (t *Table) delete(id ComponentID) (existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, existed = t.records[id]
	delete(t.records, id)
	return existed
}

func (t *Table) list() []*record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	return out
}

// lockTimeout bounds every table/record lock acquisition per §4.5's
// "every acquisition has a deadline" state-machine rule. The lock
// primitives here are plain sync.RWMutex (uncontended in practice —
// acquisition is near-instant), so the deadline is enforced by the
// caller's context rather than a lock-with-timeout primitive the
// standard library does not provide.
const lockTimeout = 10 * time.Second
