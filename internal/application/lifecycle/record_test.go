package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wassette-dev/wassette/internal/domain/policy"
)

func TestTablePutGetDeleteRoundTrip(t *testing.T) {
	table := newTable()
	rec := &record{id: "component-a", uri: "file:///a.wasm", policy: policy.Default(), tools: map[string]*Tool{}}

	replaced := table.put(rec)
	require.False(t, replaced)

	got, ok := table.get("component-a")
	require.True(t, ok)
	require.Equal(t, rec, got)

	replaced = table.put(rec)
	require.True(t, replaced)

	existed := table.delete("component-a")
	require.True(t, existed)

	_, ok = table.get("component-a")
	require.False(t, ok)
}

func TestTableListReturnsSnapshot(t *testing.T) {
	table := newTable()
	table.put(&record{id: "a", policy: policy.Default(), tools: map[string]*Tool{}})
	table.put(&record{id: "b", policy: policy.Default(), tools: map[string]*Tool{}})

	records := table.list()
	require.Len(t, records, 2)
}

func TestTableUnloadUnknownIDIsNoop(t *testing.T) {
	table := newTable()
	existed := table.delete("does-not-exist")
	require.False(t, existed)
}
