package registry_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halvardssm/deno/registry"
)

func TestTable_RegisterUnregister(t *testing.T) {
	table := registry.New()
	require.Equal(t, 0, table.Len())

	cleaned := 0
	table.Register(7, registry.Entry{Name: "seven", Cleanup: func() { cleaned++ }})
	require.True(t, table.Has(7))
	require.Equal(t, 1, table.Len())

	require.True(t, table.Unregister(7))
	require.Equal(t, 1, cleaned)
	require.False(t, table.Has(7))
	require.Equal(t, 0, table.Len())

	// Second removal finds nothing and runs nothing.
	require.False(t, table.Unregister(7))
	require.Equal(t, 1, cleaned)
}

func TestTable_RegisterReplacesEntry(t *testing.T) {
	table := registry.New()

	firstCleanup := false
	table.Register(1, registry.Entry{Name: "old", Cleanup: func() { firstCleanup = true }})
	table.Register(1, registry.Entry{Name: "new"})
	require.Equal(t, 1, table.Len())

	require.True(t, table.Unregister(1))
	require.False(t, firstCleanup, "replaced entry's cleanup must not run")
}

func TestTable_Each(t *testing.T) {
	table := registry.New()
	table.Register(1, registry.Entry{Name: "a"})
	table.Register(2, registry.Entry{Name: "b"})
	table.Register(3, registry.Entry{Name: "c"})

	seen := make(map[uint64]string)
	table.Each(func(id uint64, e registry.Entry) bool {
		seen[id] = e.Name
		return true
	})
	require.Equal(t, map[uint64]string{1: "a", 2: "b", 3: "c"}, seen)

	// Early stop visits fewer entries.
	visits := 0
	table.Each(func(uint64, registry.Entry) bool {
		visits++
		return false
	})
	require.Equal(t, 1, visits)
}

func TestTable_ConcurrentAccess(t *testing.T) {
	table := registry.New()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < 100; i++ {
				id := base*1000 + i
				table.Register(id, registry.Entry{Name: "w"})
				table.Unregister(id)
			}
		}(uint64(g))
	}
	wg.Wait()

	require.Equal(t, 0, table.Len())
}
