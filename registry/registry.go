// Package registry provides the resource table tracking live workers.
//
// The table maps a worker id to a cleanup record. An entry is created when a
// worker starts and removed exactly once when the worker completes; the
// surrounding system uses the removal to reclaim handles. The table is an
// explicit object owned by whatever supervises workers, never process-global
// state.
package registry

import (
	"github.com/alphadose/haxmap"
)

// Entry is the cleanup record kept for a live worker.
type Entry struct {
	// Name is the worker's name; informational, not required unique.
	Name string
	// Cleanup, if set, runs when the entry is unregistered.
	Cleanup func()
}

// Table is a concurrency-safe worker id -> Entry map.
type Table struct {
	entries *haxmap.Map[uint64, Entry]
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: haxmap.New[uint64, Entry]()}
}

// Register records a cleanup entry for the worker id, replacing any previous
// entry for the same id.
func (t *Table) Register(id uint64, e Entry) {
	t.entries.Set(id, e)
}

// Unregister removes the entry for id and runs its cleanup. It reports
// whether an entry was present. The worker core guarantees it is called at
// most once per id (on the completed transition).
func (t *Table) Unregister(id uint64) bool {
	e, ok := t.entries.Get(id)
	if !ok {
		return false
	}
	t.entries.Del(id)
	if e.Cleanup != nil {
		e.Cleanup()
	}
	return true
}

// Has reports whether id is currently registered.
func (t *Table) Has(id uint64) bool {
	_, ok := t.entries.Get(id)
	return ok
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return int(t.entries.Len())
}

// Each calls fn for every live entry until fn returns false.
func (t *Table) Each(fn func(id uint64, e Entry) bool) {
	t.entries.ForEach(fn)
}
