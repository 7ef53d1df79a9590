// Package registry implements the on-disk ComponentKind registry
// (spec.md §6, default file "types.toml") and the polymorphic descriptor
// table design note §9 replaces monomorphized per-type scheduler slots
// with: one descriptor per ComponentKind holding function values for
// serialize/deserialize/compare/apply/collect-changes/snapshot/restore.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"replicore/ids"
)

// DefaultFileName is the spec's default registry file name.
const DefaultFileName = "types.toml"

type onDisk struct {
	// Types maps a fully-qualified Go type name to its assigned
	// ComponentKind id. Append-on-miss; never reassigned once written.
	Types map[string]uint16 `toml:"types"`
}

// Kinds is the process-wide, lockable type-name -> ComponentKind table.
// It is read once at startup and appended to when a new type is first
// seen; the file on disk is the source of truth across builds, so server
// and client processes built from the same commit agree on every id.
type Kinds struct {
	mu      sync.Mutex
	path    string
	byName  map[string]ids.ComponentKind
	byKind  map[ids.ComponentKind]string
	nextID  uint16
	dirty   bool
}

// Open loads path (creating an empty registry in memory if the file does
// not exist yet; it is created by the first Save after a Resolve adds a
// name).
func Open(path string) (*Kinds, error) {
	k := &Kinds{
		path:   path,
		byName: make(map[string]ids.ComponentKind),
		byKind: make(map[ids.ComponentKind]string),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return k, nil
		}
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	var doc onDisk
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	for name, id := range doc.Types {
		k.byName[name] = ids.ComponentKind(id)
		k.byKind[ids.ComponentKind(id)] = name
		if id >= k.nextID {
			k.nextID = id + 1
		}
	}
	return k, nil
}

// Lookup returns the ComponentKind already assigned to name, if any.
func (k *Kinds) Lookup(name string) (ids.ComponentKind, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	id, ok := k.byName[name]
	return id, ok
}

// NameOf returns the registered type name for kind, if any.
func (k *Kinds) NameOf(kind ids.ComponentKind) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	name, ok := k.byKind[kind]
	return name, ok
}

// Resolve returns the ComponentKind for name, allocating the next free id
// and marking the table dirty (for a later Save) if name is new. Server and
// client must run Resolve in the same order relative to their own startup
// registration list, or — more robustly — commit the registry file
// alongside code so both sides load identical ids without needing ordering
// at all.
func (k *Kinds) Resolve(name string) ids.ComponentKind {
	k.mu.Lock()
	defer k.mu.Unlock()
	if id, ok := k.byName[name]; ok {
		return id
	}
	id := ids.ComponentKind(k.nextID)
	k.nextID++
	k.byName[name] = id
	k.byKind[id] = name
	k.dirty = true
	return id
}

// Save writes the table to disk via a temp-file-then-rename, leaving the
// prior file untouched on any error. A no-op when nothing changed since the
// last Open/Save.
func (k *Kinds) Save() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.dirty {
		return nil
	}
	doc := onDisk{Types: make(map[string]uint16, len(k.byName))}
	for name, id := range k.byName {
		doc.Types[name] = uint16(id)
	}

	dir := filepath.Dir(k.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("registry: mkdir %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".types-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("registry: tempfile: %w", err)
	}
	tmpName := tmp.Name()
	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("registry: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: close tempfile: %w", err)
	}
	if err := os.Rename(tmpName, k.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: rename into place: %w", err)
	}
	k.dirty = false
	return nil
}

// Names returns every registered type name, sorted, mostly for diagnostics
// and tests.
func (k *Kinds) Names() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, 0, len(k.byName))
	for name := range k.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
