package core

import (
	"fmt"
	"sort"
)

// nameTable manages the mapping between service names and actor refs.
type nameTable struct {
	// Maps name to actor ref
	byName map[string]ActorRef

	// Maps actor ref to name
	byRef map[ActorRef]string
}

func newNameTable() *nameTable {
	return &nameTable{
		byName: make(map[string]ActorRef),
		byRef:  make(map[ActorRef]string),
	}
}

// bind associates name with ref. An actor holds at most one name.
func (t *nameTable) bind(name string, ref ActorRef) error {
	if name == "" {
		return fmt.Errorf("empty actor name")
	}
	if owner, exists := t.byName[name]; exists {
		return fmt.Errorf("name %q owned by %s: %w", name, owner, ErrNameTaken)
	}
	if old, exists := t.byRef[ref]; exists {
		delete(t.byName, old)
	}
	t.byName[name] = ref
	t.byRef[ref] = name
	return nil
}

func (t *nameTable) resolve(name string) (ActorRef, bool) {
	ref, ok := t.byName[name]
	return ref, ok
}

// release removes the name held by ref, if any.
func (t *nameTable) release(ref ActorRef) {
	if name, exists := t.byRef[ref]; exists {
		delete(t.byName, name)
		delete(t.byRef, ref)
	}
}

// names returns all registered names, sorted.
func (t *nameTable) names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *nameTable) clear() {
	t.byName = make(map[string]ActorRef)
	t.byRef = make(map[ActorRef]string)
}
