package script

import (
	"sort"
	"sync"
)

// MapVariables is an in-memory Variables store.
type MapVariables struct {
	mu   sync.RWMutex
	vars map[string]string
}

func NewMapVariables() *MapVariables {
	return &MapVariables{vars: make(map[string]string)}
}

func (m *MapVariables) SetVariable(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = value
}

func (m *MapVariables) Get(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	return v, ok
}

// Names returns the variable names in sorted order.
func (m *MapVariables) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
