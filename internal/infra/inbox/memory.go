package inbox

import (
	"context"
	"sync"
)

// Memory remembers the last Size event ids. Used when Mongo is not configured.
type Memory struct {
	Size int

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func (m *Memory) Seen(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	if _, ok := m.seen[eventID]; ok {
		return true, nil
	}
	m.seen[eventID] = struct{}{}
	m.order = append(m.order, eventID)
	size := m.Size
	if size <= 0 {
		size = 10000
	}
	for len(m.order) > size {
		delete(m.seen, m.order[0])
		m.order = m.order[1:]
	}
	return false, nil
}
