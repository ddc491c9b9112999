package store

import "sync"

type entry struct {
	record  any
	version uint64
}

// Memory is the in-process Store implementation. Records are kept by value;
// callers get snapshots, never aliases into the table. Change notifications
// run synchronously on the mutating goroutine after the write commits, with
// the table lock released, so handlers may issue further store calls.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]entry

	subMu   sync.RWMutex
	nextSub int
	subs    map[string]map[int]func(Change)
}

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]map[string]entry),
		subs:   make(map[string]map[int]func(Change)),
	}
}

func (m *Memory) Insert(table, id string, record any) error {
	m.mu.Lock()
	rows := m.tables[table]
	if rows == nil {
		rows = make(map[string]entry)
		m.tables[table] = rows
	}
	if _, taken := rows[id]; taken {
		m.mu.Unlock()
		return ErrExists
	}
	rows[id] = entry{record: record, version: 1}
	m.mu.Unlock()

	m.notify(Change{Table: table, Type: EventInsert, ID: id, New: record})
	return nil
}

func (m *Memory) Get(table, id string) (any, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.tables[table][id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return row.record, row.version, nil
}

func (m *Memory) List(table string, match func(any) bool) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []any
	for _, row := range m.tables[table] {
		if match == nil || match(row.record) {
			out = append(out, row.record)
		}
	}
	return out, nil
}

// Update commits record only if the stored version still equals expected.
// On success it returns the new version; on a lost race it returns
// ErrConflict and leaves the record untouched.
func (m *Memory) Update(table, id string, expected uint64, record any) (uint64, error) {
	m.mu.Lock()
	row, ok := m.tables[table][id]
	if !ok {
		m.mu.Unlock()
		return 0, ErrNotFound
	}
	if row.version != expected {
		m.mu.Unlock()
		return 0, ErrConflict
	}
	old := row.record
	next := entry{record: record, version: row.version + 1}
	m.tables[table][id] = next
	m.mu.Unlock()

	m.notify(Change{Table: table, Type: EventUpdate, ID: id, Old: old, New: record})
	return next.version, nil
}

func (m *Memory) Delete(table, id string) error {
	m.mu.Lock()
	row, ok := m.tables[table][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.tables[table], id)
	m.mu.Unlock()

	m.notify(Change{Table: table, Type: EventDelete, ID: id, Old: row.record})
	return nil
}

// DeleteWhere removes every matching record and reports how many went away.
// Missing tables are fine; cleanup paths call this unconditionally.
func (m *Memory) DeleteWhere(table string, match func(any) bool) int {
	m.mu.Lock()
	var removed []Change
	for id, row := range m.tables[table] {
		if match == nil || match(row.record) {
			delete(m.tables[table], id)
			removed = append(removed, Change{Table: table, Type: EventDelete, ID: id, Old: row.record})
		}
	}
	m.mu.Unlock()

	for _, change := range removed {
		m.notify(change)
	}
	return len(removed)
}

func (m *Memory) Subscribe(table string, fn func(Change)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	group := m.subs[table]
	if group == nil {
		group = make(map[int]func(Change))
		m.subs[table] = group
	}
	group[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs[table], id)
		m.subMu.Unlock()
	}
}

func (m *Memory) notify(change Change) {
	m.subMu.RLock()
	fns := make([]func(Change), 0, len(m.subs[change.Table]))
	for _, fn := range m.subs[change.Table] {
		fns = append(fns, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
