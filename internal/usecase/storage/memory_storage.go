package storage

import (
	"sort"
	"sync"
)

type table struct {
	data map[string]Value
	mx   sync.RWMutex
}

// MemoryStorage keeps every table in process memory. GetAll returns pairs
// sorted by key.
type MemoryStorage struct {
	tables map[string]*table
	closed bool
	mx     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tables: make(map[string]*table),
	}
}

func (m *MemoryStorage) lookup(name string) (*table, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	return m.tables[name], nil
}

func (m *MemoryStorage) getOrCreate(name string) (*table, error) {
	t, err := m.lookup(name)
	if err != nil || t != nil {
		return t, err
	}

	m.mx.Lock()
	defer m.mx.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	// another writer may have created it between the two locks
	if t, ok := m.tables[name]; ok {
		return t, nil
	}
	t = &table{data: make(map[string]Value)}
	m.tables[name] = t
	return t, nil
}

func (m *MemoryStorage) Get(tableName, key string) (Value, bool, error) {
	t, err := m.lookup(tableName)
	if err != nil || t == nil {
		return Value{}, false, err
	}

	t.mx.RLock()
	defer t.mx.RUnlock()

	val, ok := t.data[key]
	if !ok {
		return Value{}, false, nil
	}
	return val.Clone(), true, nil
}

func (m *MemoryStorage) Set(tableName, key string, value Value) (Value, bool, error) {
	t, err := m.getOrCreate(tableName)
	if err != nil {
		return Value{}, false, err
	}

	stored := value.Clone()
	if stored.Data == nil {
		stored.Data = []byte{}
	}

	t.mx.Lock()
	defer t.mx.Unlock()

	prev, ok := t.data[key]
	t.data[key] = stored
	return prev, ok, nil
}

func (m *MemoryStorage) Contains(tableName, key string) (bool, error) {
	t, err := m.lookup(tableName)
	if err != nil || t == nil {
		return false, err
	}

	t.mx.RLock()
	defer t.mx.RUnlock()

	_, ok := t.data[key]
	return ok, nil
}

func (m *MemoryStorage) Delete(tableName, key string) (Value, bool, error) {
	t, err := m.lookup(tableName)
	if err != nil || t == nil {
		return Value{}, false, err
	}

	t.mx.Lock()
	defer t.mx.Unlock()

	prev, ok := t.data[key]
	if ok {
		delete(t.data, key)
	}
	return prev, ok, nil
}

func (m *MemoryStorage) GetAll(tableName string) ([]KvPair, error) {
	t, err := m.lookup(tableName)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return []KvPair{}, nil
	}

	t.mx.RLock()
	pairs := make([]KvPair, 0, len(t.data))
	for k, v := range t.data {
		pairs = append(pairs, KvPair{Key: k, Value: v.Clone()})
	}
	t.mx.RUnlock()

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	return pairs, nil
}

func (m *MemoryStorage) Close() error {
	m.mx.Lock()
	defer m.mx.Unlock()

	m.closed = true
	m.tables = make(map[string]*table)
	return nil
}
