package breaker

import (
	"context"
	"sync"
)

// memoryStore 进程内状态存储（单机模式）。
// 互斥锁保证 Read 与 CompareAndSwap 各自原子，版本号由本地计数维护。
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*Record)}
}

func (s *memoryStore) Read(ctx context.Context, serviceID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[serviceID]
	if !ok {
		return newRecord(), nil
	}
	return rec.clone(), nil
}

func (s *memoryStore) CompareAndSwap(ctx context.Context, serviceID string, expectedVersion int64, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.records[serviceID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return ErrVersionConflict
	}

	stored := rec.clone()
	stored.Version = expectedVersion + 1
	s.records[serviceID] = stored
	rec.Version = stored.Version
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, serviceID)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
