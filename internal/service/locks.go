package service

import "sync"

// LockTable hands out one mutex per item ID so every mutation of a given
// NFT is serialized while unrelated items proceed in parallel. The auction
// and giveaway engines share one table, keeping an item's listing paths
// mutually exclusive in-process. Entries are never evicted; the per-item
// footprint is one mutex and lock churn across sweeps and request handlers
// makes eviction racy for no measurable gain.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *LockTable) lock(id string) *sync.Mutex {
	t.mu.Lock()
	m, ok := t.locks[id]
	if !ok {
		m = &sync.Mutex{}
		t.locks[id] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m
}
