package econet

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Coordinator is the read side of the snapshot holder that sensors consult.
type Coordinator interface {
	// Data returns the current snapshot. Never nil; callers must not mutate it.
	Data() *Snapshot

	// HasRegData reports whether key is present in regParams.
	HasRegData(key string) bool

	// AddListener registers fn to run after every snapshot update and
	// returns a function that removes it.
	AddListener(fn func()) (remove func())
}

// DataCoordinator holds the latest snapshot and fans updates out to
// registered listeners.
//
// Thread Safety: All methods are safe for concurrent use. Listeners run
// sequentially on the goroutine that calls Update.
type DataCoordinator struct {
	snapshot    atomic.Pointer[Snapshot]
	lastUpdate  atomic.Int64
	updateCount atomic.Uint64

	listeners  map[uint64]func()
	nextID     uint64
	listenerMu sync.Mutex
}

// emptySnapshot is returned by Data before the first Update.
var emptySnapshot = &Snapshot{
	RegParams:   Params{},
	SysParams:   Params{},
	ParamsEdits: Params{},
}

// NewDataCoordinator creates a coordinator with an empty snapshot.
func NewDataCoordinator() *DataCoordinator {
	return &DataCoordinator{
		listeners: make(map[uint64]func()),
	}
}

// Update replaces the current snapshot and notifies listeners in
// registration order. A nil snapshot is ignored.
func (c *DataCoordinator) Update(s *Snapshot) {
	if s == nil {
		return
	}
	c.snapshot.Store(s)
	c.lastUpdate.Store(time.Now().UnixNano())
	c.updateCount.Add(1)

	c.listenerMu.Lock()
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Data returns the current snapshot.
func (c *DataCoordinator) Data() *Snapshot {
	if s := c.snapshot.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// HasRegData reports whether key is present in the current regParams.
func (c *DataCoordinator) HasRegData(key string) bool {
	return c.Data().RegParams.Has(key)
}

// HasData reports whether at least one snapshot has been received.
func (c *DataCoordinator) HasData() bool {
	return c.snapshot.Load() != nil
}

// AddListener registers fn and returns its removal function.
// The removal function is idempotent.
func (c *DataCoordinator) AddListener(fn func()) func() {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenerMu.Lock()
			delete(c.listeners, id)
			c.listenerMu.Unlock()
		})
	}
}

// ListenerCount returns the number of registered listeners.
func (c *DataCoordinator) ListenerCount() int {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	return len(c.listeners)
}

// LastUpdate returns when the current snapshot was stored, or the zero time
// before the first update.
func (c *DataCoordinator) LastUpdate() time.Time {
	ns := c.lastUpdate.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// UpdateCount returns the number of snapshots received.
func (c *DataCoordinator) UpdateCount() uint64 {
	return c.updateCount.Load()
}
