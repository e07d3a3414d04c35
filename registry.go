package timeddata

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/samber/mo"
)

const slotsTable = "slots"

// Registry keeps independent TimedData slots by key. Slots are created on
// first use and only leave through Delete or Clear; nothing is evicted.
// Each slot has its own lock, so a Registry is safe for concurrent use.
type Registry[T any] struct {
	db         *memdb.MemDB
	expiration time.Duration
	opts       Options[T]
	lock       sync.RWMutex
}

func NewRegistry[T any](expiration time.Duration, opts Options[T]) (*Registry[T], error) {
	if expiration < 0 {
		return nil, ErrNegativeExpiration
	}

	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			slotsTable: {
				Name: slotsTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %v", err)
	}

	return &Registry[T]{db: db, expiration: expiration, opts: opts}, nil
}

// Do runs fn on the slot for key while holding that slot's lock, creating
// the slot first if needed. fn must not keep the slot after returning.
func (r *Registry[T]) Do(key string, fn func(*TimedData[T])) error {
	ent, err := r.entry(key)
	if err != nil {
		return err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	fn(ent.slot)
	return nil
}

func (r *Registry[T]) Write(key string, v T) error {
	return r.Do(key, func(d *TimedData[T]) { d.Write(v) })
}

// Read consumes the pending value for key. Unknown keys read as mo.None.
func (r *Registry[T]) Read(key string) mo.Option[T] {
	ent := r.lookup(key)
	if ent == nil {
		return mo.None[T]()
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.slot.Read()
}

func (r *Registry[T]) Alive(key string) bool {
	ent := r.lookup(key)
	if ent == nil {
		return false
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.slot.Alive()
}

func (r *Registry[T]) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	txn := r.db.Txn(true)
	raw, err := txn.First(slotsTable, "id", key)
	if err != nil {
		txn.Abort()
		return fmt.Errorf("failed to find slot: %v", err)
	}
	if raw == nil {
		txn.Abort()
		return ErrSlotNotFound
	}
	if err := txn.Delete(slotsTable, raw); err != nil {
		txn.Abort()
		return fmt.Errorf("failed to delete slot: %v", err)
	}
	txn.Commit()

	logf(r.opts.LogLevel, "debug", "Deleted key: %s", key)
	return nil
}

func (r *Registry[T]) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	txn := r.db.Txn(true)
	if _, err := txn.DeleteAll(slotsTable, "id"); err != nil {
		txn.Abort()
		return fmt.Errorf("failed to delete all slots: %v", err)
	}
	txn.Commit()

	logf(r.opts.LogLevel, "info", "Registry cleared")
	return nil
}

// Len counts the slots. A failed memdb scan is logged and counts as empty,
// as it does for Keys, Pending and Stale.
func (r *Registry[T]) Len() int {
	return len(r.entries())
}

// Keys returns every key in ascending order, or nil if the memdb scan fails.
func (r *Registry[T]) Keys() []string {
	return r.keysWhere(func(*TimedData[T]) bool { return true })
}

// Pending returns the keys holding a value that has not been read yet.
func (r *Registry[T]) Pending() []string {
	return r.keysWhere((*TimedData[T]).IsWritten)
}

// Stale returns the keys whose slot holds a value that is no longer alive,
// the longest expired first. Nothing is removed.
func (r *Registry[T]) Stale() []string {
	h := &expirationHeap{expiredAt: make(map[string]time.Time)}
	for _, ent := range r.entries() {
		ent.mu.Lock()
		last, ok := ent.slot.LastWrite()
		alive := ent.slot.Alive()
		ent.mu.Unlock()
		if !ok || alive {
			continue
		}
		h.expiredAt[ent.Key] = last.Add(r.expiration)
		heap.Push(h, ent.Key)
	}

	keys := make([]string, 0, h.Len())
	for h.Len() > 0 {
		keys = append(keys, heap.Pop(h).(string))
	}
	return keys
}

func (r *Registry[T]) keysWhere(match func(*TimedData[T]) bool) []string {
	var keys []string
	for _, ent := range r.entries() {
		ent.mu.Lock()
		ok := match(ent.slot)
		ent.mu.Unlock()
		if ok {
			keys = append(keys, ent.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry[T]) entries() []*slotEntry[T] {
	r.lock.RLock()
	defer r.lock.RUnlock()

	txn := r.db.Txn(false)
	it, err := txn.Get(slotsTable, "id")
	if err != nil {
		logf(r.opts.LogLevel, "error", "Failed to list slots: %v", err)
		return nil
	}
	var out []*slotEntry[T]
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(*slotEntry[T]))
	}
	return out
}

func (r *Registry[T]) lookup(key string) *slotEntry[T] {
	r.lock.RLock()
	defer r.lock.RUnlock()

	raw, err := r.db.Txn(false).First(slotsTable, "id", key)
	if err != nil {
		logf(r.opts.LogLevel, "error", "Failed to retrieve slot: %v", err)
		return nil
	}
	if raw == nil {
		return nil
	}
	return raw.(*slotEntry[T])
}

// entry returns the entry for key, inserting an empty slot if there is none.
func (r *Registry[T]) entry(key string) (*slotEntry[T], error) {
	if ent := r.lookup(key); ent != nil {
		return ent, nil
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	txn := r.db.Txn(true)
	raw, err := txn.First(slotsTable, "id", key)
	if err != nil {
		txn.Abort()
		return nil, fmt.Errorf("failed to retrieve slot: %v", err)
	}
	if raw != nil {
		txn.Abort()
		return raw.(*slotEntry[T]), nil
	}

	slot, err := New(r.expiration, r.opts)
	if err != nil {
		txn.Abort()
		return nil, err
	}
	ent := &slotEntry[T]{Key: key, slot: slot}
	if err := txn.Insert(slotsTable, ent); err != nil {
		txn.Abort()
		return nil, fmt.Errorf("failed to insert slot: %v", err)
	}
	txn.Commit()

	logf(r.opts.LogLevel, "debug", "Created slot for key: %s", key)
	return ent, nil
}
