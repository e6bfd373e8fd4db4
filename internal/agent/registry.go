package agent

import (
	"errors"
	"sync"
	"time"
)

// Registry is the sole source of local truth for "is an agent process
// running for this room". It holds no persistence; the table is rebuilt
// empty whenever the orchestrator restarts.
//
// Besides the record table it provides per-room mutual exclusion so callers
// can hold a room's lock across an entire check-generate-spawn sequence,
// not merely around the table mutation.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record

	lockMu sync.Mutex
	locks  map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		locks:   make(map[string]*roomLock),
	}
}

var ErrEmptyRoom = errors.New("room name must not be empty")

// Upsert inserts or replaces the record for a room. A copy is stored so the
// caller cannot retain a handle into the table.
func (r *Registry) Upsert(room string, rec Record) error {
	if room == "" {
		return ErrEmptyRoom
	}
	cp := rec
	cp.RoomName = room
	r.mu.Lock()
	r.records[room] = &cp
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the room's record, if any.
func (r *Registry) Get(room string) (Record, bool) {
	r.mu.RLock()
	rec, ok := r.records[room]
	r.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Remove deletes the room's record. It is a no-op when absent.
func (r *Registry) Remove(room string) {
	r.mu.Lock()
	delete(r.records, room)
	r.mu.Unlock()
}

// IsRunning reports whether a record exists and has not failed.
func (r *Registry) IsRunning(room string) bool {
	r.mu.RLock()
	rec, ok := r.records[room]
	r.mu.RUnlock()
	return ok && rec.Status != StatusError
}

// List returns copies of all records.
func (r *Registry) List() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	r.mu.RUnlock()
	return out
}

// Update applies fn to the room's record under the table lock. It returns
// false when no record exists. fn mutates the stored record in place.
func (r *Registry) Update(room string, fn func(*Record)) bool {
	r.mu.Lock()
	rec, ok := r.records[room]
	if ok {
		fn(rec)
	}
	r.mu.Unlock()
	return ok
}

// CompareAndRemove removes the room's record only when it still belongs to
// the given launch. It prevents an exit handler of an old process from
// deleting the record of a newer launch for the same room.
func (r *Registry) CompareAndRemove(room, launchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[room]
	if !ok || rec.LaunchID != launchID {
		return false
	}
	delete(r.records, room)
	return true
}

// LockRoom acquires the room's exclusive lock and returns the release
// function. Locks are reference counted and dropped from the table when the
// last holder releases.
func (r *Registry) LockRoom(room string) func() {
	r.lockMu.Lock()
	l, ok := r.locks[room]
	if !ok {
		l = &roomLock{}
		r.locks[room] = l
	}
	l.refs++
	r.lockMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			r.lockMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(r.locks, room)
			}
			r.lockMu.Unlock()
		})
	}
}

// Uptime helper for status views.
func (r *Registry) UptimeSeconds(room string, now time.Time) (int64, bool) {
	rec, ok := r.Get(room)
	if !ok {
		return 0, false
	}
	return rec.Uptime(now), true
}
