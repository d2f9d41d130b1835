package handle

import (
	"log/slog"
	"runtime"
	"sync"
	"weak"
)

type trackedEntry struct {
	ref     weak.Pointer[Ref]
	inst    *Instance
	cleanup runtime.Cleanup
}

// TrackedHandleSet records every handle created from script. It holds the
// script wrappers weakly and the native instances strongly, so teardown can
// release whatever the collector has not reached yet.
//
// Cleanups run on a runtime goroutine, hence the mutex.
type TrackedHandleSet struct {
	entries map[uint64]*trackedEntry
	logger  *slog.Logger
	nextID  uint64
	mu      sync.Mutex
}

// NewTrackedHandleSet creates an empty set.
func NewTrackedHandleSet(logger *slog.Logger) *TrackedHandleSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackedHandleSet{entries: make(map[uint64]*trackedEntry), logger: logger}
}

// track registers ref and arranges for its instance to be released once
// ref becomes unreachable.
func (s *TrackedHandleSet) track(ref *Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	ref.id = id
	s.entries[id] = &trackedEntry{
		ref:     weak.Make(ref),
		inst:    ref.inst,
		cleanup: runtime.AddCleanup(ref, s.finalize, id),
	}
}

func (s *TrackedHandleSet) take(id uint64) *trackedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[id]
	delete(s.entries, id)
	return e
}

// release is the explicit free path.
func (s *TrackedHandleSet) release(id uint64) {
	if e := s.take(id); e != nil {
		e.cleanup.Stop()
		e.inst.Release()
	}
}

// finalize is the collector path.
func (s *TrackedHandleSet) finalize(id uint64) {
	e := s.take(id)
	if e == nil {
		return
	}
	if e.inst.Release() {
		s.logger.Debug("released unreachable plug-in handle", "plugin", e.inst.Name())
	}
}

// ReleaseAll force-releases every tracked handle and empties the set. It
// returns the number of instances released by this call.
func (s *TrackedHandleSet) ReleaseAll() int {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[uint64]*trackedEntry)
	s.mu.Unlock()

	released := 0
	for _, e := range entries {
		e.cleanup.Stop()
		if e.inst.Release() {
			released++
		}
	}
	return released
}

// Len returns the number of tracked handles.
func (s *TrackedHandleSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reachable returns the number of tracked handles whose script wrapper has
// not been collected.
func (s *TrackedHandleSet) Reachable() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.ref.Value() != nil {
			n++
		}
	}
	return n
}
