package scanner

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidHandle     = errors.New("invalid handle")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyFinished   = errors.New("run already finished")
)

// Handle addresses one entry. It equals the entry's insertion index and is
// never reused within a run.
type Handle int

type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
	StatusDeleting
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "Loading"
	case StatusReady:
		return "Ready"
	case StatusError:
		return "Error"
	case StatusDeleting:
		return "Deleting"
	case StatusDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Entry is one discovered node_modules directory.
type Entry struct {
	Handle     Handle
	Path       string
	Size       uint64
	Status     Status
	Files      int64
	Unreadable int64
	ModTime    time.Time
	MeasuredAt time.Time
	Err        error
}

// Sized reports whether Size holds a measured value.
func (e Entry) Sized() bool {
	switch e.Status {
	case StatusReady, StatusDeleting, StatusDeleted:
		return true
	}
	return false
}

// Snapshot is a consistent copy of the store. It shares nothing with the
// store and may be read without synchronization.
type Snapshot struct {
	Entries []Entry

	// Sum of Size over entries with StatusReady.
	BytesAccounted uint64
	// Sum of Size over entries with StatusDeleted.
	BytesFreed uint64

	StartedAt  time.Time
	FinishedAt time.Time // zero until the run is finished

	WalkErrors     int
	ProbeErrors    int
	PartialEntries int
}

func (s Snapshot) Finished() bool {
	return !s.FinishedAt.IsZero()
}

// Elapsed is the final run duration once finished, otherwise the time since
// the start.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.Finished() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Count returns the number of entries in the given status.
func (s Snapshot) Count(st Status) int {
	n := 0
	for _, e := range s.Entries {
		if e.Status == st {
			n++
		}
	}
	return n
}

// Store holds the results of one run. Every method takes the same mutex;
// no I/O happens while it is held.
type Store struct {
	mu sync.Mutex

	entries    []Entry
	accounted  uint64
	freed      uint64
	startedAt  time.Time
	finishedAt time.Time

	walkErrors     int
	probeErrors    int
	partialEntries int

	now func() time.Time
}

func NewStore() *Store {
	s := &Store{now: time.Now}
	s.startedAt = s.now()
	return s
}

// Append adds a Loading entry for path and returns its handle.
func (s *Store) Append(path string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := Handle(len(s.entries))
	s.entries = append(s.entries, Entry{Handle: h, Path: path, Status: StatusLoading})
	return h
}

// UpdateSize settles a Loading entry as Ready with the given size.
func (s *Store) UpdateSize(h Handle, bytes uint64) error {
	return s.UpdateMeasurement(h, Measurement{Size: bytes})
}

// UpdateMeasurement settles a Loading entry as Ready and adds its size to
// the accounted total in the same critical section.
func (s *Store) UpdateMeasurement(h Handle, m Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h, StatusLoading)
	if err != nil {
		return err
	}
	e.Size = m.Size
	e.Files = m.Files
	e.Unreadable = m.Unreadable
	e.ModTime = m.ModTime
	e.MeasuredAt = s.now()
	e.Status = StatusReady
	s.accounted += m.Size
	if m.Partial() {
		s.partialEntries++
	}
	return nil
}

// MarkError settles a Loading entry as Error. It contributes no size.
func (s *Store) MarkError(h Handle, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h, StatusLoading)
	if err != nil {
		return err
	}
	e.Status = StatusError
	e.Err = cause
	e.MeasuredAt = s.now()
	s.probeErrors++
	return nil
}

// MarkDeleting moves a Ready entry to Deleting and takes its size out of
// the accounted total.
func (s *Store) MarkDeleting(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h, StatusReady)
	if err != nil {
		return err
	}
	e.Status = StatusDeleting
	s.accounted -= e.Size
	return nil
}

// MarkDeleted completes a deletion.
func (s *Store) MarkDeleted(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h, StatusDeleting)
	if err != nil {
		return err
	}
	e.Status = StatusDeleted
	s.freed += e.Size
	return nil
}

// RestoreReady returns a Deleting entry to Ready after a failed removal.
func (s *Store) RestoreReady(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h, StatusDeleting)
	if err != nil {
		return err
	}
	e.Status = StatusReady
	s.accounted += e.Size
	return nil
}

// restart resets the start time; used when the run actually begins.
func (s *Store) restart() {
	s.mu.Lock()
	s.startedAt = s.now()
	s.mu.Unlock()
}

// RecordWalkError counts a directory the walker could not list.
func (s *Store) RecordWalkError() {
	s.mu.Lock()
	s.walkErrors++
	s.mu.Unlock()
}

// Finish stamps the end of the run. The caller must have drained the walker
// and joined every probe.
func (s *Store) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finishedAt.IsZero() {
		return ErrAlreadyFinished
	}
	s.finishedAt = s.now()
	return nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Entries:        append([]Entry(nil), s.entries...),
		BytesAccounted: s.accounted,
		BytesFreed:     s.freed,
		StartedAt:      s.startedAt,
		FinishedAt:     s.finishedAt,
		WalkErrors:     s.walkErrors,
		ProbeErrors:    s.probeErrors,
		PartialEntries: s.partialEntries,
	}
}

// Entry returns a copy of one entry.
func (s *Store) Entry(h Handle) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h < 0 || int(h) >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return s.entries[h], nil
}

// entry must be called with mu held.
func (s *Store) entry(h Handle, want Status) (*Entry, error) {
	if h < 0 || int(h) >= len(s.entries) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	e := &s.entries[h]
	if e.Status != want {
		return nil, fmt.Errorf("%w: entry %d is %s, want %s", ErrInvalidTransition, h, e.Status, want)
	}
	return e, nil
}
