package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	ErrAlreadyStarted = errors.New("scan already started")
	ErrNotDirectory   = errors.New("not a directory")
)

// RootError reports that the starting directory could not be resolved.
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("resolve root %q: %v", e.Path, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

type State int32

const (
	StateNotStarted State = iota
	StateScanning
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateScanning:
		return "scanning"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type Options struct {
	// Concurrency bounds the number of directories measured at once.
	// 0 means runtime.NumCPU()*4; probes are I/O bound.
	Concurrency int
	// EventBuffer is the capacity of the Events channel. Events that do
	// not fit are dropped. 0 means 256.
	EventBuffer int
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.NumCPU() * 4
}

func (o Options) eventBuffer() int {
	if o.EventBuffer > 0 {
		return o.EventBuffer
	}
	return 256
}

// measure is swapped out in tests.
var measure = Measure

// feedBuffer is the capacity of the walker -> orchestrator channel.
const feedBuffer = 64

// Scanner runs one scan: a walker feeding discovered node_modules paths to
// a loop that records each one in the Store and measures it concurrently.
type Scanner struct {
	rootPath string
	opts     Options

	store  *Store
	walker *Walker

	// Walk and probe events; closed once the run is over.
	events chan Event

	// Closed when the scanner reaches Finished or Failed.
	doneChan chan struct{}

	started atomic.Bool
	state   atomic.Int32

	// Regular files measured across all probes.
	fileCount atomic.Int64

	err error // set before doneChan closes

	cancel context.CancelFunc
}

func NewScanner(rootPath string, opts Options) *Scanner {
	s := &Scanner{
		rootPath: rootPath,
		opts:     opts,
		store:    NewStore(),
		events:   make(chan Event, opts.eventBuffer()),
		doneChan: make(chan struct{}),
		cancel:   func() {},
	}
	s.walker = &Walker{OnError: s.walkError}
	return s
}

// StartScan creates a scanner for root and starts it.
func StartScan(ctx context.Context, root string, opts Options) (*Scanner, error) {
	s := NewScanner(root, opts)
	if err := s.Start(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Start resolves the root and, on success, launches the pipeline and
// returns immediately. A root that cannot be resolved moves the scanner to
// StateFailed and returns a *RootError.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	root, err := resolveRoot(s.rootPath)
	if err != nil {
		s.err = err
		s.state.Store(int32(StateFailed))
		close(s.events)
		close(s.doneChan)
		log.Printf("Scan of %s failed: %v", s.rootPath, err)
		return err
	}
	s.rootPath = root

	ctx, s.cancel = context.WithCancel(ctx)
	s.store.restart()
	s.state.Store(int32(StateScanning))
	log.Printf("Scanning %s with %d probes", root, s.opts.concurrency())

	go func() {
		defer close(s.doneChan)
		defer close(s.events)
		defer s.cancel()

		s.run(ctx)

		s.state.Store(int32(StateFinished))
		s.sendEvent(Event{Kind: EventFinished, Path: s.rootPath})
	}()
	return nil
}

func resolveRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &RootError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &RootError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &RootError{Path: abs, Err: ErrNotDirectory}
	}
	return abs, nil
}

func (s *Scanner) run(ctx context.Context) {
	feed := make(chan string, feedBuffer)
	go func() {
		defer close(feed)
		for path := range s.walker.Walk(ctx, s.rootPath) {
			select {
			case feed <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	var g errgroup.Group
	sem := semaphore.NewWeighted(int64(s.opts.concurrency()))

	for path := range feed {
		h := s.store.Append(path)
		g.Go(func() error {
			s.probe(ctx, sem, h, path)
			return nil
		})
	}

	// Every probe must have settled its entry before the run is stamped.
	_ = g.Wait()

	if err := s.store.Finish(); err != nil {
		log.Printf("Finish: %v", err)
	}
	snap := s.store.Snapshot()
	log.Printf("Scan of %s finished in %s: %d entries, %d bytes, %d walk errors, %d probe errors",
		s.rootPath, snap.Elapsed(time.Now()).Round(time.Millisecond), len(snap.Entries),
		snap.BytesAccounted, snap.WalkErrors, snap.ProbeErrors)
}

func (s *Scanner) probe(ctx context.Context, sem *semaphore.Weighted, h Handle, path string) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("probe panic: %v", r)
			log.Printf("Measuring %s: %v", path, err)
			s.settleError(h, path, err)
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		s.settleError(h, path, err)
		return
	}
	m, err := func() (Measurement, error) {
		defer sem.Release(1)
		return measure(ctx, path)
	}()

	if err != nil {
		log.Printf("Measuring %s: %v", path, err)
		s.settleError(h, path, err)
		return
	}

	s.fileCount.Add(m.Files)
	if err := s.store.UpdateMeasurement(h, m); err != nil {
		log.Printf("Updating %s: %v", path, err)
		return
	}
	if m.Partial() {
		log.Printf("Measured %s with %d unreadable entries", path, m.Unreadable)
		s.sendEvent(Event{Kind: EventProbePartial, Path: path, Handle: h, Unreadable: m.Unreadable})
	}
}

func (s *Scanner) settleError(h Handle, path string, cause error) {
	if err := s.store.MarkError(h, cause); err != nil {
		log.Printf("Marking %s as failed: %v", path, err)
		return
	}
	s.sendEvent(Event{Kind: EventProbeError, Path: path, Handle: h, Err: cause})
}

func (s *Scanner) walkError(dir string, err error) {
	log.Printf("Reading %s: %v", dir, err)
	s.store.RecordWalkError()
	s.sendEvent(Event{Kind: EventWalkError, Path: dir, Err: err})
}

// sendEvent never blocks; the store counters stay authoritative when an
// event is dropped.
func (s *Scanner) sendEvent(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// Stop cancels an in-flight scan and waits for it to reach Finished.
// Probes still running settle as Error.
func (s *Scanner) Stop() {
	if s.State() == StateNotStarted {
		return
	}
	s.cancel()
	<-s.doneChan
}

func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) IsRunning() bool {
	return s.State() == StateScanning
}

func (s *Scanner) Root() string {
	return s.rootPath
}

func (s *Scanner) Store() *Store {
	return s.store
}

func (s *Scanner) Events() <-chan Event {
	return s.events
}

func (s *Scanner) Done() <-chan struct{} {
	return s.doneChan
}

// Err returns the root resolution error of a failed scanner. Valid after
// Done is closed.
func (s *Scanner) Err() error {
	select {
	case <-s.doneChan:
		return s.err
	default:
		return nil
	}
}

func (s *Scanner) FileCount() int64 {
	return s.fileCount.Load()
}

func (s *Scanner) DirCount() int64 {
	return s.walker.Dirs()
}

// Delete removes a Ready entry from disk. path must be the entry's path, so
// a handle taken from another run's snapshot is rejected. The entry passes
// through Deleting and ends as Deleted, or returns to Ready if removal
// failed.
func (s *Scanner) Delete(h Handle, path string) error {
	e, err := s.store.Entry(h)
	if err != nil {
		return err
	}
	if e.Path != path {
		return fmt.Errorf("%w: entry %d is %s, not %s", ErrInvalidTransition, h, e.Path, path)
	}

	if err := s.store.MarkDeleting(h); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		if rerr := s.store.RestoreReady(h); rerr != nil {
			log.Printf("Restoring %s: %v", path, rerr)
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if err := s.store.MarkDeleted(h); err != nil {
		return err
	}
	log.Printf("Deleted %s", path)
	return nil
}
