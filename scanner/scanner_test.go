package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"
)

func waitDone(t *testing.T, s *Scanner) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not finish")
	}
}

func relPaths(t *testing.T, root string, snap Snapshot) []string {
	t.Helper()
	var out []string
	for _, e := range snap.Entries {
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestScanner_Scenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/node_modules/x.js", 10)
	writeFile(t, root, "b/package.json", 2)
	writeFile(t, root, "b/node_modules/y.js", 20)
	writeFile(t, root, "c/d/node_modules/z/z.js", 30)

	s, err := StartScan(context.Background(), root, Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	waitDone(t, s)

	if s.State() != StateFinished {
		t.Errorf("state = %s, want finished", s.State())
	}
	snap := s.Store().Snapshot()
	want := []string{"a/node_modules", "b/node_modules", "c/d/node_modules"}
	if got := relPaths(t, s.Root(), snap); !slices.Equal(got, want) {
		t.Errorf("discovered %v, want %v", got, want)
	}
	for i, size := range []uint64{10, 20, 30} {
		if e := snap.Entries[i]; e.Status != StatusReady || e.Size != size {
			t.Errorf("entry %d = %+v, want Ready/%d", i, e, size)
		}
	}
	if snap.BytesAccounted != 60 {
		t.Errorf("BytesAccounted = %d, want 60", snap.BytesAccounted)
	}
	if !snap.Finished() {
		t.Error("expected finished snapshot")
	}
	if s.FileCount() != 3 {
		t.Errorf("FileCount = %d, want 3", s.FileCount())
	}
}

func TestScanner_FinishAfterAllProbes(t *testing.T) {
	root := t.TempDir()
	const n = 60
	var want uint64
	for i := range n {
		writeFile(t, root, fmt.Sprintf("p%02d/node_modules/f.js", i), i+1)
		writeFile(t, root, fmt.Sprintf("p%02d/node_modules/dep/g.js", i), 3)
		want += uint64(i + 1 + 3)
	}

	s, err := StartScan(context.Background(), root, Options{Concurrency: 4})
	if err != nil {
		t.Fatal(err)
	}

	// Poll while running: once finished is observed, every entry must
	// be settled and the aggregate complete.
	for {
		snap := s.Store().Snapshot()
		if snap.Finished() {
			if snap.Count(StatusLoading) != 0 {
				t.Fatalf("finished with %d loading entries", snap.Count(StatusLoading))
			}
			if snap.BytesAccounted != want {
				t.Fatalf("finished with BytesAccounted %d, want %d", snap.BytesAccounted, want)
			}
			if len(snap.Entries) != n {
				t.Fatalf("finished with %d entries, want %d", len(snap.Entries), n)
			}
			break
		}
		select {
		case <-s.Done():
			if !s.Store().Snapshot().Finished() {
				t.Fatal("done without finishing the store")
			}
		default:
			time.Sleep(time.Millisecond)
		}
	}
	waitDone(t, s)
}

func TestScanner_Idempotent(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"z/node_modules", "a/b/node_modules", "m/node_modules", "m2/x/y/node_modules"} {
		writeFile(t, root, d+"/i.js", 1)
	}

	var runs [][]string
	for range 3 {
		s, err := StartScan(context.Background(), root, Options{})
		if err != nil {
			t.Fatal(err)
		}
		waitDone(t, s)
		runs = append(runs, relPaths(t, s.Root(), s.Store().Snapshot()))
	}
	for i := 1; i < len(runs); i++ {
		if !slices.Equal(runs[0], runs[i]) {
			t.Errorf("run %d discovered %v, run 0 discovered %v", i, runs[i], runs[0])
		}
	}
}

func TestScanner_RootFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	s, err := StartScan(context.Background(), missing, Options{})

	var rootErr *RootError
	if !errors.As(err, &rootErr) {
		t.Fatalf("expected *RootError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
	waitDone(t, s)
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
	if !errors.Is(s.Err(), os.ErrNotExist) {
		t.Errorf("Err() = %v", s.Err())
	}
	if snap := s.Store().Snapshot(); len(snap.Entries) != 0 || snap.Finished() {
		t.Errorf("failed run must have no results, got %+v", snap)
	}
	if _, ok := <-s.Events(); ok {
		t.Error("events channel must be closed")
	}
}

func TestScanner_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", 1)
	_, err := StartScan(context.Background(), filepath.Join(dir, "file"), Options{})
	if !errors.Is(err, ErrNotDirectory) {
		t.Errorf("expected ErrNotDirectory, got %v", err)
	}
}

func TestScanner_StartTwice(t *testing.T) {
	s := NewScanner(t.TempDir(), Options{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	waitDone(t, s)
}

func TestScanner_StopReachesFinished(t *testing.T) {
	root := t.TempDir()
	for i := range 20 {
		writeFile(t, root, fmt.Sprintf("p%d/node_modules/a.js", i), 1)
	}

	s, err := StartScan(context.Background(), root, Options{Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()

	if s.State() != StateFinished {
		t.Errorf("state = %s, want finished", s.State())
	}
	snap := s.Store().Snapshot()
	if !snap.Finished() {
		t.Error("stopped run must still be stamped finished")
	}
	if snap.Count(StatusLoading) != 0 {
		t.Errorf("%d entries left loading after stop", snap.Count(StatusLoading))
	}
	if snap.ProbeErrors != snap.Count(StatusError) {
		t.Errorf("ProbeErrors = %d, but %d entries are Error", snap.ProbeErrors, snap.Count(StatusError))
	}
	if snap.Count(StatusReady)+snap.Count(StatusError) != len(snap.Entries) {
		t.Errorf("unsettled entries after stop: %+v", snap.Entries)
	}
}

func TestScanner_EventStreamEndsWithFinished(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/node_modules/x.js", 4)

	s, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var kinds []EventKind
	for ev := range s.Events() {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) == 0 || kinds[len(kinds)-1] != EventFinished {
		t.Errorf("expected the stream to end with a finished event, got %v", kinds)
	}
}

func TestScanner_WalkErrorsCounted(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeFile(t, root, "ok/node_modules/a.js", 1)
	mkdirs(t, root, "locked/node_modules")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	s, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var walkEvents int
	for ev := range s.Events() {
		if ev.Kind == EventWalkError {
			walkEvents++
		}
	}
	snap := s.Store().Snapshot()
	if snap.WalkErrors != 1 || walkEvents != 1 {
		t.Errorf("walk errors: store %d, events %d, want 1", snap.WalkErrors, walkEvents)
	}
	if len(snap.Entries) != 1 || snap.Entries[0].Status != StatusReady {
		t.Errorf("unexpected entries %+v", snap.Entries)
	}
}

func TestScanner_Delete(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/node_modules/x.js", 40)
	writeFile(t, root, "b/node_modules/y.js", 2)

	s, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	snap := s.Store().Snapshot()
	a, b := snap.Entries[0], snap.Entries[1]
	if err := s.Delete(a.Handle, a.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "a", "node_modules")); !os.IsNotExist(err) {
		t.Errorf("expected directory removed, stat err = %v", err)
	}
	snap = s.Store().Snapshot()
	if snap.Entries[0].Status != StatusDeleted {
		t.Errorf("status = %s, want Deleted", snap.Entries[0].Status)
	}
	if snap.BytesFreed != 40 || snap.BytesAccounted != 2 {
		t.Errorf("unexpected aggregates: freed %d, accounted %d", snap.BytesFreed, snap.BytesAccounted)
	}
	if err := s.Delete(a.Handle, a.Path); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Delete: expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Delete(b.Handle, a.Path); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Delete with the wrong path: expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Delete(7, b.Path); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Delete(7): expected ErrInvalidHandle, got %v", err)
	}
}

func TestScanner_DeleteRejectsHandleFromPreviousRun(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a", "b", "c"} {
		writeFile(t, root, d+"/node_modules/i.js", 1)
	}

	first, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, first)
	old := first.Store().Snapshot()
	if err := first.Delete(old.Entries[0].Handle, old.Entries[0].Path); err != nil {
		t.Fatal(err)
	}

	// After the rescan b sits at handle 0 and c at handle 1.
	second, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, second)

	picked := old.Entries[1]
	if err := second.Delete(picked.Handle, picked.Path); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	for _, d := range []string{"b", "c"} {
		if _, err := os.Stat(filepath.Join(root, d, "node_modules")); err != nil {
			t.Errorf("%s/node_modules must survive: %v", d, err)
		}
	}
}

func TestScanner_UnmeasurableEntryIsError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeFile(t, root, "ok/node_modules/a.js", 5)
	writeFile(t, root, "locked/node_modules/b.js", 7)
	locked := filepath.Join(root, "locked", "node_modules")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	s, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	var probeErrors []string
	for ev := range s.Events() {
		if ev.Kind == EventProbeError {
			probeErrors = append(probeErrors, ev.Path)
		}
	}

	snap := s.Store().Snapshot()
	if got := relPaths(t, s.Root(), snap); !slices.Equal(got, []string{"locked/node_modules", "ok/node_modules"}) {
		t.Fatalf("discovered %v", got)
	}
	if e := snap.Entries[0]; e.Status != StatusError || e.Err == nil || e.Size != 0 {
		t.Errorf("locked entry = %+v, want Error with a cause", e)
	}
	if snap.ProbeErrors != 1 || len(probeErrors) != 1 || probeErrors[0] != snap.Entries[0].Path {
		t.Errorf("probe errors: store %d, events %v", snap.ProbeErrors, probeErrors)
	}
	if snap.BytesAccounted != 5 {
		t.Errorf("BytesAccounted = %d, want 5", snap.BytesAccounted)
	}
}

func TestScanner_PartialEntryStaysReady(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeFile(t, root, "app/node_modules/a.js", 8)
	writeFile(t, root, "app/node_modules/locked/b.js", 100)
	locked := filepath.Join(root, "app", "node_modules", "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	s, err := StartScan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	var partial []Event
	for ev := range s.Events() {
		if ev.Kind == EventProbePartial {
			partial = append(partial, ev)
		}
	}

	snap := s.Store().Snapshot()
	if len(snap.Entries) != 1 {
		t.Fatalf("unexpected entries %+v", snap.Entries)
	}
	e := snap.Entries[0]
	if e.Status != StatusReady || e.Size != 8 || e.Unreadable == 0 {
		t.Errorf("entry = %+v, want Ready/8 with unreadable entries", e)
	}
	if snap.PartialEntries != 1 || snap.ProbeErrors != 0 {
		t.Errorf("PartialEntries = %d, ProbeErrors = %d", snap.PartialEntries, snap.ProbeErrors)
	}
	if len(partial) != 1 || partial[0].Handle != e.Handle || partial[0].Unreadable != e.Unreadable {
		t.Errorf("partial events %+v", partial)
	}
}

func TestScanner_PanickingMeasurementSettles(t *testing.T) {
	orig := measure
	t.Cleanup(func() { measure = orig })
	measure = func(ctx context.Context, path string) (Measurement, error) {
		if filepath.Base(filepath.Dir(path)) == "b" {
			panic("boom")
		}
		return Measure(ctx, path)
	}

	root := t.TempDir()
	for _, d := range []string{"a", "b", "c", "d"} {
		writeFile(t, root, d+"/node_modules/i.js", 3)
	}

	// One slot: a leaked slot would leave c and d loading forever.
	s, err := StartScan(context.Background(), root, Options{Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}
	var sawError bool
	for ev := range s.Events() {
		if ev.Kind == EventProbeError && filepath.Base(filepath.Dir(ev.Path)) == "b" {
			sawError = true
		}
	}

	if s.State() != StateFinished {
		t.Errorf("state = %s, want finished", s.State())
	}
	snap := s.Store().Snapshot()
	for _, e := range snap.Entries {
		want := StatusReady
		if filepath.Base(filepath.Dir(e.Path)) == "b" {
			want = StatusError
		}
		if e.Status != want {
			t.Errorf("%s: status %s, want %s", e.Path, e.Status, want)
		}
	}
	if snap.ProbeErrors != 1 || snap.BytesAccounted != 9 || !sawError {
		t.Errorf("ProbeErrors = %d, BytesAccounted = %d, error event %v", snap.ProbeErrors, snap.BytesAccounted, sawError)
	}
}
