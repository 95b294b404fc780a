package tui

import (
	"context"
	"log"
	"time"

	"codeberg.org/tslocum/cview"
	"github.com/riadafridishibly/npkill/scanner"
)

// footerNoteTTL is how long an event message replaces the key menu.
const footerNoteTTL = 3 * time.Second

func (a *App) trySendUIUpdate(f func()) {
	select {
	case a.uiUpdates <- f:
	default:
	}
}

// setRoot queues a SetRoot operation to avoid data races
func (a *App) setRoot(primitive cview.Primitive, focus bool) {
	a.app.QueueUpdateDraw(func() {
		a.app.SetRoot(primitive, focus)
	})
}

// refreshLoop redraws from a fresh store snapshot on every tick. It only
// reads the store and never waits on the scan itself.
func (a *App) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc := a.scanner.Load()
			if sc == nil {
				continue
			}
			if free, err := scanner.FreeSpace(sc.Root()); err == nil {
				a.freeSpace.Store(free)
			}
			snap := sc.Store().Snapshot()
			a.trySendUIUpdate(func() { a.render(sc, snap) })
		}
	}
}

// processScanEvents surfaces walk and probe failures in the footer.
func (a *App) processScanEvents(sc *scanner.Scanner) {
	for ev := range sc.Events() {
		if ev.Kind == scanner.EventFinished {
			log.Printf("Scan finished: %s", sc.Root())
			snap := sc.Store().Snapshot()
			a.trySendUIUpdate(func() { a.render(sc, snap) })
			continue
		}
		note := footerStatusEvent(a.replaceHomeWithTilde(ev.Path), ev)
		a.trySendUIUpdate(func() { a.showFooterNote(note) })
	}
}
