package tui

import (
	"fmt"
	"log"
	"time"

	"codeberg.org/tslocum/cview"
	"github.com/riadafridishibly/npkill/report"
	"github.com/riadafridishibly/npkill/scanner"
)

func (a *App) IsScanning() bool {
	sc := a.scanner.Load()
	return sc != nil && sc.IsRunning()
}

func (a *App) startScanning() {
	sc := scanner.NewScanner(a.rootPath, scanner.Options{
		Concurrency: a.cfg.Concurrency,
		EventBuffer: a.cfg.EventBuffer,
	})
	a.scanner.Store(sc)
	// Drop the previous run's rows so no stale handle stays selectable.
	a.trySendUIUpdate(func() { a.render(sc, scanner.Snapshot{}) })

	if err := sc.Start(a.ctx); err != nil {
		a.trySendUIUpdate(func() { a.header.SetText(headerRootError(err)) })
		return
	}
	go a.processScanEvents(sc)
}

func (a *App) replaceHomeWithTilde(p string) string {
	return report.ShortenHome(p, a.userHomeDir)
}

// render must run on the UI goroutine. Snapshots from a scanner that has
// since been replaced are dropped.
func (a *App) render(sc *scanner.Scanner, snap scanner.Snapshot) {
	if sc == nil || sc != a.scanner.Load() {
		return
	}
	a.snap = snap
	a.snapScanner = sc
	a.buildTable(snap)

	if sc.State() != scanner.StateFailed {
		a.header.SetText(headerStatus(snap, sc.FileCount(), sc.DirCount(), a.freeSpace.Load(), time.Now()))
	}

	if a.footerNote != "" && time.Now().After(a.footerUntil) {
		a.footerNote = ""
		a.footer.SetText(footerStatusMenu())
	}
}

func (a *App) showFooterNote(note string) {
	a.footerNote = note
	a.footerUntil = time.Now().Add(footerNoteTTL)
	a.footer.SetText(note)
}

// buildTable lists entries in discovery order. Row 0 is the header.
func (a *App) buildTable(snap scanner.Snapshot) *cview.Table {
	theme := a.currentTheme
	table := a.table

	selected, _ := table.GetSelection()
	table.Clear()

	for col, title := range []string{" Size", "Status", "Path"} {
		cell := cview.NewTableCell(title)
		cell.SetTextColor(theme.headerBg)
		cell.SetSelectable(false)
		table.SetCell(0, col, cell)
	}

	for i, e := range snap.Entries {
		row := i + 1

		// The handle lives on column 0 so the selection can be resolved
		// without a separate lookup.
		sizeCell := cview.NewTableCell(fmt.Sprintf(" %s ", sizeText(e)))
		sizeCell.SetTextColor(theme.sizeFg)
		sizeCell.SetAlign(cview.AlignRight)
		sizeCell.SetReference(e.Handle)
		table.SetCell(row, 0, sizeCell)

		statusCell := cview.NewTableCell(e.Status.String())
		statusCell.SetTextColor(theme.statusColor(e.Status))
		statusCell.SetAlign(cview.AlignLeft)
		table.SetCell(row, 1, statusCell)

		pathCell := cview.NewTableCell(a.replaceHomeWithTilde(e.Path))
		pathCell.SetTextColor(theme.fg)
		pathCell.SetAlign(cview.AlignLeft)
		pathCell.SetExpansion(1)
		table.SetCell(row, 2, pathCell)
	}

	switch {
	case len(snap.Entries) == 0:
	case selected < 1:
		table.Select(1, 0)
	case selected > len(snap.Entries):
		table.Select(len(snap.Entries), 0)
	default:
		table.Select(selected, 0)
	}

	return table
}

// selectedEntry resolves the highlighted row against the last snapshot.
func (a *App) selectedEntry() (scanner.Entry, bool) {
	row, _ := a.table.GetSelection()
	cell := a.table.GetCell(row, 0) // the handle is always bound to column 0
	if cell == nil {
		return scanner.Entry{}, false
	}
	h, ok := cell.GetReference().(scanner.Handle)
	if !ok {
		return scanner.Entry{}, false
	}
	if int(h) >= len(a.snap.Entries) {
		log.Printf("Selected handle %d outside snapshot of %d entries", h, len(a.snap.Entries))
		return scanner.Entry{}, false
	}
	return a.snap.Entries[h], true
}

func (a *App) showItemDetail() {
	e, ok := a.selectedEntry()
	if !ok {
		return
	}
	a.detailModal.SetText(entryDetail(e, a.replaceHomeWithTilde(e.Path)))
	a.showDetail = true
	a.setRoot(a.detailModal, false)
}

func (a *App) confirmDelete() {
	e, ok := a.selectedEntry()
	if !ok {
		return
	}
	if e.Status != scanner.StatusReady {
		a.showFooterNote(fmt.Sprintf("[yellow] Only measured entries can be deleted (%s is %s)",
			a.replaceHomeWithTilde(e.Path), e.Status))
		return
	}
	if !a.cfg.ConfirmDelete {
		a.deleteSelectedItem()
		return
	}

	text := fmt.Sprintf("Delete '%s'?\n\nSize: %s", a.replaceHomeWithTilde(e.Path), sizeText(e))
	a.confirmModal.SetText(text)
	a.showConfirm = true
	a.setRoot(a.confirmModal, false)
}

func (a *App) deleteSelectedItem() {
	e, ok := a.selectedEntry()
	if !ok || e.Status != scanner.StatusReady {
		return
	}
	sc := a.snapScanner
	if sc == nil {
		return
	}

	a.pendingDeletes.Add(1)
	select {
	case a.deleteQueue <- deleteRequest{sc: sc, handle: e.Handle, path: e.Path}:
	default:
		a.pendingDeletes.Add(-1)
		a.showFooterNote("[red] Too many pending deletions, try again shortly")
	}
}
