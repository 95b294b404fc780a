package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/riadafridishibly/npkill/scanner"
)

const footerMenu = "[black] [s/S]: Rescan  ↑/↓ j/k: Navigate  i: Details  [space/d]: Delete  t: Theme  [q/Q]: Quit"

func headerStartupStatus(root string) string {
	return fmt.Sprintf("[white] Scanning %s ", root)
}

func headerRootError(err error) string {
	return fmt.Sprintf("[red] Cannot scan: %v ", err)
}

// headerStatus summarises a snapshot in one line.
func headerStatus(snap scanner.Snapshot, files, dirs int64, free uint64, now time.Time) string {
	elapsed := snap.Elapsed(now).Round(100 * time.Millisecond)

	var b strings.Builder
	b.WriteString("[white] ")
	if snap.Finished() {
		b.WriteString("Done")
	} else {
		b.WriteString("Scanning")
	}
	fmt.Fprintf(&b, " | Found: %d", len(snap.Entries))
	if n := snap.Count(scanner.StatusLoading); n > 0 {
		fmt.Fprintf(&b, " (%d measuring)", n)
	}
	fmt.Fprintf(&b, " | Dirs: %s", humanize.Comma(dirs))
	fmt.Fprintf(&b, " | Files: %s", humanize.Comma(files))
	fmt.Fprintf(&b, " | Elapsed: %s", elapsed)
	fmt.Fprintf(&b, " | Total: %s", humanize.Bytes(snap.BytesAccounted))
	if snap.BytesFreed > 0 {
		fmt.Fprintf(&b, " | Freed: %s", humanize.Bytes(snap.BytesFreed))
	}
	if free > 0 {
		fmt.Fprintf(&b, " | Free space: %s", humanize.Bytes(free))
	}
	if n := snap.WalkErrors + snap.ProbeErrors; n > 0 {
		fmt.Fprintf(&b, " | [red]Errors: %d[white]", n)
	}
	b.WriteString(" ")
	return b.String()
}

func footerStatusMenu() string {
	return footerMenu
}

func footerStatusEvent(displayPath string, ev scanner.Event) string {
	switch ev.Kind {
	case scanner.EventWalkError:
		return fmt.Sprintf("[red] Cannot read: %s", displayPath)
	case scanner.EventProbeError:
		return fmt.Sprintf("[red] Cannot measure: %s: %v", displayPath, ev.Err)
	case scanner.EventProbePartial:
		return fmt.Sprintf("[yellow] Partially measured: %s (%d unreadable)", displayPath, ev.Unreadable)
	}
	return footerMenu
}

func footerStatusDeleting(displayPath string) string {
	return fmt.Sprintf("[white] Deleting: %q", displayPath)
}

func footerStatusDeleted(displayPath string) string {
	return fmt.Sprintf("[white] Deleted: %q", displayPath)
}

func footerStatusDeleteError(displayPath string, err error) string {
	return fmt.Sprintf("[red] Error deleting %q: %v", displayPath, err)
}

// sizeText is the size column for an entry.
func sizeText(e scanner.Entry) string {
	if !e.Sized() {
		return "--"
	}
	return humanize.Bytes(e.Size)
}

func entryDetail(e scanner.Entry, displayPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Path: %s\n", displayPath)
	fmt.Fprintf(&b, "Status: %s\n", e.Status)
	fmt.Fprintf(&b, "Size: %s\n", sizeText(e))
	if e.Sized() {
		fmt.Fprintf(&b, "Files: %s\n", humanize.Comma(e.Files))
		fmt.Fprintf(&b, "Last Modified: %s (%s)\n", e.ModTime.Format("2006-01-02 15:04:05 MST"), humanize.Time(e.ModTime))
		fmt.Fprintf(&b, "Measured At: %s\n", e.MeasuredAt.Format(time.Kitchen))
	}
	if e.Unreadable > 0 {
		fmt.Fprintf(&b, "Unreadable entries: %d\n", e.Unreadable)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", e.Err)
	}
	return b.String()
}
