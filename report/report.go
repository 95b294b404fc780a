// Package report prints scan results as plain styled lines, for use when
// the interactive UI is not wanted.
package report

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/riadafridishibly/npkill/scanner"
)

var (
	sizeStyle    = lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Foreground(lipgloss.Color("3"))
	statusStyles = map[scanner.Status]lipgloss.Style{
		scanner.StatusLoading:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		scanner.StatusReady:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		scanner.StatusError:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		scanner.StatusDeleting: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		scanner.StatusDeleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	statusWidth  = lipgloss.NewStyle().Width(8)
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

type Options struct {
	// How often the store is polled.
	Interval time.Duration
	// Home is replaced with "~" in printed paths when non-empty.
	Home string
}

// Stream prints each entry once it settles, then a summary when the scan
// is done. Cancelling ctx stops the scan; the summary is still printed.
func Stream(ctx context.Context, w io.Writer, sc *scanner.Scanner, opts Options) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printed := make(map[scanner.Handle]bool)
	flush := func(snap scanner.Snapshot) error {
		for _, e := range snap.Entries {
			if e.Status == scanner.StatusLoading || printed[e.Handle] {
				continue
			}
			printed[e.Handle] = true
			if _, err := fmt.Fprintln(w, Line(e, opts.Home)); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			sc.Stop()
		case <-sc.Done():
		case <-ticker.C:
			if err := flush(sc.Store().Snapshot()); err != nil {
				return err
			}
			continue
		}
		break
	}

	snap := sc.Store().Snapshot()
	if err := flush(snap); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, Summary(snap, sc.DirCount(), time.Now()))
	return err
}

// Line renders one entry as "size  status  path".
func Line(e scanner.Entry, home string) string {
	size := "--"
	if e.Sized() {
		size = humanize.Bytes(e.Size)
	}
	status := statusWidth.Render(statusStyles[e.Status].Render(e.Status.String()))
	line := fmt.Sprintf("%s  %s  %s", sizeStyle.Render(size), status, ShortenHome(e.Path, home))
	if e.Status == scanner.StatusError && e.Err != nil {
		line += statusStyles[scanner.StatusError].Render(fmt.Sprintf("  (%v)", e.Err))
	}
	return line
}

// Summary renders the run totals. dirs is the number of directories the
// walker listed.
func Summary(snap scanner.Snapshot, dirs int64, now time.Time) string {
	parts := []string{
		fmt.Sprintf("%s node_modules", humanize.Comma(int64(len(snap.Entries)))),
		fmt.Sprintf("%s dirs searched", humanize.Comma(dirs)),
		fmt.Sprintf("total %s", humanize.Bytes(snap.BytesAccounted)),
		fmt.Sprintf("elapsed %s", snap.Elapsed(now).Round(time.Millisecond)),
	}
	if snap.BytesFreed > 0 {
		parts = append(parts, fmt.Sprintf("freed %s", humanize.Bytes(snap.BytesFreed)))
	}
	if n := snap.ProbeErrors + snap.WalkErrors; n > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", n))
	}
	if snap.PartialEntries > 0 {
		parts = append(parts, fmt.Sprintf("%d partially measured", snap.PartialEntries))
	}
	return summaryStyle.Render(strings.Join(parts, " | "))
}

// ShortenHome replaces a leading home directory with "~". Only whole path
// elements match: /home/al does not shorten /home/alice.
func ShortenHome(p, home string) string {
	home = strings.TrimSuffix(home, string(filepath.Separator))
	if home == "" {
		return p
	}
	after, ok := strings.CutPrefix(p, home)
	if !ok || (after != "" && after[0] != filepath.Separator) {
		return p
	}
	return "~" + after
}
